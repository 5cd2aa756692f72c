package loader

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/tomorrownow/PyFCM/internal/fcm"
)

// LoadCSV reads a map from a CSV file.
func LoadCSV(path string, opts ...Option) (*fcm.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return decodeCSV(data, path, buildOptions(opts))
}

// ReadCSV reads a map from CSV data.
func ReadCSV(r io.Reader, opts ...Option) (*fcm.Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: read csv: %w", err)
	}
	return decodeCSV(data, "csv input", buildOptions(opts))
}

func decodeCSV(data []byte, source string, o options) (*fcm.Map, error) {
	// The header decides the schema width, so it is read on its own first.
	header, err := stdcsv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("loader: read header of %s: %w", source, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("loader: %s header has %d cells, want an index cell and at least one concept: %w",
			source, len(header), fcm.ErrInvalidArgument)
	}

	fields := make([]arrow.Field, len(header))
	fields[0] = arrow.Field{Name: "concept", Type: arrow.BinaryTypes.String}
	for i := 1; i < len(header); i++ {
		fields[i] = arrow.Field{Name: header[i], Type: arrow.PrimitiveTypes.Float64, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	rdr := csv.NewReader(bytes.NewReader(data), schema,
		csv.WithHeader(true),
		csv.WithNullReader(true, ""),
		csv.WithChunk(256),
	)
	defer rdr.Release()

	t := &table{header: header[1:]}
	for rdr.Next() {
		rec := rdr.Record()
		labels, ok := rec.Column(0).(*array.String)
		if !ok {
			return nil, fmt.Errorf("loader: %s: index column decoded as %s", source, rec.Column(0).DataType())
		}
		for row := 0; row < int(rec.NumRows()); row++ {
			t.labels = append(t.labels, labels.Value(row))
			weights := make([]float64, len(header)-1)
			for col := 1; col < int(rec.NumCols()); col++ {
				values, ok := rec.Column(col).(*array.Float64)
				if !ok {
					return nil, fmt.Errorf("loader: %s: column %q decoded as %s",
						source, header[col], rec.Column(col).DataType())
				}
				if values.IsNull(row) {
					continue
				}
				weights[col-1] = values.Value(row)
			}
			t.rows = append(t.rows, weights)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("loader: decode %s: %v: %w", source, err, fcm.ErrInvalidArgument)
	}

	return t.toMap(o, source)
}
