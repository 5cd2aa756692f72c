package report

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/sensitivity"
)

// WriteChangesCSV writes one "concept,delta" line per change with no header.
func WriteChangesCSV(w io.Writer, changes []fcm.ConceptChange) error {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "concept", Type: arrow.BinaryTypes.String},
		{Name: "delta", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	names := b.Field(0).(*array.StringBuilder)
	deltas := b.Field(1).(*array.Float64Builder)
	for _, c := range changes {
		names.Append(c.Concept)
		deltas.Append(c.Delta)
	}

	return writeRecord(w, schema, b, false)
}

// WriteValuesCSV writes "concept,value" lines with a header row.
func WriteValuesCSV(w io.Writer, values []ConceptValue) error {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "concept", Type: arrow.BinaryTypes.String},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	names := b.Field(0).(*array.StringBuilder)
	vals := b.Field(1).(*array.Float64Builder)
	for _, v := range values {
		names.Append(v.Concept)
		vals.Append(v.Value)
	}

	return writeRecord(w, schema, b, true)
}

// WriteSensitivityCSV writes one row per level with a column per series,
// headed "level,<concept>/<principle>,...".
func WriteSensitivityCSV(w io.Writer, r *sensitivity.Report) error {
	fields := make([]arrow.Field, 0, len(r.Series)+1)
	fields = append(fields, arrow.Field{Name: "level", Type: arrow.PrimitiveTypes.Float64})
	for _, s := range r.Series {
		fields = append(fields, arrow.Field{Name: SeriesName(s), Type: arrow.PrimitiveTypes.Float64})
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues(r.Levels, nil)
	for i, s := range r.Series {
		if len(s.Deltas) != len(r.Levels) {
			return fmt.Errorf("report: series %s has %d deltas for %d levels", SeriesName(s), len(s.Deltas), len(r.Levels))
		}
		b.Field(i+1).(*array.Float64Builder).AppendValues(s.Deltas, nil)
	}

	return writeRecord(w, schema, b, true)
}

// SeriesName is the column label of a sensitivity series.
func SeriesName(s sensitivity.Series) string {
	return s.Concept + "/" + s.Principle
}

func writeRecord(w io.Writer, schema *arrow.Schema, b *array.RecordBuilder, header bool) error {
	rec := b.NewRecord()
	defer rec.Release()

	cw := csv.NewWriter(w, schema, csv.WithHeader(header))
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("report: write csv: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("report: flush csv: %w", err)
	}
	return nil
}
