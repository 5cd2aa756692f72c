// Package loader reads fuzzy cognitive map adjacency matrices from CSV and
// XLSX files. Both formats share one layout: the first row holds the concept
// names (its first cell labels the index column), the first column holds the
// same names as row labels, and every other cell is the weight from the row
// concept to the column concept. Empty cells are read as zero.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/sanitize"
	"gopkg.in/yaml.v3"
)

type options struct {
	conceptMap map[string]string
	sheet      string
}

// Option configures a load.
type Option func(*options)

// WithConceptMap renames concepts after reading. Names missing from the map
// are kept as they are.
func WithConceptMap(m map[string]string) Option {
	return func(o *options) { o.conceptMap = m }
}

// WithSheet selects the XLSX sheet to read. The default is the first sheet.
func WithSheet(name string) Option {
	return func(o *options) { o.sheet = name }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads a map from path, choosing the decoder by file extension.
func Load(path string, opts ...Option) (*fcm.Map, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return LoadCSV(path, opts...)
	case ".xlsx":
		return LoadXLSX(path, opts...)
	default:
		return nil, fmt.Errorf("loader: unsupported file type %q for %s (want .csv or .xlsx): %w",
			ext, path, fcm.ErrInvalidArgument)
	}
}

// LoadConceptMap reads a YAML mapping of original concept names to display
// names, e.g.
//
//	c1: Rainfall
//	c2: Crop yield
func LoadConceptMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read concept map: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("loader: parse concept map %s: %w", path, err)
	}
	return m, nil
}

// table is a decoded matrix before validation.
type table struct {
	header []string // concept names from the first row, index cell excluded
	labels []string // row labels from the first column
	rows   [][]float64
}

// toMap renames, checks that row labels match column headers, and builds the Map.
func (t *table) toMap(o options, source string) (*fcm.Map, error) {
	if len(t.header) == 0 {
		return nil, fmt.Errorf("loader: %s has no concept columns: %w", source, fcm.ErrInvalidArgument)
	}
	header := rename(t.header, o.conceptMap)
	labels := rename(t.labels, o.conceptMap)

	if len(labels) != len(header) {
		return nil, fmt.Errorf("loader: %s has %d rows for %d concept columns: %w",
			source, len(labels), len(header), fcm.ErrInvalidArgument)
	}
	for i := range header {
		if labels[i] != header[i] {
			return nil, fmt.Errorf("loader: %s row %d is labelled %q but column %d is %q: %w",
				source, i+1, labels[i], i+1, header[i], fcm.ErrInvalidArgument)
		}
	}

	m, err := fcm.NewMapFromRows(header, t.rows)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", source, err)
	}
	return m, nil
}

// rename applies conceptMap and cleans every resulting label.
func rename(names []string, conceptMap map[string]string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if mapped, ok := conceptMap[name]; ok {
			name = mapped
		}
		out[i] = sanitize.ConceptName(name)
	}
	return out
}
