// Package csv reads tabular data as rows of string cells and extracts
// typed columns from them.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/aycadem/anomeval/pkg/dataset"
)

// Reader reads rows from a CSV file.
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	hasHeader bool
	headers   []string
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates whether the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// NewReader opens filename for reading. A header row is expected unless
// WithHeader(false) is given.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:      file,
		reader:    csv.NewReader(file),
		hasHeader: true,
	}
	// Rows in the wild are ragged; cells are validated per column later.
	r.reader.FieldsPerRecord = -1

	for _, opt := range opts {
		opt(r)
	}

	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, err
		}
		r.headers = headers
	}

	return r, nil
}

// Headers returns the column headers, or nil without a header row.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns all remaining rows as string cells.
func (r *Reader) Read() ([][]string, error) {
	var rows [][]string

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > 0 {
			rows = append(rows, record)
		}
	}

	return rows, nil
}

// Stream returns a channel of rows for incremental processing.
func (r *Reader) Stream(ctx context.Context) (<-chan []string, error) {
	out := make(chan []string, 100)

	go func() {
		defer close(out)
		for {
			record, err := r.reader.Read()
			if err != nil {
				return
			}
			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// NamedColumn ties a feature name to its column index.
type NamedColumn struct {
	Name   string
	Column int
}

// Column parses one column of string rows into floats.
func Column(rows [][]string, idx int) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("csv: row %d has %d cells, need column %d", i, len(row), idx)
		}
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("csv: row %d column %d: %w", i, idx, err)
		}
		out[i] = v
	}
	return out, nil
}

// Columns assembles a row-major feature matrix from the given columns.
func Columns(rows [][]string, cols []NamedColumn) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, len(cols))
	}
	for c, col := range cols {
		vals, err := Column(rows, col.Column)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			out[i][c] = vals[i]
		}
	}
	return out, nil
}

// Labels extracts binary labels from one column; a cell equal to positive
// reads as true.
func Labels(rows [][]string, idx int, positive string) ([]bool, error) {
	out := make([]bool, len(rows))
	for i, row := range rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("csv: row %d has %d cells, need column %d", i, len(row), idx)
		}
		out[i] = row[idx] == positive
	}
	return out, nil
}

// Samples builds named-feature samples from string rows. When idColumn is
// negative, samples are identified by row index.
func Samples(rows [][]string, idColumn int, cols []NamedColumn) ([]*dataset.Sample, error) {
	if len(cols) == 0 {
		return nil, errors.New("csv: no feature columns given")
	}

	samples := make([]*dataset.Sample, len(rows))
	for i, row := range rows {
		id := fmt.Sprintf("row_%d", i)
		if idColumn >= 0 {
			if idColumn >= len(row) {
				return nil, fmt.Errorf("csv: row %d has %d cells, need column %d", i, len(row), idColumn)
			}
			id = row[idColumn]
		}

		s := dataset.NewSample(id)
		for _, col := range cols {
			if col.Column >= len(row) {
				return nil, fmt.Errorf("csv: row %d has %d cells, need column %d", i, len(row), col.Column)
			}
			v, err := strconv.ParseFloat(row[col.Column], 64)
			if err != nil {
				return nil, fmt.Errorf("csv: row %d column %d: %w", i, col.Column, err)
			}
			s.AddFeature(col.Name, v)
		}
		samples[i] = s
	}
	return samples, nil
}
