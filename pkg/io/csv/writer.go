package csv

import (
	"encoding/csv"
	"os"
	"strconv"

	anio "github.com/aycadem/anomeval/pkg/io"
)

// ScoreWriter writes scoring results as CSV with an id,score,is_anomaly
// header.
type ScoreWriter struct {
	file *os.File
	w    *csv.Writer
}

// NewScoreWriter creates the output file and writes the header.
func NewScoreWriter(filename string) (*ScoreWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(file)
	if err := w.Write([]string{"id", "score", "is_anomaly"}); err != nil {
		file.Close()
		return nil, err
	}

	return &ScoreWriter{file: file, w: w}, nil
}

// Write outputs a single result row.
func (s *ScoreWriter) Write(result anio.Result) error {
	return s.w.Write([]string{
		result.ID,
		strconv.FormatFloat(result.Score, 'g', -1, 64),
		strconv.FormatBool(result.IsAnomaly),
	})
}

// WriteAll outputs multiple result rows.
func (s *ScoreWriter) WriteAll(results []anio.Result) error {
	for _, r := range results {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (s *ScoreWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
