// Package io defines the generic tabular row model the engines consume:
// rows of string cells on the way in, score records on the way out.
// Parsing and column selection stay on this side of the boundary; the
// detectors only ever see numeric feature vectors.
package io

import (
	"context"

	"github.com/aycadem/anomeval/pkg/dataset"
)

// Reader reads raw tabular rows from a data source.
type Reader interface {
	// Read returns every row as string cells.
	Read() ([][]string, error)

	// Stream returns a channel of rows for incremental processing.
	Stream(ctx context.Context) (<-chan []string, error)

	// Close releases resources.
	Close() error
}

// SampleSource produces ready-made samples with named numeric features,
// for sources that are not naturally tabular (e.g. packet captures).
type SampleSource interface {
	// ReadSamples returns all available samples.
	ReadSamples() ([]*dataset.Sample, error)

	// Close releases resources.
	Close() error
}

// Result is one scored sample on its way to an output sink.
type Result struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	IsAnomaly bool    `json:"is_anomaly"`
}

// Writer is the interface for writing scoring results.
type Writer interface {
	// Write outputs a single result.
	Write(result Result) error

	// WriteAll outputs multiple results.
	WriteAll(results []Result) error

	// Close flushes and releases resources.
	Close() error
}
