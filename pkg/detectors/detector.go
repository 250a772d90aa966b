// Package detectors provides unsupervised anomaly scoring algorithms.
package detectors

import "context"

// Detector is the common interface for batch anomaly scorers.
//
// All detectors in this module follow a single polarity convention:
// higher score = more anomalous. Callers that want a normal-likelihood
// must invert (1 - score) themselves.
type Detector interface {
	// Name identifies the algorithm, e.g. for run records.
	Name() string

	// Fit trains the detector on a row-major feature matrix.
	Fit(data [][]float64) error

	// Predict returns one anomaly score per input row.
	Predict(data [][]float64) ([]float64, error)

	// PredictOne returns the anomaly score for a single feature vector.
	PredictOne(sample []float64) (float64, error)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// StreamDetector extends Detector with channel-based scoring.
type StreamDetector interface {
	Detector

	// PredictStream scores samples from a channel until it closes or the
	// context is cancelled.
	PredictStream(ctx context.Context, input <-chan []float64, output chan<- Score) error
}

// Score is a single streaming scoring result.
type Score struct {
	// Value is the anomaly score; higher means more anomalous.
	Value float64
	// IsAnomaly reports whether Value exceeds the detector threshold.
	IsAnomaly bool
	// Features is the scored input vector.
	Features []float64
}

// Config holds settings shared across detector constructors.
type Config struct {
	// Contamination is the expected proportion of anomalies, used to
	// derive a percentile threshold after training.
	Contamination float64
	// Threshold classifies scores strictly above it as anomalous.
	Threshold float64
	// Seed makes runs reproducible.
	Seed int64
}

// DefaultConfig returns the defaults used by the bundled detectors.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.1,
		Threshold:     0.5,
		Seed:          42,
	}
}
