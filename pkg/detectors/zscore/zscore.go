// Package zscore implements a per-feature statistical anomaly scorer:
// each feature's deviation from the training mean is measured in standard
// deviations, and the score is the mean absolute z-score across features.
// Higher score = more anomalous.
package zscore

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"sync"
)

// ErrNotFitted is returned when predicting before Fit.
var ErrNotFitted = errors.New("zscore: model not fitted")

// Detector holds per-feature population statistics from training data.
type Detector struct {
	mu sync.RWMutex

	means  []float64
	stds   []float64
	fitted bool
}

// New creates an unfitted Detector.
func New() *Detector {
	return &Detector{}
}

// Name implements detectors.Detector.
func (d *Detector) Name() string {
	return "zscore"
}

// Fit computes the population mean and standard deviation of each column.
func (d *Detector) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("zscore: empty training data")
	}

	nCols := len(data[0])
	means := make([]float64, nCols)
	stds := make([]float64, nCols)

	for _, row := range data {
		for c, v := range row {
			means[c] += v
		}
	}
	n := float64(len(data))
	for c := range means {
		means[c] /= n
	}

	for _, row := range data {
		for c, v := range row {
			dv := v - means[c]
			stds[c] += dv * dv
		}
	}
	for c := range stds {
		stds[c] = math.Sqrt(stds[c] / n)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.means = means
	d.stds = stds
	d.fitted = true
	return nil
}

// Predict returns one score per row.
func (d *Detector) Predict(data [][]float64) ([]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.fitted {
		return nil, ErrNotFitted
	}

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = d.score(row)
	}
	return scores, nil
}

// PredictOne returns the mean absolute z-score of a single vector.
func (d *Detector) PredictOne(vec []float64) (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.fitted {
		return 0, ErrNotFitted
	}
	return d.score(vec), nil
}

// score averages |z| over the features that vary in the training data.
// Constant features carry no signal and are skipped, mirroring the
// zero-fallback of min-max normalization.
func (d *Detector) score(vec []float64) float64 {
	var sum float64
	var counted int
	for c, v := range vec {
		if c >= len(d.means) || d.stds[c] == 0 {
			continue
		}
		sum += math.Abs(v-d.means[c]) / d.stds[c]
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

type detectorState struct {
	Means []float64
	Stds  []float64
}

// Save serializes the fitted model.
func (d *Detector) Save() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.fitted {
		return nil, ErrNotFitted
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(detectorState{Means: d.means, Stds: d.stds}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a model saved with Save.
func (d *Detector) Load(data []byte) error {
	var st detectorState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.means = st.Means
	d.stds = st.Stds
	d.fitted = true
	return nil
}
