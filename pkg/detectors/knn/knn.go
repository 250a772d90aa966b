// Package knn implements a distance-based local outlier scorer: each
// sample is scored by the mean reachability distance to its k nearest
// neighbors under Euclidean distance. Higher score = more isolated =
// more anomalous.
package knn

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultK is the neighborhood size used when none is configured.
const DefaultK = 15

var (
	// ErrNoNeighbors is returned when the dataset holds a single sample:
	// no neighbor exists to measure distance to.
	ErrNoNeighbors = errors.New("knn: need at least two samples")

	// ErrNotFitted is returned when predicting before Fit.
	ErrNotFitted = errors.New("knn: model not fitted")
)

// Scores computes one anomaly score per row of a fixed feature matrix.
// For each row it measures Euclidean distance to every other row (O(n²)
// pairwise, no spatial index; a deliberate simplicity trade-off that
// limits scaling), keeps the k smallest, and averages
// max(distance, k-th distance). The floor is the reachability-distance
// approximation: it keeps near-duplicate points from collapsing to
// near-zero scores. When n <= k all available neighbors are used.
//
// Rows are scored in parallel over the read-only matrix.
func Scores(features [][]float64, k int) ([]float64, error) {
	n := len(features)
	if n < 2 {
		return nil, ErrNoNeighbors
	}
	if k < 1 {
		return nil, fmt.Errorf("knn: k must be positive, got %d", k)
	}

	scores := make([]float64, n)
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			dists := make([]float64, 0, n-1)
			for j := 0; j < n; j++ {
				if i != j {
					dists = append(dists, euclidean(features[i], features[j]))
				}
			}
			scores[i] = reachabilityMean(dists, k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// reachabilityMean sorts distances ascending and averages the k nearest,
// each floored by the k-th neighbor distance.
func reachabilityMean(dists []float64, k int) float64 {
	sort.Float64s(dists)

	kk := k
	if kk > len(dists) {
		kk = len(dists)
	}
	kth := dists[kk-1]

	var sum float64
	for m := 0; m < kk; m++ {
		sum += math.Max(dists[m], kth)
	}
	return sum / float64(kk)
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// LocalOutlier adapts the batch scorer to the detectors.Detector
// interface: Fit stores a reference matrix and PredictOne scores a query
// point against it. Query points are assumed not to be members of the
// reference set, so no self-exclusion is applied.
type LocalOutlier struct {
	mu sync.RWMutex

	k      int
	ref    [][]float64
	fitted bool
}

// Option configures a LocalOutlier.
type Option func(*LocalOutlier)

// WithK sets the neighborhood size.
func WithK(k int) Option {
	return func(l *LocalOutlier) {
		l.k = k
	}
}

// New creates an unfitted LocalOutlier.
func New(opts ...Option) *LocalOutlier {
	l := &LocalOutlier{k: DefaultK}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements detectors.Detector.
func (l *LocalOutlier) Name() string {
	return "knn"
}

// Fit stores a copy of the reference matrix.
func (l *LocalOutlier) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("knn: empty training data")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ref = make([][]float64, len(data))
	for i, row := range data {
		vec := make([]float64, len(row))
		copy(vec, row)
		l.ref[i] = vec
	}
	l.fitted = true
	return nil
}

// Predict returns one score per query row.
func (l *LocalOutlier) Predict(data [][]float64) ([]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.fitted {
		return nil, ErrNotFitted
	}

	scores := make([]float64, len(data))
	for i, vec := range data {
		scores[i] = l.score(vec)
	}
	return scores, nil
}

// PredictOne scores a single query vector against the reference matrix.
func (l *LocalOutlier) PredictOne(vec []float64) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.fitted {
		return 0, ErrNotFitted
	}
	return l.score(vec), nil
}

func (l *LocalOutlier) score(vec []float64) float64 {
	dists := make([]float64, len(l.ref))
	for j, row := range l.ref {
		dists[j] = euclidean(vec, row)
	}
	return reachabilityMean(dists, l.k)
}

type localOutlierState struct {
	K   int
	Ref [][]float64
}

// Save serializes the fitted model.
func (l *LocalOutlier) Save() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.fitted {
		return nil, ErrNotFitted
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(localOutlierState{K: l.k, Ref: l.ref}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a model saved with Save.
func (l *LocalOutlier) Load(data []byte) error {
	var st localOutlierState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.k = st.K
	l.ref = st.Ref
	l.fitted = true
	return nil
}
