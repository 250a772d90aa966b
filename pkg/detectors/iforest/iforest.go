// Package iforest implements the Isolation Forest anomaly scorer: an
// ensemble of randomized binary partition trees built over subsamples of
// the dataset. Samples that isolate in few splits receive scores near 1.
package iforest

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aycadem/anomeval/pkg/dataset"
	"github.com/aycadem/anomeval/pkg/detectors"
	"github.com/aycadem/anomeval/pkg/random"
)

var (
	// ErrAlreadyBuilt is returned by AddSample and Create after the forest
	// has been built. Call Reset for an explicit rebuild.
	ErrAlreadyBuilt = errors.New("iforest: forest already built")

	// ErrNotBuilt is returned when scoring an unbuilt forest.
	ErrNotBuilt = errors.New("iforest: forest not built")

	// ErrNoSamples is returned by Create when the pool is empty.
	ErrNoSamples = errors.New("iforest: no samples added")
)

// Forest is an ensemble of isolation trees. It moves through exactly two
// states: samples are pooled with AddSample (or Fit), then Create builds
// the trees once. Tree count and subsample size are fixed at construction.
type Forest struct {
	mu sync.RWMutex

	nTrees        int
	sampleSize    int
	maxDepth      int
	contamination float64
	threshold     float64
	seed          int64
	src           random.Source

	featureNames []string
	pool         [][]float64

	trees []*tree
	built bool

	// c(sampleSize), the normalization constant for NormalizedScore.
	refPathLength float64
}

// tree is a single isolation tree. Nodes form a strict ownership tree;
// fields are exported for gob.
type tree struct {
	Root *treeNode
}

type treeNode struct {
	// Split parameters, set on internal nodes only.
	SplitFeature int
	SplitValue   float64

	Left  *treeNode
	Right *treeNode

	// Size is the number of subsample rows that terminated here; set on
	// leaves only.
	Size int
}

func (n *treeNode) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size each tree is built from.
func WithSampleSize(n int) Option {
	return func(f *Forest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies, used to
// derive the classification threshold after Create.
func WithContamination(c float64) Option {
	return func(f *Forest) {
		f.contamination = c
	}
}

// WithSeed seeds the default randomness source.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.seed = seed
		f.src = random.New(seed)
	}
}

// WithRandomSource injects a randomness source, replacing the seeded
// default. Per-tree sub-streams are still derived from it, so a
// deterministic source yields bit-identical forests.
func WithRandomSource(src random.Source) Option {
	return func(f *Forest) {
		f.src = src
	}
}

// New creates an unbuilt Forest.
func New(opts ...Option) *Forest {
	f := &Forest{
		nTrees:        100,
		sampleSize:    256,
		contamination: 0.1,
		threshold:     0.5,
		seed:          42,
	}

	for _, opt := range opts {
		opt(f)
	}
	if f.src == nil {
		f.src = random.New(f.seed)
	}

	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	f.refPathLength = averagePathLength(f.sampleSize)

	return f
}

// Name implements detectors.Detector.
func (f *Forest) Name() string {
	return "iforest"
}

// AddSample appends a sample to the pool. The first sample fixes the
// forest's feature set; later samples must carry exactly the same
// features.
func (f *Forest) AddSample(s *dataset.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.built {
		return ErrAlreadyBuilt
	}

	if f.featureNames == nil {
		f.featureNames = s.FeatureNames()
	}
	if s.NumFeatures() != len(f.featureNames) {
		return fmt.Errorf("iforest: sample %s has %d features, forest expects %d",
			s.ID(), s.NumFeatures(), len(f.featureNames))
	}
	vec, err := s.Vector(f.featureNames)
	if err != nil {
		return fmt.Errorf("iforest: %w", err)
	}

	f.pool = append(f.pool, vec)
	return nil
}

// Create builds the ensemble from the pooled samples. It may be called
// exactly once; a second call returns ErrAlreadyBuilt (use Reset first to
// rebuild). Each tree draws sampleSize rows without replacement, or with
// replacement when the pool holds fewer rows than sampleSize, so every
// tree sees exactly sampleSize rows either way.
//
// Trees build in parallel. Per-tree seeds are drawn from the master
// source up front, so results do not depend on goroutine scheduling.
func (f *Forest) Create() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.built {
		return ErrAlreadyBuilt
	}
	if len(f.pool) == 0 {
		return ErrNoSamples
	}

	seeds := make([]int64, f.nTrees)
	for i := range seeds {
		seeds[i] = int64(f.src.Uint64())
	}

	f.trees = make([]*tree, f.nTrees)
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i := range f.trees {
		i := i
		g.Go(func() error {
			src := random.New(seeds[i])
			sub := f.subsample(src)
			f.trees[i] = &tree{Root: f.buildNode(sub, 0, src)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.built = true

	// Contamination-based threshold over the training pool, in the
	// normalized score domain.
	if f.contamination > 0 {
		scores := make([]float64, len(f.pool))
		for i, vec := range f.pool {
			scores[i] = f.normalizedScoreVec(vec)
		}
		f.threshold = percentile(scores, 100*(1-f.contamination))
	}

	return nil
}

// Reset returns the forest to the unbuilt state, discarding trees, the
// sample pool, and the feature set.
func (f *Forest) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.trees = nil
	f.pool = nil
	f.featureNames = nil
	f.built = false
}

// subsample draws the rows one tree is built from.
func (f *Forest) subsample(src random.Source) [][]float64 {
	sub := make([][]float64, f.sampleSize)
	if len(f.pool) >= f.sampleSize {
		perm := random.Perm(src, len(f.pool))
		for i := 0; i < f.sampleSize; i++ {
			sub[i] = f.pool[perm[i]]
		}
		return sub
	}
	for i := range sub {
		sub[i] = f.pool[random.IntN(src, len(f.pool))]
	}
	return sub
}

// buildNode recursively partitions rows. A node becomes a leaf when it
// holds at most one row, the depth limit is reached, or the chosen
// feature has no spread (no valid split exists, so recursion must stop).
func (f *Forest) buildNode(rows [][]float64, depth int, src random.Source) *treeNode {
	n := len(rows)

	if depth >= f.maxDepth || n <= 1 {
		return &treeNode{Size: n}
	}

	feature := random.IntN(src, len(f.featureNames))

	minVal, maxVal := rows[0][feature], rows[0][feature]
	for _, row := range rows[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	if minVal == maxVal {
		return &treeNode{Size: n}
	}

	// Uniform split strictly inside (min, max).
	split := minVal + random.Float64(src)*(maxVal-minVal)
	if split == minVal {
		split = math.Nextafter(minVal, maxVal)
	}

	var left, right [][]float64
	for _, row := range rows {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		SplitFeature: feature,
		SplitValue:   split,
		Left:         f.buildNode(left, depth+1, src),
		Right:        f.buildNode(right, depth+1, src),
	}
}

// Score returns the sample's average path length across all trees. Leaves
// covering more than one training row add c(leafSize), the expected extra
// depth had isolation continued.
func (f *Forest) Score(s *dataset.Sample) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.built {
		return 0, ErrNotBuilt
	}
	vec, err := s.Vector(f.featureNames)
	if err != nil {
		return 0, fmt.Errorf("iforest: %w", err)
	}
	return f.avgPathLength(vec), nil
}

// NormalizedScore returns 2^(-avgPathLength / c(sampleSize)), a value in
// (0, 1] where higher means more anomalous: short average paths mean the
// sample isolates easily.
func (f *Forest) NormalizedScore(s *dataset.Sample) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.built {
		return 0, ErrNotBuilt
	}
	vec, err := s.Vector(f.featureNames)
	if err != nil {
		return 0, fmt.Errorf("iforest: %w", err)
	}
	return f.normalizedScoreVec(vec), nil
}

func (f *Forest) avgPathLength(vec []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(vec, t.Root, 0)
	}
	return total / float64(len(f.trees))
}

func (f *Forest) normalizedScoreVec(vec []float64) float64 {
	return math.Pow(2, -f.avgPathLength(vec)/f.refPathLength)
}

// Fit trains the forest on a row-major matrix, implementing
// detectors.Detector. Unlike the AddSample/Create path, Fit on a built
// forest is an explicit rebuild: it resets, pools every row under
// index-based feature names, and creates the ensemble.
func (f *Forest) Fit(data [][]float64) error {
	if len(data) == 0 {
		return errors.New("iforest: empty training data")
	}

	f.Reset()

	f.mu.Lock()
	f.featureNames = indexNames(len(data[0]))
	f.pool = make([][]float64, len(data))
	for i, row := range data {
		vec := make([]float64, len(row))
		copy(vec, row)
		f.pool[i] = vec
	}
	f.mu.Unlock()

	return f.Create()
}

// Predict returns the normalized anomaly score of each row.
func (f *Forest) Predict(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.built {
		return nil, ErrNotBuilt
	}

	scores := make([]float64, len(data))
	for i, vec := range data {
		if len(vec) != len(f.featureNames) {
			return nil, fmt.Errorf("iforest: row %d has %d features, forest expects %d",
				i, len(vec), len(f.featureNames))
		}
		scores[i] = f.normalizedScoreVec(vec)
	}
	return scores, nil
}

// PredictOne returns the normalized anomaly score of a single vector.
func (f *Forest) PredictOne(vec []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.built {
		return 0, ErrNotBuilt
	}
	if len(vec) != len(f.featureNames) {
		return 0, fmt.Errorf("iforest: sample has %d features, forest expects %d",
			len(vec), len(f.featureNames))
	}
	return f.normalizedScoreVec(vec), nil
}

// PredictStream scores samples from a channel until it closes or the
// context is cancelled.
func (f *Forest) PredictStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Score) error {
	f.mu.RLock()
	built := f.built
	f.mu.RUnlock()
	if !built {
		return ErrNotBuilt
	}

	defer close(output)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case vec, ok := <-input:
			if !ok {
				return nil
			}

			score, err := f.PredictOne(vec)
			if err != nil {
				continue
			}

			select {
			case output <- detectors.Score{
				Value:     score,
				IsAnomaly: score > f.Threshold(),
				Features:  vec,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// pathLength walks vec down a tree, counting internal nodes traversed.
func pathLength(vec []float64, n *treeNode, depth int) float64 {
	if n.isLeaf() {
		return float64(depth) + averagePathLength(n.Size)
	}
	if vec[n.SplitFeature] < n.SplitValue {
		return pathLength(vec, n.Left, depth+1)
	}
	return pathLength(vec, n.Right, depth+1)
}

// averagePathLength is c(n): the average unsuccessful-search path length
// in a BST of n nodes, 2H(n-1) - 2(n-1)/n. Arguments are bounded by the
// subsample size, so the harmonic number is summed exactly.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	var h float64
	for i := 1; i < n; i++ {
		h += 1 / float64(i)
	}
	return 2*h - 2*float64(n-1)/float64(n)
}

// Threshold returns the current classification threshold.
func (f *Forest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold overrides the classification threshold.
func (f *Forest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// forestState is the gob persistence form of a built forest.
type forestState struct {
	NTrees        int
	SampleSize    int
	Contamination float64
	Threshold     float64
	FeatureNames  []string
	Trees         []*tree
}

// Save serializes the built forest.
func (f *Forest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.built {
		return nil, ErrNotBuilt
	}

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestState{
		NTrees:        f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		Threshold:     f.threshold,
		FeatureNames:  f.featureNames,
		Trees:         f.trees,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load deserializes a forest saved with Save. The sample pool is not
// persisted; a loaded forest can score but not rebuild.
func (f *Forest) Load(data []byte) error {
	var st forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nTrees = st.NTrees
	f.sampleSize = st.SampleSize
	f.contamination = st.Contamination
	f.threshold = st.Threshold
	f.featureNames = st.FeatureNames
	f.trees = st.Trees
	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	f.refPathLength = averagePathLength(f.sampleSize)
	f.built = true

	return nil
}

func indexNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("f%d", i)
	}
	return names
}

// percentile returns the p-th percentile of data (p in [0, 100]).
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}
