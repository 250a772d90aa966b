package knn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoresSingleSample(t *testing.T) {
	_, err := Scores([][]float64{{1, 2, 3}}, 5)
	assert.ErrorIs(t, err, ErrNoNeighbors)
}

func TestScoresInvalidK(t *testing.T) {
	_, err := Scores([][]float64{{0}, {1}}, 0)
	assert.Error(t, err)
}

func TestScoresTwoPoints(t *testing.T) {
	// With two points each has exactly one neighbor, whatever k is.
	scores, err := Scores([][]float64{{0, 0}, {3, 4}}, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, scores[0], 1e-12)
	assert.InDelta(t, 5.0, scores[1], 1e-12)
}

func TestScoresKnownLine(t *testing.T) {
	// Points 0, 1, 2, 10 on a line with k=2.
	// For x=0: dists {1,2,10}, kth=2, mean(max(1,2), 2) = 2.
	// For x=1: dists {1,1,9},  kth=1, mean(1, 1) = 1.
	// For x=2: dists {1,2,8},  kth=2, mean(2, 2) = 2.
	// For x=10: dists {8,9,10}, kth=9, mean(max(8,9), 9) = 9.
	scores, err := Scores([][]float64{{0}, {1}, {2}, {10}}, 2)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, scores[0], 1e-12)
	assert.InDelta(t, 1.0, scores[1], 1e-12)
	assert.InDelta(t, 2.0, scores[2], 1e-12)
	assert.InDelta(t, 9.0, scores[3], 1e-12)
}

func TestScoresKLargerThanN(t *testing.T) {
	// k >= n-1 degrades to the average distance over all other points
	// (every distance is floored by the farthest, i.e. the k-th capped
	// at n-1, so the floor is the max distance).
	features := [][]float64{{0}, {1}, {3}}
	scores, err := Scores(features, 10)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// For x=0: dists {1,3}, kth=3, mean(3,3)=3.
	assert.InDelta(t, 3.0, scores[0], 1e-12)
	for _, s := range scores {
		assert.False(t, math.IsNaN(s))
		assert.False(t, math.IsInf(s, 0))
	}
}

func TestScoresReachabilityFloor(t *testing.T) {
	// Near-duplicate points: without the k-th distance floor, the two
	// coincident points would score ~0. The floor keeps their score at
	// the k-th neighbor distance.
	features := [][]float64{{0}, {0}, {5}, {6}}
	scores, err := Scores(features, 2)
	require.NoError(t, err)

	// For the duplicates: dists {0,5,6} / {0,5,6}, kth=5,
	// mean(max(0,5), 5) = 5.
	assert.InDelta(t, 5.0, scores[0], 1e-12)
	assert.InDelta(t, 5.0, scores[1], 1e-12)
	assert.Greater(t, scores[0], 0.0)
}

func TestScoresOutlierHighest(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	features := make([][]float64, 0, 101)
	for i := 0; i < 100; i++ {
		features = append(features, []float64{rng.Float64(), rng.Float64()})
	}
	features = append(features, []float64{100, 100})

	scores, err := Scores(features, 5)
	require.NoError(t, err)

	maxIdx := 0
	for i, s := range scores {
		if s > scores[maxIdx] {
			maxIdx = i
		}
	}
	assert.Equal(t, 100, maxIdx, "the far outlier should have the highest score")
}

func TestLocalOutlierFitPredict(t *testing.T) {
	l := New(WithK(3))

	t.Run("predict before fit", func(t *testing.T) {
		_, err := l.PredictOne([]float64{0, 0})
		assert.ErrorIs(t, err, ErrNotFitted)
	})

	t.Run("empty fit", func(t *testing.T) {
		assert.Error(t, l.Fit(nil))
	})

	ref := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	require.NoError(t, l.Fit(ref))

	near, err := l.PredictOne([]float64{0.5, 0.5})
	require.NoError(t, err)
	far, err := l.PredictOne([]float64{10, 10})
	require.NoError(t, err)
	assert.Greater(t, far, near)

	scores, err := l.Predict([][]float64{{0.5, 0.5}, {10, 10}})
	require.NoError(t, err)
	assert.InDelta(t, near, scores[0], 1e-12)
	assert.InDelta(t, far, scores[1], 1e-12)
}

func TestLocalOutlierSaveLoad(t *testing.T) {
	original := New(WithK(4))
	require.NoError(t, original.Fit([][]float64{{0, 0}, {1, 2}, {3, 1}, {2, 2}, {9, 9}}))

	query := [][]float64{{1, 1}, {8, 8}}
	want, err := original.Predict(query)
	require.NoError(t, err)

	data, err := original.Save()
	require.NoError(t, err)

	loaded := New()
	require.NoError(t, loaded.Load(data))

	got, err := loaded.Predict(query)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEuclidean(t *testing.T) {
	assert.InDelta(t, 5.0, euclidean([]float64{0, 0}, []float64{3, 4}), 1e-12)
	assert.InDelta(t, 0.0, euclidean([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-12)
}

func BenchmarkScores(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	features := make([][]float64, 500)
	for i := range features {
		features[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Scores(features, 15)
	}
}
