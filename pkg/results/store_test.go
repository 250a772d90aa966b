package results

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aycadem/anomeval/pkg/eval"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestSaveAndList(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	run := &Run{
		Algorithm: "iforest",
		Dataset:   "data/dataset.csv",
		Threshold: 0.605,
		AUC:       0.76,
		Accuracy:  0.6,
	}
	require.NoError(t, s.Save(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	runs, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "iforest", runs[0].Algorithm)
	assert.Equal(t, 0.76, runs[0].AUC)
}

func TestListFilterAndLimit(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(ctx, &Run{Algorithm: "iforest", Dataset: "a.csv"}))
	}
	require.NoError(t, s.Save(ctx, &Run{Algorithm: "knn", Dataset: "a.csv"}))

	runs, err := s.List(ctx, "iforest", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	runs, err = s.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.List(ctx, "dbscan", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestFromResult(t *testing.T) {
	r := &eval.Result{
		Confusion: eval.ConfusionMatrix{
			TruePositives:  2,
			FalsePositives: 1,
			TrueNegatives:  4,
			FalseNegatives: 3,
		},
		Metrics: eval.Metrics{
			Accuracy:  0.6,
			Precision: 2.0 / 3.0,
			Recall:    0.4,
		},
		Threshold: 0.605,
		AUC:       0.76,
	}

	run := FromResult("iforest", "data/dataset.csv", r)
	assert.Equal(t, "iforest", run.Algorithm)
	assert.Equal(t, "data/dataset.csv", run.Dataset)
	assert.Equal(t, 2, run.TruePositives)
	assert.Equal(t, 3, run.FalseNegatives)
	assert.Equal(t, 0.605, run.Threshold)
	assert.Equal(t, 0.76, run.AUC)

	s := openTempStore(t)
	require.NoError(t, s.Save(context.Background(), run))
}
