package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	s := NewSample("row_7")
	s.AddFeature("mean", 1.5)
	s.AddFeature("var", 0.25)
	s.AddFeature("kurtosis", -0.3)

	assert.Equal(t, "row_7", s.ID())
	assert.Equal(t, 3, s.NumFeatures())

	v, ok := s.Feature("var")
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)

	_, ok = s.Feature("skew")
	assert.False(t, ok)

	assert.Equal(t, []string{"kurtosis", "mean", "var"}, s.FeatureNames())
}

func TestSampleVector(t *testing.T) {
	s := NewSample("x")
	s.AddFeature("a", 1)
	s.AddFeature("b", 2)

	vec, err := s.Vector([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, vec)

	_, err = s.Vector([]string{"a", "missing"})
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	a := NewSample("a")
	a.AddFeature("x", 1)
	a.AddFeature("y", 2)
	b := NewSample("b")
	b.AddFeature("x", 3)
	b.AddFeature("y", 4)

	rows, err := Matrix([]*Sample{a, b}, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, rows)

	short := NewSample("short")
	short.AddFeature("x", 5)
	_, err = Matrix([]*Sample{a, short}, []string{"x", "y"})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []float64
	}{
		{
			name:   "spread values",
			values: []float64{0, 5, 10},
			want:   []float64{0, 0.5, 1},
		},
		{
			name:   "constant feature maps to zeros",
			values: []float64{1, 1, 1, 1},
			want:   []float64{0, 0, 0, 0},
		},
		{
			name:   "negative range",
			values: []float64{-2, 0, 2},
			want:   []float64{0, 0.5, 1},
		},
		{
			name:   "single value",
			values: []float64{42},
			want:   []float64{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.values)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestNormalizeColumns(t *testing.T) {
	rows := [][]float64{
		{0, 100, 7},
		{5, 100, 7},
		{10, 100, 7},
	}
	got := NormalizeColumns(rows)

	assert.Equal(t, [][]float64{
		{0, 0, 0},
		{0.5, 0, 0},
		{1, 0, 0},
	}, got)

	// Input untouched.
	assert.Equal(t, 100.0, rows[0][1])

	assert.Nil(t, NormalizeColumns(nil))
}
