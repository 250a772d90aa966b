package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anio "github.com/aycadem/anomeval/pkg/io"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = `id,label,mean,var
s1,0,1.5,0.2
s2,1,9.5,4.1
s3,0,1.6,0.3
`

func TestReader(t *testing.T) {
	path := writeTempCSV(t, sampleCSV)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"id", "label", "mean", "var"}, r.Headers())

	rows, err := r.Read()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"s2", "1", "9.5", "4.1"}, rows[1])
}

func TestReaderNoHeader(t *testing.T) {
	path := writeTempCSV(t, "1,2\n3,4\n")

	r, err := NewReader(path, WithHeader(false))
	require.NoError(t, err)
	defer r.Close()

	assert.Nil(t, r.Headers())
	rows, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestStream(t *testing.T) {
	path := writeTempCSV(t, sampleCSV)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	rows, err := r.Stream(context.Background())
	require.NoError(t, err)

	var count int
	for range rows {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestColumn(t *testing.T) {
	rows := [][]string{{"a", "1.5"}, {"b", "2.5"}}

	vals, err := Column(rows, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, vals)

	_, err = Column(rows, 0)
	assert.Error(t, err, "non-numeric cells fail")

	_, err = Column(rows, 5)
	assert.Error(t, err, "out-of-range column fails")
}

func TestColumns(t *testing.T) {
	rows := [][]string{{"x", "1", "10"}, {"y", "2", "20"}}
	matrix, err := Columns(rows, []NamedColumn{
		{Name: "a", Column: 1},
		{Name: "b", Column: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 10}, {2, 20}}, matrix)
}

func TestLabels(t *testing.T) {
	rows := [][]string{{"s1", "0"}, {"s2", "1"}, {"s3", "0"}}
	labels, err := Labels(rows, 1, "1")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, labels)
}

func TestSamples(t *testing.T) {
	rows := [][]string{{"s1", "0", "1.5"}, {"s2", "1", "9.5"}}
	cols := []NamedColumn{{Name: "mean", Column: 2}}

	samples, err := Samples(rows, 0, cols)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "s1", samples[0].ID())
	v, ok := samples[1].Feature("mean")
	assert.True(t, ok)
	assert.Equal(t, 9.5, v)

	t.Run("row index ids", func(t *testing.T) {
		samples, err := Samples(rows, -1, cols)
		require.NoError(t, err)
		assert.Equal(t, "row_0", samples[0].ID())
	})

	t.Run("no columns", func(t *testing.T) {
		_, err := Samples(rows, 0, nil)
		assert.Error(t, err)
	})

	t.Run("bad cell", func(t *testing.T) {
		_, err := Samples([][]string{{"s1", "0", "oops"}}, 0, cols)
		assert.Error(t, err)
	})
}

func TestScoreWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")

	w, err := NewScoreWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteAll([]anio.Result{
		{ID: "s1", Score: 0.91, IsAnomaly: true},
		{ID: "s2", Score: 0.12, IsAnomaly: false},
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,score,is_anomaly", lines[0])
	assert.Equal(t, "s1,0.91,true", lines[1])
	assert.Equal(t, "s2,0.12,false", lines[2])
}
