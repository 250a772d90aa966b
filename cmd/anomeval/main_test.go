package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, version)
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()

	// Two tight clusters of normals and two clear outliers.
	data := "id,label,x,y\n"
	for i := 0; i < 10; i++ {
		data += fmt.Sprintf("n%d,0,%g,%g\n", i, 1.0+float64(i)*0.01, 2.0+float64(i)*0.01)
	}
	data += "a0,1,50,60\n"
	data += "a1,1,55,65\n"
	datasetPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(datasetPath, []byte(data), 0o644))

	scoresPath := filepath.Join(dir, "scores.csv")
	rocPath := filepath.Join(dir, "roc.csv")
	dbPath := filepath.Join(dir, "runs.db")
	cfg := fmt.Sprintf(`
name: smoke
dataset: %s
detector: zscore
id_column: 0
label_column: 1
features:
  - {name: x, column: 2}
  - {name: y, column: 3}
scores_output: %s
roc_output: %s
results_db: %s
`, datasetPath, scoresPath, rocPath, dbPath)
	cfgPath := filepath.Join(dir, "experiment.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out := execute(t, "score", "--config", cfgPath)
	assert.Contains(t, out, "Evaluation Results")
	assert.Contains(t, out, "auc:")

	scores, err := os.ReadFile(scoresPath)
	require.NoError(t, err)
	assert.Contains(t, string(scores), "id,score,is_anomaly")
	assert.Contains(t, string(scores), "a0,")

	roc, err := os.ReadFile(rocPath)
	require.NoError(t, err)
	assert.Contains(t, string(roc), "threshold,fpr,tpr")

	// The run landed in the database.
	listed := execute(t, "runs", "--db", dbPath)
	assert.Contains(t, listed, "zscore")
}

func TestEvalCommand(t *testing.T) {
	dir := t.TempDir()

	scored := `id,score,label
s0,0.9,1
s1,0.8,1
s2,0.7,0
s3,0.6,1
s4,0.55,1
s5,0.54,0
s6,0.53,0
s7,0.52,0
s8,0.51,1
s9,0.4,0
`
	inputPath := filepath.Join(dir, "scored.csv")
	require.NoError(t, os.WriteFile(inputPath, []byte(scored), 0o644))
	rocPath := filepath.Join(dir, "roc.csv")

	out := execute(t, "eval",
		"--input", inputPath,
		"--score-column", "1",
		"--label-column", "2",
		"--roc", rocPath,
	)
	assert.Contains(t, out, "Threshold: 0.6")
	assert.Contains(t, out, "TP: 2\tFP: 1")
	assert.Contains(t, out, "auc: 0.7")

	roc, err := os.ReadFile(rocPath)
	require.NoError(t, err)
	assert.Contains(t, string(roc), "0.4,1,1")
}

func TestEvalCommandFixedThreshold(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scored.csv")
	require.NoError(t, os.WriteFile(input, []byte("id,score,label\na,0.9,1\nb,0.2,0\nc,0.1,0\n"), 0o644))

	out := execute(t, "eval", "--input", input, "--threshold", "0.5")
	assert.Contains(t, out, "Threshold: 0.5")
	assert.Contains(t, out, "TP: 1\tFP: 0")
}
