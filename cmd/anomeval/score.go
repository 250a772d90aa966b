package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aycadem/anomeval/pkg/config"
	"github.com/aycadem/anomeval/pkg/dataset"
	"github.com/aycadem/anomeval/pkg/detectors/iforest"
	"github.com/aycadem/anomeval/pkg/detectors/knn"
	"github.com/aycadem/anomeval/pkg/detectors/zscore"
	"github.com/aycadem/anomeval/pkg/eval"
	anio "github.com/aycadem/anomeval/pkg/io"
	csvio "github.com/aycadem/anomeval/pkg/io/csv"
	pcapio "github.com/aycadem/anomeval/pkg/io/pcap"
	"github.com/aycadem/anomeval/pkg/results"
)

var scoreConfigPath string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a dataset with the configured detector",
	Long: `Score loads the experiment config, reads the dataset (CSV or packet
capture), scores every sample with the configured detector, and writes the
scores. When the dataset carries ground-truth labels the scores are also
evaluated: the report goes to stdout and the ROC curve and run record to
the configured outputs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := config.Load(scoreConfigPath)
		if err != nil {
			return err
		}
		return runScore(cmd, exp)
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfigPath, "config", "c", "", "experiment config file (required)")
	scoreCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, exp *config.Experiment) error {
	samples, labels, err := loadDataset(exp)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.New("dataset is empty")
	}
	slog.Info("dataset loaded", "samples", len(samples), "labeled", labels != nil)

	names := samples[0].FeatureNames()
	matrix, err := dataset.Matrix(samples, names)
	if err != nil {
		return err
	}
	if exp.Normalize {
		matrix = dataset.NormalizeColumns(matrix)
	}

	scores, err := scoreMatrix(exp, matrix)
	if err != nil {
		return err
	}

	threshold, err := deriveThreshold(exp, scores, labels)
	if err != nil {
		return err
	}
	slog.Info("scoring complete", "detector", exp.Detector, "threshold", threshold)

	if exp.ScoresOutput != "" {
		if err := writeScores(exp.ScoresOutput, samples, scores, threshold); err != nil {
			return err
		}
		slog.Info("scores written", "path", exp.ScoresOutput)
	}

	if labels == nil {
		return nil
	}
	res, err := eval.Evaluate(scores, labels, eval.WithThreshold(threshold))
	if err != nil {
		return err
	}
	cmd.Println(res.String())

	return persistResult(cmd, exp, res)
}

// loadDataset reads samples and, when configured, labels. Packet captures
// never carry labels.
func loadDataset(exp *config.Experiment) ([]*dataset.Sample, []bool, error) {
	if strings.HasSuffix(exp.Dataset, ".pcap") || strings.HasSuffix(exp.Dataset, ".pcapng") {
		r, err := pcapio.NewFileReader(exp.Dataset)
		if err != nil {
			return nil, nil, err
		}
		defer r.Close()

		samples, err := r.ReadSamples()
		return samples, nil, err
	}

	r, err := csvio.NewReader(exp.Dataset, csvio.WithHeader(exp.Header))
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	rows, err := r.Read()
	if err != nil {
		return nil, nil, err
	}

	cols := make([]csvio.NamedColumn, len(exp.Features))
	for i, f := range exp.Features {
		cols[i] = csvio.NamedColumn{Name: f.Name, Column: f.Column}
	}
	samples, err := csvio.Samples(rows, exp.IDColumn, cols)
	if err != nil {
		return nil, nil, err
	}

	var labels []bool
	if exp.LabelColumn >= 0 {
		labels, err = csvio.Labels(rows, exp.LabelColumn, exp.PositiveLabel)
		if err != nil {
			return nil, nil, err
		}
	}
	return samples, labels, nil
}

func scoreMatrix(exp *config.Experiment, matrix [][]float64) ([]float64, error) {
	switch exp.Detector {
	case "iforest":
		f := iforest.New(
			iforest.WithTrees(exp.IForest.Trees),
			iforest.WithSampleSize(exp.IForest.SampleSize),
			iforest.WithContamination(exp.IForest.Contamination),
			iforest.WithSeed(exp.IForest.Seed),
		)
		if err := f.Fit(matrix); err != nil {
			return nil, err
		}
		return f.Predict(matrix)
	case "knn":
		// Batch path with self-exclusion: every row is scored against the
		// rest of the dataset, not against itself.
		return knn.Scores(matrix, exp.KNN.K)
	case "zscore":
		d := zscore.New()
		if err := d.Fit(matrix); err != nil {
			return nil, err
		}
		return d.Predict(matrix)
	default:
		return nil, fmt.Errorf("unknown detector %q", exp.Detector)
	}
}

func deriveThreshold(exp *config.Experiment, scores []float64, labels []bool) (float64, error) {
	switch exp.Threshold.Policy {
	case config.PolicyAuto:
		if labels == nil {
			return 0, errors.New("auto threshold needs a labeled dataset")
		}
		return eval.MidpointThreshold(scores, labels)
	case config.PolicyPercentile:
		return eval.PercentileThreshold(scores, exp.Threshold.Percentile), nil
	case config.PolicyFixed:
		return exp.Threshold.Value, nil
	default:
		return 0, fmt.Errorf("unknown threshold policy %q", exp.Threshold.Policy)
	}
}

func writeScores(path string, samples []*dataset.Sample, scores []float64, threshold float64) error {
	w, err := csvio.NewScoreWriter(path)
	if err != nil {
		return err
	}

	out := make([]anio.Result, len(samples))
	for i, s := range samples {
		out[i] = anio.Result{
			ID:        s.ID(),
			Score:     scores[i],
			IsAnomaly: scores[i] > threshold,
		}
	}
	if err := w.WriteAll(out); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func persistResult(cmd *cobra.Command, exp *config.Experiment, res *eval.Result) error {
	if exp.ROCOutput != "" {
		if err := eval.SaveROC(exp.ROCOutput, res.ROC); err != nil {
			return err
		}
		slog.Info("roc curve written", "path", exp.ROCOutput, "points", len(res.ROC))
	}
	if exp.ResultsDB == "" {
		return nil
	}

	store, err := results.Open(exp.ResultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run := results.FromResult(exp.Detector, exp.Dataset, res)
	if err := store.Save(cmd.Context(), run); err != nil {
		return err
	}
	slog.Info("run recorded", "id", run.ID, "db", exp.ResultsDB)
	return nil
}
