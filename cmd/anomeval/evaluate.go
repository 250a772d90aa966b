package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aycadem/anomeval/pkg/eval"
	csvio "github.com/aycadem/anomeval/pkg/io/csv"
	"github.com/aycadem/anomeval/pkg/results"
)

var evalFlags struct {
	input       string
	header      bool
	scoreColumn int
	labelColumn int
	positive    string
	threshold   float64
	algorithm   string
	rocOutput   string
	resultsDB   string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate pre-computed scores against labels",
	Long: `Eval reads a CSV holding anomaly scores and ground-truth labels,
computes the confusion matrix, metrics, ROC curve and AUC, and prints the
report. Without --threshold the classification threshold is derived as the
midpoint between the mean score of each class.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEval(cmd)
	},
}

func init() {
	f := evalCmd.Flags()
	f.StringVarP(&evalFlags.input, "input", "i", "", "CSV with scores and labels (required)")
	f.BoolVar(&evalFlags.header, "header", true, "input has a header row")
	f.IntVar(&evalFlags.scoreColumn, "score-column", 1, "column holding the anomaly score")
	f.IntVar(&evalFlags.labelColumn, "label-column", 2, "column holding the ground-truth label")
	f.StringVar(&evalFlags.positive, "positive", "1", "label value marking an anomaly")
	f.Float64VarP(&evalFlags.threshold, "threshold", "t", 0, "fixed classification threshold")
	f.StringVar(&evalFlags.algorithm, "algorithm", "", "algorithm name for the run record")
	f.StringVar(&evalFlags.rocOutput, "roc", "", "write the ROC curve to this CSV file")
	f.StringVar(&evalFlags.resultsDB, "db", "", "record the run in this SQLite database")
	evalCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command) error {
	r, err := csvio.NewReader(evalFlags.input, csvio.WithHeader(evalFlags.header))
	if err != nil {
		return err
	}
	defer r.Close()

	rows, err := r.Read()
	if err != nil {
		return err
	}

	scores, err := csvio.Column(rows, evalFlags.scoreColumn)
	if err != nil {
		return err
	}
	labels, err := csvio.Labels(rows, evalFlags.labelColumn, evalFlags.positive)
	if err != nil {
		return err
	}
	slog.Info("scores loaded", "path", evalFlags.input, "samples", len(scores))

	var opts []eval.Option
	if cmd.Flags().Changed("threshold") {
		opts = append(opts, eval.WithThreshold(evalFlags.threshold))
	}
	res, err := eval.Evaluate(scores, labels, opts...)
	if err != nil {
		return err
	}
	cmd.Println(res.String())

	if evalFlags.rocOutput != "" {
		if err := eval.SaveROC(evalFlags.rocOutput, res.ROC); err != nil {
			return err
		}
		slog.Info("roc curve written", "path", evalFlags.rocOutput, "points", len(res.ROC))
	}
	if evalFlags.resultsDB == "" {
		return nil
	}

	store, err := results.Open(evalFlags.resultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run := results.FromResult(evalFlags.algorithm, evalFlags.input, res)
	if err := store.Save(cmd.Context(), run); err != nil {
		return err
	}
	slog.Info("run recorded", "id", run.ID, "db", evalFlags.resultsDB)
	return nil
}
