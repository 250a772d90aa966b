package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aycadem/anomeval/pkg/results"
)

var runsFlags struct {
	resultsDB string
	algorithm string
	limit     int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded evaluation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := results.Open(runsFlags.resultsDB)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), runsFlags.algorithm, runsFlags.limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			cmd.Println("no runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tALGORITHM\tDATASET\tTHRESHOLD\tAUC\tF1")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.4g\t%.4g\t%.4g\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Algorithm, r.Dataset, r.Threshold, r.AUC, r.F1)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsFlags.resultsDB, "db", "", "SQLite run database (required)")
	runsCmd.Flags().StringVar(&runsFlags.algorithm, "algorithm", "", "filter runs by algorithm")
	runsCmd.Flags().IntVarP(&runsFlags.limit, "limit", "n", 20, "maximum runs to list")
	runsCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(runsCmd)
}
