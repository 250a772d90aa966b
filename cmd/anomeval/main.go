// Command anomeval scores datasets with unsupervised anomaly detectors
// and evaluates the scores against ground-truth labels.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aycadem/anomeval/pkg/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "anomeval",
	Short: "Unsupervised anomaly scoring and evaluation",
	Long: `anomeval runs unsupervised anomaly detectors (isolation forest,
k-nearest-neighbor reachability, z-score) over CSV datasets or packet
captures, writes per-sample scores, and evaluates them against binary
ground-truth labels with confusion matrix, ROC curve and AUC.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetDefault(logLevel)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the anomeval version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
