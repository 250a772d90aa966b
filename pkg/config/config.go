// Package config loads YAML experiment definitions: which file to read,
// which columns are features and labels, which detector to run and how to
// pick the classification threshold.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Threshold policies.
const (
	PolicyAuto       = "auto"
	PolicyPercentile = "percentile"
	PolicyFixed      = "fixed"
)

// Feature names one numeric column of the dataset.
type Feature struct {
	Name   string `yaml:"name"`
	Column int    `yaml:"column"`
}

// IForest holds isolation forest parameters.
type IForest struct {
	Trees         int     `yaml:"trees"`
	SampleSize    int     `yaml:"sample_size"`
	Seed          int64   `yaml:"seed"`
	Contamination float64 `yaml:"contamination"`
}

// KNN holds distance-based scorer parameters.
type KNN struct {
	K int `yaml:"k"`
}

// Threshold selects how the classification threshold is derived:
// auto (midpoint of per-class score means, needs labels), percentile
// (score percentile, label-free), or fixed.
type Threshold struct {
	Policy     string  `yaml:"policy"`
	Percentile float64 `yaml:"percentile"`
	Value      float64 `yaml:"value"`
}

// Experiment is one scoring-plus-evaluation run.
type Experiment struct {
	Name          string    `yaml:"name"`
	Dataset       string    `yaml:"dataset"`
	Header        bool      `yaml:"header"`
	IDColumn      int       `yaml:"id_column"`
	LabelColumn   int       `yaml:"label_column"`
	PositiveLabel string    `yaml:"positive_label"`
	Features      []Feature `yaml:"features"`
	Detector      string    `yaml:"detector"`
	Normalize     bool      `yaml:"normalize"`
	IForest       IForest   `yaml:"iforest"`
	KNN           KNN       `yaml:"knn"`
	Threshold     Threshold `yaml:"threshold"`
	ScoresOutput  string    `yaml:"scores_output"`
	ROCOutput     string    `yaml:"roc_output"`
	ResultsDB     string    `yaml:"results_db"`
}

// Default returns an experiment with the parameters the detectors were
// tuned with: 100 trees over 256-row subsamples, 15 neighbors, min-max
// normalization on, labels in column 1 with "1" marking anomalies.
func Default() *Experiment {
	return &Experiment{
		Header:        true,
		IDColumn:      -1,
		LabelColumn:   1,
		PositiveLabel: "1",
		Detector:      "iforest",
		Normalize:     true,
		IForest: IForest{
			Trees:         100,
			SampleSize:    256,
			Seed:          42,
			Contamination: 0.1,
		},
		KNN: KNN{
			K: 15,
		},
		Threshold: Threshold{
			Policy:     PolicyAuto,
			Percentile: 0.8,
		},
	}
}

// Load reads and validates an experiment file. Omitted fields keep their
// defaults.
func Load(path string) (*Experiment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	e := Default()
	if err := yaml.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the experiment for contradictions before any work
// starts.
func (e *Experiment) Validate() error {
	if e.Dataset == "" {
		return errors.New("config: dataset path required")
	}
	if len(e.Features) == 0 {
		return errors.New("config: at least one feature column required")
	}
	for _, f := range e.Features {
		if f.Name == "" {
			return fmt.Errorf("config: feature column %d has no name", f.Column)
		}
		if f.Column < 0 {
			return fmt.Errorf("config: feature %q has negative column", f.Name)
		}
	}

	switch e.Detector {
	case "iforest", "knn", "zscore":
	default:
		return fmt.Errorf("config: unknown detector %q", e.Detector)
	}

	switch e.Threshold.Policy {
	case PolicyAuto:
		if e.LabelColumn < 0 {
			return errors.New("config: auto threshold needs a label column")
		}
	case PolicyPercentile:
		if e.Threshold.Percentile < 0 || e.Threshold.Percentile > 1 {
			return fmt.Errorf("config: percentile %g out of [0,1]", e.Threshold.Percentile)
		}
	case PolicyFixed:
	default:
		return fmt.Errorf("config: unknown threshold policy %q", e.Threshold.Policy)
	}

	if e.IForest.Trees < 1 || e.IForest.SampleSize < 1 {
		return errors.New("config: iforest needs at least one tree and a positive sample size")
	}
	if e.KNN.K < 1 {
		return errors.New("config: knn needs k >= 1")
	}
	return nil
}
