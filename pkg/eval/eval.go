// Package eval turns raw anomaly scores and binary ground-truth labels
// into a confusion matrix, derived metrics, a tie-aware ROC curve, and an
// AUC value. It is the single evaluation path every scoring driver calls.
package eval

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrLengthMismatch is returned when scores and labels differ in length.
	ErrLengthMismatch = errors.New("eval: scores and labels must be the same length")

	// ErrEmptyInput is returned when scores or labels are empty.
	ErrEmptyInput = errors.New("eval: scores and labels must be non-empty")

	// ErrSingleClass is returned when labels lack a positive or a
	// negative: ROC and AUC are undefined on single-class data, so this
	// is an explicit error rather than a degenerate 0.0 result.
	ErrSingleClass = errors.New("eval: labels must contain at least one positive and one negative")
)

// ConfusionMatrix tallies classification outcomes at a fixed threshold.
// The four counts always sum to the number of scored samples.
type ConfusionMatrix struct {
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
}

// Total returns the number of samples the matrix was built from.
func (m ConfusionMatrix) Total() int {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// Confusion classifies sample i as positive iff scores[i] > threshold.
// The inequality is strict: a score exactly at the threshold classifies
// as negative.
func Confusion(scores []float64, labels []bool, threshold float64) (ConfusionMatrix, error) {
	var m ConfusionMatrix
	if err := validate(scores, labels); err != nil {
		return m, err
	}

	for i, score := range scores {
		predicted := score > threshold
		switch {
		case labels[i] && predicted:
			m.TruePositives++
		case !labels[i] && predicted:
			m.FalsePositives++
		case !labels[i] && !predicted:
			m.TrueNegatives++
		default:
			m.FalseNegatives++
		}
	}
	return m, nil
}

// Metrics are the rates derived from a confusion matrix. Every
// zero-denominator case yields 0.0 rather than NaN; that fallback defines
// the behavior on degenerate all-one-class inputs and is deliberate.
type Metrics struct {
	Accuracy    float64
	Precision   float64
	Recall      float64
	Specificity float64
	F1          float64
}

// Metrics derives accuracy, precision, recall, specificity and F1.
func (m ConfusionMatrix) Metrics() Metrics {
	tp := float64(m.TruePositives)
	fp := float64(m.FalsePositives)
	tn := float64(m.TrueNegatives)
	fn := float64(m.FalseNegatives)

	var out Metrics
	if total := tp + fp + tn + fn; total > 0 {
		out.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		out.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		out.Recall = tp / (tp + fn)
	}
	if tn+fp > 0 {
		out.Specificity = tn / (tn + fp)
	}
	if out.Precision+out.Recall > 0 {
		out.F1 = 2 * out.Precision * out.Recall / (out.Precision + out.Recall)
	}
	return out
}

// MidpointThreshold derives a threshold as the midpoint between the mean
// score of positives and the mean score of negatives. It is a simple
// heuristic, not a calibrated decision boundary; PercentileThreshold is
// the usual alternative.
func MidpointThreshold(scores []float64, labels []bool) (float64, error) {
	if err := validate(scores, labels); err != nil {
		return 0, err
	}

	var posSum, negSum float64
	var posCount, negCount int
	for i, score := range scores {
		if labels[i] {
			posSum += score
			posCount++
		} else {
			negSum += score
			negCount++
		}
	}
	if posCount == 0 || negCount == 0 {
		return 0, ErrSingleClass
	}
	return (posSum/float64(posCount) + negSum/float64(negCount)) / 2, nil
}

// PercentileThreshold returns the score at percentile p (p in [0, 1]),
// so p=0.8 flags the top 20% of scores as anomalous.
func PercentileThreshold(scores []float64, p float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// Result is the full output of Evaluate.
type Result struct {
	Confusion ConfusionMatrix
	Metrics   Metrics
	Threshold float64
	AUC       float64
	ROC       []ROCPoint
}

// Map flattens the result to the fixed recognized key set.
func (r *Result) Map() map[string]float64 {
	return map[string]float64{
		"true_positives":  float64(r.Confusion.TruePositives),
		"false_positives": float64(r.Confusion.FalsePositives),
		"true_negatives":  float64(r.Confusion.TrueNegatives),
		"false_negatives": float64(r.Confusion.FalseNegatives),
		"accuracy":        r.Metrics.Accuracy,
		"precision":       r.Metrics.Precision,
		"recall":          r.Metrics.Recall,
		"specificity":     r.Metrics.Specificity,
		"f1_score":        r.Metrics.F1,
		"threshold":       r.Threshold,
		"auc":             r.AUC,
	}
}

// String formats the result as a readable evaluation report.
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString("===== Evaluation Results =====\n")
	fmt.Fprintf(&b, "Threshold: %g\n", r.Threshold)
	b.WriteString("\nConfusion Matrix:\n")
	fmt.Fprintf(&b, "TP: %d\tFP: %d\n", r.Confusion.TruePositives, r.Confusion.FalsePositives)
	fmt.Fprintf(&b, "FN: %d\tTN: %d\n", r.Confusion.FalseNegatives, r.Confusion.TrueNegatives)
	b.WriteString("\nMetrics:\n")
	fmt.Fprintf(&b, "accuracy: %.2f%%\n", r.Metrics.Accuracy*100)
	fmt.Fprintf(&b, "precision: %.2f%%\n", r.Metrics.Precision*100)
	fmt.Fprintf(&b, "recall: %.2f%%\n", r.Metrics.Recall*100)
	fmt.Fprintf(&b, "specificity: %.2f%%\n", r.Metrics.Specificity*100)
	fmt.Fprintf(&b, "f1_score: %.2f%%\n", r.Metrics.F1*100)
	fmt.Fprintf(&b, "auc: %g\n", r.AUC)
	b.WriteString("==============================")
	return b.String()
}

type options struct {
	threshold    float64
	hasThreshold bool
}

// Option configures Evaluate.
type Option func(*options)

// WithThreshold fixes the classification threshold instead of deriving it
// from per-class score means.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = t
		o.hasThreshold = true
	}
}

// Evaluate is the top-level entry point: it derives a threshold when none
// is given, then computes the confusion matrix, metrics, ROC curve and
// AUC in one structured result.
func Evaluate(scores []float64, labels []bool, opts ...Option) (*Result, error) {
	if err := validate(scores, labels); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	threshold := o.threshold
	if !o.hasThreshold {
		var err error
		threshold, err = MidpointThreshold(scores, labels)
		if err != nil {
			return nil, err
		}
	}

	curve, err := ROC(scores, labels)
	if err != nil {
		return nil, err
	}

	confusion, err := Confusion(scores, labels, threshold)
	if err != nil {
		return nil, err
	}

	return &Result{
		Confusion: confusion,
		Metrics:   confusion.Metrics(),
		Threshold: threshold,
		AUC:       AUC(curve),
		ROC:       curve,
	}, nil
}

func validate(scores []float64, labels []bool) error {
	if len(scores) != len(labels) {
		return ErrLengthMismatch
	}
	if len(scores) == 0 {
		return ErrEmptyInput
	}
	return nil
}
