package eval

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
)

// SentinelThreshold marks the leading ROC point, the boundary above every
// attainable score.
const SentinelThreshold = math.MaxFloat64

// ROCPoint is one point of the ROC curve: the threshold and the
// false/true positive rates obtained when classifying strictly above it.
type ROCPoint struct {
	Threshold float64
	FPR       float64
	TPR       float64
}

// ROC sweeps thresholds over every distinct score value, from highest to
// lowest. All samples sharing a score are accumulated before a point is
// emitted, so tied scores never produce sawtooth artifacts. The curve is
// prefixed by (SentinelThreshold, 0, 0) and suffixed by the (1, 1) point
// at the minimum score, and both rates are monotonically non-decreasing.
func ROC(scores []float64, labels []bool) ([]ROCPoint, error) {
	if err := validate(scores, labels); err != nil {
		return nil, err
	}

	type pair struct {
		score float64
		label bool
	}
	pairs := make([]pair, len(scores))
	var totPos, totNeg float64
	for i, score := range scores {
		pairs[i] = pair{score: score, label: labels[i]}
		if labels[i] {
			totPos++
		} else {
			totNeg++
		}
	}
	if totPos == 0 || totNeg == 0 {
		return nil, ErrSingleClass
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	points := []ROCPoint{{Threshold: SentinelThreshold, FPR: 0, TPR: 0}}

	var tp, fp float64
	for i, p := range pairs {
		if i > 0 && p.score != pairs[i-1].score {
			points = append(points, ROCPoint{
				Threshold: pairs[i-1].score,
				FPR:       fp / totNeg,
				TPR:       tp / totPos,
			})
		}
		if p.label {
			tp++
		} else {
			fp++
		}
	}

	points = append(points, ROCPoint{
		Threshold: pairs[len(pairs)-1].score,
		FPR:       1,
		TPR:       1,
	})

	return points, nil
}

// AUC integrates the FPR-ordered curve with the trapezoidal rule.
func AUC(points []ROCPoint) float64 {
	var auc float64
	for i := 1; i < len(points); i++ {
		auc += (points[i].FPR - points[i-1].FPR) * (points[i].TPR + points[i-1].TPR) / 2
	}
	return auc
}

// WriteROC writes the curve as CSV with a threshold,fpr,tpr header. The
// sentinel threshold of the leading point prints as the maximum
// representable float.
func WriteROC(w io.Writer, points []ROCPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"threshold", "fpr", "tpr"}); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{
			strconv.FormatFloat(p.Threshold, 'g', -1, 64),
			strconv.FormatFloat(p.FPR, 'g', -1, 64),
			strconv.FormatFloat(p.TPR, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveROC writes the curve to a CSV file at path.
func SaveROC(path string, points []ROCPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteROC(f, points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
