package features

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
)

// Classifier is trained on one split and predicts labels for another.
type Classifier interface {
	Fit(x [][]float64, y []string) error
	Predict(x [][]float64) ([]string, error)
}

// NearestCentroid predicts the label whose mean training vector is closest
// in Euclidean distance. Equal distances resolve to the smaller label.
type NearestCentroid struct {
	labels    []string
	centroids [][]float64
}

var _ Classifier = (*NearestCentroid)(nil)

// Fit computes one centroid per label.
func (n *NearestCentroid) Fit(x [][]float64, y []string) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("%w: %d vectors, %d labels", ErrEmptyDataset, len(x), len(y))
	}
	dim := len(x[0])
	sums := make(map[string][]float64)
	counts := make(map[string]int)
	for i, v := range x {
		if len(v) != dim {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureLength, i, len(v), dim)
		}
		s, ok := sums[y[i]]
		if !ok {
			s = make([]float64, dim)
			sums[y[i]] = s
		}
		for j, f := range v {
			s[j] += f
		}
		counts[y[i]]++
	}

	n.labels = n.labels[:0]
	for l := range sums {
		n.labels = append(n.labels, l)
	}
	slices.Sort(n.labels)
	n.centroids = make([][]float64, len(n.labels))
	for i, l := range n.labels {
		c := sums[l]
		for j := range c {
			c[j] /= float64(counts[l])
		}
		n.centroids[i] = c
	}
	return nil
}

// Predict returns the nearest-centroid label for each vector.
func (n *NearestCentroid) Predict(x [][]float64) ([]string, error) {
	if len(n.centroids) == 0 {
		return nil, fmt.Errorf("predict before fit")
	}
	out := make([]string, len(x))
	for i, v := range x {
		best, bestDist := 0, math.Inf(1)
		for ci, c := range n.centroids {
			if len(c) != len(v) {
				return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrFeatureLength, i, len(v), len(c))
			}
			d := 0.0
			for j := range c {
				diff := v[j] - c[j]
				d += diff * diff
			}
			if d < bestDist {
				best, bestDist = ci, d
			}
		}
		out[i] = n.labels[best]
	}
	return out, nil
}

// FoldResult summarises one held-out fold.
type FoldResult struct {
	Fold     int
	Train    int
	Test     int
	Accuracy float64
}

// LabelScore holds per-label precision and recall over all folds.
type LabelScore struct {
	Label     string
	Precision float64
	Recall    float64
	Support   int
}

// Evaluation is the outcome of grouped cross-validation.
type Evaluation struct {
	K         int
	Folds     []FoldResult
	Labels    []string // sorted; indexes Confusion rows and columns
	Confusion [][]int  // Confusion[true][predicted]
	Scores    []LabelScore
	Accuracy  float64

	// Predictions holds the held-out prediction for every sample.
	Predictions []string
}

// CrossValidate trains a fresh classifier per fold, holding out one fold of
// groups at a time. It fails with ErrInsufficientGroups when fewer than two
// folds can be formed.
func CrossValidate(m *Matrix, folds int, newClassifier func() Classifier) (*Evaluation, error) {
	assign, k := GroupKFold(m.Groups, folds)
	if k < 2 {
		return nil, fmt.Errorf("%w: %d fold(s)", ErrInsufficientGroups, k)
	}

	ev := &Evaluation{K: k, Predictions: make([]string, m.Len())}
	for f := range k {
		var trX, teX [][]float64
		var trY []string
		var teIdx []int
		for i, a := range assign {
			if a == f {
				teX = append(teX, m.Features[i])
				teIdx = append(teIdx, i)
				continue
			}
			trX = append(trX, m.Features[i])
			trY = append(trY, m.Labels[i])
		}

		clf := newClassifier()
		if err := clf.Fit(trX, trY); err != nil {
			return nil, fmt.Errorf("fold %d: fit: %w", f+1, err)
		}
		pred, err := clf.Predict(teX)
		if err != nil {
			return nil, fmt.Errorf("fold %d: predict: %w", f+1, err)
		}

		correct := 0
		for j, i := range teIdx {
			ev.Predictions[i] = pred[j]
			if pred[j] == m.Labels[i] {
				correct++
			}
		}
		ev.Folds = append(ev.Folds, FoldResult{
			Fold:     f + 1,
			Train:    len(trX),
			Test:     len(teX),
			Accuracy: ratio(correct, len(teX)),
		})
	}

	ev.score(m.Labels)
	return ev, nil
}

func (ev *Evaluation) score(truth []string) {
	labels := slices.Concat(truth, ev.Predictions)
	slices.Sort(labels)
	ev.Labels = slices.Compact(labels)

	pos := make(map[string]int, len(ev.Labels))
	for i, l := range ev.Labels {
		pos[l] = i
	}
	ev.Confusion = make([][]int, len(ev.Labels))
	for i := range ev.Confusion {
		ev.Confusion[i] = make([]int, len(ev.Labels))
	}

	correct := 0
	for i, t := range truth {
		p := ev.Predictions[i]
		ev.Confusion[pos[t]][pos[p]]++
		if t == p {
			correct++
		}
	}
	ev.Accuracy = ratio(correct, len(truth))

	for i, l := range ev.Labels {
		predicted, support := 0, 0
		for j := range ev.Labels {
			predicted += ev.Confusion[j][i]
			support += ev.Confusion[i][j]
		}
		tp := ev.Confusion[i][i]
		ev.Scores = append(ev.Scores, LabelScore{
			Label:     l,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		})
	}
}

// WriteTo prints per-fold accuracy, per-label scores and the confusion matrix.
func (ev *Evaluation) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, f := range ev.Folds {
		fmt.Fprintf(&b, "fold %d/%d: train %d, test %d, accuracy %.3f\n", f.Fold, ev.K, f.Train, f.Test, f.Accuracy)
	}
	fmt.Fprintf(&b, "\noverall accuracy %.3f\n", ev.Accuracy)
	fmt.Fprintf(&b, "%-12s %9s %9s %8s\n", "label", "precision", "recall", "support")
	for _, s := range ev.Scores {
		fmt.Fprintf(&b, "%-12s %9.3f %9.3f %8d\n", s.Label, s.Precision, s.Recall, s.Support)
	}
	fmt.Fprintf(&b, "\nconfusion matrix (rows true, columns predicted): %s\n", strings.Join(ev.Labels, ", "))
	for i, row := range ev.Confusion {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = fmt.Sprintf("%5d", c)
		}
		fmt.Fprintf(&b, "%-12s%s\n", ev.Labels[i], strings.Join(cells, ""))
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
