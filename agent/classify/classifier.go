package classify

import (
	"context"
	"sort"
)

// Signal is the evidence for one label.
type Signal struct {
	Label string   `json:"label"`
	Score float64  `json:"score"`
	Terms []string `json:"terms,omitempty"`
}

// Classification holds the matched labels ordered by descending score,
// ties broken by label.
type Classification struct {
	Signals []Signal `json:"signals"`
}

// NewClassification sorts signals and drops those with no score.
func NewClassification(signals ...Signal) Classification {
	out := make([]Signal, 0, len(signals))
	for _, s := range signals {
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return Classification{Signals: out}
}

// Score returns the score of label, zero when it did not match.
func (c Classification) Score(label string) float64 {
	for _, s := range c.Signals {
		if s.Label == label {
			return s.Score
		}
	}
	return 0
}

// Has reports whether label matched.
func (c Classification) Has(label string) bool {
	return c.Score(label) > 0
}

// Strongest returns the best matching signal among labels.
func (c Classification) Strongest(labels ...string) (Signal, bool) {
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[l] = struct{}{}
	}
	for _, s := range c.Signals {
		if _, ok := want[s.Label]; ok {
			return s, true
		}
	}
	return Signal{}, false
}

// Labels returns the matched labels in ranking order.
func (c Classification) Labels() []string {
	out := make([]string, len(c.Signals))
	for i, s := range c.Signals {
		out[i] = s.Label
	}
	return out
}

// Classifier maps a task description to intent labels. Implementations
// must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, description string) (Classification, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, description string) (Classification, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, description string) (Classification, error) {
	return f(ctx, description)
}
