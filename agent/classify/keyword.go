package classify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/BaSui01/agentrelay/types"
)

// Labels used by the built-in rules.
const (
	LabelRetrieval          = "retrieval"
	LabelWorkflowAutomation = "workflow-automation"
	LabelAnalytics          = "analytics"
	LabelDataScience        = "data-science"

	// LabelAdvancedAnalytics marks work beyond descriptive statistics.
	LabelAdvancedAnalytics = "advanced-analytics"
	// LabelBasicStatistics marks work that needs no modelling.
	LabelBasicStatistics = "basic-statistics"
)

// Rule associates a label with the terms that imply it. A term may be a
// multi-word phrase; it matches whole tokens only.
type Rule struct {
	Label  string   `json:"label" yaml:"label"`
	Terms  []string `json:"terms" yaml:"terms"`
	Weight float64  `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// DefaultRules returns the keyword rules for the four specialties and the
// two capability tiers.
func DefaultRules() []Rule {
	return []Rule{
		{Label: LabelRetrieval, Terms: []string{"search", "find", "lookup", "look up", "hotel", "hotels", "retrieve", "recommend"}},
		{Label: LabelWorkflowAutomation, Terms: []string{"email", "send", "notify", "notification", "workflow", "trigger", "schedule", "alert"}},
		{Label: LabelAnalytics, Terms: []string{"analyze", "analysis", "statistics", "stats", "report", "trend", "taxi", "trips", "aggregate", "count"}},
		{Label: LabelDataScience, Terms: []string{"machine learning", "ml", "model", "predict", "prediction", "forecast", "genie", "databricks", "correlate", "regression"}},
		{Label: LabelAdvancedAnalytics, Terms: []string{"complex", "machine learning", "ml", "predict", "forecast", "advanced"}},
		{Label: LabelBasicStatistics, Terms: []string{"simple stats", "basic analysis", "trip count", "simple statistics"}},
	}
}

type compiledRule struct {
	label  string
	weight float64
	terms  []string
	// phrases holds the tokenized form of each term.
	phrases [][]string
}

// Keyword scores each rule by the number of distinct terms found in the
// description, multiplied by the rule weight.
type Keyword struct {
	rules []compiledRule
}

// NewKeyword compiles rules. Rules sharing a label are merged.
func NewKeyword(rules []Rule) (*Keyword, error) {
	if len(rules) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "keyword classifier needs at least one rule")
	}

	index := make(map[string]int, len(rules))
	k := &Keyword{}
	for i, r := range rules {
		label := strings.TrimSpace(r.Label)
		if label == "" {
			return nil, types.Errorf(types.ErrInvalidRequest, "rule %d has no label", i)
		}
		if r.Weight < 0 {
			return nil, types.Errorf(types.ErrInvalidRequest, "rule %q has negative weight", label)
		}

		pos, ok := index[label]
		if !ok {
			weight := r.Weight
			if weight == 0 {
				weight = 1
			}
			k.rules = append(k.rules, compiledRule{label: label, weight: weight})
			pos = len(k.rules) - 1
			index[label] = pos
		}
		cr := &k.rules[pos]
		for _, term := range r.Terms {
			phrase := tokenize(term)
			if len(phrase) == 0 {
				continue
			}
			cr.terms = append(cr.terms, strings.Join(phrase, " "))
			cr.phrases = append(cr.phrases, phrase)
		}
	}

	for _, cr := range k.rules {
		if len(cr.phrases) == 0 {
			return nil, types.Errorf(types.ErrInvalidRequest, "rule %q has no usable terms", cr.label)
		}
	}
	return k, nil
}

// MustKeyword is like NewKeyword but panics on error.
func MustKeyword(rules []Rule) *Keyword {
	k, err := NewKeyword(rules)
	if err != nil {
		panic(fmt.Sprintf("classify: %v", err))
	}
	return k
}

// NewDefault returns a Keyword classifier over DefaultRules.
func NewDefault() *Keyword {
	return MustKeyword(DefaultRules())
}

// Classify implements Classifier.
func (k *Keyword) Classify(ctx context.Context, description string) (Classification, error) {
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}

	tokens := tokenize(description)
	signals := make([]Signal, 0, len(k.rules))
	for _, r := range k.rules {
		var matched []string
		seen := make(map[string]struct{})
		for i, phrase := range r.phrases {
			term := r.terms[i]
			if _, dup := seen[term]; dup {
				continue
			}
			if containsPhrase(tokens, phrase) {
				seen[term] = struct{}{}
				matched = append(matched, term)
			}
		}
		if len(matched) > 0 {
			signals = append(signals, Signal{
				Label: r.label,
				Score: float64(len(matched)) * r.weight,
				Terms: matched,
			})
		}
	}
	return NewClassification(signals...), nil
}

// Labels returns the rule labels in declaration order.
func (k *Keyword) Labels() []string {
	out := make([]string, len(k.rules))
	for i, r := range k.rules {
		out[i] = r.label
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if tokens[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}
