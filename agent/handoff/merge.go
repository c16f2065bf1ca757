package handoff

import "strings"

// Contribution is one agent's share of a collaborative result.
type Contribution struct {
	Agent  string
	Output Value
}

// Merger combines the requesting agent's output with its collaborator's.
type Merger interface {
	Merge(primary, secondary Contribution) Value
}

// MergerFunc adapts a function to Merger.
type MergerFunc func(primary, secondary Contribution) Value

// Merge implements Merger.
func (f MergerFunc) Merge(primary, secondary Contribution) Value {
	return f(primary, secondary)
}

// ProvenanceMerger concatenates outputs as text, labelling each part with
// the agent that produced it. It is the orchestrator default.
type ProvenanceMerger struct {
	// Separator between labelled parts; "\n\n" when empty.
	Separator string
}

// Merge implements Merger.
func (m ProvenanceMerger) Merge(primary, secondary Contribution) Value {
	sep := m.Separator
	if sep == "" {
		sep = "\n\n"
	}
	parts := []string{label(primary), label(secondary)}
	return String(strings.Join(parts, sep))
}

func label(c Contribution) string {
	return "[" + c.Agent + "]\n" + c.Output.String()
}

// RecordMerger keeps both outputs structured, keyed by agent name.
type RecordMerger struct{}

// Merge implements Merger.
func (RecordMerger) Merge(primary, secondary Contribution) Value {
	return Record(map[string]Value{
		primary.Agent:   primary.Output,
		secondary.Agent: secondary.Output,
	})
}
