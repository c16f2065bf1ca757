package domain

import (
	"github.com/BaSui01/agentrelay/agent/classify"
	"github.com/BaSui01/agentrelay/agent/handoff"
	"go.uber.org/zap"
)

// Registered names of the four specialists.
const (
	Retrieval          = "retrieval"
	WorkflowAutomation = "workflow-automation"
	Analytics          = "analytics"
	DataScience        = "data-science"
)

var specialties = []Route{
	{Label: classify.LabelRetrieval, Target: Retrieval},
	{Label: classify.LabelWorkflowAutomation, Target: WorkflowAutomation},
	{Label: classify.LabelAnalytics, Target: Analytics},
	{Label: classify.LabelDataScience, Target: DataScience},
}

func peersOf(name string) []Route {
	peers := make([]Route, 0, len(specialties)-1)
	for _, r := range specialties {
		if r.Target != name {
			peers = append(peers, r)
		}
	}
	return peers
}

// RetrievalProfile searches indexes and recommends items.
func RetrievalProfile() Profile {
	return Profile{
		Name:         Retrieval,
		Label:        classify.LabelRetrieval,
		Capabilities: []string{"search", "lookup", "recommendation"},
		Peers:        peersOf(Retrieval),
	}
}

// WorkflowAutomationProfile triggers notifications and scheduled flows.
func WorkflowAutomationProfile() Profile {
	return Profile{
		Name:         WorkflowAutomation,
		Label:        classify.LabelWorkflowAutomation,
		Capabilities: []string{"notification", "email", "workflow-trigger"},
		Peers:        peersOf(WorkflowAutomation),
	}
}

// AnalyticsProfile answers descriptive statistics and escalates modelling.
func AnalyticsProfile() Profile {
	return Profile{
		Name:         Analytics,
		Label:        classify.LabelAnalytics,
		Capabilities: []string{"sql", "aggregation", "reporting"},
		Escalations:  []Route{{Label: classify.LabelAdvancedAnalytics, Target: DataScience}},
		Peers:        peersOf(Analytics),
	}
}

// DataScienceProfile runs predictive models and hands plain statistics back
// to analytics.
func DataScienceProfile() Profile {
	return Profile{
		Name:         DataScience,
		Label:        classify.LabelDataScience,
		Capabilities: []string{"machine-learning", "forecasting", "query-api"},
		Delegations:  []Route{{Label: classify.LabelBasicStatistics, Target: Analytics}},
		Peers:        peersOf(DataScience),
	}
}

// Profiles returns the four built-in profiles.
func Profiles() []Profile {
	return []Profile{
		RetrievalProfile(),
		WorkflowAutomationProfile(),
		AnalyticsProfile(),
		DataScienceProfile(),
	}
}

// NewRetrieval creates the retrieval specialist.
func NewRetrieval(inv Invoker, c classify.Classifier, logger *zap.Logger) *Specialist {
	return NewSpecialist(RetrievalProfile(), inv, c, logger)
}

// NewWorkflowAutomation creates the workflow-automation specialist.
func NewWorkflowAutomation(inv Invoker, c classify.Classifier, logger *zap.Logger) *Specialist {
	return NewSpecialist(WorkflowAutomationProfile(), inv, c, logger)
}

// NewAnalytics creates the analytics specialist.
func NewAnalytics(inv Invoker, c classify.Classifier, logger *zap.Logger) *Specialist {
	return NewSpecialist(AnalyticsProfile(), inv, c, logger)
}

// NewDataScience creates the data-science specialist.
func NewDataScience(inv Invoker, c classify.Classifier, logger *zap.Logger) *Specialist {
	return NewSpecialist(DataScienceProfile(), inv, c, logger)
}

// RegisterAll registers the four specialists on o. invokers is keyed by
// agent name; missing entries fall back to StaticInvoker.
func RegisterAll(o *handoff.Orchestrator, invokers map[string]Invoker, c classify.Classifier, logger *zap.Logger) error {
	if c == nil {
		c = classify.NewDefault()
	}
	for _, p := range Profiles() {
		if err := o.RegisterAgent(p.Name, NewSpecialist(p, invokers[p.Name], c, logger)); err != nil {
			return err
		}
	}
	return nil
}
