package intent

import "github.com/anshukrra07/CampusCare-sub001/internal/types"

// Domain is a data source a reply can be grounded on.
type Domain string

const (
	DomainChats        Domain = "chats"
	DomainAssessments  Domain = "assessments"
	DomainMoods        Domain = "moods"
	DomainAppointments Domain = "appointments"
	DomainAlerts       Domain = "alerts"
	DomainProfile      Domain = "profile"
)

// ContextPlan lists the domains to load, chats first.
type ContextPlan struct {
	Domains []Domain
}

func (p ContextPlan) Has(d Domain) bool {
	for _, x := range p.Domains {
		if x == d {
			return true
		}
	}
	return false
}

// Names returns the domains as strings for the pipeline result.
func (p ContextPlan) Names() []string {
	out := make([]string, len(p.Domains))
	for i, d := range p.Domains {
		out[i] = string(d)
	}
	return out
}

// BuildPlan maps intent flags to the domains to load. Chat history is
// always loaded; NeedsSummary loads every domain.
func BuildPlan(f types.IntentFlags) ContextPlan {
	all := f.NeedsSummary
	plan := ContextPlan{Domains: []Domain{DomainChats}}
	add := func(on bool, d Domain) {
		if all || on {
			plan.Domains = append(plan.Domains, d)
		}
	}
	add(f.NeedsAssessments, DomainAssessments)
	add(f.NeedsMoods, DomainMoods)
	add(f.NeedsAppointments, DomainAppointments)
	add(f.NeedsAlerts, DomainAlerts)
	add(f.NeedsProfile, DomainProfile)
	return plan
}

type Strategy string

const (
	StrategySummary        Strategy = "comprehensive-summary"
	StrategyEnhanced       Strategy = "enhanced-context"
	StrategyConversational Strategy = "conversational"
)

// SelectStrategy applies a strict priority: summary, then any other
// domain, then plain conversation.
func SelectStrategy(f types.IntentFlags) Strategy {
	switch {
	case f.NeedsSummary:
		return StrategySummary
	case f.NeedsAssessments || f.NeedsMoods || f.NeedsAppointments || f.NeedsAlerts || f.NeedsProfile:
		return StrategyEnhanced
	default:
		return StrategyConversational
	}
}
