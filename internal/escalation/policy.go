package escalation

import "github.com/ent0n29/switchboard/internal/signals"

const (
	DefaultExtendedConversationTurns = 10
	veryNegativeScore                = -0.7
	criticalUrgency                  = 0.8
)

const (
	ReasonFrustratedOrUrgent = "customer frustration or urgent issue detected"
	ReasonFrustrated         = "customer frustration detected"
	ReasonVeryNegative       = "very negative sentiment detected"
	ReasonExtended           = "extended conversation without resolution"
	ReasonUrgent             = "urgent issue requires immediate attention"
)

// Decision is the outcome of evaluating a signal vector. Priority is medium when
// ShouldEscalate is false.
type Decision struct {
	ShouldEscalate bool     `json:"should_escalate"`
	Reason         string   `json:"reason,omitempty"`
	Priority       Priority `json:"priority"`
}

// Input is what a rule sees.
type Input struct {
	Signals            signals.Vector
	ConversationLength int
}

// Rule pairs a predicate with the decision it produces.
type Rule struct {
	Name     string
	Match    func(Input) bool
	Reason   string
	Priority Priority
}

// Policy evaluates rules in order; the first match wins.
type Policy struct {
	rules []Rule
}

// NewPolicy builds the standard rule table. extendedTurns <= 0 uses the default of 10.
func NewPolicy(extendedTurns int) *Policy {
	if extendedTurns <= 0 {
		extendedTurns = DefaultExtendedConversationTurns
	}
	return &Policy{rules: []Rule{
		{
			Name:     "requires_human",
			Match:    func(in Input) bool { return in.Signals.RequiresHumanEscalation },
			Reason:   ReasonFrustratedOrUrgent,
			Priority: PriorityHigh,
		},
		{
			Name:     "frustrated",
			Match:    func(in Input) bool { return in.Signals.Frustrated },
			Reason:   ReasonFrustrated,
			Priority: PriorityHigh,
		},
		{
			Name:     "very_negative",
			Match:    func(in Input) bool { return in.Signals.IsNegative && in.Signals.Score < veryNegativeScore },
			Reason:   ReasonVeryNegative,
			Priority: PriorityHigh,
		},
		{
			Name:     "extended_conversation",
			Match:    func(in Input) bool { return in.ConversationLength > extendedTurns },
			Reason:   ReasonExtended,
			Priority: PriorityMedium,
		},
		{
			Name:     "urgent",
			Match:    func(in Input) bool { return in.Signals.IsUrgent && in.Signals.UrgencyScore > criticalUrgency },
			Reason:   ReasonUrgent,
			Priority: PriorityUrgent,
		},
	}}
}

// Decide is pure: identical inputs always yield identical decisions.
func (p *Policy) Decide(v signals.Vector, conversationLength int) Decision {
	in := Input{Signals: v, ConversationLength: conversationLength}
	for _, r := range p.rules {
		if r.Match(in) {
			return Decision{ShouldEscalate: true, Reason: r.Reason, Priority: r.Priority}
		}
	}
	return Decision{Priority: PriorityMedium}
}

// Rules returns the rule names in evaluation order.
func (p *Policy) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}
