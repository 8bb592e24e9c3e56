package escalation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ent0n29/switchboard/internal/signals"
)

func TestDecideRuleTable(t *testing.T) {
	p := NewPolicy(10)
	tests := []struct {
		name   string
		v      signals.Vector
		length int
		want   Decision
	}{
		{
			name: "nothing matches",
			v:    signals.Neutral(),
			want: Decision{Priority: PriorityMedium},
		},
		{
			name: "requires human dominates everything",
			v: signals.Vector{
				Score: -0.9, IsNegative: true, Frustrated: true, RequiresHumanEscalation: true,
				IsUrgent: true, UrgencyScore: 1,
			},
			length: 50,
			want:   Decision{ShouldEscalate: true, Reason: ReasonFrustratedOrUrgent, Priority: PriorityHigh},
		},
		{
			name: "frustrated only",
			v:    signals.Vector{Frustrated: true},
			want: Decision{ShouldEscalate: true, Reason: ReasonFrustrated, Priority: PriorityHigh},
		},
		{
			name: "very negative",
			v:    signals.Vector{Score: -0.75, IsNegative: true},
			want: Decision{ShouldEscalate: true, Reason: ReasonVeryNegative, Priority: PriorityHigh},
		},
		{
			name: "negative but not very",
			v:    signals.Vector{Score: -0.6, IsNegative: true},
			want: Decision{Priority: PriorityMedium},
		},
		{
			name:   "extended conversation beats urgency",
			v:      signals.Vector{IsUrgent: true, UrgencyScore: 0.9},
			length: 11,
			want:   Decision{ShouldEscalate: true, Reason: ReasonExtended, Priority: PriorityMedium},
		},
		{
			name:   "exactly ten turns is not extended",
			v:      signals.Neutral(),
			length: 10,
			want:   Decision{Priority: PriorityMedium},
		},
		{
			name: "critical urgency",
			v:    signals.Vector{IsUrgent: true, UrgencyScore: 0.9},
			want: Decision{ShouldEscalate: true, Reason: ReasonUrgent, Priority: PriorityUrgent},
		},
		{
			name: "urgency at 0.8 is not critical",
			v:    signals.Vector{IsUrgent: true, UrgencyScore: 0.8},
			want: Decision{Priority: PriorityMedium},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Decide(tc.v, tc.length)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Decide() mismatch (-want +got):\n%s", diff)
			}
			if again := p.Decide(tc.v, tc.length); again != got {
				t.Fatalf("Decide() not deterministic: %+v vs %+v", got, again)
			}
		})
	}
}

func TestDecideShoutingMessageEndToEnd(t *testing.T) {
	agg := signals.New(signals.Config{})
	v := agg.Score("URGENT! This is broken and I'm furious!!!")
	got := NewPolicy(0).Decide(v, 1)
	want := Decision{ShouldEscalate: true, Reason: ReasonFrustratedOrUrgent, Priority: PriorityHigh}
	if got != want {
		t.Fatalf("Decide() = %+v, want %+v (signals %+v)", got, want, v)
	}
}

func TestCustomExtendedThreshold(t *testing.T) {
	p := NewPolicy(3)
	if d := p.Decide(signals.Neutral(), 4); d.Reason != ReasonExtended {
		t.Fatalf("Decide(len=4) = %+v, want extended escalation", d)
	}
	if d := p.Decide(signals.Neutral(), 3); d.ShouldEscalate {
		t.Fatalf("Decide(len=3) = %+v, want no escalation", d)
	}
}

func TestRulesOrder(t *testing.T) {
	want := []string{"requires_human", "frustrated", "very_negative", "extended_conversation", "urgent"}
	if diff := cmp.Diff(want, NewPolicy(0).Rules()); diff != "" {
		t.Fatalf("Rules() mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePriority(t *testing.T) {
	for _, raw := range []string{"low", "Medium", " HIGH ", "urgent"} {
		if _, err := ParsePriority(raw); err != nil {
			t.Fatalf("ParsePriority(%q) error = %v", raw, err)
		}
	}
	if _, err := ParsePriority("critical"); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("ParsePriority(critical) error = %v, want ErrInvalidPriority", err)
	}
	if !(PriorityUrgent.Rank() > PriorityHigh.Rank() && PriorityHigh.Rank() > PriorityMedium.Rank() && PriorityMedium.Rank() > PriorityLow.Rank()) {
		t.Fatalf("priority ranks are not ordered")
	}
}
