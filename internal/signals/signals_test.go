package signals

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScoreEmptyIsNeutral(t *testing.T) {
	a := New(Config{})
	for _, in := range []string{"", "   ", "\n\t"} {
		if diff := cmp.Diff(Neutral(), a.Score(in)); diff != "" {
			t.Fatalf("Score(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestScoreShoutingBrokenFurious(t *testing.T) {
	a := New(Config{})
	v := a.Score("URGENT! This is broken and I'm furious!!!")

	if v.Label != LabelNegative {
		t.Fatalf("Label = %q, want %q", v.Label, LabelNegative)
	}
	if v.Score >= -0.5 {
		t.Fatalf("Score = %v, want < -0.5", v.Score)
	}
	if v.UrgencyScore < 0.5 || !v.IsUrgent {
		t.Fatalf("urgency = (%v, %v), want >= 0.5 and urgent", v.UrgencyScore, v.IsUrgent)
	}
	if !v.Frustrated {
		t.Fatalf("Frustrated = false, want true")
	}
	if !v.RequiresHumanEscalation {
		t.Fatalf("RequiresHumanEscalation = false, want true")
	}
}

func TestScorePositiveMessage(t *testing.T) {
	a := New(Config{})
	v := a.Score("Thanks, the new laptop is great!")

	if v.Label != LabelPositive {
		t.Fatalf("Label = %q, want %q (score %v)", v.Label, LabelPositive, v.Score)
	}
	if v.UrgencyScore != 0.1 {
		t.Fatalf("UrgencyScore = %v, want 0.1", v.UrgencyScore)
	}
	if v.Frustrated || v.RequiresHumanEscalation || v.IsNegative {
		t.Fatalf("unexpected flags on positive message: %+v", v)
	}
}

func TestScoreNeutralQuestion(t *testing.T) {
	a := New(Config{})
	v := a.Score("What are your store hours on Saturday?")
	if v.Label != LabelNeutral || v.Score != 0 {
		t.Fatalf("reading = (%q, %v), want neutral 0", v.Label, v.Score)
	}
	if v.UrgencyScore != 0 {
		t.Fatalf("UrgencyScore = %v, want 0", v.UrgencyScore)
	}
}

func TestUrgencyContributionsAreCapped(t *testing.T) {
	a := New(Config{})

	// Six exclamation marks contribute at most 0.3.
	if got := a.Score("Where is my order!!!!!!").UrgencyScore; got != 0.3 {
		t.Fatalf("exclamation urgency = %v, want 0.3", got)
	}

	// "help" hits once (0.2), four shouted words cap at 0.3, "ME" is too short to count.
	v := a.Score("HELP ME NOW PLEASE FAST")
	if v.UrgencyScore != 0.5 {
		t.Fatalf("shouting urgency = %v, want 0.5", v.UrgencyScore)
	}
	if !v.IsUrgent {
		t.Fatalf("IsUrgent = false at 0.5, want true")
	}
}

func TestUrgencyKeywordsCountOncePerDistinctMatch(t *testing.T) {
	a := New(Config{
		ShortText: ScorerFunc(func(string) float64 { return 0 }),
		LongText:  ScorerFunc(func(string) float64 { return 0 }),
	})
	if got := a.Score("error error error").UrgencyScore; got != 0.2 {
		t.Fatalf("UrgencyScore = %v, want 0.2", got)
	}
	if got := a.Score("error, then a crash").UrgencyScore; got != 0.4 {
		t.Fatalf("UrgencyScore = %v, want 0.4", got)
	}
}

func TestFrustrationKeywordAloneSetsFlag(t *testing.T) {
	a := New(Config{
		ShortText: ScorerFunc(func(string) float64 { return 0 }),
		LongText:  ScorerFunc(func(string) float64 { return 0 }),
	})
	v := a.Score("honestly this is a waste of my afternoon")
	if !v.Frustrated || !v.RequiresHumanEscalation {
		t.Fatalf("flags = (frustrated %v, escalate %v), want both true", v.Frustrated, v.RequiresHumanEscalation)
	}
	if v.Label != LabelNeutral {
		t.Fatalf("Label = %q, want neutral with stub scorers", v.Label)
	}
}

func TestWeightsCombineScorers(t *testing.T) {
	a := New(Config{
		ShortText: ScorerFunc(func(string) float64 { return -1 }),
		LongText:  ScorerFunc(func(string) float64 { return 0.5 }),
	})
	v := a.Score("anything")
	if v.Score != -0.55 {
		t.Fatalf("Score = %v, want -0.55", v.Score)
	}
	if !v.IsNegative || !v.Frustrated {
		t.Fatalf("flags = %+v, want negative and frustrated", v)
	}
	// urgency = |score| * 0.3
	if v.UrgencyScore != 0.165 {
		t.Fatalf("UrgencyScore = %v, want 0.165", v.UrgencyScore)
	}
	if v.RequiresHumanEscalation != true {
		t.Fatalf("RequiresHumanEscalation = false, want true")
	}
}

func TestUrgentButNotNegativeDoesNotEscalate(t *testing.T) {
	a := New(Config{
		ShortText: ScorerFunc(func(string) float64 { return 0.2 }),
		LongText:  ScorerFunc(func(string) float64 { return 0.2 }),
	})
	v := a.Score("urgent: order missing, need help ASAP")
	if !v.IsUrgent {
		t.Fatalf("IsUrgent = false, want true (urgency %v)", v.UrgencyScore)
	}
	if v.RequiresHumanEscalation {
		t.Fatalf("RequiresHumanEscalation = true for a positive urgent message")
	}
}

func TestCustomKeywordTables(t *testing.T) {
	a := New(Config{
		UrgencyKeywords:      []string{"Outage", "outage", "down"},
		FrustrationKeywords:  []string{"fed up"},
		UrgencyKeywordWeight: 0.25,
	})
	v := a.Score("the portal is down again, total outage. I'm fed up")
	if v.UrgencyScore < 0.5 {
		t.Fatalf("UrgencyScore = %v, want >= 0.5", v.UrgencyScore)
	}
	if !v.Frustrated {
		t.Fatalf("Frustrated = false, want true for custom keyword")
	}
	if a.Score("help").UrgencyScore != 0 {
		t.Fatalf("default keywords should be replaced by custom table")
	}
}

func TestScoreBoundsAndLabelConsistency(t *testing.T) {
	a := New(Config{})
	inputs := []string{
		"I HATE THIS. WORST. SERVICE. EVER!!!!!!!!",
		"absolutely amazing, wonderful, perfect, best purchase ever!!!",
		"not bad at all",
		"The screen is broken, the charger is missing and support is useless and rude",
		"can't login, error 500, app crashed, lost my cart, nothing works, help!!!",
		"ok",
		"?!?!",
		"Thanks but the delivery was late and the box was damaged",
	}
	for _, in := range inputs {
		v := a.Score(in)
		if math.Abs(v.Score) > 1 || v.UrgencyScore < 0 || v.UrgencyScore > 1 {
			t.Fatalf("Score(%q) out of bounds: %+v", in, v)
		}
		if want := labelFor(v.Score); v.Label != want {
			t.Fatalf("Score(%q) label = %q, want %q for score %v", in, v.Label, want, v.Score)
		}
		if v.IsUrgent != (v.UrgencyScore >= 0.5) {
			t.Fatalf("Score(%q) IsUrgent inconsistent: %+v", in, v)
		}
		if v.RequiresHumanEscalation != (v.Frustrated || (v.IsUrgent && v.IsNegative)) {
			t.Fatalf("Score(%q) escalation flag inconsistent: %+v", in, v)
		}
	}
}
