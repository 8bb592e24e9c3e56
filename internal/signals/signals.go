package signals

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Label is the coarse sentiment class of a message.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

const (
	labelThreshold         = 0.05
	veryNegativeThreshold  = -0.5
	exclaimUrgency         = 0.1
	exclaimUrgencyCap      = 0.3
	capsUrgency            = 0.1
	capsUrgencyCap         = 0.3
	negativeUrgencyFactor  = 0.3
	urgentThreshold        = 0.5
	defaultKeywordWeight   = 0.2
	defaultNegativeCutoff  = -0.5
	defaultShortTextWeight = 0.7
	defaultLongTextWeight  = 0.3
)

// Vector is the emotion/urgency reading of one message. It is computed fresh per
// message and never mutated afterwards.
type Vector struct {
	Score                   float64    `json:"score"`
	Label                   Label      `json:"label"`
	IsNegative              bool       `json:"is_negative"`
	UrgencyScore            float64    `json:"urgency_score"`
	IsUrgent                bool       `json:"is_urgent"`
	Frustrated              bool       `json:"frustrated"`
	RequiresHumanEscalation bool       `json:"requires_human_escalation"`
	Components              Components `json:"components"`
}

// Components keeps the per-scorer estimates that went into Score.
type Components struct {
	ShortText float64 `json:"short_text"`
	LongText  float64 `json:"long_text"`
}

// Neutral is the reading for an empty message.
func Neutral() Vector {
	return Vector{Label: LabelNeutral}
}

type Config struct {
	ShortText            Scorer
	LongText             Scorer
	ShortTextWeight      float64
	LongTextWeight       float64
	NegativeThreshold    float64
	UrgencyKeywordWeight float64
	UrgencyKeywords      []string
	FrustrationKeywords  []string
}

// Aggregator combines two sentiment estimates with keyword and typography cues.
type Aggregator struct {
	short, long             Scorer
	shortWeight, longWeight float64
	negativeThreshold       float64
	keywordWeight           float64
	urgencyKeywords         []string
	frustrationKeywords     []string
}

func New(cfg Config) *Aggregator {
	a := &Aggregator{
		short:               cfg.ShortText,
		long:                cfg.LongText,
		shortWeight:         cfg.ShortTextWeight,
		longWeight:          cfg.LongTextWeight,
		negativeThreshold:   cfg.NegativeThreshold,
		keywordWeight:       cfg.UrgencyKeywordWeight,
		urgencyKeywords:     normalizeKeywords(cfg.UrgencyKeywords),
		frustrationKeywords: normalizeKeywords(cfg.FrustrationKeywords),
	}
	if a.short == nil {
		a.short = NewValenceScorer()
	}
	if a.long == nil {
		a.long = NewPolarityScorer()
	}
	if a.shortWeight == 0 && a.longWeight == 0 {
		a.shortWeight, a.longWeight = defaultShortTextWeight, defaultLongTextWeight
	}
	if a.negativeThreshold == 0 {
		a.negativeThreshold = defaultNegativeCutoff
	}
	if a.keywordWeight == 0 {
		a.keywordWeight = defaultKeywordWeight
	}
	if len(a.urgencyKeywords) == 0 {
		a.urgencyKeywords = normalizeKeywords(DefaultUrgencyKeywords)
	}
	if len(a.frustrationKeywords) == 0 {
		a.frustrationKeywords = normalizeKeywords(DefaultFrustrationKeywords)
	}
	return a
}

// Score reads the emotion and urgency of text. It has no side effects.
func (a *Aggregator) Score(text string) Vector {
	if strings.TrimSpace(text) == "" {
		return Neutral()
	}

	short := a.short.Polarity(text)
	long := a.long.Polarity(text)
	score := round3(clamp(short*a.shortWeight + long*a.longWeight))

	v := Vector{
		Score:      score,
		Label:      labelFor(score),
		IsNegative: score < a.negativeThreshold,
		Components: Components{ShortText: round3(short), LongText: round3(long)},
	}

	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	v.UrgencyScore = a.urgency(text, lower, v)
	v.IsUrgent = v.UrgencyScore >= urgentThreshold
	v.Frustrated = containsAny(lower, a.frustrationKeywords) || score < veryNegativeThreshold
	v.RequiresHumanEscalation = v.Frustrated || (v.IsUrgent && v.IsNegative)
	return v
}

func (a *Aggregator) urgency(text, lower string, v Vector) float64 {
	var u float64
	for _, kw := range a.urgencyKeywords {
		if strings.Contains(lower, kw) {
			u += a.keywordWeight
		}
	}

	u += math.Min(float64(strings.Count(text, "!"))*exclaimUrgency, exclaimUrgencyCap)

	shouting := 0
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) > 2 && isAllCaps(w) {
			shouting++
		}
	}
	u += math.Min(float64(shouting)*capsUrgency, capsUrgencyCap)

	if v.IsNegative {
		u += math.Abs(v.Score) * negativeUrgencyFactor
	}
	return round3(math.Min(u, 1.0))
}

func labelFor(score float64) Label {
	switch {
	case score >= labelThreshold:
		return LabelPositive
	case score <= -labelThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(kw, "’", "'")))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
