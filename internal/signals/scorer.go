package signals

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scorer estimates the polarity of a text in [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(text string) float64

func (f ScorerFunc) Polarity(text string) float64 { return f(text) }

const (
	capsIncrement    = 0.733
	negationScalar   = -0.74
	exclaimIncrement = 0.292
	maxExclaims      = 4
	normalizeAlpha   = 15.0
)

// ValenceScorer is a lexicon and rule based scorer tuned for short, informal text.
// It accounts for boosters, negation, all-caps emphasis, contrastive "but" and
// exclamation marks, and squashes the raw sum into [-1, 1].
type ValenceScorer struct {
	words    map[string]float64
	boosters map[string]float64
}

func NewValenceScorer() *ValenceScorer {
	lex, _ := loadLexicons()
	return &ValenceScorer{words: lex.Words, boosters: lex.Boosters}
}

func (s *ValenceScorer) Polarity(text string) float64 {
	raw := tokenize(text)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if utf8.RuneCountInString(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return 0
	}
	capDiff := mixedCaps(tokens)

	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}

	sentiments := make([]float64, len(tokens))
	for i, w := range lower {
		if _, ok := s.boosters[w]; ok {
			continue
		}
		v, ok := s.words[w]
		if !ok {
			continue
		}
		if capDiff && isAllCaps(tokens[i]) {
			v += math.Copysign(capsIncrement, v)
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := lower[i-back]
			if _, inLex := s.words[prev]; inLex {
				continue
			}
			scalar := s.boosterScalar(prev, tokens[i-back], v, capDiff)
			switch back {
			case 2:
				scalar *= 0.95
			case 3:
				scalar *= 0.9
			}
			v += scalar
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			if isNegation(lower[i-back]) {
				v *= negationScalar
				break
			}
		}
		sentiments[i] = v
	}

	for i, w := range lower {
		if w != "but" {
			continue
		}
		for j := range sentiments {
			switch {
			case j < i:
				sentiments[j] *= 0.5
			case j > i:
				sentiments[j] *= 1.5
			}
		}
		break
	}

	var sum float64
	for _, v := range sentiments {
		sum += v
	}
	if sum == 0 {
		return 0
	}
	emphasis := float64(min(strings.Count(text, "!"), maxExclaims)) * exclaimIncrement
	if sum > 0 {
		sum += emphasis
	} else {
		sum -= emphasis
	}
	return clamp(sum / math.Sqrt(sum*sum+normalizeAlpha))
}

func (s *ValenceScorer) boosterScalar(word, original string, valence float64, capDiff bool) float64 {
	scalar, ok := s.boosters[word]
	if !ok {
		return 0
	}
	if valence < 0 {
		scalar = -scalar
	}
	if capDiff && isAllCaps(original) {
		scalar += math.Copysign(capsIncrement, valence)
	}
	return scalar
}

// PolarityScorer averages adjective polarities, applying intensifiers and negation
// from the preceding word. It is steadier than ValenceScorer on longer prose.
type PolarityScorer struct {
	words        map[string]float64
	intensifiers map[string]float64
}

func NewPolarityScorer() *PolarityScorer {
	_, lex := loadLexicons()
	return &PolarityScorer{words: lex.Words, intensifiers: lex.Intensifiers}
}

func (s *PolarityScorer) Polarity(text string) float64 {
	tokens := tokenize(text)
	var (
		total float64
		count int
	)
	for i, t := range tokens {
		w := strings.ToLower(t)
		p, ok := s.words[w]
		if !ok {
			continue
		}
		if i > 0 {
			prev := strings.ToLower(tokens[i-1])
			if k, ok := s.intensifiers[prev]; ok {
				p *= k
				if i > 1 && isNegation(strings.ToLower(tokens[i-2])) {
					p *= -0.5
				}
			} else if isNegation(prev) {
				p *= -0.5
			}
		}
		total += clamp(p)
		count++
	}
	if count == 0 {
		return 0
	}
	return clamp(total / float64(count))
}

func tokenize(text string) []string {
	text = strings.ReplaceAll(text, "’", "'")
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// isAllCaps reports whether the token has at least one cased letter and no lower-case ones.
func isAllCaps(token string) bool {
	cased := false
	for _, r := range token {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func mixedCaps(tokens []string) bool {
	caps := 0
	for _, t := range tokens {
		if isAllCaps(t) {
			caps++
		}
	}
	return caps > 0 && caps < len(tokens)
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
