package signals

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon/*.yaml
var lexiconFS embed.FS

type valenceLexicon struct {
	Words    map[string]float64 `yaml:"words"`
	Boosters map[string]float64 `yaml:"boosters"`
}

type polarityLexicon struct {
	Words        map[string]float64 `yaml:"words"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`
}

var (
	lexiconOnce sync.Once
	valenceLex  valenceLexicon
	polarityLex polarityLexicon
	lexiconErr  error
)

func loadLexicons() (valenceLexicon, polarityLexicon) {
	lexiconOnce.Do(func() {
		if err := readLexicon("lexicon/valence.yaml", &valenceLex); err != nil {
			lexiconErr = err
			return
		}
		lexiconErr = readLexicon("lexicon/polarity.yaml", &polarityLex)
	})
	if lexiconErr != nil {
		// The files are compiled in; a parse failure is a build defect.
		panic(lexiconErr)
	}
	return valenceLex, polarityLex
}

func readLexicon(name string, out any) error {
	data, err := lexiconFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"nowhere": {}, "neither": {}, "nor": {}, "cannot": {}, "without": {},
}

func isNegation(word string) bool {
	if _, ok := negations[word]; ok {
		return true
	}
	return strings.HasSuffix(word, "n't") || contractionStem(word)
}

// contractionStem catches apostrophe-less contractions such as "dont" or "isnt".
func contractionStem(word string) bool {
	switch word {
	case "dont", "doesnt", "didnt", "isnt", "wasnt", "arent", "werent", "cant", "couldnt",
		"wont", "wouldnt", "shouldnt", "hasnt", "havent", "hadnt", "aint":
		return true
	}
	return false
}
