package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedLanguage   = errors.New("unsupported language")
	ErrUnsupportedDifficulty = errors.New("unsupported difficulty")
)

type Language string

const (
	French  Language = "fr"
	English Language = "en"
)

// Instructions holds the phrase fragments and messages for one language.
type Instructions struct {
	Reflect       string
	Consider      string
	Why           string
	Experience    string
	Understand    string
	Challenge     string
	Imagine       string
	GreatQuestion string
	Interesting   string

	Opening      string
	QuestionMark string
	Name         string // response language as written in prompts

	// Substrings marking a request for an explanation.
	ExplainKeywords []string

	ErrorLabel      string
	ProviderFailure string
	EmptyCorpus     string
}

var instructions = map[Language]Instructions{
	French: {
		Reflect:         "Qu'en pensez-vous",
		Consider:        "Regardons ensemble",
		Why:             "Pourquoi",
		Experience:      "Avez-vous déjà remarqué",
		Understand:      "Je vous suis ?",
		Challenge:       "Petit défi amusant",
		Imagine:         "Imaginez avec moi",
		GreatQuestion:   "Excellente question !",
		Interesting:     "C'est intéressant que vous posiez cette question",
		Opening:         "Ah, belle question!",
		QuestionMark:    " ?",
		Name:            "French",
		ExplainKeywords: []string{"explique", "expliques", "décris", "comment", "pourquoi", "qu'est-ce que", "quel est", "quelle est", "quels sont", "quelles sont"},
		ErrorLabel:      "Erreur",
		ProviderFailure: "Désolé, une erreur s'est produite",
		EmptyCorpus:     "Le corpus est vide.",
	},
	English: {
		Reflect:         "What do you think",
		Consider:        "Let's look together at",
		Why:             "Why",
		Experience:      "Have you noticed",
		Understand:      "Am I making sense?",
		Challenge:       "Fun quick challenge",
		Imagine:         "Imagine with me",
		GreatQuestion:   "Great question!",
		Interesting:     "That's an interesting question",
		Opening:         "Ah, great question!",
		QuestionMark:    "?",
		Name:            "English",
		ExplainKeywords: []string{"explain", "describe", "how", "why", "what is", "what are"},
		ErrorLabel:      "Error",
		ProviderFailure: "Sorry, an error occurred",
		EmptyCorpus:     "The corpus is empty.",
	},
}

// Languages lists the supported language codes.
func Languages() []Language {
	return []Language{French, English}
}

// ParseLanguage validates a language code such as "fr" or "EN".
func ParseLanguage(code string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := instructions[l]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedLanguage, code)
	}
	return l, nil
}

// Instructions returns the phrase table of l.
func (l Language) Instructions() (Instructions, error) {
	in, ok := instructions[l]
	if !ok {
		return Instructions{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, string(l))
	}
	return in, nil
}

// IsExplainRequest reports whether question asks for an explanation.
func (l Language) IsExplainRequest(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range instructions[l].ExplainKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// ParseDifficulty validates a difficulty level. Empty means intermediate.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Intermediate, nil
	case Beginner, Intermediate, Advanced:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDifficulty, s)
	}
}
