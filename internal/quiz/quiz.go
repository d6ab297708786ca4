// Package quiz turns free-form model output into a validated multiple-choice quiz.
//
// Decoding runs in two stages: Extract and Parse isolate and read the JSON
// object, then Validate checks its structure rule by rule.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	NumQuestions = 3
	NumOptions   = 3
)

var ErrNoJSONObject = errors.New("no JSON object found")

// One sentinel per structural rule, in the order the rules are checked.
var (
	ErrNotObject      = errors.New("invalid quiz structure")
	ErrQuestionCount  = errors.New("quiz must have exactly 3 questions")
	ErrQuestionFields = errors.New("question missing required fields")
	ErrOptionCount    = errors.New("each question must have exactly 3 options")
	ErrCorrectCount   = errors.New("each question must have exactly one correct answer")
)

// ParseError reports output that does not contain readable JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "invalid quiz JSON: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports the first structural rule a quiz violates.
// Question is the zero-based index of the offending question, or -1.
type ValidationError struct {
	Rule     int
	Question int
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Question < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("question %d: %v", e.Question+1, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type Option struct {
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
}

type Question struct {
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

type Quiz struct {
	Questions []Question `json:"questions"`
}

// Extract returns the text from the first "{" to the last "}" inclusive.
func Extract(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", &ParseError{Err: ErrNoJSONObject}
	}
	return raw[start : end+1], nil
}

// Parse reads a JSON document without assuming its shape.
func Parse(data string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, &ParseError{Err: err}
	}
	return v, nil
}

func invalid(rule, question int, err error) error {
	return &ValidationError{Rule: rule, Question: question, Err: err}
}

// Validate checks parsed JSON against the quiz rules. The first violation
// wins; a quiz is never partially accepted.
func Validate(v any) (*Quiz, error) {
	root, ok := v.(map[string]any)
	if !ok {
		return nil, invalid(1, -1, ErrNotObject)
	}
	rawQuestions, ok := root["questions"]
	if !ok {
		return nil, invalid(1, -1, ErrNotObject)
	}

	items, ok := rawQuestions.([]any)
	if !ok || len(items) != NumQuestions {
		return nil, invalid(2, -1, ErrQuestionCount)
	}

	quiz := &Quiz{Questions: make([]Question, 0, NumQuestions)}
	for i, item := range items {
		q, ok := item.(map[string]any)
		if !ok {
			return nil, invalid(3, i, ErrQuestionFields)
		}
		_, hasQuestion := q["question"]
		rawOptions, hasOptions := q["options"]
		if !hasQuestion || !hasOptions {
			return nil, invalid(3, i, ErrQuestionFields)
		}

		opts, ok := rawOptions.([]any)
		if !ok || len(opts) != NumOptions {
			return nil, invalid(4, i, ErrOptionCount)
		}

		question := Question{Question: text(q["question"]), Options: make([]Option, 0, NumOptions)}
		correct := 0
		for _, o := range opts {
			opt, ok := o.(map[string]any)
			if !ok {
				return nil, invalid(4, i, ErrOptionCount)
			}
			isCorrect, _ := opt["correct"].(bool)
			if isCorrect {
				correct++
			}
			question.Options = append(question.Options, Option{
				Text:        text(opt["text"]),
				Correct:     isCorrect,
				Explanation: text(opt["explanation"]),
			})
		}
		if correct != 1 {
			return nil, invalid(5, i, ErrCorrectCount)
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Decode extracts, parses and validates raw model output. It returns the
// quiz and the validated JSON text.
func Decode(raw string) (*Quiz, string, error) {
	data, err := Extract(strings.TrimSpace(raw))
	if err != nil {
		return nil, "", err
	}
	v, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	quiz, err := Validate(v)
	if err != nil {
		return nil, "", err
	}
	return quiz, data, nil
}

type envelope struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response"`
}

// Envelope renders a failed generation as {"error": ..., "raw_response": ""}.
func Envelope(err error) string {
	b, _ := json.Marshal(envelope{Error: "Quiz generation failed: " + err.Error()})
	return string(b)
}

// CorrectIndex returns the index of the correct option, or -1.
func (q Question) CorrectIndex() int {
	for i, o := range q.Options {
		if o.Correct {
			return i
		}
	}
	return -1
}

// Check grades the choice of option i.
func (q Question) Check(i int) (bool, string, error) {
	if i < 0 || i >= len(q.Options) {
		return false, "", fmt.Errorf("option %d out of range [1, %d]", i+1, len(q.Options))
	}
	return q.Options[i].Correct, q.Options[i].Explanation, nil
}
