package quiz

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuiz = `{"questions": [
  {"question": "What is inflation?", "options": [
    {"text": "A general rise in prices", "correct": true, "explanation": "By definition."},
    {"text": "A fall in unemployment", "correct": false, "explanation": "That is a labor market change."},
    {"text": "A trade surplus", "correct": false, "explanation": "That concerns exports."}]},
  {"question": "Who sets the policy rate?", "options": [
    {"text": "Households", "correct": false, "explanation": "They borrow at it."},
    {"text": "The central bank", "correct": true, "explanation": "It steers monetary policy."},
    {"text": "Exporters", "correct": false, "explanation": "They react to it."}]},
  {"question": "What does GDP measure?", "options": [
    {"text": "Public debt", "correct": false, "explanation": "Debt is a stock."},
    {"text": "Population", "correct": false, "explanation": "Not an output measure."},
    {"text": "Total output", "correct": true, "explanation": "Value of final goods and services."}]}
]}`

func parsed(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func questions(v map[string]any) []any { return v["questions"].([]any) }

func question(v map[string]any, i int) map[string]any { return questions(v)[i].(map[string]any) }

func options(v map[string]any, i int) []any { return question(v, i)["options"].([]any) }

func TestValidateAcceptsWellFormedQuiz(t *testing.T) {
	quiz, err := Validate(parsed(t, validQuiz))
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 3)
	assert.Equal(t, "Who sets the policy rate?", quiz.Questions[1].Question)
	assert.Equal(t, 1, quiz.Questions[1].CorrectIndex())
	assert.Equal(t, "Value of final goods and services.", quiz.Questions[2].Options[2].Explanation)
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(v map[string]any) any
		want     error
		rule     int
		question int
	}{
		{
			name:   "not an object",
			mutate: func(v map[string]any) any { return questions(v) },
			want:   ErrNotObject, rule: 1, question: -1,
		},
		{
			name: "missing questions key",
			mutate: func(v map[string]any) any {
				return map[string]any{"quiz": v["questions"]}
			},
			want: ErrNotObject, rule: 1, question: -1,
		},
		{
			name: "two questions",
			mutate: func(v map[string]any) any {
				v["questions"] = questions(v)[:2]
				return v
			},
			want: ErrQuestionCount, rule: 2, question: -1,
		},
		{
			name: "missing options key",
			mutate: func(v map[string]any) any {
				delete(question(v, 1), "options")
				return v
			},
			want: ErrQuestionFields, rule: 3, question: 1,
		},
		{
			name: "four options",
			mutate: func(v map[string]any) any {
				q := question(v, 0)
				q["options"] = append(options(v, 0), map[string]any{"text": "extra", "correct": false})
				return v
			},
			want: ErrOptionCount, rule: 4, question: 0,
		},
		{
			name: "no correct option",
			mutate: func(v map[string]any) any {
				options(v, 2)[2].(map[string]any)["correct"] = false
				return v
			},
			want: ErrCorrectCount, rule: 5, question: 2,
		},
		{
			name: "two correct options",
			mutate: func(v map[string]any) any {
				options(v, 0)[1].(map[string]any)["correct"] = true
				return v
			},
			want: ErrCorrectCount, rule: 5, question: 0,
		},
		{
			name: "correct must be a boolean",
			mutate: func(v map[string]any) any {
				options(v, 0)[0].(map[string]any)["correct"] = "true"
				return v
			},
			want: ErrCorrectCount, rule: 5, question: 0,
		},
		{
			name: "first violation wins",
			mutate: func(v map[string]any) any {
				question(v, 0)["options"] = options(v, 0)[:2]
				delete(question(v, 1), "question")
				return v
			},
			want: ErrOptionCount, rule: 4, question: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiz, err := Validate(tt.mutate(parsed(t, validQuiz)))
			assert.Nil(t, quiz)
			require.ErrorIs(t, err, tt.want)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.rule, verr.Rule)
			assert.Equal(t, tt.question, verr.Question)
		})
	}
}

func TestRuleErrorsAreDistinct(t *testing.T) {
	all := []error{ErrNotObject, ErrQuestionCount, ErrQuestionFields, ErrOptionCount, ErrCorrectCount}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
			}
		}
	}
}

func TestExtract(t *testing.T) {
	raw := "Here you go:\n" + validQuiz + "\nHope that helps!"
	data, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, validQuiz, data)

	_, err = Parse(data)
	require.NoError(t, err)
}

func TestExtractWithoutObject(t *testing.T) {
	for _, raw := range []string{"Sorry, I cannot do that.", "} backwards {", ""} {
		_, err := Extract(raw)
		require.ErrorIs(t, err, ErrNoJSONObject)

		var perr *ParseError
		assert.ErrorAs(t, err, &perr)
		var verr *ValidationError
		assert.False(t, errors.As(err, &verr))
	}
}

func TestDecode(t *testing.T) {
	quiz, data, err := Decode("```json\n" + validQuiz + "\n```")
	require.NoError(t, err)
	assert.Len(t, quiz.Questions, 3)
	assert.Equal(t, validQuiz, data)

	_, _, err = Decode(`{"questions": [1, 2,]}`)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)

	_, _, err = Decode(`{"questions": []}`)
	require.ErrorIs(t, err, ErrQuestionCount)
}

func TestEnvelope(t *testing.T) {
	out := Envelope(ErrQuestionCount)

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, map[string]any{
		"error":        "Quiz generation failed: quiz must have exactly 3 questions",
		"raw_response": "",
	}, v)
}

func TestCheck(t *testing.T) {
	quiz, err := Validate(parsed(t, validQuiz))
	require.NoError(t, err)
	q := quiz.Questions[0]

	ok, explanation, err := q.Check(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "By definition.", explanation)

	ok, _, err = q.Check(2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = q.Check(3)
	assert.Error(t, err)
}
