// Package prompt composes the tutoring and quiz prompts sent to the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"rag-tutor/internal/models"
)

const defaultMaxParagraphs = 3

// Persona describes the tutor the model plays.
type Persona struct {
	Subject       string
	Traits        []string
	MaxParagraphs int
}

type Builder struct {
	persona Persona
	answer  prompts.PromptTemplate
	quiz    prompts.PromptTemplate
}

func NewBuilder(persona Persona) *Builder {
	if persona.MaxParagraphs <= 0 {
		persona.MaxParagraphs = defaultMaxParagraphs
	}
	return &Builder{
		persona: persona,
		answer: prompts.NewPromptTemplate(models.AnswerPromptTemplate, []string{
			"subject", "context", "question", "traits", "opening", "encouragement", "socratic",
			"example", "scenario", "experience", "max_paragraphs", "closing", "language",
		}),
		quiz: prompts.NewPromptTemplate(models.QuizPromptTemplate, []string{
			"subject", "topic", "difficulty", "language", "context", "transcript", "schema",
		}),
	}
}

// Answer builds the tutoring prompt. question and context are embedded
// verbatim; an empty context is allowed.
func (b *Builder) Answer(question, context string, lang Language) (string, error) {
	in, err := lang.Instructions()
	if err != nil {
		return "", err
	}

	encouragement, socratic, scenario := in.Interesting, in.Reflect, in.Why
	if lang.IsExplainRequest(question) {
		encouragement, socratic, scenario = in.GreatQuestion, in.Consider, in.Imagine
	}

	text, err := b.answer.Format(map[string]any{
		"subject":        b.persona.Subject,
		"context":        context,
		"question":       question,
		"traits":         b.persona.Traits,
		"opening":        in.Opening,
		"encouragement":  encouragement,
		"socratic":       socratic,
		"example":        in.Challenge,
		"scenario":       scenario,
		"experience":     in.Experience,
		"max_paragraphs": b.persona.MaxParagraphs,
		"closing":        in.Reflect + in.QuestionMark,
		"language":       in.Name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format answer prompt: %w", err)
	}
	return text, nil
}

// Quiz builds the quiz prompt with the quiz schema embedded as the required
// output shape.
func (b *Builder) Quiz(topic, context, transcript string, difficulty Difficulty, lang Language) (string, error) {
	in, err := lang.Instructions()
	if err != nil {
		return "", err
	}

	text, err := b.quiz.Format(map[string]any{
		"subject":    b.persona.Subject,
		"topic":      topic,
		"difficulty": string(difficulty),
		"language":   in.Name,
		"context":    context,
		"transcript": transcript,
		"schema":     models.QuizSchema,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format quiz prompt: %w", err)
	}
	return text, nil
}

// Transcript renders a conversation as "Q: ..." and "A: ..." lines.
func Transcript(history []models.ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		if turn.Role == models.RoleUser {
			lines = append(lines, "Q: "+turn.Content)
		} else {
			lines = append(lines, "A: "+turn.Content)
		}
	}
	return strings.Join(lines, "\n")
}
