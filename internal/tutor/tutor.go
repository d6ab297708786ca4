// Package tutor sequences retrieval, prompting, completion and quiz
// validation into the operations offered to front ends.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"rag-tutor/internal/config"
	"rag-tutor/internal/llmservice"
	"rag-tutor/internal/models"
	"rag-tutor/internal/prompt"
	"rag-tutor/internal/quiz"
	"rag-tutor/internal/rag"
)

var ErrEmptyCorpus = errors.New("corpus is empty")

// QuizRecorder archives validated quizzes.
type QuizRecorder interface {
	RecordQuiz(ctx context.Context, topic, difficulty, language, content string) error
}

// Tutor holds no per-request state; every call depends only on its
// arguments and the collection behind index.
type Tutor struct {
	index     rag.Index
	retriever *rag.Retriever
	builder   *prompt.Builder
	llm       llmservice.Completer
	answerGen config.GenerationConfig
	quizGen   config.GenerationConfig
	topK      int
	recorder  QuizRecorder
}

type Option func(*Tutor)

func WithRecorder(r QuizRecorder) Option {
	return func(t *Tutor) { t.recorder = r }
}

func New(index rag.Index, llm llmservice.Completer, cfg config.TutorConfig, topK int, opts ...Option) *Tutor {
	t := &Tutor{
		index:     index,
		retriever: rag.NewRetriever(index, topK),
		builder: prompt.NewBuilder(prompt.Persona{
			Subject: cfg.Subject,
			Traits:  cfg.Traits,
		}),
		llm:       llm,
		answerGen: cfg.Answer,
		quizGen:   cfg.Quiz,
		topK:      topK,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Answer returns the tutor's reply to question in the given language. It
// never fails: errors come back as a localized message.
func (t *Tutor) Answer(ctx context.Context, question, language string) string {
	return t.Respond(ctx, question, language).Content
}

// Respond is Answer with the sources of the retrieved context.
func (t *Tutor) Respond(ctx context.Context, question, language string) (resp models.PromptResponse) {
	resp.Query = question
	lang, err := prompt.ParseLanguage(language)
	if err != nil {
		resp.Content = "Error: " + err.Error()
		return resp
	}
	in, _ := lang.Instructions()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered while answering")
			resp.Sources = nil
			resp.Content = fmt.Sprintf("%s: %v", in.ErrorLabel, r)
		}
	}()

	content, sources, err := t.respond(ctx, question, lang)
	if err != nil {
		log.Warn().Err(err).Str("question", question).Msg("Answer failed")
		resp.Content = errorMessage(in, err)
		return resp
	}
	resp.Content = content
	resp.Sources = sources
	return resp
}

func (t *Tutor) respond(ctx context.Context, question string, lang prompt.Language) (string, []string, error) {
	if t.index.Count() == 0 {
		return "", nil, ErrEmptyCorpus
	}
	contextText, sources, err := t.retriever.RetrieveContext(ctx, question, t.topK)
	if err != nil {
		return "", nil, err
	}
	p, err := t.builder.Answer(question, contextText, lang)
	if err != nil {
		return "", nil, err
	}
	text, err := t.llm.Complete(ctx, p, t.answerGen.MaxTokens, t.answerGen.Temperature)
	if err != nil {
		return "", nil, err
	}
	return text, sources, nil
}

func errorMessage(in prompt.Instructions, err error) string {
	if errors.Is(err, ErrEmptyCorpus) {
		return in.EmptyCorpus
	}
	var perr *llmservice.ProviderError
	if errors.As(err, &perr) {
		return in.ProviderFailure + ": " + err.Error()
	}
	return in.ErrorLabel + ": " + err.Error()
}

// Quiz generates and validates a quiz on topic. history is read, never kept.
// It returns the quiz and its JSON text.
func (t *Tutor) Quiz(ctx context.Context, topic string, history []models.ConversationTurn, difficulty, language string) (*quiz.Quiz, string, error) {
	lang, err := prompt.ParseLanguage(language)
	if err != nil {
		return nil, "", err
	}
	level, err := prompt.ParseDifficulty(difficulty)
	if err != nil {
		return nil, "", err
	}

	// A blank topic has nothing to retrieve by; the quiz is built from the
	// transcript alone.
	var contextText string
	if strings.TrimSpace(topic) != "" && t.index.Count() > 0 {
		if contextText, _, err = t.retriever.RetrieveContext(ctx, topic, t.topK); err != nil {
			return nil, "", err
		}
	}

	p, err := t.builder.Quiz(topic, contextText, prompt.Transcript(history), level, lang)
	if err != nil {
		return nil, "", err
	}
	raw, err := t.llm.Complete(ctx, p, t.quizGen.MaxTokens, t.quizGen.Temperature)
	if err != nil {
		return nil, "", err
	}
	q, data, err := quiz.Decode(raw)
	if err != nil {
		return nil, "", err
	}

	if t.recorder != nil {
		if err := t.recorder.RecordQuiz(ctx, topic, string(level), string(lang), data); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("Failed to archive quiz")
		}
	}
	return q, data, nil
}

// GenerateQuiz returns the quiz JSON, or an error envelope
// {"error": ..., "raw_response": ""} when any stage fails.
func (t *Tutor) GenerateQuiz(ctx context.Context, topic string, history []models.ConversationTurn, difficulty, language string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered while generating quiz")
			out = quiz.Envelope(fmt.Errorf("%v", r))
		}
	}()

	_, data, err := t.Quiz(ctx, topic, history, difficulty, language)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Quiz generation failed")
		return quiz.Envelope(err)
	}
	return data
}

// Count reports the number of chunks in the corpus.
func (t *Tutor) Count() int {
	return t.index.Count()
}
