// Package tui is a terminal chat front end for the tutor.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rag-tutor/internal/models"
	"rag-tutor/internal/prompt"
	"rag-tutor/internal/quiz"
)

// TutorPort is the TUI-facing subset of the tutor.
type TutorPort interface {
	Respond(ctx context.Context, question, language string) models.PromptResponse
	Quiz(ctx context.Context, topic string, history []models.ConversationTurn, difficulty, language string) (*quiz.Quiz, string, error)
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	tutorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	wrongStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	inputStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type answerMsg struct {
	resp models.PromptResponse
}

type quizMsg struct {
	topic string
	quiz  *quiz.Quiz
	err   error
}

// Model is the Bubble Tea model of the chat.
type Model struct {
	ctx        context.Context
	tutor      TutorPort
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	history    []models.ConversationTurn
	log        []string
	language   prompt.Language
	difficulty prompt.Difficulty
	quiz       *quiz.Quiz
	question   int
	score      int
	loading    bool
	status     string
	ready      bool
}

func New(ctx context.Context, t TutorPort, language prompt.Language, difficulty prompt.Difficulty) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, /quiz <topic>, /lang fr|en, /quit"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:        ctx,
		tutor:      t,
		input:      ti,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		language:   language,
		difficulty: difficulty,
		status:     "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := inputStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-frame-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			if m.loading {
				return m, nil
			}
			value := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			next, cmd := m.Submit(value)
			if cmd == nil || !next.loading {
				return next, cmd
			}
			return next, tea.Batch(next.spinner.Tick, cmd)
		}

	case answerMsg:
		m.loading = false
		m.history = append(m.history,
			models.ConversationTurn{Role: models.RoleUser, Content: msg.resp.Query},
			models.ConversationTurn{Role: models.RoleAssistant, Content: msg.resp.Content},
		)
		m.addLine(tutorStyle.Render(msg.resp.Content))
		if len(msg.resp.Sources) > 0 {
			m.addLine(sourceStyle.Render("Sources: " + strings.Join(unique(msg.resp.Sources), ", ")))
		}
		m.status = "Ready."
		return m, nil

	case quizMsg:
		m.loading = false
		if msg.err != nil {
			m.addLine(wrongStyle.Render("Quiz generation failed: " + msg.err.Error()))
			m.status = "Ready."
			return m, nil
		}
		m.quiz, m.question, m.score = msg.quiz, 0, 0
		m.addLine(titleStyle.Render("Quiz: " + msg.topic))
		m.showQuestion()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Submit handles one line of input. The returned command, if any, performs
// the tutor call.
func (m Model) Submit(value string) (Model, tea.Cmd) {
	switch {
	case value == "":
		return m, nil
	case value == "/quit" || value == "exit":
		return m, tea.Quit
	case strings.HasPrefix(value, "/lang"):
		code := strings.TrimSpace(strings.TrimPrefix(value, "/lang"))
		lang, err := prompt.ParseLanguage(code)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.language = lang
		m.status = "Language set to " + string(lang) + "."
		return m, nil
	case strings.HasPrefix(value, "/quiz"):
		topic := strings.TrimSpace(strings.TrimPrefix(value, "/quiz"))
		if topic == "" {
			m.status = "Usage: /quiz <topic>"
			return m, nil
		}
		m.loading = true
		m.status = "Generating quiz..."
		m.addLine(userStyle.Render("/quiz " + topic))
		return m, m.generateQuiz(topic)
	case m.quiz != nil:
		return m.answerQuestion(value), nil
	default:
		m.loading = true
		m.status = "Thinking..."
		m.addLine(userStyle.Render(value))
		return m, m.ask(value)
	}
}

func (m Model) ask(question string) tea.Cmd {
	t, ctx, lang := m.tutor, m.ctx, string(m.language)
	return func() tea.Msg {
		return answerMsg{resp: t.Respond(ctx, question, lang)}
	}
}

func (m Model) generateQuiz(topic string) tea.Cmd {
	t, ctx := m.tutor, m.ctx
	history := append([]models.ConversationTurn(nil), m.history...)
	difficulty, lang := string(m.difficulty), string(m.language)
	return func() tea.Msg {
		q, _, err := t.Quiz(ctx, topic, history, difficulty, lang)
		return quizMsg{topic: topic, quiz: q, err: err}
	}
}

func (m Model) answerQuestion(value string) Model {
	choice, err := strconv.Atoi(value)
	q := m.quiz.Questions[m.question]
	if err != nil {
		m.status = fmt.Sprintf("Answer with a number from 1 to %d.", len(q.Options))
		return m
	}
	ok, explanation, err := q.Check(choice - 1)
	if err != nil {
		m.status = err.Error()
		return m
	}

	if ok {
		m.score++
		m.addLine(correctStyle.Render("✓ " + explanation))
	} else {
		right := q.Options[q.CorrectIndex()]
		m.addLine(wrongStyle.Render("✗ " + explanation))
		m.addLine(correctStyle.Render("Correct answer: " + right.Text + ". " + right.Explanation))
	}

	m.question++
	if m.question == len(m.quiz.Questions) {
		m.addLine(titleStyle.Render(fmt.Sprintf("Score: %d/%d", m.score, len(m.quiz.Questions))))
		m.quiz = nil
		m.status = "Ready."
		return m
	}
	m.showQuestion()
	return m
}

func (m *Model) showQuestion() {
	q := m.quiz.Questions[m.question]
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", m.question+1, q.Question)
	for i, o := range q.Options {
		fmt.Fprintf(&b, "\n   %d) %s", i+1, o.Text)
	}
	m.addLine(b.String())
	m.status = fmt.Sprintf("Question %d/%d: type the option number.", m.question+1, len(m.quiz.Questions))
}

func (m *Model) addLine(line string) {
	m.log = append(m.log, line)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.log, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	status := statusStyle.Render(m.status)
	if m.loading {
		status = m.spinner.View() + " " + status
	}
	header := titleStyle.Render("Tutor") + " " + sourceStyle.Render(string(m.language)+" · "+string(m.difficulty))
	return header + "\n" + m.viewport.View() + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

// Transcript returns the chat history accumulated so far.
func (m Model) Transcript() []models.ConversationTurn {
	return m.history
}

func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Run starts the chat in the alternate screen.
func Run(ctx context.Context, t TutorPort, language prompt.Language, difficulty prompt.Difficulty) error {
	p := tea.NewProgram(New(ctx, t, language, difficulty), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
