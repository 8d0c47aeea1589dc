package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ride-review/internal/interview"
)

// InterviewModel asks the weekly questions one at a time
type InterviewModel struct {
	questions []interview.Question
	responses []string
	current   int
	input     textinput.Model
	aborted   bool
	done      bool
	width     int
}

// NewInterviewModel creates a model for questions
func NewInterviewModel(questions []interview.Question) InterviewModel {
	ti := textinput.New()
	ti.Placeholder = "type your answer, Enter to continue"
	ti.CharLimit = 1000
	ti.Width = 72
	ti.Focus()

	return InterviewModel{
		questions: questions,
		responses: make([]string, len(questions)),
		input:     ti,
	}
}

// Init initializes the interview
func (m InterviewModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m InterviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit

		case tea.KeyEnter:
			if len(m.questions) == 0 {
				m.done = true
				return m, tea.Quit
			}
			m.responses[m.current] = m.input.Value()
			m.current++
			if m.current >= len(m.questions) {
				m.done = true
				return m, tea.Quit
			}
			m.input.SetValue(m.responses[m.current])
			m.input.CursorEnd()
			return m, nil

		case tea.KeyShiftTab:
			// back to the previous question, keeping what was typed there
			if m.current > 0 {
				m.responses[m.current] = m.input.Value()
				m.current--
				m.input.SetValue(m.responses[m.current])
				m.input.CursorEnd()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the current question
func (m InterviewModel) View() string {
	if m.done || m.aborted || len(m.questions) == 0 {
		return ""
	}

	var sections []string
	sections = append(sections, headerStyle.Render("Weekly Review Interview"))

	progress := float64(m.current) / float64(len(m.questions))
	sections = append(sections, fmt.Sprintf("%s  %d/%d", RenderProgressBar(progress, 30), m.current+1, len(m.questions)))

	if m.current > 0 {
		prev := m.questions[m.current-1]
		sections = append(sections, answeredStyle.Render(fmt.Sprintf("%s: %s", prev.Label, summarize(m.responses[m.current-1]))))
	}

	sections = append(sections, "", promptStyle.Render(m.questions[m.current].Prompt), m.input.View())
	sections = append(sections, statusStyle.Render(RenderKeyHelp("enter", "next", "shift+tab", "back", "esc", "cancel")))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Answers returns the collected answers; valid once the model finished
func (m InterviewModel) Answers() (interview.Answers, error) {
	if m.aborted {
		return nil, interview.ErrAborted
	}
	byKey := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		byKey[q.Key] = m.responses[i]
	}
	return interview.Build(m.questions, func(key string) string { return byKey[key] }), nil
}

func summarize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return interview.NoResponse
	}
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

// NewInterviewSource asks the questions interactively in the terminal
func NewInterviewSource(opts ...tea.ProgramOption) interview.Source {
	return interview.SourceFunc(func(questions []interview.Question) (interview.Answers, error) {
		final, err := tea.NewProgram(NewInterviewModel(questions), opts...).Run()
		if err != nil {
			return nil, fmt.Errorf("running interview: %w", err)
		}
		return final.(InterviewModel).Answers()
	})
}
