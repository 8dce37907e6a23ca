// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aguiargov/licita/internal/adapters/driving/tui/keymap"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
	StateHelp    State = "help"
)

// Bar displays run status and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	done    int
	total   int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateRunning,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	padding := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateRunning:
		if s.total > 0 {
			return s.styles.Normal.Render(fmt.Sprintf("Auditando %d/%d", s.done, s.total))
		}
		return s.styles.Muted.Render("Preparando...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Erro: " + s.message)
		}
		return s.styles.Error.Render("Erro")
	case StateHelp:
		return s.styles.Normal.Render("Ajuda")
	case StateDone:
		if s.message != "" {
			return s.styles.Normal.Render(s.message)
		}
		return s.styles.Success.Render("Concluído")
	}
	return ""
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateDone {
		bindings = s.keymap.ReportHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetProgress sets the number of finished topics out of total.
func (s *Bar) SetProgress(done, total int) {
	s.done = done
	s.total = total
}

// Progress returns the finished and total topic counts.
func (s *Bar) Progress() (done, total int) {
	return s.done, s.total
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
