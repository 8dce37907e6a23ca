// Package progress provides the live audit progress view.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aguiargov/licita/internal/adapters/driving/tui/messages"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/styles"
	"github.com/aguiargov/licita/internal/core/domain"
)

// View shows the topic being audited and the verdicts produced so far.
type View struct {
	styles   *styles.Styles
	bar      progress.Model
	spinner  spinner.Model
	title    string
	current  string
	finished []domain.AuditEntry
	done     int
	total    int
	width    int
}

// NewView creates a progress view for the named document.
func NewView(s *styles.Styles, title string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle

	return &View{
		styles:  s,
		bar:     progress.New(progress.WithDefaultGradient()),
		spinner: sp,
		title:   title,
		width:   80,
	}
}

// Init starts the spinner.
func (v *View) Init() tea.Cmd {
	return v.spinner.Tick
}

// SetDimensions sets the width available to the bar.
func (v *View) SetDimensions(width, _ int) {
	v.width = width
	v.bar.Width = max(width-4, 10)
}

// Update handles progress messages.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.TopicStarted:
		v.current = msg.Topic
		v.total = msg.Total
		return v, nil

	case messages.TopicFinished:
		v.finished = append(v.finished, msg.Entry)
		v.done = msg.Index + 1
		v.total = msg.Total
		v.current = ""
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

// Done returns the finished and total topic counts.
func (v *View) Done() (done, total int) {
	return v.done, v.total
}

// Percent returns the completed share of the run.
func (v *View) Percent() float64 {
	if v.total == 0 {
		return 0
	}
	return float64(v.done) / float64(v.total)
}

// View renders the progress view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(v.title))
	b.WriteString("\n\n")
	b.WriteString(v.bar.ViewAs(v.Percent()))
	b.WriteString("\n\n")

	for _, e := range v.finished {
		line := fmt.Sprintf("%s %s", styles.Icon(e), e.Topic)
		if e.IsDiagnostic() {
			b.WriteString(v.styles.Error.Render(line))
		} else {
			b.WriteString(v.styles.ForClass(e.Class).Render(line))
		}
		b.WriteString("\n")
	}

	switch {
	case v.current != "":
		b.WriteString(v.spinner.View() + " " + v.styles.Normal.Render(v.current))
	case v.total == 0:
		b.WriteString(v.spinner.View() + " " + v.styles.Muted.Render("Carregando base de conhecimento..."))
	}
	b.WriteString("\n")

	return b.String()
}
