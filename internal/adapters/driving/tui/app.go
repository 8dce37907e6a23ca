package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/aguiargov/licita/internal/adapters/driving/tui/components/status"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/keymap"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/messages"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/styles"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/views/progress"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/views/report"
	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/core/ports/driving"
)

// eventBuffer holds progress events while the model is busy rendering.
const eventBuffer = 16

// App is the audit TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports
	req   driving.AuditRequest

	ctx    context.Context
	cancel context.CancelFunc

	styles *styles.Styles
	keymap *keymap.KeyMap

	progressView *progress.View
	reportView   *report.View
	statusBar    *status.Bar

	currentView messages.ViewType

	// events carries topic progress from the audit goroutine.
	events chan tea.Msg

	result   *domain.AuditResult
	err      error
	showHelp bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the TUI for one audit run. The request's OnTopic is replaced.
func NewApp(ports *Ports, req driving.AuditRequest) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	title := fmt.Sprintf("Auditando %s (%s)", req.DocumentName, req.DocumentType.Label())

	app := &App{
		ports:        ports,
		req:          req,
		styles:       s,
		keymap:       km,
		progressView: progress.NewView(s, title),
		reportView:   report.NewView(s, km),
		statusBar:    status.NewBar(s, km),
		currentView:  messages.ViewProgress,
		events:       make(chan tea.Msg, eventBuffer),
	}
	app.WithContext(context.Background())
	return app, nil
}

// WithContext sets the context the audit runs under.
func (a *App) WithContext(ctx context.Context) *App {
	if a.cancel != nil {
		a.cancel()
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// Result returns the finished report, nil while running or after a failure.
func (a *App) Result() *domain.AuditResult {
	return a.result
}

// Err returns the error that stopped the run.
func (a *App) Err() error {
	return a.err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("licita - " + a.req.DocumentName),
		a.progressView.Init(),
		a.runAudit(),
		a.waitForEvent(),
	)
}

// runAudit runs the audit to completion; progress flows through a.events.
func (a *App) runAudit() tea.Cmd {
	req := a.req
	ctx := a.ctx
	events := a.events

	req.OnTopic = func(p driving.AuditProgress) {
		var msg tea.Msg = messages.TopicStarted{Index: p.Index, Total: p.Total, Topic: p.Topic}
		if p.Done() {
			msg = messages.TopicFinished{Index: p.Index, Total: p.Total, Entry: *p.Entry}
		}
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}

	return func() tea.Msg {
		result, err := a.ports.Audit.RunAudit(ctx, req)
		close(events)
		return messages.AuditCompleted{Result: result, Err: err}
	}
}

// waitForEvent delivers the next progress event. It returns nil once the
// audit goroutine has closed the channel.
func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.progressView.SetDimensions(msg.Width, msg.Height)
		a.reportView.SetDimensions(msg.Width, max(msg.Height-2, 1))
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		switch key := msg.String(); {
		case keymap.Matches(key, a.keymap.Quit):
			a.cancel()
			return a, tea.Quit
		case keymap.Matches(key, a.keymap.Help):
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.currentView == messages.ViewReport {
			a.reportView, cmd = a.reportView.Update(msg)
		}
		return a, cmd

	case messages.TopicStarted:
		a.progressView, _ = a.progressView.Update(msg)
		a.statusBar.SetProgress(msg.Index, msg.Total)
		return a, a.waitForEvent()

	case messages.TopicFinished:
		a.progressView, _ = a.progressView.Update(msg)
		a.statusBar.SetProgress(msg.Index+1, msg.Total)
		return a, a.waitForEvent()

	case messages.AuditCompleted:
		return a, a.complete(msg)

	case messages.ViewChanged:
		if msg.View == messages.ViewReport && a.result == nil {
			return a, nil
		}
		a.currentView = msg.View
		return a, nil
	}

	// Spinner ticks and anything else go to the progress view.
	if a.currentView == messages.ViewProgress {
		a.progressView, cmd = a.progressView.Update(msg)
	}
	return a, cmd
}

func (a *App) complete(msg messages.AuditCompleted) tea.Cmd {
	if msg.Err != nil {
		a.err = msg.Err
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(domain.UserMessage(msg.Err))
		return nil
	}

	a.result = msg.Result
	a.reportView.SetResult(msg.Result)
	a.statusBar.SetState(status.StateDone)
	a.statusBar.SetMessage(ansi.Strip(report.Summary(msg.Result, a.styles)))
	return func() tea.Msg { return messages.ViewChanged{View: messages.ViewReport} }
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Inicializando..."
	}

	var body string
	switch a.currentView {
	case messages.ViewReport:
		body = a.reportView.View()
	default:
		body = a.progressView.View()
	}

	footer := a.statusBar.View()
	if a.showHelp {
		footer = a.renderHelp() + "\n" + footer
	}
	return body + "\n" + footer
}

func (a *App) renderHelp() string {
	var parts []string
	for _, group := range a.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			parts = append(parts, h.Key+" "+h.Desc)
		}
	}
	return a.styles.Help.Render(strings.Join(parts, " · "))
}
