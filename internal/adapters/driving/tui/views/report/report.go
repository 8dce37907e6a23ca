package report

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aguiargov/licita/internal/adapters/driving/tui/keymap"
	"github.com/aguiargov/licita/internal/adapters/driving/tui/styles"
	"github.com/aguiargov/licita/internal/core/domain"
)

// View is the scrollable final report.
type View struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	viewport viewport.Model
	result   *domain.AuditResult
	width    int
	height   int
}

// NewView creates a report view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:   s,
		keymap:   km,
		viewport: viewport.New(DefaultWidth, 20),
		width:    DefaultWidth,
		height:   20,
	}
}

// SetResult replaces the displayed report and scrolls to the top.
func (v *View) SetResult(result *domain.AuditResult) {
	v.result = result
	v.refresh()
	v.viewport.GotoTop()
}

// Result returns the displayed report.
func (v *View) Result() *domain.AuditResult {
	return v.result
}

// SetDimensions sets the area available to the report.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height, 1)
	v.refresh()
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles scrolling keys.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch key := msg.String(); {
		case keymap.Matches(key, v.keymap.Top):
			v.viewport.GotoTop()
			return v, nil
		case keymap.Matches(key, v.keymap.Bottom):
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the visible part of the report.
func (v *View) View() string {
	return v.viewport.View()
}

// ScrollPercent reports how far the report has been scrolled.
func (v *View) ScrollPercent() float64 {
	return v.viewport.ScrollPercent()
}

func (v *View) refresh() {
	if v.result == nil {
		v.viewport.SetContent("")
		return
	}
	v.viewport.SetContent(Render(v.result, v.styles, v.width))
}
