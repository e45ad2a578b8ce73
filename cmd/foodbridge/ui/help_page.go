package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = "# FoodBridge\n\n" +
	"FoodBridge connects food donors with NGOs. Donors post surplus food;\n" +
	"NGOs claim a donation, collect it, and mark it completed.\n\n" +
	"A donation only ever moves forward: **Available** to **Claimed** to\n" +
	"**Completed**. Expired donations stay listed but are flagged.\n\n" +
	"## Browsing\n\n" +
	"| Key | Action |\n" +
	"|-----|--------|\n" +
	"| tab / 1-4 | switch tab |\n" +
	"| arrows / j / k | select a card |\n" +
	"| h / l | previous / next page |\n" +
	"| s | cycle page size (9, 18, 27) |\n" +
	"| o | flip sort order |\n" +
	"| f | cycle food type filter |\n" +
	"| / | edit location filter |\n" +
	"| F | clear filters |\n" +
	"| r | refresh |\n\n" +
	"## Donors\n\n" +
	"| Key | Action |\n" +
	"|-----|--------|\n" +
	"| n | post a new donation |\n" +
	"| e | edit the selected donation |\n" +
	"| d | delete (asks for confirmation) |\n\n" +
	"## NGOs\n\n" +
	"| Key | Action |\n" +
	"|-----|--------|\n" +
	"| c | claim the selected donation |\n" +
	"| x | mark the selected donation completed |\n\n" +
	"Press `esc` to return to the dashboard, `ctrl+l` to sign out,\n" +
	"`ctrl+c` to quit.\n"

// HelpModel renders the key reference.
type HelpModel struct {
	styles   Styles
	viewport viewport.Model
	rendered bool
}

// NewHelpModel creates the help page.
func NewHelpModel(styles Styles) HelpModel {
	vp := viewport.New(80, 24)
	return HelpModel{styles: styles, viewport: vp}
}

func (m *HelpModel) render() {
	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	out, err := glamour.Render(helpMarkdown, style)
	if err != nil {
		out = helpMarkdown
	}
	m.viewport.SetContent(out)
	m.rendered = true
}

// SetSize updates the layout bounds.
func (m *HelpModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - 2
}

// Update handles messages.
func (m HelpModel) Update(msg tea.Msg) (HelpModel, tea.Cmd) {
	if !m.rendered {
		m.render()
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q", "?":
			return m, func() tea.Msg { return switchPageMsg{target: pageDashboard} }
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the page.
func (m HelpModel) View() string {
	if !m.rendered {
		m.render()
	}
	footer := m.styles.Muted.Render("esc: back • up/down: scroll")
	return m.viewport.View() + "\n" + footer
}
