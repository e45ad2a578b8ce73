package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// loginSubmitMsg is emitted by the login form; the app owns the actual
// authentication call.
type loginSubmitMsg struct {
	email    string
	password string
}

// switchPageMsg asks the app to route to another page.
type switchPageMsg struct {
	target page
}

// LoginModel is the sign-in form.
type LoginModel struct {
	styles Styles
	email  textinput.Model
	pass   textinput.Model
	focus  int

	notice  string // informational banner, e.g. after a forced logout
	errText string
	busy    bool
	spinner spinner.Model
}

// NewLoginModel creates the login page.
func NewLoginModel(styles Styles) LoginModel {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    > "
	email.CharLimit = 120
	email.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.Prompt = "Password > "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'
	pass.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return LoginModel{styles: styles, email: email, pass: pass, spinner: sp}
}

// SetNotice shows a one-line banner above the form.
func (m *LoginModel) SetNotice(s string) {
	m.notice = s
}

// SetError shows a failure message and unblocks the form.
func (m *LoginModel) SetError(s string) {
	m.errText = s
	m.busy = false
}

// Reset clears transient state for a fresh visit.
func (m *LoginModel) Reset() {
	m.errText = ""
	m.busy = false
	m.pass.SetValue("")
}

// Update handles messages.
func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			m.focus = (m.focus + 1) % 2
			if m.focus == 0 {
				cmds = append(cmds, m.email.Focus())
				m.pass.Blur()
			} else {
				cmds = append(cmds, m.pass.Focus())
				m.email.Blur()
			}
			return m, tea.Batch(cmds...)

		case "enter":
			email := strings.TrimSpace(m.email.Value())
			pass := m.pass.Value()
			if email == "" || pass == "" {
				m.errText = "Email and password are required."
				return m, nil
			}
			m.busy = true
			m.errText = ""
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				return loginSubmitMsg{email: email, password: pass}
			})

		case "ctrl+r":
			return m, func() tea.Msg { return switchPageMsg{target: pageRegister} }
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.pass, cmd = m.pass.Update(msg)
	}
	return m, cmd
}

// View renders the page.
func (m LoginModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Sign in to FoodBridge"))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.styles.Info.Render(m.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.pass.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(m.spinner.View() + " Signing in...")
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(m.styles.Error.Render(m.errText))
		b.WriteString("\n")
	}
	help := m.styles.Muted.Render("enter: sign in • tab: next field • ctrl+r: create an account • ctrl+c: quit")
	return lipgloss.JoinVertical(lipgloss.Left, m.styles.Content.Render(b.String()), help)
}
