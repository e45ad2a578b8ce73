package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"foodbridge/internal/donation"
)

// registerSubmitMsg is emitted by the registration form.
type registerSubmitMsg struct {
	name     string
	email    string
	password string
	role     donation.Role
}

// RegisterModel is the account creation form. The role toggle decides
// which dashboard the new account lands on.
type RegisterModel struct {
	styles Styles
	name   textinput.Model
	email  textinput.Model
	pass   textinput.Model
	role   donation.Role
	focus  int // 0..2 inputs, 3 role toggle

	errText string
	busy    bool
	spinner spinner.Model
}

// NewRegisterModel creates the registration page.
func NewRegisterModel(styles Styles) RegisterModel {
	name := textinput.New()
	name.Placeholder = "Jane Donor"
	name.Prompt = "Name     > "
	name.CharLimit = 120
	name.Focus()

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    > "
	email.CharLimit = 120

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.Prompt = "Password > "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'
	pass.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return RegisterModel{
		styles:  styles,
		name:    name,
		email:   email,
		pass:    pass,
		role:    donation.RoleDonor,
		spinner: sp,
	}
}

// SetError shows a failure message and unblocks the form.
func (m *RegisterModel) SetError(s string) {
	m.errText = s
	m.busy = false
}

func (m *RegisterModel) setFocus(i int) tea.Cmd {
	m.focus = i
	m.name.Blur()
	m.email.Blur()
	m.pass.Blur()
	switch i {
	case 0:
		return m.name.Focus()
	case 1:
		return m.email.Focus()
	case 2:
		return m.pass.Focus()
	}
	return nil
}

// Update handles messages.
func (m RegisterModel) Update(msg tea.Msg) (RegisterModel, tea.Cmd) {
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
		case "tab", "down":
			return m, m.setFocus((m.focus + 1) % 4)
		case "shift+tab", "up":
			return m, m.setFocus((m.focus + 3) % 4)

		case "left", "right", " ":
			if m.focus == 3 {
				if m.role == donation.RoleDonor {
					m.role = donation.RoleNGO
				} else {
					m.role = donation.RoleDonor
				}
				return m, nil
			}

		case "enter":
			name := strings.TrimSpace(m.name.Value())
			email := strings.TrimSpace(m.email.Value())
			pass := m.pass.Value()
			if name == "" || email == "" || pass == "" {
				m.errText = "All fields are required."
				return m, nil
			}
			m.busy = true
			m.errText = ""
			role := m.role
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				return registerSubmitMsg{name: name, email: email, password: pass, role: role}
			})

		case "esc":
			return m, func() tea.Msg { return switchPageMsg{target: pageLogin} }
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case 0:
		m.name, cmd = m.name.Update(msg)
	case 1:
		m.email, cmd = m.email.Update(msg)
	case 2:
		m.pass, cmd = m.pass.Update(msg)
	}
	return m, cmd
}

func (m RegisterModel) roleView() string {
	donor := "Donor"
	ngo := "NGO"
	if m.role == donation.RoleDonor {
		donor = m.styles.TabActive.Render("Donor")
		ngo = m.styles.TabInactive.Render("NGO")
	} else {
		donor = m.styles.TabInactive.Render("Donor")
		ngo = m.styles.TabActive.Render("NGO")
	}
	label := "Role     > "
	if m.focus == 3 {
		label = m.styles.Bold.Render(label)
	}
	return label + donor + " " + ngo
}

// View renders the page.
func (m RegisterModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Create a FoodBridge account"))
	b.WriteString("\n")
	b.WriteString(m.name.View())
	b.WriteString("\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.pass.View())
	b.WriteString("\n")
	b.WriteString(m.roleView())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(m.spinner.View() + " Creating account...")
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(m.styles.Error.Render(m.errText))
		b.WriteString("\n")
	}
	help := m.styles.Muted.Render("enter: register • space: toggle role • esc: back to sign in")
	return lipgloss.JoinVertical(lipgloss.Left, m.styles.Content.Render(b.String()), help)
}
