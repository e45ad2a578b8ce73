package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"foodbridge/internal/donation"
)

// formSubmitMsg carries a validated draft back to the app.
type formSubmitMsg struct {
	id    int64 // zero for create
	draft donation.Draft
}

const (
	fieldTitle = iota
	fieldDescription
	fieldQuantity
	fieldUnit
	fieldFoodType
	fieldLocation
	fieldExpiry
	fieldCount
)

var fieldKeys = [fieldCount]string{
	"title", "description", "quantity", "unit", "foodType", "location", "expiryDate",
}

// FormModel is the create/edit donation form. Validation errors are keyed
// by field and rendered under the offending input; editing a field clears
// only that field's error.
type FormModel struct {
	styles Styles
	id     int64

	inputs  [fieldCount]textinput.Model // unit and foodType slots unused
	unitIdx int
	foodIdx int
	focus   int
	errs    donation.ValidationErrors
	errText string // server-side failure, not field-keyed
}

// NewFormModel seeds the form. A zero id starts a new donation.
func NewFormModel(styles Styles, id int64, draft donation.Draft) FormModel {
	m := FormModel{styles: styles, id: id, errs: donation.ValidationErrors{}}

	mk := func(prompt, placeholder, value string) textinput.Model {
		in := textinput.New()
		in.Prompt = prompt
		in.Placeholder = placeholder
		in.CharLimit = 200
		in.SetValue(value)
		return in
	}

	qty := ""
	if draft.Quantity > 0 {
		qty = strconv.FormatFloat(draft.Quantity, 'f', -1, 64)
	}
	expiry := ""
	if !draft.ExpiryDate.IsZero() {
		expiry = draft.ExpiryDate.Format("2006-01-02")
	}

	m.inputs[fieldTitle] = mk("Title       > ", "Fresh bread", draft.Title)
	m.inputs[fieldDescription] = mk("Description > ", "What is being donated", draft.Description)
	m.inputs[fieldQuantity] = mk("Quantity    > ", "5", qty)
	m.inputs[fieldLocation] = mk("Location    > ", "City, neighborhood", draft.Location)
	m.inputs[fieldExpiry] = mk("Expires     > ", "YYYY-MM-DD (optional)", expiry)

	m.unitIdx = indexOfUnit(draft.Unit)
	m.foodIdx = indexOfFood(draft.FoodType)
	m.inputs[fieldTitle].Focus()
	return m
}

func indexOfUnit(u donation.Unit) int {
	for i, candidate := range donation.AllUnits {
		if candidate == u {
			return i
		}
	}
	return 0 // KG
}

func indexOfFood(f donation.FoodType) int {
	for i, candidate := range donation.AllFoodTypes {
		if candidate == f {
			return i
		}
	}
	return 0
}

// SetError shows a submission failure above the help line.
func (m *FormModel) SetError(s string) {
	m.errText = s
}

func (m FormModel) isCycler(i int) bool {
	return i == fieldUnit || i == fieldFoodType
}

func (m *FormModel) setFocus(i int) tea.Cmd {
	for f := range m.inputs {
		m.inputs[f].Blur()
	}
	m.focus = i
	if !m.isCycler(i) {
		return m.inputs[i].Focus()
	}
	return nil
}

// draft assembles the current field values. Quantity parse failures come
// back as a field error on quantity, date parse failures on expiryDate.
func (m FormModel) draft() (donation.Draft, donation.ValidationErrors) {
	errs := donation.ValidationErrors{}
	d := donation.Draft{
		Title:       m.inputs[fieldTitle].Value(),
		Description: m.inputs[fieldDescription].Value(),
		Location:    m.inputs[fieldLocation].Value(),
		Unit:        donation.AllUnits[m.unitIdx],
		FoodType:    donation.AllFoodTypes[m.foodIdx],
	}
	if raw := strings.TrimSpace(m.inputs[fieldQuantity].Value()); raw != "" {
		q, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs["quantity"] = "Quantity must be a number"
		} else {
			d.Quantity = q
		}
	}
	if raw := strings.TrimSpace(m.inputs[fieldExpiry].Value()); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			errs["expiryDate"] = "Use the YYYY-MM-DD format"
		} else {
			d.ExpiryDate = t
		}
	}
	return d, errs
}

// Update handles messages.
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		if !m.isCycler(m.focus) {
			m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		}
		return m, cmd
	}

	switch keyMsg.String() {
	case "tab", "down":
		return m, m.setFocus((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)

	case "left", "right":
		delta := 1
		if keyMsg.String() == "left" {
			delta = -1
		}
		switch m.focus {
		case fieldUnit:
			n := len(donation.AllUnits)
			m.unitIdx = (m.unitIdx + delta + n) % n
			return m, nil
		case fieldFoodType:
			n := len(donation.AllFoodTypes)
			m.foodIdx = (m.foodIdx + delta + n) % n
			return m, nil
		}

	case "enter":
		d, parseErrs := m.draft()
		errs := d.Validate()
		if errs == nil {
			errs = donation.ValidationErrors{}
		}
		for k, v := range parseErrs {
			errs[k] = v
		}
		if len(errs) > 0 {
			m.errs = errs
			return m, nil
		}
		m.errs = donation.ValidationErrors{}
		m.errText = ""
		id := m.id
		return m, func() tea.Msg { return formSubmitMsg{id: id, draft: d} }

	case "esc":
		return m, func() tea.Msg { return switchPageMsg{target: pageDashboard} }
	}

	// Typing into a field clears that field's error only.
	if !m.isCycler(m.focus) {
		var cmd tea.Cmd
		before := m.inputs[m.focus].Value()
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		if m.inputs[m.focus].Value() != before {
			delete(m.errs, fieldKeys[m.focus])
		}
		return m, cmd
	}
	return m, nil
}

func (m FormModel) cyclerView(label string, value string, focused bool) string {
	if focused {
		label = m.styles.Bold.Render(label)
		value = m.styles.TabActive.Render("< " + value + " >")
	} else {
		value = m.styles.Body.Render(value)
	}
	return label + value
}

func (m FormModel) fieldView(i int) string {
	var line string
	switch i {
	case fieldUnit:
		line = m.cyclerView("Unit        > ", donation.AllUnits[m.unitIdx].Label(), m.focus == fieldUnit)
	case fieldFoodType:
		line = m.cyclerView("Food type   > ", donation.AllFoodTypes[m.foodIdx].Label(), m.focus == fieldFoodType)
	default:
		line = m.inputs[i].View()
	}
	if msg, ok := m.errs[fieldKeys[i]]; ok {
		line += "\n  " + m.styles.FieldError.Render(msg)
	}
	return line
}

// View renders the form.
func (m FormModel) View() string {
	title := "Post a donation"
	if m.id != 0 {
		title = fmt.Sprintf("Edit donation #%d", m.id)
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")
	for i := 0; i < fieldCount; i++ {
		b.WriteString(m.fieldView(i))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.errText))
		b.WriteString("\n")
	}
	help := m.styles.Muted.Render("enter: save • tab: next field • left/right: change selection • esc: cancel")
	return lipgloss.JoinVertical(lipgloss.Left, m.styles.Content.Render(b.String()), help)
}
