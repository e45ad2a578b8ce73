package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"foodbridge/internal/donation"
	"foodbridge/internal/query"
	"foodbridge/internal/syncer"
)

// formOpenMsg asks the app to open the donation form. A zero id means a
// new donation; otherwise an edit seeded from the draft.
type formOpenMsg struct {
	id    int64
	draft donation.Draft
}

// logoutRequestMsg asks the app to tear the session down.
type logoutRequestMsg struct{}

const cardsPerRow = 3

// DashboardModel is the donation browser for both roles. The role decides
// the tab set and which mutation keys are live: donors post, edit and
// delete; NGOs claim and complete. Neither role ever sees the other's keys.
type DashboardModel struct {
	styles Styles
	engine *syncer.Engine
	role   donation.Role
	user   donation.User

	tabs     []syncer.View
	active   int
	selected int

	foodFilter int // 0 = none, 1.. indexes AllFoodTypes
	location   textinput.Model
	editingLoc bool

	confirmID int64 // nonzero while the delete modal is open

	spinner spinner.Model
	width   int
	height  int
}

// NewDashboardModel builds the dashboard for a role and registers its
// views on the engine. pageSize comes from config; zero keeps the default.
func NewDashboardModel(styles Styles, engine *syncer.Engine, user donation.User, pageSize int) DashboardModel {
	tabs := []syncer.View{syncer.ViewAll, syncer.ViewAvailable, syncer.ViewClaimed, syncer.ViewCompleted}
	if user.Role == donation.RoleNGO {
		tabs = []syncer.View{syncer.ViewAvailable, syncer.ViewClaimed, syncer.ViewCompleted}
	}
	engine.RegisterView(syncer.ViewAll, query.New().WithSize(pageSize))
	engine.RegisterView(syncer.ViewAvailable, query.New().WithSize(pageSize).WithStatus(donation.StatusAvailable))
	engine.RegisterView(syncer.ViewClaimed, query.New().WithSize(pageSize).WithStatus(donation.StatusClaimed))
	engine.RegisterView(syncer.ViewCompleted, query.New().WithSize(pageSize).WithStatus(donation.StatusCompleted))

	loc := textinput.New()
	loc.Placeholder = "location"
	loc.Prompt = "Location filter > "
	loc.CharLimit = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return DashboardModel{
		styles:   styles,
		engine:   engine,
		role:     user.Role,
		user:     user,
		tabs:     tabs,
		location: loc,
		spinner:  sp,
	}
}

// InitialFetch loads the starting tab and the counts.
func (m DashboardModel) InitialFetch() tea.Cmd {
	return tea.Batch(refreshCmd(m.engine, m.view()), m.spinner.Tick)
}

func (m DashboardModel) view() syncer.View {
	return m.tabs[m.active]
}

// SetSize updates the layout bounds.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// ApplyPageSize pushes a new page size into every tab view and reloads
// the visible one. Used when the config file changes under a running
// dashboard.
func (m DashboardModel) ApplyPageSize(n int) tea.Cmd {
	if n <= 0 || len(m.tabs) == 0 {
		return nil
	}
	for _, v := range m.tabs {
		m.engine.UpdateQuery(v, func(s *query.State) { s.SetSize(n) })
	}
	return fetchPageCmd(m.engine, m.view())
}

func (m *DashboardModel) clampSelection() {
	n := len(m.engine.Snapshot(m.view()).Items)
	if n == 0 {
		m.selected = 0
		return
	}
	if m.selected >= n {
		m.selected = n - 1
	}
}

func (m DashboardModel) selectedDonation() (donation.Donation, bool) {
	items := m.engine.Snapshot(m.view()).Items
	if m.selected < 0 || m.selected >= len(items) {
		return donation.Donation{}, false
	}
	return items[m.selected], true
}

// Update handles messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pageLoadedMsg, countsLoadedMsg, mutationDoneMsg:
		m.clampSelection()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (DashboardModel, tea.Cmd) {
	// Modal and filter editing swallow all keys first.
	if m.confirmID != 0 {
		switch msg.String() {
		case "y", "enter":
			id := m.confirmID
			m.confirmID = 0
			return m, deleteCmd(m.engine, id)
		case "n", "esc":
			m.confirmID = 0
		}
		return m, nil
	}
	if m.editingLoc {
		switch msg.String() {
		case "enter":
			m.editingLoc = false
			m.location.Blur()
			loc := strings.TrimSpace(m.location.Value())
			v := m.view()
			m.engine.UpdateQuery(v, func(s *query.State) { s.SetLocation(loc) })
			return m, fetchPageCmd(m.engine, v)
		case "esc":
			m.editingLoc = false
			m.location.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.location, cmd = m.location.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab":
		m.active = (m.active + 1) % len(m.tabs)
		m.selected = 0
		return m, fetchPageCmd(m.engine, m.view())
	case "shift+tab":
		m.active = (m.active + len(m.tabs) - 1) % len(m.tabs)
		m.selected = 0
		return m, fetchPageCmd(m.engine, m.view())
	case "1", "2", "3", "4":
		i := int(msg.String()[0] - '1')
		if i < len(m.tabs) && i != m.active {
			m.active = i
			m.selected = 0
			return m, fetchPageCmd(m.engine, m.view())
		}
		return m, nil

	case "up", "k":
		if m.selected >= cardsPerRow {
			m.selected -= cardsPerRow
		}
		return m, nil
	case "down", "j":
		if n := len(m.engine.Snapshot(m.view()).Items); m.selected+cardsPerRow < n {
			m.selected += cardsPerRow
		}
		return m, nil
	case "left":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "right":
		if n := len(m.engine.Snapshot(m.view()).Items); m.selected+1 < n {
			m.selected++
		}
		return m, nil

	case "h", "p":
		v := m.view()
		snap := m.engine.Snapshot(v)
		if snap.Query.Page > 0 {
			m.engine.UpdateQuery(v, func(s *query.State) { s.SetPage(s.Page - 1) })
			m.selected = 0
			return m, fetchPageCmd(m.engine, v)
		}
		return m, nil
	case "l", "N":
		v := m.view()
		snap := m.engine.Snapshot(v)
		if snap.Query.Page+1 < snap.Pages {
			m.engine.UpdateQuery(v, func(s *query.State) { s.SetPage(s.Page + 1) })
			m.selected = 0
			return m, fetchPageCmd(m.engine, v)
		}
		return m, nil

	case "s":
		v := m.view()
		m.engine.UpdateQuery(v, func(s *query.State) { s.SetSize(nextPageSize(s.Size)) })
		m.selected = 0
		return m, fetchPageCmd(m.engine, v)
	case "o":
		v := m.view()
		m.engine.UpdateQuery(v, func(s *query.State) { s.SetSort(query.DefaultSortBy) })
		m.selected = 0
		return m, fetchPageCmd(m.engine, v)

	case "f":
		m.foodFilter = (m.foodFilter + 1) % (len(donation.AllFoodTypes) + 1)
		var ft donation.FoodType
		if m.foodFilter > 0 {
			ft = donation.AllFoodTypes[m.foodFilter-1]
		}
		v := m.view()
		m.engine.UpdateQuery(v, func(s *query.State) { s.SetFoodType(ft) })
		m.selected = 0
		return m, fetchPageCmd(m.engine, v)
	case "/":
		m.editingLoc = true
		return m, m.location.Focus()
	case "F":
		m.foodFilter = 0
		m.location.SetValue("")
		v := m.view()
		m.engine.UpdateQuery(v, func(s *query.State) { s.ResetFilters() })
		m.selected = 0
		return m, fetchPageCmd(m.engine, v)

	case "r":
		return m, refreshCmd(m.engine, m.view())

	case "?":
		return m, func() tea.Msg { return switchPageMsg{target: pageHelp} }
	case "ctrl+l":
		return m, func() tea.Msg { return logoutRequestMsg{} }
	}

	if m.role == donation.RoleDonor {
		return m.handleDonorKey(msg)
	}
	return m.handleNGOKey(msg)
}

func (m DashboardModel) handleDonorKey(msg tea.KeyMsg) (DashboardModel, tea.Cmd) {
	switch msg.String() {
	case "n":
		return m, func() tea.Msg { return formOpenMsg{} }
	case "e":
		if d, ok := m.selectedDonation(); ok {
			return m, func() tea.Msg { return formOpenMsg{id: d.ID, draft: donation.DraftFrom(d)} }
		}
	case "d":
		if d, ok := m.selectedDonation(); ok {
			m.confirmID = d.ID
		}
	}
	return m, nil
}

func (m DashboardModel) handleNGOKey(msg tea.KeyMsg) (DashboardModel, tea.Cmd) {
	switch msg.String() {
	case "c":
		if d, ok := m.selectedDonation(); ok && d.Status == donation.StatusAvailable {
			return m, claimCmd(m.engine, d.ID)
		}
	case "x":
		if d, ok := m.selectedDonation(); ok && d.Status == donation.StatusClaimed {
			return m, completeCmd(m.engine, d.ID)
		}
	}
	return m, nil
}

func nextPageSize(cur int) int {
	for i, s := range query.PageSizes {
		if s == cur {
			return query.PageSizes[(i+1)%len(query.PageSizes)]
		}
	}
	return query.DefaultSize
}

func tabLabel(v syncer.View) string {
	switch v {
	case syncer.ViewAll:
		return "All"
	case syncer.ViewAvailable:
		return "Available"
	case syncer.ViewClaimed:
		return "Claimed"
	case syncer.ViewCompleted:
		return "Completed"
	}
	return string(v)
}

func (m DashboardModel) tabCount(v syncer.View) int {
	c := m.engine.Counts()
	switch v {
	case syncer.ViewAll:
		return c.Total
	case syncer.ViewAvailable:
		return c.Available
	case syncer.ViewClaimed:
		return c.Claimed
	case syncer.ViewCompleted:
		return c.Completed
	}
	return 0
}

func (m DashboardModel) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, v := range m.tabs {
		label := fmt.Sprintf("%s (%d)", tabLabel(v), m.tabCount(v))
		if i == m.active {
			parts = append(parts, m.styles.TabActive.Render(label))
		} else {
			parts = append(parts, m.styles.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m DashboardModel) renderFilters() string {
	snap := m.engine.Snapshot(m.view())
	var parts []string
	if m.editingLoc {
		parts = append(parts, m.location.View())
	} else {
		ft := "any food type"
		if snap.Query.Filter.FoodType != "" {
			ft = snap.Query.Filter.FoodType.Label()
		}
		loc := "anywhere"
		if snap.Query.Filter.Location != "" {
			loc = snap.Query.Filter.Location
		}
		parts = append(parts, m.styles.Muted.Render(fmt.Sprintf("Filters: %s, %s", ft, loc)))
	}
	return strings.Join(parts, " ")
}

func (m DashboardModel) renderCard(d donation.Donation, selected bool) string {
	style := m.styles.Card
	if selected {
		style = style.BorderForeground(m.styles.Theme.Accent)
	}

	title := m.styles.CardTitle.Render(truncate(d.Title, 24))
	badge := m.styles.StatusStyle(d.Status).Render(d.Status.Label())
	qty := fmt.Sprintf("%g %s of %s", d.Quantity, d.Unit.Label(), d.FoodType.Label())
	loc := m.styles.Muted.Render(truncate(d.Location, 26))

	lines := []string{title, badge, qty, loc}
	if !d.ExpiryDate.IsZero() {
		exp := "Expires " + d.ExpiryDate.Format("2006-01-02")
		if d.Expired() {
			exp = m.styles.Error.Render("Expired " + d.ExpiryDate.Format("2006-01-02"))
		}
		lines = append(lines, exp)
	}
	if d.DonorName != "" {
		lines = append(lines, m.styles.Muted.Render("From "+truncate(d.DonorName, 22)))
	}
	if d.ClaimedByName != "" {
		lines = append(lines, m.styles.Muted.Render("Claimed by "+truncate(d.ClaimedByName, 18)))
	}
	return style.Width(30).Render(strings.Join(lines, "\n"))
}

func (m DashboardModel) renderGrid(items []donation.Donation) string {
	var rows []string
	for i := 0; i < len(items); i += cardsPerRow {
		end := i + cardsPerRow
		if end > len(items) {
			end = len(items)
		}
		cards := make([]string, 0, cardsPerRow)
		for j := i; j < end; j++ {
			cards = append(cards, m.renderCard(items[j], j == m.selected))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return strings.Join(rows, "\n")
}

func (m DashboardModel) emptyMessage() string {
	snap := m.engine.Snapshot(m.view())
	if snap.Query.Filter.Active() {
		return "No donations match the current filters. Press F to clear them."
	}
	switch m.view() {
	case syncer.ViewAvailable:
		return "No donations are available right now."
	case syncer.ViewClaimed:
		return "No donations have been claimed yet."
	case syncer.ViewCompleted:
		return "No donations have been completed yet."
	}
	if m.role == donation.RoleDonor {
		return "No donations yet. Press n to post your first one."
	}
	return "No donations yet."
}

func (m DashboardModel) renderConfirm() string {
	d, _ := m.engine.Record(m.confirmID)
	body := fmt.Sprintf("Delete donation %q?\n\nThis cannot be undone.\n\ny: delete   n: keep", d.Title)
	return m.styles.Modal.Render(body)
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	snap := m.engine.Snapshot(m.view())

	who := fmt.Sprintf("FoodBridge — %s (%s)", m.user.Name, roleLabel(m.role))
	header := m.styles.Header.Render(who)

	var body string
	switch {
	case m.confirmID != 0:
		body = m.renderConfirm()
	case snap.Loading && len(snap.Items) == 0:
		body = m.spinner.View() + " Loading donations..."
	case snap.Err != nil && len(snap.Items) == 0:
		body = m.styles.Error.Render("Could not load donations. Press r to retry.")
	case len(snap.Items) == 0:
		body = m.styles.Muted.Render(m.emptyMessage())
	default:
		body = m.renderGrid(snap.Items)
	}

	footer := m.styles.Footer.Render(fmt.Sprintf(
		"Page %d of %d • %d donations • %d per page",
		snap.Query.Page+1, max(snap.Pages, 1), snap.Total, snap.Query.Size))

	help := m.styles.Muted.Render(m.helpLine())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.styles.Content.Render(m.renderTabs()),
		m.styles.Content.Render(m.renderFilters()),
		m.styles.Content.Render(body),
		footer,
		help,
	)
}

func (m DashboardModel) helpLine() string {
	common := "tab: switch tab • h/l: page • s: page size • o: sort • f: food type • /: location • F: clear filters • r: refresh • ?: help • ctrl+l: sign out"
	if m.role == donation.RoleDonor {
		return "n: new • e: edit • d: delete • " + common
	}
	return "c: claim • x: complete • " + common
}

func roleLabel(r donation.Role) string {
	if r == donation.RoleNGO {
		return "NGO"
	}
	return "Donor"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
