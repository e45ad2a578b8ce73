package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"foodbridge/internal/api"
	"foodbridge/internal/logging"
	"foodbridge/internal/session"
	"foodbridge/internal/syncer"
)

type page int

const (
	pageLogin page = iota
	pageRegister
	pageDashboard
	pageForm
	pageHelp
)

// App is the root model. It owns page routing, the session, and the
// translation of engine errors into notices; the page models stay free of
// auth concerns.
type App struct {
	styles   Styles
	session  *session.Store
	engine   *syncer.Engine
	pageSize int

	page     page
	login    LoginModel
	register RegisterModel
	dash     DashboardModel
	form     FormModel
	help     HelpModel

	width  int
	height int

	status    string
	statusErr bool
}

// NewApp wires the root model. The session must already be hydrated; an
// authenticated session lands directly on the dashboard. pageSize is the
// configured dashboard page size; zero keeps the default.
func NewApp(styles Styles, sess *session.Store, engine *syncer.Engine, pageSize int) App {
	a := App{
		styles:   styles,
		session:  sess,
		engine:   engine,
		pageSize: pageSize,
		login:    NewLoginModel(styles),
		register: NewRegisterModel(styles),
		help:     NewHelpModel(styles),
		page:     pageLogin,
	}
	if user, ok := sess.User(); ok {
		a.dash = NewDashboardModel(styles, engine, user, pageSize)
		a.page = pageDashboard
	}
	return a
}

// Init starts the first fetch when already signed in.
func (a App) Init() tea.Cmd {
	if a.page == pageDashboard {
		return a.dash.InitialFetch()
	}
	return nil
}

// forceLogin routes to the login page with a notice, used for 401s and
// explicit sign-outs. The session itself is already torn down by then.
func (a *App) forceLogin(notice string) {
	a.login = NewLoginModel(a.styles)
	a.login.SetNotice(notice)
	a.page = pageLogin
	a.status = ""
}

// handleError routes an async failure: a 401 anywhere ends the session,
// anything else becomes a one-line notice on the current page.
func (a *App) handleError(err error) {
	if errors.Is(err, api.ErrUnauthorized) {
		a.session.Logout()
		a.forceLogin("Your session has expired. Please sign in again.")
		return
	}
	a.status = api.UserMessage(err)
	a.statusErr = true
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.dash.SetSize(msg.Width, msg.Height)
		a.help.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case switchPageMsg:
		a.page = msg.target
		if msg.target == pageLogin {
			a.login.Reset()
		}
		return a, nil

	case loginSubmitMsg:
		return a, a.loginCmd(msg.email, msg.password)

	case registerSubmitMsg:
		return a, a.registerCmd(msg)

	case authDoneMsg:
		if msg.err != nil {
			switch a.page {
			case pageLogin:
				a.login.SetError(authErrorMessage(msg.err))
			case pageRegister:
				a.register.SetError(authErrorMessage(msg.err))
			}
			return a, nil
		}
		a.dash = NewDashboardModel(a.styles, a.engine, msg.user, a.pageSize)
		a.dash.SetSize(a.width, a.height)
		a.page = pageDashboard
		a.status = ""
		return a, a.dash.InitialFetch()

	case logoutRequestMsg:
		a.session.Logout()
		a.forceLogin("You have been signed out.")
		return a, nil

	case formOpenMsg:
		a.form = NewFormModel(a.styles, msg.id, msg.draft)
		a.page = pageForm
		return a, nil

	case formSubmitMsg:
		a.page = pageDashboard
		if msg.id == 0 {
			return a, createCmd(a.engine, msg.draft)
		}
		return a, updateCmd(a.engine, msg.id, msg.draft)

	case configReloadedMsg:
		a.styles = NewStyles(ThemeByName(msg.theme))
		a.status = "Configuration reloaded."
		a.statusErr = false
		var cmd tea.Cmd
		if msg.pageSize > 0 && msg.pageSize != a.pageSize {
			a.pageSize = msg.pageSize
			// No-op until a dashboard exists; its views are registered
			// with the new size on sign-in.
			cmd = a.dash.ApplyPageSize(msg.pageSize)
		}
		return a, cmd

	case pageLoadedMsg:
		if msg.err != nil {
			a.handleError(msg.err)
		}
		if a.page == pageDashboard {
			var cmd tea.Cmd
			a.dash, cmd = a.dash.Update(msg)
			return a, cmd
		}
		return a, nil

	case countsLoadedMsg:
		if msg.err != nil {
			logging.UI("count refresh failed: %v", msg.err)
		}
		return a, nil

	case mutationDoneMsg:
		if msg.err != nil {
			a.handleError(msg.err)
		} else {
			a.status = msg.notice
			a.statusErr = false
		}
		if a.page == pageDashboard {
			var cmd tea.Cmd
			a.dash, cmd = a.dash.Update(msg)
			// A successful mutation refreshes the visible tab.
			if msg.err == nil {
				return a, tea.Batch(cmd, refreshCmd(a.engine, a.dash.view()))
			}
			return a, cmd
		}
		return a, nil
	}

	var cmd tea.Cmd
	switch a.page {
	case pageLogin:
		a.login, cmd = a.login.Update(msg)
	case pageRegister:
		a.register, cmd = a.register.Update(msg)
	case pageDashboard:
		a.dash, cmd = a.dash.Update(msg)
	case pageForm:
		a.form, cmd = a.form.Update(msg)
	case pageHelp:
		a.help, cmd = a.help.Update(msg)
	}
	return a, cmd
}

func (a App) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := a.session.Login(context.Background(), email, password)
		return authDoneMsg{user: user, err: err}
	}
}

func (a App) registerCmd(msg registerSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		user, err := a.session.Register(context.Background(), msg.name, msg.email, msg.password, msg.role)
		return authDoneMsg{user: user, err: err}
	}
}

// authErrorMessage keeps auth failures specific where the generic mapping
// would be misleading.
func authErrorMessage(err error) string {
	if errors.Is(err, api.ErrUnauthorized) {
		return "Invalid email or password."
	}
	if errors.Is(err, session.ErrMissingUserID) {
		return "Registration succeeded but the server response was incomplete. Please try signing in."
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return "Could not reach the server. Please try again."
}

// View renders the active page plus the status line.
func (a App) View() string {
	var body string
	switch a.page {
	case pageLogin:
		body = a.login.View()
	case pageRegister:
		body = a.register.View()
	case pageDashboard:
		body = a.dash.View()
	case pageForm:
		body = a.form.View()
	case pageHelp:
		body = a.help.View()
	}
	if a.status != "" {
		line := a.styles.Success.Render(a.status)
		if a.statusErr {
			line = a.styles.Error.Render(a.status)
		}
		body += "\n" + line
	}
	return body
}
