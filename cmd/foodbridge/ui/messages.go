package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"foodbridge/internal/donation"
	"foodbridge/internal/syncer"
)

// Messages produced by the async command layer. Every engine call runs in
// a tea command goroutine and reports back here; models never block.

type pageLoadedMsg struct {
	view syncer.View
	err  error
}

type countsLoadedMsg struct {
	err error
}

type mutationDoneMsg struct {
	notice string
	err    error
}

type authDoneMsg struct {
	user donation.User
	err  error
}

type configReloadedMsg struct {
	theme    string
	pageSize int
}

// ConfigReloaded builds the message the config watcher feeds into the
// program when the file on disk changes.
func ConfigReloaded(theme string, pageSize int) tea.Msg {
	return configReloadedMsg{theme: theme, pageSize: pageSize}
}

func fetchPageCmd(e *syncer.Engine, v syncer.View) tea.Cmd {
	return func() tea.Msg {
		err := e.FetchPage(context.Background(), v)
		return pageLoadedMsg{view: v, err: err}
	}
}

func fetchCountsCmd(e *syncer.Engine) tea.Cmd {
	return func() tea.Msg {
		return countsLoadedMsg{err: e.FetchCounts(context.Background())}
	}
}

func refreshCmd(e *syncer.Engine, views ...syncer.View) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(views)+1)
	for _, v := range views {
		cmds = append(cmds, fetchPageCmd(e, v))
	}
	cmds = append(cmds, fetchCountsCmd(e))
	return tea.Batch(cmds...)
}

func claimCmd(e *syncer.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := e.Claim(context.Background(), id); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Donation claimed."}
	}
}

func completeCmd(e *syncer.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := e.Complete(context.Background(), id); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Donation marked as completed."}
	}
}

func deleteCmd(e *syncer.Engine, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := e.Delete(context.Background(), id); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Donation deleted."}
	}
}

func createCmd(e *syncer.Engine, d donation.Draft) tea.Cmd {
	return func() tea.Msg {
		if _, err := e.Create(context.Background(), d); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Donation posted."}
	}
}

func updateCmd(e *syncer.Engine, id int64, d donation.Draft) tea.Cmd {
	return func() tea.Msg {
		if _, err := e.Update(context.Background(), id, d); err != nil {
			return mutationDoneMsg{err: err}
		}
		return mutationDoneMsg{notice: "Donation updated."}
	}
}
