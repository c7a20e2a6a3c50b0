package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fieldtone/fieldtone/internal/session"
)

const statusDisplayTime = 4 * time.Second

// waitForNotice blocks on the controller's notification channel and feeds
// the next notice into the message loop. Re-issued after every NoticeMsg.
func waitForNotice(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{Notice: <-c.Notices()}
	}
}

// startSession issues the connect request.
func startSession(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		if err := c.StartSession(context.Background()); err != nil {
			return ErrMsg{Err: err, Context: "start session"}
		}
		return SessionStartedMsg{}
	}
}

// startPlayback issues the stream start request.
func startPlayback(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		if err := c.StartPlayback(context.Background()); err != nil {
			return ErrMsg{Err: err, Context: "start playback"}
		}
		return PlaybackRequestedMsg{}
	}
}

// clearStatusAfter schedules the status bar to be wiped.
func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
