package tui

import (
	"github.com/fieldtone/fieldtone/internal/session"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// NoticeMsg wraps one controller notification
type NoticeMsg struct {
	Notice session.Notice
}

// SessionStartedMsg signals that the connect request was issued
type SessionStartedMsg struct{}

// PlaybackRequestedMsg signals that a stream start was issued
type PlaybackRequestedMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
