// Package tui renders the listen and refine screens. The refine screen is
// a native stand-in for the web selection page: every edit, commit, and
// dismissal is routed through the same URI protocol the page would use, so
// both front ends exercise identical selection semantics.
package tui

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldtone/fieldtone/internal/bridge"
	"github.com/fieldtone/fieldtone/internal/domain"
	"github.com/fieldtone/fieldtone/internal/session"
	"github.com/fieldtone/fieldtone/internal/tui/styles"
)

// ViewState represents the current screen
type ViewState int

const (
	ViewListen ViewState = iota
	ViewRefine
	ViewConfirmExit
)

// Model is the main Bubble Tea model for the application
type Model struct {
	ctrl *session.Controller

	// tagType selects which tag groups the refine screen edits;
	// exhibitCode names the single-select tag surfaced on the listen
	// screen.
	tagType     string
	exhibitCode string

	view   ViewState
	state  session.State
	ready  bool
	width  int
	height int

	spin       spinner.Model
	playing    bool
	nowPlaying string

	// Refine screen
	rows        []session.Row
	filteredIdx []int
	cursor      int
	filterInput textinput.Model
	filterOn    bool

	status      string
	statusError bool
}

// NewModel builds the TUI model around a session controller.
func NewModel(ctrl *session.Controller, tagType, exhibitCode string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentStyle

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return Model{
		ctrl:        ctrl,
		tagType:     tagType,
		exhibitCode: exhibitCode,
		view:        ViewListen,
		state:       session.StateDisconnected,
		spin:        sp,
		filterInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, startSession(m.ctrl), waitForNotice(m.ctrl))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case NoticeMsg:
		return m.handleNotice(msg.Notice)

	case SessionStartedMsg, PlaybackRequestedMsg:
		return m, nil

	case ErrMsg:
		m.status = msg.Error()
		m.statusError = true
		return m, clearStatusAfter(statusDisplayTime)

	case StatusMsg:
		m.status = msg.Message
		m.statusError = msg.IsError
		return m, clearStatusAfter(statusDisplayTime)

	case ClearStatusMsg:
		m.status = ""
		m.statusError = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleNotice(n session.Notice) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForNotice(m.ctrl)}

	switch n.Kind {
	case session.NoticeState:
		m.state = n.State
		switch n.State {
		case session.StateTagsLoaded, session.StateContentLoaded:
			m.refreshRows()
		case session.StateOffline:
			m.playing = false
			cmds = append(cmds, func() tea.Msg {
				return StatusMsg{Message: "connection lost, browsing off-line", IsError: true}
			})
		case session.StateDisconnected:
			m.playing = false
		}

	case session.NoticeNowPlaying:
		m.nowPlaying = n.Text

	case session.NoticeReady:
		m.playing = true

	case session.NoticeUnable:
		m.playing = false
		text := n.Text
		if text == "" {
			text = "unable to play the stream"
		}
		cmds = append(cmds, func() tea.Msg { return StatusMsg{Message: text, IsError: true} })

	case session.NoticeMessage:
		cmds = append(cmds, func() tea.Msg { return StatusMsg{Message: n.Text} })

	case session.NoticeError:
		cmds = append(cmds, func() tea.Msg { return StatusMsg{Message: n.Text, IsError: true} })
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+z" {
		// Persist edits before the process is suspended.
		if err := m.ctrl.PersistSelection(); err != nil {
			return m, func() tea.Msg { return ErrMsg{Err: err, Context: "persist selection"} }
		}
		return m, tea.Suspend
	}
	switch m.view {
	case ViewListen:
		return m.handleListenKey(msg)
	case ViewRefine:
		return m.handleRefineKey(msg)
	case ViewConfirmExit:
		return m.handleConfirmExitKey(msg)
	}
	return m, nil
}

func (m Model) handleListenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.ctrl.QueueSize() > 0 {
			m.view = ViewConfirmExit
			return m, nil
		}
		m.ctrl.Teardown()
		return m, tea.Quit

	case " ", "p":
		if m.playing {
			m.ctrl.StopPlayback()
			m.playing = false
			m.nowPlaying = ""
			return m, nil
		}
		return m, startPlayback(m.ctrl)

	case "t":
		if len(m.rows) == 0 {
			return m, func() tea.Msg {
				return StatusMsg{Message: "tags are not loaded yet", IsError: true}
			}
		}
		m.view = ViewRefine
		m.cursor = 0
		m.filterOn = false
		m.filterInput.SetValue("")
		m.refreshRows()
		return m, nil

	case "l":
		return m, m.vote(domain.VoteLike, "")

	case "f":
		return m, m.vote(domain.VoteFlag, "")

	case "+", "=":
		return m, m.adjustVolume(5)

	case "-":
		return m, m.adjustVolume(-5)
	}
	return m, nil
}

// adjustVolume nudges the preferred volume and pushes the updated settings
// to the streaming client.
func (m Model) adjustVolume(delta int) tea.Cmd {
	p := m.ctrl.Preferences()
	p.Volume += delta
	if p.Volume < 0 {
		p.Volume = 0
	}
	if p.Volume > 100 {
		p.Volume = 100
	}
	m.ctrl.UpdatePreferences(p)
	return func() tea.Msg {
		return StatusMsg{Message: fmt.Sprintf("volume %d", p.Volume)}
	}
}

func (m Model) vote(t domain.VoteType, value string) tea.Cmd {
	if !m.ctrl.QueueVote(t, value) {
		return func() tea.Msg {
			return StatusMsg{Message: "nothing is playing to rate", IsError: true}
		}
	}
	label := "like"
	if t == domain.VoteFlag {
		label = "flag"
	}
	return func() tea.Msg {
		return StatusMsg{Message: fmt.Sprintf("%s recorded for the current recording", label)}
	}
}

func (m Model) handleRefineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterOn {
		switch msg.String() {
		case "esc":
			m.filterOn = false
			m.filterInput.SetValue("")
			m.applyFilter()
			return m, nil
		case "enter":
			m.filterOn = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			m.applyFilter()
			return m, cmd
		}
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.filteredIdx)-1 {
			m.cursor++
		}
	case " ":
		m.toggleCurrent()
	case "/":
		m.filterOn = true
		m.filterInput.Focus()
		return m, textinput.Blink
	case "enter":
		// Commit the edit the same way the web page would.
		m.ctrl.HandleBridgeMessage(context.Background(), bridge.Scheme+"://listen_done")
		m.view = ViewListen
		m.refreshRows()
		return m, func() tea.Msg { return StatusMsg{Message: "selection saved"} }
	case "esc", "q":
		m.ctrl.HandleBridgeMessage(context.Background(), bridge.Scheme+"://webview_done")
		m.view = ViewListen
		m.refreshRows()
		return m, nil
	}
	return m, nil
}

func (m Model) handleConfirmExitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "k", "enter":
		m.ctrl.ConfirmedExit(true)
		return m, tea.Quit
	case "e":
		m.ctrl.ConfirmedExit(false)
		return m, tea.Quit
	case "esc":
		m.view = ViewListen
	}
	return m, nil
}

// toggleCurrent flips the option under the cursor by sending the selection
// update through the bridge protocol.
func (m *Model) toggleCurrent() {
	if m.cursor >= len(m.filteredIdx) {
		return
	}
	row := m.rows[m.filteredIdx[m.cursor]]

	var ids []string
	if row.SingleSelect {
		ids = []string{strconv.Itoa(row.OptionID)}
	} else {
		for _, r := range m.rows {
			if r.TagID != row.TagID {
				continue
			}
			switch {
			case r.OptionID == row.OptionID:
				if !r.Selected {
					ids = append(ids, strconv.Itoa(r.OptionID))
				}
			case r.Selected:
				ids = append(ids, strconv.Itoa(r.OptionID))
			}
		}
	}

	uri := fmt.Sprintf("%s://project?%s=%s",
		bridge.Scheme, url.PathEscape(row.TagCode), strings.Join(ids, ","))
	m.ctrl.HandleBridgeMessage(context.Background(), uri)
	m.refreshRows()
}

// refreshRows re-snapshots the selection list and re-applies the filter.
func (m *Model) refreshRows() {
	all := m.ctrl.SelectionRows()
	m.rows = m.rows[:0]
	for _, r := range all {
		if strings.EqualFold(r.TagType, m.tagType) {
			m.rows = append(m.rows, r)
		}
	}
	m.applyFilter()
}

func (m *Model) applyFilter() {
	labels := make([]string, len(m.rows))
	for i, r := range m.rows {
		labels[i] = r.TagName + " " + r.Text
	}
	m.filteredIdx = filterRows(m.filterInput.Value(), labels)
	if m.cursor >= len(m.filteredIdx) {
		m.cursor = 0
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var body string
	switch m.view {
	case ViewListen:
		body = m.viewListen()
	case ViewRefine:
		body = m.viewRefine()
	case ViewConfirmExit:
		body = m.viewConfirmExit()
	}

	status := ""
	if m.status != "" {
		if m.statusError {
			status = styles.ErrorStyle.Render(m.status)
		} else {
			status = styles.SuccessStyle.Render(m.status)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, status)
}

func (m Model) viewListen() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("fieldtone"))
	b.WriteString("  ")
	b.WriteString(styles.DimStyle.Render(m.state.String()))
	b.WriteString("\n\n")

	if exhibit := m.ctrl.SelectedOptionText(m.exhibitCode, m.tagType); exhibit != "" {
		b.WriteString(styles.SubtitleStyle.Render(exhibit))
		b.WriteString("\n")
	}

	switch {
	case m.playing && m.nowPlaying != "":
		b.WriteString(m.spin.View())
		b.WriteString(" ")
		b.WriteString(styles.AccentStyle.Render(m.nowPlaying))
	case m.playing:
		b.WriteString(m.spin.View())
		b.WriteString(styles.DimStyle.Render(" streaming..."))
	default:
		b.WriteString(styles.DimStyle.Render("stopped"))
	}
	b.WriteString("\n\n")

	b.WriteString(styles.DimStyle.Render("space play/stop · t tags · l like · f flag · +/- volume · q quit"))
	return b.String()
}

func (m Model) viewRefine() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("refine your stream"))
	b.WriteString("\n")
	if m.filterOn {
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	lastTag := -1
	for i, idx := range m.filteredIdx {
		row := m.rows[idx]
		if row.TagID != lastTag {
			b.WriteString(styles.SubtitleStyle.Render(row.TagName))
			b.WriteString("\n")
			lastTag = row.TagID
		}

		dot := styles.UnselectedDot
		if row.Selected {
			dot = styles.SelectedDot
		}
		line := fmt.Sprintf("  %s %s", dot, row.Text)
		if i == m.cursor {
			line = styles.HighlightStyle.Render(fmt.Sprintf("%s %s", dot, row.Text))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("space toggle · / filter · enter save · esc close"))
	return b.String()
}

func (m Model) viewConfirmExit() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("unsent actions"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%d queued actions have not reached the server yet.\n\n", m.ctrl.QueueSize()))
	b.WriteString(styles.DimStyle.Render("k keep for next session · e erase and exit · esc back"))
	return b.String()
}
