// Package session implements the lifecycle state machine that mediates
// between the selection model, the persistence store, and the streaming
// service client.
package session

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fieldtone/fieldtone/internal/bridge"
	"github.com/fieldtone/fieldtone/internal/domain"
)

// NoticeKind classifies a notice pushed to the UI.
type NoticeKind int

const (
	// NoticeState signals a state transition; State carries the new state.
	NoticeState NoticeKind = iota

	// NoticeMessage is a transient user-visible message.
	NoticeMessage

	// NoticeError is a user-visible error. Fatal errors also move the
	// controller into StateError via NoticeState.
	NoticeError

	// NoticeNowPlaying carries the display title from a metadata event.
	NoticeNowPlaying

	// NoticeReady signals the stream is audible.
	NoticeReady

	// NoticeUnable signals the stream could not start.
	NoticeUnable
)

// Notice is one UI-bound notification. Delivery is lossy: a slow consumer
// drops notices rather than blocking the controller.
type Notice struct {
	Kind  NoticeKind
	State State
	Text  string
}

// Row is a read-only snapshot of one selection item, safe to render off the
// controller's lock.
type Row struct {
	TagID        int
	TagType      string
	TagCode      string
	TagName      string
	OptionID     int
	Text         string
	Selected     bool
	SingleSelect bool
}

// Config carries the controller's project settings.
type Config struct {
	ProjectID int

	// ResetTagDefaults discards any persisted selection on catalog load
	// and persists the catalog defaults instead.
	ResetTagDefaults bool

	// ContentPage is the cached page the selection payload is injected
	// into.
	ContentPage string

	// TagType selects which tag groups feed the content page payload.
	TagType string

	Preferences domain.Preferences
}

// Controller owns the selection list and the asset playback record and
// drives the streaming client. All mutation happens under one mutex; the
// record and the list are never locked independently, so cross-thread
// readers always see a consistent pairing.
type Controller struct {
	client domain.StreamClient
	store  domain.Store
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	live        bool
	state       State
	selection   *domain.SelectionList
	playback    domain.PlaybackRecord
	votes       map[int]domain.Vote
	savedVolume int
	contentPage []byte
	modifySeq   uint64

	notices chan Notice

	// runAsync dispatches network-bound work off the caller. Tests replace
	// it to run completions inline.
	runAsync func(func())
}

// New builds a controller in StateDisconnected.
func New(client domain.StreamClient, store domain.Store, cfg Config, logger *slog.Logger) *Controller {
	if cfg.ContentPage == "" {
		cfg.ContentPage = "listen.html"
	}
	if cfg.TagType == "" {
		cfg.TagType = "listen"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		client:      client,
		store:       store,
		cfg:         cfg,
		logger:      logger,
		live:        true,
		state:       StateDisconnected,
		playback:    domain.NewPlaybackRecord(),
		votes:       make(map[int]domain.Vote),
		savedVolume: cfg.Preferences.Volume,
		notices:     make(chan Notice, 32),
		runAsync:    func(fn func()) { go fn() },
	}
}

// Notices returns the UI notification channel.
func (c *Controller) Notices() <-chan Notice { return c.notices }

// Run consumes client events until the event channel closes or the context
// is cancelled. Events are applied strictly in delivery order.
func (c *Controller) Run(ctx context.Context) {
	events := c.client.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live {
		return
	}
	c.logger.Debug("service event", "kind", ev.Kind.String(), "state", c.state.String())

	switch ev.Kind {
	case domain.EventConfigurationLoaded:
		// Content bundle staleness is checked by the client; nothing to
		// mutate here.

	case domain.EventNoConfiguration:
		c.setStateLocked(StateError)
		c.notify(Notice{Kind: NoticeError, Text: "no project configuration received"})

	case domain.EventSessionOnline:
		if c.state == StateConnectedIdle || c.state == StateOffline {
			c.setStateLocked(StateOnline)
			c.client.ApplyPreferences(c.cfg.Preferences)
		}

	case domain.EventSessionOffline:
		if c.state.Connected() {
			c.setStateLocked(StateOffline)
		}

	case domain.EventTagsLoaded:
		if c.state.Connected() || c.state == StateOffline {
			c.loadCatalogLocked()
		}

	case domain.EventContentLoaded:
		if c.state.Connected() || c.state == StateOffline {
			c.loadContentLocked()
		}

	case domain.EventReadyToPlay:
		c.notify(Notice{Kind: NoticeReady})

	case domain.EventUnableToPlay:
		c.notify(Notice{Kind: NoticeUnable, Text: ev.Message})

	case domain.EventUserMessage:
		c.notify(Notice{Kind: NoticeMessage, Text: ev.Message})

	case domain.EventErrorMessage:
		c.notify(Notice{Kind: NoticeError, Text: ev.Message})

	case domain.EventStreamMetadata:
		c.handleMetadataLocked(ev)

	case domain.EventDisconnected:
		c.setStateLocked(StateDisconnected)
	}
}

// loadCatalogLocked rebuilds the selection list from the client's catalog.
// Defaults apply first; unless the reset flag is set, the persisted
// selection is restored on top, leaving unmentioned options at their
// default state.
func (c *Controller) loadCatalogLocked() {
	catalog := c.client.Catalog()
	if catalog == nil {
		return
	}
	c.selection = domain.NewSelectionList(catalog)
	c.selection.ApplyDefaults()
	if c.cfg.ResetTagDefaults {
		if err := c.store.SaveSelection(c.selection.Serialize()); err != nil {
			c.logger.Warn("failed to persist default selection", "error", err)
		}
	} else {
		saved, err := c.store.LoadSelection()
		if err != nil {
			c.logger.Warn("failed to load persisted selection", "error", err)
		} else {
			c.selection.Restore(saved)
		}
	}
	c.selection.AutoSelectSingles()
	// An off-line session keeps its state: the cached catalog is browsable
	// but playback stays gated.
	if c.state != StateOffline {
		c.setStateLocked(StateTagsLoaded)
	}
}

func (c *Controller) loadContentLocked() {
	if c.selection == nil {
		return
	}
	html, err := c.client.ReadContentFile(c.cfg.ContentPage)
	if err != nil {
		c.logger.Warn("failed to read cached content page", "page", c.cfg.ContentPage, "error", err)
		c.notify(Notice{Kind: NoticeError, Text: "cached content is unavailable"})
		return
	}
	payload, err := bridge.Payload(c.selection, c.cfg.TagType)
	if err != nil {
		c.logger.Warn("failed to render selection payload", "error", err)
		return
	}
	c.contentPage = bridge.Inject(html, payload)
	if c.state != StateOffline {
		c.setStateLocked(StateContentLoaded)
	}
}

// handleMetadataLocked installs the asset pairing from a metadata event.
// Any vote queued for the event's previous asset is flushed before the
// record is overwritten.
func (c *Controller) handleMetadataLocked(ev domain.Event) {
	c.flushVoteLocked(ev.PreviousAssetID)
	c.playback.Update(ev.PreviousAssetID, ev.CurrentAssetID)
	c.notify(Notice{Kind: NoticeNowPlaying, Text: ev.Title})
}

func (c *Controller) flushVoteLocked(assetID int) {
	v, ok := c.votes[assetID]
	if !ok {
		return
	}
	delete(c.votes, assetID)
	c.runAsync(func() {
		err := c.client.Vote(context.Background(), v)
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.live {
			return
		}
		if err != nil {
			c.logger.Warn("vote failed", "asset", v.AssetID, "error", err)
			c.notify(Notice{Kind: NoticeError, Text: "could not send your rating"})
		}
	})
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.logger.Info("session state", "from", c.state.String(), "to", s.String())
	c.state = s
	c.notify(Notice{Kind: NoticeState, State: s})
}

func (c *Controller) notify(n Notice) {
	select {
	case c.notices <- n:
	default:
	}
}

// === Commands ===

// StartSession connects the streaming client. Only valid from
// StateDisconnected; StateError requires a teardown and a fresh controller.
func (c *Controller) StartSession(ctx context.Context) error {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return domain.ErrControllerClosed
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	c.runAsync(func() {
		deviceID, err := c.store.DeviceID()
		if err == nil {
			// The client emits session and catalog events while Connect is
			// still running, so the connected state and the preferences
			// must be in place before the call starts.
			c.mu.Lock()
			if !c.live {
				c.mu.Unlock()
				return
			}
			c.setStateLocked(StateConnectedIdle)
			c.client.ApplyPreferences(c.cfg.Preferences)
			c.mu.Unlock()
			err = c.client.Connect(ctx, deviceID, c.cfg.ProjectID)
		}
		if err != nil {
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.live {
				return
			}
			c.logger.Error("connect failed", "error", err)
			c.setStateLocked(StateDisconnected)
			c.notify(Notice{Kind: NoticeError, Text: "could not reach the audio service"})
		}
	})
	return nil
}

// StartPlayback begins or resumes the stream. A muted stream is only faded
// back in; otherwise a new stream is requested with the current selection.
// No-op unless connected with a valid selection.
func (c *Controller) StartPlayback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live {
		return domain.ErrControllerClosed
	}
	if !c.state.Connected() {
		return domain.ErrNotConnected
	}
	if c.selection == nil || !c.selection.HasValidSelection() {
		return domain.ErrInvalidSelection
	}
	if c.client.IsPlayingMuted() {
		c.client.FadeIn(c.savedVolume)
		return nil
	}
	if c.client.IsPlaying() {
		return nil
	}
	ids := c.selection.SelectedIDs()
	level := c.savedVolume
	c.runAsync(func() {
		err := c.client.Start(ctx, ids)
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.live {
			return
		}
		if err != nil {
			c.logger.Warn("stream start failed", "error", err)
			c.notify(Notice{Kind: NoticeUnable, Text: "could not start the stream"})
			return
		}
		c.client.FadeIn(level)
	})
	return nil
}

// StopPlayback flushes any vote pending for the current asset, remembers
// the volume for the next fade-in, and fades the stream out. The stream
// keeps flowing muted so playback can resume without a new stream request.
func (c *Controller) StopPlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live || !c.state.Connected() {
		return
	}
	c.flushVoteLocked(c.playback.CurrentAssetID)
	if v := c.client.Volume(); v > 0 {
		c.savedVolume = v
	}
	c.client.FadeOut()
	c.playback.Reset()
}

// ModifyStream re-filters the active stream with the current selection.
// Only meaningful while actively streaming; failures are reported as
// transient messages and never retried. Responses that arrive after a
// newer modify call are dropped.
func (c *Controller) ModifyStream(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live {
		return domain.ErrControllerClosed
	}
	if !c.state.Connected() || !c.client.IsPlaying() {
		return domain.ErrNotConnected
	}
	if c.selection == nil || !c.selection.HasValidSelection() {
		return domain.ErrInvalidSelection
	}
	c.issueModifyLocked(ctx)
	return nil
}

func (c *Controller) issueModifyLocked(ctx context.Context) {
	c.modifySeq++
	seq := c.modifySeq
	ids := c.selection.SelectedIDs()
	c.runAsync(func() {
		err := c.client.ModifyStream(ctx, ids)
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.live || seq != c.modifySeq {
			// A newer modify superseded this one.
			return
		}
		if err != nil {
			c.logger.Warn("modify stream failed", "error", err)
			c.notify(Notice{Kind: NoticeError, Text: "could not update the stream"})
		}
	})
}

// QueueVote records a rating against the currently playing asset. The vote
// is sent when the asset stops being current or playback stops. Returns
// false when nothing is playing.
func (c *Controller) QueueVote(t domain.VoteType, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live || c.playback.CurrentAssetID == domain.NoAsset {
		return false
	}
	c.votes[c.playback.CurrentAssetID] = domain.Vote{
		AssetID: c.playback.CurrentAssetID,
		Type:    t,
		Value:   value,
	}
	return true
}

// HandleBridgeMessage processes one URI from the selection page (or the
// native view emulating it). Selection updates mutate the list; the done
// command persists the selection and, when actively streaming with a valid
// selection, issues exactly one modify-stream call; the cancel command
// only dismisses. The parsed kind is returned so the caller can close its
// overlay.
func (c *Controller) HandleBridgeMessage(ctx context.Context, rawURI string) bridge.MessageKind {
	msg := bridge.Parse(rawURI)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live || c.selection == nil {
		return msg.Kind
	}

	switch msg.Kind {
	case bridge.MessageSelect:
		bridge.ApplySelection(c.selection, msg)

	case bridge.MessageDone:
		c.persistSelectionLocked()
		if c.state.Connected() && c.client.IsPlaying() && c.selection.HasValidSelection() {
			c.issueModifyLocked(ctx)
		}

	case bridge.MessageCancel:
		// Dismiss only; the selection is left as-is.
	}
	return msg.Kind
}

// PersistSelection writes the current selection, used when the app is
// backgrounded outside a commit.
func (c *Controller) PersistSelection() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil
	}
	return c.store.SaveSelection(c.selection.Serialize())
}

func (c *Controller) persistSelectionLocked() {
	if c.selection == nil {
		return
	}
	if err := c.store.SaveSelection(c.selection.Serialize()); err != nil {
		c.logger.Warn("failed to persist selection", "error", err)
	}
}

// Preferences returns the active user settings.
func (c *Controller) Preferences() domain.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Preferences
}

// UpdatePreferences stores new user settings and pushes them to the client
// when connected.
func (c *Controller) UpdatePreferences(p domain.Preferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Preferences = p
	c.savedVolume = p.Volume
	if c.live && c.state.Connected() {
		c.client.ApplyPreferences(p)
	}
}

// QueueSize reports how many failed actions the client holds for retry.
func (c *Controller) QueueSize() int {
	return c.client.QueueSize()
}

// ConfirmedExit finishes the session. When keepQueue is false any queued
// actions are erased; otherwise they are kept for the next session.
func (c *Controller) ConfirmedExit(keepQueue bool) {
	if !keepQueue {
		c.client.DeleteQueue()
	}
	c.Teardown()
}

// Teardown persists the selection, stops the controller, and
// unconditionally disconnects the client. Late async results are dropped
// from here on.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return
	}
	c.live = false
	c.persistSelectionLocked()
	c.mu.Unlock()

	c.client.Disconnect()

	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
}

// === Snapshots for the UI ===

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Playback returns the current asset pairing.
func (c *Controller) Playback() domain.PlaybackRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playback
}

// ContentPage returns the cached page with the selection payload injected,
// or nil before content has loaded.
func (c *Controller) ContentPage() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.contentPage == nil {
		return nil
	}
	out := make([]byte, len(c.contentPage))
	copy(out, c.contentPage)
	return out
}

// SelectionRows returns a snapshot of the selection list for rendering.
func (c *Controller) SelectionRows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return nil
	}
	rows := make([]Row, 0, c.selection.Len())
	for _, it := range c.selection.Items() {
		rows = append(rows, Row{
			TagID:        it.Tag.ID,
			TagType:      it.Tag.Type,
			TagCode:      it.Tag.Code,
			TagName:      it.Tag.Name,
			OptionID:     it.OptionID,
			Text:         it.Text,
			Selected:     it.On(),
			SingleSelect: it.Tag.IsSingleSelect(),
		})
	}
	return rows
}

// SelectedOptionText returns the display text of the selected option of a
// single-select tag, or "" when none or several are selected.
func (c *Controller) SelectedOptionText(code, typ string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection == nil {
		return ""
	}
	view := c.selection.FilterByCodeAndType(code, typ).SelectedItems()
	if view.Len() != 1 {
		return ""
	}
	return view.Items()[0].Text
}
