// Package roundware talks to the participatory audio platform's HTTP API
// and exposes it as a streaming service client: session setup, tag catalog
// retrieval, stream control, votes, and cached content files.
package roundware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fieldtone/fieldtone/internal/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	userAgent        = "Fieldtone/1.0"
	heartbeatPeriod  = 30 * time.Second
	metadataPeriod   = 5 * time.Second
	defaultVolume    = 80
	cacheNamespace   = "server"
	keyCachedConfig  = "config"
	keyCachedTags    = "tags"
	queueNamespace   = "queue"
	keyQueuedActions = "actions"
)

// queuedAction is a failed modify or vote call kept for a later session.
type queuedAction struct {
	Operation string            `json:"operation"`
	Params    map[string]string `json:"params"`
}

// Client implements domain.StreamClient against the platform's REST API.
// Server responses are cached through the store so a session can come up
// read-only when the server is unreachable.
type Client struct {
	baseURL    string
	dataDir    string
	httpClient *http.Client
	store      domain.Store
	logger     *slog.Logger

	events chan domain.Event

	mu        sync.Mutex
	connected bool
	online    bool
	closed    bool
	deviceID  string
	projectID int
	sessionID int
	catalog   *domain.Catalog
	config    *configDocument
	streamURL string
	playing   bool
	muted     bool
	volume    int
	prefs     domain.Preferences
	queue     []queuedAction
	lastAsset int

	done chan struct{}
}

// NewClient creates a client for the given API base URL. Cached content
// files live under dataDir.
func NewClient(baseURL, dataDir string, store domain.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dataDir: dataDir,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		store:     store,
		logger:    logger,
		events:    make(chan domain.Event, 64),
		volume:    defaultVolume,
		lastAsset: domain.NoAsset,
	}
}

// Events returns the ordered event channel, closed on Disconnect.
func (c *Client) Events() <-chan domain.Event { return c.events }

// Connect establishes the session: configuration (server or cache), tag
// catalog, and content bundle bookkeeping. Events describing the outcome
// are emitted in order; Connect itself fails only on local errors.
func (c *Client) Connect(ctx context.Context, deviceID string, projectID int) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = true
	c.deviceID = deviceID
	c.projectID = projectID
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.loadQueue()

	online := c.loadConfiguration(ctx)
	c.mu.Lock()
	c.online = online
	c.mu.Unlock()
	c.emit(domain.Event{Kind: domain.EventConfigurationLoaded})
	if online {
		c.emit(domain.Event{Kind: domain.EventSessionOnline})
	} else {
		c.emit(domain.Event{Kind: domain.EventSessionOffline})
	}

	if c.loadTags(ctx, online) {
		c.emit(domain.Event{Kind: domain.EventTagsLoaded})
	}
	if c.checkContent() {
		c.emit(domain.Event{Kind: domain.EventContentLoaded})
	}

	go c.watch()
	return nil
}

// loadConfiguration fetches the project configuration, falling back to the
// cached copy when the server is unreachable. Returns whether the session
// is on-line. With neither server nor cache, a no-configuration event is
// emitted and the session stays unusable.
func (c *Client) loadConfiguration(ctx context.Context) bool {
	c.mu.Lock()
	deviceID, projectID := c.deviceID, c.projectID
	c.mu.Unlock()

	body, err := c.call(ctx, "get_config", map[string]string{
		"device_id":  deviceID,
		"project_id": strconv.Itoa(projectID),
	})
	if err == nil {
		doc, perr := parseConfigDocument(body)
		if perr == nil {
			if serr := c.store.PutDoc(cacheNamespace, keyCachedConfig, json.RawMessage(body)); serr != nil {
				c.logger.Warn("failed to cache configuration", "error", serr)
			}
			c.installConfig(doc)
			return true
		}
		err = perr
	}
	c.logger.Warn("configuration fetch failed, trying cache", "error", err)

	var cached json.RawMessage
	if cerr := c.store.GetDoc(cacheNamespace, keyCachedConfig, &cached); cerr == nil {
		if doc, perr := parseConfigDocument(cached); perr == nil {
			c.installConfig(doc)
			return false
		}
	}
	c.emit(domain.Event{Kind: domain.EventNoConfiguration})
	return false
}

func (c *Client) installConfig(doc *configDocument) {
	c.mu.Lock()
	c.config = doc
	c.sessionID = doc.Session.SessionID
	c.mu.Unlock()
}

// loadTags fetches the tag catalog, falling back to the cached copy.
func (c *Client) loadTags(ctx context.Context, online bool) bool {
	c.mu.Lock()
	projectID := c.projectID
	c.mu.Unlock()

	if online {
		body, err := c.call(ctx, "get_tags", map[string]string{
			"project_id": strconv.Itoa(projectID),
		})
		if err == nil {
			catalog, perr := domain.ParseCatalog(body, domain.SourceServer)
			if perr == nil {
				if serr := c.store.PutDoc(cacheNamespace, keyCachedTags, json.RawMessage(body)); serr != nil {
					c.logger.Warn("failed to cache tags", "error", serr)
				}
				c.mu.Lock()
				c.catalog = catalog
				c.mu.Unlock()
				return true
			}
			err = perr
		}
		c.logger.Warn("tag fetch failed, trying cache", "error", err)
	}

	var cached json.RawMessage
	if err := c.store.GetDoc(cacheNamespace, keyCachedTags, &cached); err != nil {
		return false
	}
	catalog, err := domain.ParseCatalog(cached, domain.SourceCache)
	if err != nil {
		return false
	}
	c.mu.Lock()
	c.catalog = catalog
	c.mu.Unlock()
	return true
}

// checkContent records the content bundle info from the configuration and
// reports whether a usable local bundle exists. Deciding to re-download a
// stale bundle belongs to the sync collaborator; here a changed bundle is
// only recorded and logged.
func (c *Client) checkContent() bool {
	c.mu.Lock()
	doc := c.config
	c.mu.Unlock()
	if doc == nil || doc.Project.FilesURL == "" {
		return false
	}

	incoming := domain.ContentFilesInfo{
		FilesURL:     doc.Project.FilesURL,
		FilesVersion: doc.Project.FilesVersion,
		FilesDirName: fmt.Sprintf("project-%d-files", doc.Project.ProjectID),
	}
	stored, ok, err := c.store.ContentInfo()
	if err != nil {
		c.logger.Warn("failed to read content info", "error", err)
	}
	if !ok || !stored.Same(incoming) {
		c.logger.Info("content bundle changed, download required",
			"url", incoming.FilesURL, "version", incoming.FilesVersion)
		if err := c.store.SaveContentInfo(incoming); err != nil {
			c.logger.Warn("failed to record content info", "error", err)
		}
	}

	if _, err := os.Stat(c.contentDir(incoming.FilesDirName)); err != nil {
		return false
	}
	return true
}

func (c *Client) contentDir(dirName string) string {
	return filepath.Join(c.dataDir, dirName)
}

// ContentFilesDir returns the local directory holding the content bundle.
func (c *Client) ContentFilesDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil {
		return ""
	}
	return c.contentDir(fmt.Sprintf("project-%d-files", c.config.Project.ProjectID))
}

// ReadContentFile returns the named file from the cached content bundle.
func (c *Client) ReadContentFile(name string) ([]byte, error) {
	dir := c.ContentFilesDir()
	if dir == "" {
		return nil, domain.ErrContentUnavailable
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.Clean(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrContentUnavailable, name)
	}
	return data, nil
}

// Catalog returns the loaded tag catalog, or nil.
func (c *Client) Catalog() *domain.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// ApplyPreferences installs user settings. The mock location and wifi
// policy ride along on subsequent stream operations.
func (c *Client) ApplyPreferences(p domain.Preferences) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefs = p
	if p.Volume > 0 {
		c.volume = p.Volume
	}
}

// Start requests a stream filtered by the given option ids. The stream
// comes up muted; FadeIn makes it audible.
func (c *Client) Start(ctx context.Context, tagIDs []int) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	params := c.sessionParamsLocked()
	c.mu.Unlock()
	params["tags"] = joinIDs(tagIDs)

	body, err := c.call(ctx, "request_stream", params)
	if err != nil {
		return fmt.Errorf("stream request failed: %w", err)
	}
	var resp streamResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.StreamURL == "" {
		return fmt.Errorf("stream request returned no stream url")
	}

	c.mu.Lock()
	c.streamURL = resp.StreamURL
	c.playing = true
	c.muted = true
	c.lastAsset = domain.NoAsset
	c.mu.Unlock()
	c.emit(domain.Event{Kind: domain.EventReadyToPlay})
	return nil
}

// FadeIn ramps the stream up to the given volume.
func (c *Client) FadeIn(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	if level > 0 {
		c.volume = level
	}
	c.muted = false
}

// FadeOut mutes the stream without dropping it.
func (c *Client) FadeOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.muted = true
	}
}

// Stop drops the stream entirely.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	c.muted = false
	c.streamURL = ""
	c.lastAsset = domain.NoAsset
}

func (c *Client) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Client) IsPlayingMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing && c.muted
}

func (c *Client) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.muted {
		return 0
	}
	return c.volume
}

func (c *Client) SetVolume(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if level > 0 {
		c.volume = level
	}
}

// ModifyStream re-filters the active stream. A failed call is queued for a
// later session before the error is returned.
func (c *Client) ModifyStream(ctx context.Context, tagIDs []int) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	params := c.sessionParamsLocked()
	c.mu.Unlock()
	params["tags"] = joinIDs(tagIDs)

	if _, err := c.call(ctx, "modify_stream", params); err != nil {
		c.enqueue(queuedAction{Operation: "modify_stream", Params: params})
		return fmt.Errorf("modify stream failed: %w", err)
	}
	return nil
}

// Vote submits a rating for an asset. A failed call is queued for a later
// session before the error is returned.
func (c *Client) Vote(ctx context.Context, v domain.Vote) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	params := c.sessionParamsLocked()
	c.mu.Unlock()
	params["asset_id"] = strconv.Itoa(v.AssetID)
	params["vote_type"] = string(v.Type)
	if v.Value != "" {
		params["value"] = v.Value
	}

	if _, err := c.call(ctx, "vote_asset", params); err != nil {
		c.enqueue(queuedAction{Operation: "vote_asset", Params: params})
		return fmt.Errorf("vote failed: %w", err)
	}
	return nil
}

// QueueSize reports how many failed actions are held for retry.
func (c *Client) QueueSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// DeleteQueue discards all queued actions.
func (c *Client) DeleteQueue() {
	c.mu.Lock()
	c.queue = nil
	c.mu.Unlock()
	c.saveQueue()
}

// Disconnect stops the watchers and closes the event channel.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.online = false
	c.playing = false
	c.muted = false
	done := c.done
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	c.saveQueue()

	c.mu.Lock()
	c.closed = true
	close(c.events)
	c.mu.Unlock()
}

// === Internals ===

// sessionParamsLocked builds the common operation parameters. Mock
// coordinates from the preferences ride along when set.
func (c *Client) sessionParamsLocked() map[string]string {
	params := map[string]string{
		"device_id":  c.deviceID,
		"project_id": strconv.Itoa(c.projectID),
		"session_id": strconv.Itoa(c.sessionID),
	}
	if c.prefs.MockLatitude != 0 || c.prefs.MockLongitude != 0 {
		params["latitude"] = strconv.FormatFloat(c.prefs.MockLatitude, 'f', 6, 64)
		params["longitude"] = strconv.FormatFloat(c.prefs.MockLongitude, 'f', 6, 64)
	}
	return params
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// call performs one API operation. The server reports failures both as
// HTTP errors and as error_message payloads inside a 200 reply.
func (c *Client) call(ctx context.Context, operation string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	query.Set("operation", operation)
	for k, v := range params {
		query.Set(k, v)
	}
	reqURL := fmt.Sprintf("%s/?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("api request", "operation", operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if opErr := operationError(body); opErr != nil {
		return nil, opErr
	}
	return body, nil
}

// emit delivers an event unless the client is closed. The send is
// non-blocking: a stalled consumer drops events instead of wedging the
// emitter, which holds the client mutex.
func (c *Client) emit(ev domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped, consumer stalled", "kind", ev.Kind.String())
	}
}

func (c *Client) enqueue(a queuedAction) {
	c.mu.Lock()
	c.queue = append(c.queue, a)
	c.mu.Unlock()
	c.saveQueue()
}

func (c *Client) loadQueue() {
	var queue []queuedAction
	if err := c.store.GetDoc(queueNamespace, keyQueuedActions, &queue); err != nil {
		return
	}
	c.mu.Lock()
	c.queue = queue
	c.mu.Unlock()
}

func (c *Client) saveQueue() {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()
	if err := c.store.PutDoc(queueNamespace, keyQueuedActions, queue); err != nil {
		c.logger.Warn("failed to persist action queue", "error", err)
	}
}

// watch runs the heartbeat and, while a stream is active, polls for the
// currently streaming asset. Both stop when Disconnect closes done.
func (c *Client) watch() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	heartbeat := time.NewTicker(heartbeatPeriod)
	metadata := time.NewTicker(metadataPeriod)
	defer heartbeat.Stop()
	defer metadata.Stop()

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			c.heartbeatOnce()
		case <-metadata.C:
			c.pollMetadata()
		}
	}
}

// heartbeatOnce pings the server and reconciles the session's on-line
// state. Coming back on-line re-fetches the tag catalog and the content
// bundle bookkeeping, since both may have changed during the outage.
func (c *Client) heartbeatOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	c.mu.Lock()
	params := c.sessionParamsLocked()
	wasOnline := c.online
	c.mu.Unlock()

	if _, err := c.call(ctx, "heartbeat", params); err != nil {
		if wasOnline {
			c.mu.Lock()
			c.online = false
			c.mu.Unlock()
			c.emit(domain.Event{Kind: domain.EventSessionOffline})
		}
		return
	}
	if wasOnline {
		return
	}

	c.mu.Lock()
	c.online = true
	c.mu.Unlock()
	c.emit(domain.Event{Kind: domain.EventSessionOnline})
	if c.loadTags(ctx, true) {
		c.emit(domain.Event{Kind: domain.EventTagsLoaded})
	}
	if c.checkContent() {
		c.emit(domain.Event{Kind: domain.EventContentLoaded})
	}
}

// pollMetadata asks for the asset the stream is currently delivering and
// emits a metadata event whenever it changes.
func (c *Client) pollMetadata() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	params := c.sessionParamsLocked()
	last := c.lastAsset
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	body, err := c.call(ctx, "get_current_streaming_asset", params)
	if err != nil {
		return
	}
	var resp currentAssetResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.AssetID == 0 {
		return
	}
	if resp.AssetID == last {
		return
	}

	c.mu.Lock()
	c.lastAsset = resp.AssetID
	c.mu.Unlock()
	c.emit(domain.Event{
		Kind:            domain.EventStreamMetadata,
		PreviousAssetID: last,
		CurrentAssetID:  resp.AssetID,
		Title:           resp.Title,
	})
}
