package erpsync

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// ============================================================================
// Change feed wire format
// ============================================================================

// ChangeEnvelope is the wire format of every change feed event.
type ChangeEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChangePayload identifies the record a change event refers to. Kind is the
// entity kind ("purchase", "lead", "company", "category", "service").
type ChangePayload struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	CompanyID string `json:"companyId,omitempty"`
	Action    string `json:"action"`
}

// Event types pushed by the backend. The feed is one-way: the client only
// listens, all mutations go through the REST API.
const (
	EventConnected = "connected"
	EventChanged   = "entity.changed"
)

// ============================================================================
// Configuration
// ============================================================================

// ChangeFeedConfig configures the change feed connection.
type ChangeFeedConfig struct {
	Token                string
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
}

func (c *ChangeFeedConfig) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
}

// FeedState represents the connection state.
type FeedState string

const (
	FeedDisconnected FeedState = "disconnected"
	FeedConnecting   FeedState = "connecting"
	FeedConnected    FeedState = "connected"
	FeedReconnecting FeedState = "reconnecting"
)

// ============================================================================
// Dispatcher
// ============================================================================

// ChangeHandler is the callback for entity change events.
type ChangeHandler func(ChangePayload)

type feedDispatcher struct {
	mu             sync.RWMutex
	byKind         map[string][]ChangeHandler
	onAny          []ChangeHandler
	onConnected    []func()
	onDisconnected []func(reason string)
	onReconnecting []func(attempt int, delay time.Duration)
}

func newFeedDispatcher() *feedDispatcher {
	return &feedDispatcher{byKind: make(map[string][]ChangeHandler)}
}

func (d *feedDispatcher) dispatch(env ChangeEnvelope) {
	if env.Type != EventChanged {
		return
	}
	var p ChangePayload
	if json.Unmarshal(env.Payload, &p) != nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.byKind[p.Kind] {
		go h(p)
	}
	for _, h := range d.onAny {
		go h(p)
	}
}

func (d *feedDispatcher) emitConnected() {
	d.mu.RLock()
	handlers := append([]func(){}, d.onConnected...)
	d.mu.RUnlock()
	for _, h := range handlers {
		go h()
	}
}

func (d *feedDispatcher) emitDisconnected(reason string) {
	d.mu.RLock()
	handlers := append([]func(string){}, d.onDisconnected...)
	d.mu.RUnlock()
	for _, h := range handlers {
		go h(reason)
	}
}

func (d *feedDispatcher) emitReconnecting(attempt int, delay time.Duration) {
	d.mu.RLock()
	handlers := append([]func(int, time.Duration){}, d.onReconnecting...)
	d.mu.RUnlock()
	for _, h := range handlers {
		go h(attempt, delay)
	}
}

// ============================================================================
// Reconnector
// ============================================================================

type reconnector struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func newReconnector(config *ChangeFeedConfig) *reconnector {
	return &reconnector{
		baseDelay:   config.ReconnectBaseDelay,
		maxDelay:    config.ReconnectMaxDelay,
		maxAttempts: config.MaxReconnectAttempts,
	}
}

func (r *reconnector) shouldReconnect() bool {
	return r.maxAttempts == 0 || r.attempt < r.maxAttempts
}

func (r *reconnector) markConnected() {
	r.connectedAt = time.Now()
}

func (r *reconnector) nextDelay() time.Duration {
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > 60*time.Second {
		r.attempt = 0
	}
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

// ============================================================================
// ChangeFeed
// ============================================================================

// ChangeFeed is a WebSocket subscription to backend change notifications,
// with auto-reconnect. Handlers typically trigger a controller Refresh so
// local stores converge after changes made by other sessions.
type ChangeFeed struct {
	baseURL          string
	config           *ChangeFeedConfig
	log              zerolog.Logger
	conn             *websocket.Conn
	mu               sync.Mutex
	state            FeedState
	intentionalClose bool
	dispatcher       *feedDispatcher
	recon            *reconnector
	cancelFn         context.CancelFunc
}

// NewChangeFeed creates a change feed against the given base URL.
func NewChangeFeed(baseURL string, config ChangeFeedConfig, log zerolog.Logger) *ChangeFeed {
	config.defaults()
	return &ChangeFeed{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		config:     &config,
		log:        log,
		state:      FeedDisconnected,
		dispatcher: newFeedDispatcher(),
		recon:      newReconnector(&config),
	}
}

// OnChange registers a handler for changes of one entity kind.
func (f *ChangeFeed) OnChange(kind string, h ChangeHandler) {
	f.dispatcher.mu.Lock()
	f.dispatcher.byKind[kind] = append(f.dispatcher.byKind[kind], h)
	f.dispatcher.mu.Unlock()
}

// OnAnyChange registers a handler for every change event.
func (f *ChangeFeed) OnAnyChange(h ChangeHandler) {
	f.dispatcher.mu.Lock()
	f.dispatcher.onAny = append(f.dispatcher.onAny, h)
	f.dispatcher.mu.Unlock()
}

// OnConnected registers a handler for the connected meta-event.
func (f *ChangeFeed) OnConnected(h func()) {
	f.dispatcher.mu.Lock()
	f.dispatcher.onConnected = append(f.dispatcher.onConnected, h)
	f.dispatcher.mu.Unlock()
}

// OnDisconnected registers a handler for the disconnected meta-event.
func (f *ChangeFeed) OnDisconnected(h func(reason string)) {
	f.dispatcher.mu.Lock()
	f.dispatcher.onDisconnected = append(f.dispatcher.onDisconnected, h)
	f.dispatcher.mu.Unlock()
}

// OnReconnecting registers a handler for the reconnecting meta-event.
func (f *ChangeFeed) OnReconnecting(h func(attempt int, delay time.Duration)) {
	f.dispatcher.mu.Lock()
	f.dispatcher.onReconnecting = append(f.dispatcher.onReconnecting, h)
	f.dispatcher.mu.Unlock()
}

// BindRefresher wires change events of one kind to a refresh function. The
// refresh runs with a detached timeout so a stalled backend cannot pin the
// dispatcher goroutine forever.
func (f *ChangeFeed) BindRefresher(kind string, refresh func(ctx context.Context) Outcome) {
	f.OnChange(kind, func(p ChangePayload) {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		out := refresh(ctx)
		f.log.Debug().
			Str("kind", p.Kind).
			Str("id", p.ID).
			Str("outcome", string(out.Status)).
			Msg("change feed refresh")
	})
}

// State returns the current connection state.
func (f *ChangeFeed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Connect establishes the WebSocket connection and starts the read loop.
func (f *ChangeFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	if f.state == FeedConnected || f.state == FeedConnecting {
		f.mu.Unlock()
		return nil
	}
	f.state = FeedConnecting
	f.intentionalClose = false
	f.mu.Unlock()

	wsURL := strings.Replace(f.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/ws?token=" + f.config.Token

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		f.mu.Lock()
		f.state = FeedDisconnected
		f.mu.Unlock()
		return fmt.Errorf("websocket dial: %w", err)
	}

	// First frame confirms the subscription before any change events flow.
	_, data, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "")
		f.mu.Lock()
		f.state = FeedDisconnected
		f.mu.Unlock()
		return fmt.Errorf("read connected frame: %w", err)
	}

	var env ChangeEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != EventConnected {
		conn.Close(websocket.StatusNormalClosure, "")
		f.mu.Lock()
		f.state = FeedDisconnected
		f.mu.Unlock()
		return fmt.Errorf("expected '%s', got '%s'", EventConnected, env.Type)
	}

	f.mu.Lock()
	f.conn = conn
	f.state = FeedConnected
	f.mu.Unlock()
	f.recon.markConnected()
	f.dispatcher.emitConnected()
	f.log.Info().Str("url", f.baseURL).Msg("change feed connected")

	connCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancelFn = cancel
	f.mu.Unlock()

	go f.readLoop(connCtx)
	return nil
}

// Disconnect gracefully closes the connection.
func (f *ChangeFeed) Disconnect() error {
	f.mu.Lock()
	f.intentionalClose = true
	if f.cancelFn != nil {
		f.cancelFn()
		f.cancelFn = nil
	}
	conn := f.conn
	f.conn = nil
	f.state = FeedDisconnected
	f.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	f.dispatcher.emitDisconnected("client disconnect")
	return nil
}

func (f *ChangeFeed) readLoop(ctx context.Context) {
	for {
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			f.mu.Lock()
			intentional := f.intentionalClose
			f.mu.Unlock()
			if intentional {
				return
			}

			f.mu.Lock()
			f.state = FeedDisconnected
			f.conn = nil
			f.mu.Unlock()

			f.log.Warn().Err(err).Msg("change feed dropped")
			f.dispatcher.emitDisconnected(err.Error())

			if f.config.AutoReconnect && f.recon.shouldReconnect() {
				f.scheduleReconnect(ctx)
			}
			return
		}

		var env ChangeEnvelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		f.dispatcher.dispatch(env)
	}
}

func (f *ChangeFeed) scheduleReconnect(ctx context.Context) {
	delay := f.recon.nextDelay()
	f.mu.Lock()
	f.state = FeedReconnecting
	f.mu.Unlock()

	f.dispatcher.emitReconnecting(f.recon.attempt, delay)
	f.log.Info().
		Int("attempt", f.recon.attempt).
		Dur("delay", delay).
		Msg("change feed reconnecting")

	time.Sleep(delay)

	// The old context may already be cancelled, reconnect detached.
	if err := f.Connect(context.Background()); err != nil {
		if f.config.AutoReconnect && f.recon.shouldReconnect() {
			f.scheduleReconnect(context.Background())
		} else {
			f.mu.Lock()
			f.state = FeedDisconnected
			f.mu.Unlock()
		}
	}
}
