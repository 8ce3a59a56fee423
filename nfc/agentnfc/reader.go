package agentnfc

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/buildinfo"
	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/protocol"
)

// Session behavior defaults.
const (
	DefaultDedupeWindow      = 3 * time.Second
	DefaultHealthTimeout     = 5 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 2 * time.Second
)

// Config configures the connection to one agent.
type Config struct {
	// URL is the agent's base URL, e.g. "http://192.168.1.20:18080".
	URL string
	// Path is the WebSocket path on the agent. Defaults to "/ws".
	Path string
	// Secret authenticates the session when the agent requires one.
	Secret string
	// TLSConfig is used for https health checks and wss dials.
	TLSConfig *tls.Config

	// DedupeWindow suppresses repeated broadcasts of the same scan.
	DedupeWindow time.Duration
	// ReconnectAttempts bounds silent session recovery after a dropped
	// connection; zero keeps the default, negative disables recovery.
	ReconnectAttempts int
	// ReconnectDelay is the pause before each recovery attempt.
	ReconnectDelay time.Duration

	Clock  nfc.Clock
	Logger *zap.Logger
}

// Reader is an nfc.Reader backed by a network NFC agent. The WebSocket
// connection is the listening session: StartListening claims the agent,
// StopListening releases it. StopListening and Close must not be called
// from an event handler.
type Reader struct {
	nfc.Hub

	cfg        Config
	wsEndpoint string
	clock      nfc.Clock
	logger     *zap.Logger
	http       *resty.Client
	dialer     *websocket.Dialer
	cache      *nfc.ScanCache

	mu        sync.Mutex
	closed    bool
	reachable bool
	enabled   bool
	listening bool
	conn      *websocket.Conn
	stop      chan struct{}
	done      chan struct{}
	pendingID string
	lastTag   *nfc.TagInfo

	// writeMu serializes writes to the connection.
	writeMu sync.Mutex
}

// New creates a reader for the agent at cfg.URL. No network traffic
// happens until Probe or StartListening.
func New(cfg Config) (*Reader, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("agent URL is required")
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = DefaultDedupeWindow
	}
	if cfg.ReconnectAttempts == 0 {
		cfg.ReconnectAttempts = DefaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	clock := cfg.Clock
	if clock == nil {
		clock = nfc.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	wsEndpoint, err := buildWSEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New().
		SetTimeout(DefaultHealthTimeout).
		SetHeader("User-Agent", buildinfo.UserAgent())
	if cfg.TLSConfig != nil {
		httpClient.SetTLSClientConfig(cfg.TLSConfig)
	}

	return &Reader{
		cfg:        cfg,
		wsEndpoint: wsEndpoint,
		clock:      clock,
		logger:     logger.Named("agentnfc"),
		http:       httpClient,
		dialer: &websocket.Dialer{
			HandshakeTimeout: DefaultHandshakeTimeout,
			TLSClientConfig:  cfg.TLSConfig,
		},
		cache:   nfc.NewScanCache(clock, cfg.DedupeWindow),
		enabled: true,
	}, nil
}

// buildWSEndpoint derives the WebSocket URL from the agent's base URL.
func buildWSEndpoint(cfg Config) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid agent URL %q: %w", cfg.URL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported agent URL scheme %q", u.Scheme)
	}
	u.Path = cfg.Path
	if cfg.Secret != "" {
		q := u.Query()
		q.Set("secret", cfg.Secret)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Probe checks the agent's health endpoint and records reachability.
func (r *Reader) Probe(ctx context.Context) error {
	resp, err := r.http.R().
		SetContext(ctx).
		Get(r.cfg.URL + "/api/v1/health")
	if err != nil {
		r.setReachable(false)
		return nfc.NewTransportError("Probe", err)
	}
	if resp.StatusCode() != http.StatusOK {
		r.setReachable(false)
		return nfc.Errorf(nfc.ErrCodeTransport, "Probe", "agent health returned status %d", resp.StatusCode())
	}

	r.setReachable(true)
	r.logger.Info("agent reachable", zap.String("agent", r.cfg.URL))
	return nil
}

func (r *Reader) setReachable(reachable bool) {
	r.mu.Lock()
	r.reachable = reachable
	r.mu.Unlock()
}

// IsSupported reports true: an agent is configured, so the capability
// exists for this process.
func (r *Reader) IsSupported() bool { return true }

// IsAvailable reports whether the last health probe succeeded.
func (r *Reader) IsAvailable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reachable && !r.closed
}

// IsEnabled reports the agent's last known device state. Agents report it
// over the session; until then the device is assumed present.
func (r *Reader) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled && !r.closed
}

// StartListening claims the agent's tag stream.
func (r *Reader) StartListening(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nfc.NewNotSupportedError("StartListening")
	}
	if !r.enabled {
		r.mu.Unlock()
		return nfc.NewDisabledError("StartListening")
	}
	if r.listening {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	conn, err := r.dial(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.listening || r.closed {
		r.mu.Unlock()
		conn.Close()
		if r.closed {
			return nfc.NewNotSupportedError("StartListening")
		}
		return nil
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	r.conn = conn
	r.stop = stop
	r.done = done
	r.listening = true
	r.mu.Unlock()

	r.logger.Info("listening session opened", zap.String("agent", r.cfg.URL))
	r.EmitListeningChanged(true)
	go r.pump(conn, stop, done)
	return nil
}

// dial opens the WebSocket connection, mapping the agent's rejection
// statuses onto session errors.
func (r *Reader) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := r.dialer.DialContext(ctx, r.wsEndpoint, nil)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusConflict:
				return nil, nfc.NewSessionError("StartListening", "agent session already claimed by another client", nfc.ErrSessionClaimed)
			case http.StatusUnauthorized:
				return nil, nfc.NewSessionError("StartListening", "agent rejected the session secret", err)
			}
		}
		return nil, nfc.NewTransportError("StartListening", err)
	}
	return conn, nil
}

// StopListening releases the agent's tag stream. Idle readers return nil.
func (r *Reader) StopListening() error {
	if !r.teardown() {
		return nil
	}
	r.logger.Info("listening session closed")
	r.EmitListeningChanged(false)
	return nil
}

// teardown ends the session and waits for the pump to exit. Returns false
// when there was no session.
func (r *Reader) teardown() bool {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return false
	}
	r.listening = false
	conn := r.conn
	r.conn = nil
	stop, done := r.stop, r.done
	r.pendingID = ""
	r.mu.Unlock()

	close(stop)
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}
	if done != nil {
		<-done
	}
	return true
}

// Publish asks the agent to write msg to the next presented tag. The
// outcome arrives asynchronously as a publish event.
func (r *Reader) Publish(ctx context.Context, msg *nfc.Message) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nfc.NewNotSupportedError("Publish")
	}
	if !r.enabled {
		r.mu.Unlock()
		return nfc.NewDisabledError("Publish")
	}
	if !r.listening {
		r.mu.Unlock()
		return nfc.NewSessionError("Publish", "no listening session", nfc.ErrNoSession)
	}
	if msg.IsEmpty() {
		r.mu.Unlock()
		return nfc.Errorf(nfc.ErrCodePublish, "Publish", "message has no records")
	}
	if r.pendingID != "" {
		r.mu.Unlock()
		return nfc.ErrPublishPending
	}
	id := uuid.New().String()
	r.pendingID = id
	conn := r.conn
	r.mu.Unlock()

	req := protocol.WebSocketRequest{
		ID:      id,
		Type:    protocol.WSTypeWriteRequest,
		Payload: protocol.WriteRequestPayload{Records: writeRecords(msg)},
	}

	r.writeMu.Lock()
	err := conn.WriteJSON(req)
	r.writeMu.Unlock()
	if err != nil {
		r.mu.Lock()
		if r.pendingID == id {
			r.pendingID = ""
		}
		r.mu.Unlock()
		return nfc.NewTransportError("Publish", err)
	}

	r.logger.Info("publish requested", zap.String("id", id), zap.Int("records", len(msg.Records)))
	return nil
}

// StopPublishing discards the pending publish, if any. A late response
// from the agent is logged and dropped.
func (r *Reader) StopPublishing() error {
	r.mu.Lock()
	r.pendingID = ""
	r.mu.Unlock()
	return nil
}

// Close tears the reader down. An open session is canceled first.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.teardown() {
		r.logger.Warn("session canceled", zap.String("reason", "reader closed"))
		r.EmitSessionCanceled("reader closed")
		r.EmitListeningChanged(false)
	}
	return nil
}

// pump reads agent messages until the session ends. A dropped connection
// is redialed a bounded number of times before the session is revoked.
func (r *Reader) pump(conn *websocket.Conn, stop, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if stopped(stop) {
				return
			}
			r.logger.Warn("agent connection lost", zap.Error(err))
			next, rerr := r.redial(stop)
			if rerr != nil {
				if !stopped(stop) {
					r.revoke("connection to agent lost")
				}
				return
			}
			conn = next
			r.swapConn(conn)
			r.logger.Info("agent connection restored")
			continue
		}

		if r.dispatch(data) {
			return
		}
	}
}

// dispatch handles one agent message. Returns true when the session ended.
func (r *Reader) dispatch(data []byte) bool {
	var msg protocol.WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Warn("undecodable agent message", zap.Error(err))
		return false
	}

	switch msg.Type {
	case protocol.WSTypeTagData:
		r.handleTagData(msg.Payload)
	case protocol.WSTypeDeviceStatus:
		r.handleDeviceStatus(msg.Payload)
	case protocol.WSTypeWriteResponse, protocol.WSTypeError:
		var resp protocol.WebSocketResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			r.logger.Warn("undecodable agent response", zap.Error(err))
			return false
		}
		r.handleWriteOutcome(&resp)
	case protocol.WSTypeSessionRevoked:
		var p protocol.SessionRevokedPayload
		_ = json.Unmarshal(msg.Payload, &p)
		if p.Reason == "" {
			p.Reason = "session revoked by agent"
		}
		r.revoke(p.Reason)
		return true
	default:
		r.logger.Debug("ignoring agent message", zap.String("type", msg.Type))
	}
	return false
}

func (r *Reader) handleTagData(payload json.RawMessage) {
	var p protocol.TagDataPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("undecodable tag payload", zap.Error(err))
		return
	}

	if p.UID == "" {
		if p.Error != nil {
			r.logger.Warn("agent reported scan error", zap.String("error", *p.Error))
		}
		return
	}
	if p.ScannedAt == "" {
		// Agents replay their last scan on connect; not a fresh tap.
		r.logger.Debug("ignoring replayed scan", zap.String("uid", p.UID))
		return
	}
	if r.cache.IsDuplicate(p.UID, p.Text) {
		r.logger.Debug("suppressing duplicate scan", zap.String("uid", p.UID))
		return
	}

	tag, err := toTagInfo(&p)
	if err != nil {
		r.logger.Warn("undeliverable tag payload", zap.String("uid", p.UID), zap.Error(err))
		return
	}

	r.mu.Lock()
	r.lastTag = tag
	r.mu.Unlock()

	r.logger.Info("tag received", zap.String("tag", tag.String()))
	r.EmitMessageReceived(tag)
}

func (r *Reader) handleDeviceStatus(payload json.RawMessage) {
	var p protocol.DeviceStatusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("undecodable device status", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.enabled = p.Connected
	r.mu.Unlock()

	r.logger.Info("agent device status", zap.Bool("connected", p.Connected), zap.String("message", p.Message))
	r.EmitStatusChanged(nfc.Status{Enabled: p.Connected, Message: p.Message})
}

func (r *Reader) handleWriteOutcome(resp *protocol.WebSocketResponse) {
	r.mu.Lock()
	if r.pendingID == "" || resp.ID != r.pendingID {
		r.mu.Unlock()
		if resp.Type == protocol.WSTypeError {
			r.logger.Warn("agent error", zap.String("id", resp.ID), zap.String("error", resp.Error))
		}
		return
	}
	r.pendingID = ""
	tag := r.lastTag
	r.mu.Unlock()

	if resp.Success {
		r.logger.Info("message published")
		r.EmitMessagePublished(tag, nil)
		return
	}

	message := resp.Error
	if message == "" {
		message = "write failed"
	}
	uid := ""
	if tag != nil {
		uid = tag.SerialNumber()
	}
	err := nfc.NewPublishError("Publish", uid, errors.New(message))
	r.logger.Warn("publish failed", zap.Error(err))
	r.EmitMessagePublished(tag, err)
}

// redial attempts to restore a dropped connection.
func (r *Reader) redial(stop chan struct{}) (*websocket.Conn, error) {
	attempts := r.cfg.ReconnectAttempts
	if attempts < 1 {
		return nil, errors.New("reconnection disabled")
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-stop:
			return nil, errors.New("session stopped")
		case <-r.clock.After(r.cfg.ReconnectDelay):
		}

		r.logger.Info("reconnecting to agent", zap.Int("attempt", attempt), zap.Int("max", attempts))
		ctx, cancel := context.WithTimeout(context.Background(), DefaultHandshakeTimeout)
		conn, err := r.dial(ctx)
		cancel()
		if err == nil {
			return conn, nil
		}
		r.logger.Warn("reconnect attempt failed", zap.Error(err))
		if nfc.IsSessionError(err) {
			// Another client claimed the agent; recovery cannot succeed.
			return nil, err
		}
	}
	return nil, fmt.Errorf("gave up after %d attempts", attempts)
}

func (r *Reader) swapConn(conn *websocket.Conn) {
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
}

// revoke ends the session from the capability's side. Called from the pump
// goroutine, so it must not wait for the pump to exit.
func (r *Reader) revoke(reason string) {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return
	}
	r.listening = false
	conn := r.conn
	r.conn = nil
	pendingID := r.pendingID
	r.pendingID = ""
	tag := r.lastTag
	r.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if pendingID != "" {
		uid := ""
		if tag != nil {
			uid = tag.SerialNumber()
		}
		r.EmitMessagePublished(tag, nfc.NewPublishError("Publish", uid, errors.New(reason)))
	}

	r.logger.Warn("session canceled", zap.String("reason", reason))
	r.EmitSessionCanceled(reason)
	r.EmitListeningChanged(false)
}

func stopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
