package agentnfc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dotside-studios/tapboard/nfc"
	"github.com/dotside-studios/tapboard/protocol"
)

const eventTimeout = 2 * time.Second

// fakeAgent is an in-process network NFC agent for tests: a health endpoint
// plus a single-session WebSocket speaking the agent protocol.
type fakeAgent struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	secret string

	mu      sync.Mutex
	claimed bool
	conn    *websocket.Conn

	sessions chan *websocket.Conn
	requests chan protocol.WebSocketRequest
}

func newFakeAgent() *fakeAgent {
	fa := &fakeAgent{
		sessions: make(chan *websocket.Conn, 4),
		requests: make(chan protocol.WebSocketRequest, 4),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ws", fa.handleWS)

	fa.server = httptest.NewServer(mux)
	return fa
}

func (fa *fakeAgent) handleWS(w http.ResponseWriter, r *http.Request) {
	if fa.secret != "" && r.URL.Query().Get("secret") != fa.secret {
		http.Error(w, "Unauthorized: Invalid API secret", http.StatusUnauthorized)
		return
	}

	fa.mu.Lock()
	if fa.claimed {
		fa.mu.Unlock()
		http.Error(w, "Session already claimed by another client", http.StatusConflict)
		return
	}
	fa.claimed = true
	fa.mu.Unlock()

	conn, err := fa.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fa.release(nil)
		return
	}

	fa.mu.Lock()
	fa.conn = conn
	fa.mu.Unlock()
	fa.sessions <- conn

	for {
		var req protocol.WebSocketRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}
		fa.requests <- req
	}

	conn.Close()
	fa.release(conn)
}

// release frees the session claim. A non-nil conn only releases if it still
// owns the claim, so a handler finishing late cannot free a newer session.
func (fa *fakeAgent) release(conn *websocket.Conn) {
	fa.mu.Lock()
	if conn == nil || fa.conn == conn {
		fa.claimed = false
		fa.conn = nil
	}
	fa.mu.Unlock()
}

func (fa *fakeAgent) setClaimed(claimed bool) {
	fa.mu.Lock()
	fa.claimed = claimed
	fa.mu.Unlock()
}

func (fa *fakeAgent) send(t *testing.T, msg any) {
	t.Helper()
	fa.mu.Lock()
	conn := fa.conn
	fa.mu.Unlock()
	if conn == nil {
		t.Fatal("fake agent has no session to send on")
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("fake agent write failed: %v", err)
	}
}

func (fa *fakeAgent) sendTagData(t *testing.T, payload protocol.TagDataPayload) {
	t.Helper()
	fa.send(t, protocol.WebSocketRequest{Type: protocol.WSTypeTagData, Payload: payload})
}

// closeSession drops the current session from the agent side, freeing the
// claim before the conn closes so a redialing client is not refused.
func (fa *fakeAgent) closeSession() {
	fa.mu.Lock()
	conn := fa.conn
	fa.conn = nil
	fa.claimed = false
	fa.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (fa *fakeAgent) waitSession(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-fa.sessions:
		return conn
	case <-time.After(eventTimeout):
		t.Fatal("Timeout waiting for agent session")
		return nil
	}
}

func (fa *fakeAgent) waitRequest(t *testing.T) protocol.WebSocketRequest {
	t.Helper()
	select {
	case req := <-fa.requests:
		return req
	case <-time.After(eventTimeout):
		t.Fatal("Timeout waiting for agent request")
		return protocol.WebSocketRequest{}
	}
}

func (fa *fakeAgent) close() {
	fa.closeSession()
	fa.server.Close()
}

// publishOutcome captures one MessagePublished dispatch.
type publishOutcome struct {
	tag *nfc.TagInfo
	err error
}

// eventCollector receives reader events over channels; the pump dispatches
// from its own goroutine.
type eventCollector struct {
	received  chan *nfc.TagInfo
	published chan publishOutcome
	statuses  chan nfc.Status
	listening chan bool
	canceled  chan string
}

func newEventCollector() *eventCollector {
	return &eventCollector{
		received:  make(chan *nfc.TagInfo, 8),
		published: make(chan publishOutcome, 8),
		statuses:  make(chan nfc.Status, 8),
		listening: make(chan bool, 8),
		canceled:  make(chan string, 8),
	}
}

func (ec *eventCollector) handlers() nfc.Handlers {
	return nfc.Handlers{
		MessageReceived:  func(tag *nfc.TagInfo) { ec.received <- tag },
		MessagePublished: func(tag *nfc.TagInfo, err error) { ec.published <- publishOutcome{tag, err} },
		StatusChanged:    func(status nfc.Status) { ec.statuses <- status },
		ListeningChanged: func(listening bool) { ec.listening <- listening },
		SessionCanceled:  func(reason string) { ec.canceled <- reason },
	}
}

func (ec *eventCollector) waitListening(t *testing.T, want bool) {
	t.Helper()
	select {
	case got := <-ec.listening:
		if got != want {
			t.Fatalf("Expected listening event %v, got %v", want, got)
		}
	case <-time.After(eventTimeout):
		t.Fatalf("Timeout waiting for listening event %v", want)
	}
}

func (ec *eventCollector) waitTag(t *testing.T) *nfc.TagInfo {
	t.Helper()
	select {
	case tag := <-ec.received:
		return tag
	case <-time.After(eventTimeout):
		t.Fatal("Timeout waiting for received tag")
		return nil
	}
}

func (ec *eventCollector) waitPublished(t *testing.T) publishOutcome {
	t.Helper()
	select {
	case outcome := <-ec.published:
		return outcome
	case <-time.After(eventTimeout):
		t.Fatal("Timeout waiting for publish outcome")
		return publishOutcome{}
	}
}

func (ec *eventCollector) waitCanceled(t *testing.T) string {
	t.Helper()
	select {
	case reason := <-ec.canceled:
		return reason
	case <-time.After(eventTimeout):
		t.Fatal("Timeout waiting for session cancellation")
		return ""
	}
}

func newTestReader(t *testing.T, fa *fakeAgent, mutate func(*Config)) (*Reader, *eventCollector) {
	t.Helper()
	cfg := Config{
		URL:            fa.server.URL,
		ReconnectDelay: 10 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("Expected New to succeed, got error: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	ec := newEventCollector()
	r.Subscribe(ec.handlers())
	return r, ec
}

// TestProbe tests reachability tracking against the health endpoint.
func TestProbe(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, _ := newTestReader(t, fa, nil)
	if r.IsAvailable() {
		t.Error("Expected reader to be unavailable before the first probe")
	}

	if err := r.Probe(context.Background()); err != nil {
		t.Fatalf("Expected Probe to succeed, got error: %v", err)
	}
	if !r.IsAvailable() {
		t.Error("Expected reader to be available after a successful probe")
	}

	fa.server.Close()
	err := r.Probe(context.Background())
	if err == nil {
		t.Fatal("Expected Probe to fail against a closed agent")
	}
	if !nfc.IsTransportError(err) {
		t.Errorf("Expected transport error, got: %v", err)
	}
	if r.IsAvailable() {
		t.Error("Expected reader to be unavailable after a failed probe")
	}
}

// TestStartStopListeningSession tests the WebSocket session lifecycle.
func TestStartStopListeningSession(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)

	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	// A second start on an open session is a no-op.
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected repeated StartListening to succeed, got error: %v", err)
	}

	if err := r.StopListening(); err != nil {
		t.Fatalf("Expected StopListening to succeed, got error: %v", err)
	}
	ec.waitListening(t, false)

	// Stopping an idle reader succeeds without emitting anything.
	if err := r.StopListening(); err != nil {
		t.Fatalf("Expected idle StopListening to succeed, got error: %v", err)
	}
	select {
	case got := <-ec.listening:
		t.Fatalf("Expected no further listening events, got %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestStartListeningClaimed tests the 409 mapping when another client holds
// the agent.
func TestStartListeningClaimed(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()
	fa.setClaimed(true)

	r, _ := newTestReader(t, fa, nil)

	err := r.StartListening(context.Background())
	if err == nil {
		t.Fatal("Expected StartListening to fail while the agent is claimed")
	}
	if !errors.Is(err, nfc.ErrSessionClaimed) {
		t.Errorf("Expected ErrSessionClaimed, got: %v", err)
	}
	if !nfc.IsSessionError(err) {
		t.Errorf("Expected session error, got: %v", err)
	}
}

// TestStartListeningInvalidSecret tests the 401 mapping.
func TestStartListeningInvalidSecret(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()
	fa.secret = "expected-secret"

	r, _ := newTestReader(t, fa, func(cfg *Config) {
		cfg.Secret = "wrong-secret"
	})

	err := r.StartListening(context.Background())
	if err == nil {
		t.Fatal("Expected StartListening to fail with a wrong secret")
	}
	if !nfc.IsSessionError(err) {
		t.Errorf("Expected session error, got: %v", err)
	}
}

// TestTagBroadcastDelivered tests scan delivery and duplicate suppression.
func TestTagBroadcastDelivered(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	payload := protocol.TagDataPayload{
		UID:        "04:AB:CD:EF",
		Type:       "NTAG215",
		Technology: "ISO14443A",
		ScannedAt:  time.Now().Format(time.RFC3339),
		Text:       "hello",
		Message: &protocol.NDEFMessagePayload{
			Type: "ndef",
			Records: []protocol.NDEFRecordPayload{
				{Type: "text", Content: "hello", Language: "en", TNF: 0x01, Payload: []byte("hello")},
			},
		},
	}
	fa.sendTagData(t, payload)

	tag := ec.waitTag(t)
	if got := tag.SerialNumber(); got != "04:AB:CD:EF" {
		t.Errorf("Expected serial 04:AB:CD:EF, got %q", got)
	}
	if tag.Type != "NTAG215" {
		t.Errorf("Expected type NTAG215, got %q", tag.Type)
	}
	first, ok := tag.FirstRecord()
	if !ok {
		t.Fatal("Expected delivered tag to carry a record")
	}
	if first.Type != nfc.RecordText || first.Message != "hello" {
		t.Errorf("Unexpected first record: %+v", first)
	}

	// The same scan broadcast again inside the window is suppressed.
	fa.sendTagData(t, payload)
	select {
	case tag := <-ec.received:
		t.Fatalf("Expected duplicate scan to be suppressed, got %v", tag)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestReplayedScanIgnored tests that the agent's on-connect replay of its
// last scan is not delivered as a fresh tap.
func TestReplayedScanIgnored(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	fa.sendTagData(t, protocol.TagDataPayload{UID: "04:AB", Text: ""})

	select {
	case tag := <-ec.received:
		t.Fatalf("Expected replayed scan to be ignored, got %v", tag)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestDeviceStatusUpdates tests that agent device status flows through as
// a status event and updates IsEnabled.
func TestDeviceStatusUpdates(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	if !r.IsEnabled() {
		t.Error("Expected reader to assume the device present before any status")
	}

	fa.send(t, protocol.WebSocketRequest{
		Type:    protocol.WSTypeDeviceStatus,
		Payload: protocol.DeviceStatusPayload{Connected: false, Message: "device unplugged"},
	})

	select {
	case status := <-ec.statuses:
		if status.Enabled {
			t.Error("Expected status event to report disabled")
		}
		if status.Message != "device unplugged" {
			t.Errorf("Expected status message %q, got %q", "device unplugged", status.Message)
		}
	case <-time.After(eventTimeout):
		t.Fatal("Timeout waiting for status event")
	}

	if r.IsEnabled() {
		t.Error("Expected IsEnabled to reflect the agent's device state")
	}
}

// TestPublishRoundTrip tests the write request and its success outcome.
func TestPublishRoundTrip(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	if err := r.Publish(context.Background(), nfc.NewTextMessage("fresh content", "en")); err != nil {
		t.Fatalf("Expected Publish to succeed, got error: %v", err)
	}

	req := fa.waitRequest(t)
	if req.Type != protocol.WSTypeWriteRequest {
		t.Fatalf("Expected writeRequest, got %q", req.Type)
	}
	if req.ID == "" {
		t.Fatal("Expected write request to carry a correlation ID")
	}

	payloadBytes, err := json.Marshal(req.Payload)
	if err != nil {
		t.Fatalf("Failed to re-marshal payload: %v", err)
	}
	var writeReq protocol.WriteRequestPayload
	if err := json.Unmarshal(payloadBytes, &writeReq); err != nil {
		t.Fatalf("Failed to decode write request payload: %v", err)
	}
	if len(writeReq.Records) != 1 {
		t.Fatalf("Expected 1 write record, got %d", len(writeReq.Records))
	}
	if writeReq.Records[0].Type != "text" || writeReq.Records[0].Content != "fresh content" {
		t.Errorf("Unexpected write record: %+v", writeReq.Records[0])
	}

	// A second publish while one is pending is rejected.
	if err := r.Publish(context.Background(), nfc.NewTextMessage("another", "en")); !errors.Is(err, nfc.ErrPublishPending) {
		t.Errorf("Expected ErrPublishPending, got: %v", err)
	}

	fa.send(t, protocol.WebSocketResponse{
		ID:      req.ID,
		Type:    protocol.WSTypeWriteResponse,
		Success: true,
	})

	outcome := ec.waitPublished(t)
	if outcome.err != nil {
		t.Fatalf("Expected successful publish outcome, got error: %v", outcome.err)
	}

	// The queue is clear again.
	if err := r.Publish(context.Background(), nfc.NewTextMessage("next", "en")); err != nil {
		t.Fatalf("Expected Publish after outcome to succeed, got error: %v", err)
	}
}

// TestPublishFailureOutcome tests that an agent-side write failure arrives
// as a publish event carrying the agent's message.
func TestPublishFailureOutcome(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	if err := r.Publish(context.Background(), nfc.NewTextMessage("content", "en")); err != nil {
		t.Fatalf("Expected Publish to succeed, got error: %v", err)
	}
	req := fa.waitRequest(t)

	fa.send(t, protocol.WebSocketResponse{
		ID:      req.ID,
		Type:    protocol.WSTypeError,
		Success: false,
		Error:   "tag is read-only",
	})

	outcome := ec.waitPublished(t)
	if outcome.err == nil {
		t.Fatal("Expected publish outcome to carry an error")
	}
	if nfc.GetErrorCode(outcome.err) != nfc.ErrCodePublish {
		t.Errorf("Expected publish error code, got: %v", outcome.err)
	}
	if !strings.Contains(outcome.err.Error(), "tag is read-only") {
		t.Errorf("Expected agent's message in the error, got: %v", outcome.err)
	}
}

// TestPublishRequiresSession tests that publishing needs an open session.
func TestPublishRequiresSession(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, _ := newTestReader(t, fa, nil)

	err := r.Publish(context.Background(), nfc.NewTextMessage("content", "en"))
	if !errors.Is(err, nfc.ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got: %v", err)
	}
}

// TestSessionRevokedByAgent tests the agent-initiated cancellation order.
func TestSessionRevokedByAgent(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, nil)
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	fa.send(t, protocol.WebSocketRequest{
		Type:    protocol.WSTypeSessionRevoked,
		Payload: protocol.SessionRevokedPayload{Reason: "claimed by another client"},
	})

	if reason := ec.waitCanceled(t); reason != "claimed by another client" {
		t.Errorf("Expected revocation reason to pass through, got %q", reason)
	}
	ec.waitListening(t, false)
}

// TestConnectionLossRevokesSession tests that a dropped connection with
// recovery disabled cancels the session.
func TestConnectionLossRevokesSession(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, func(cfg *Config) {
		cfg.ReconnectAttempts = -1
	})
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	fa.closeSession()

	if reason := ec.waitCanceled(t); reason != "connection to agent lost" {
		t.Errorf("Expected loss reason, got %q", reason)
	}
	ec.waitListening(t, false)
}

// TestReconnectRestoresSession tests silent session recovery after a drop.
func TestReconnectRestoresSession(t *testing.T) {
	fa := newFakeAgent()
	defer fa.close()

	r, ec := newTestReader(t, fa, func(cfg *Config) {
		cfg.ReconnectAttempts = 3
	})
	if err := r.StartListening(context.Background()); err != nil {
		t.Fatalf("Expected StartListening to succeed, got error: %v", err)
	}
	fa.waitSession(t)
	ec.waitListening(t, true)

	fa.closeSession()

	// The reader redials and the agent accepts a fresh session.
	fa.waitSession(t)

	fa.sendTagData(t, protocol.TagDataPayload{
		UID:       "04:11:22",
		Type:      "NTAG213",
		ScannedAt: time.Now().Format(time.RFC3339),
		Text:      "after reconnect",
	})

	tag := ec.waitTag(t)
	if got := tag.SerialNumber(); got != "04:11:22" {
		t.Errorf("Expected serial 04:11:22, got %q", got)
	}

	select {
	case reason := <-ec.canceled:
		t.Fatalf("Expected no cancellation during silent recovery, got %q", reason)
	case <-time.After(50 * time.Millisecond):
	}
}
