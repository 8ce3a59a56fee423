// Package simnfc provides a simulated NFC capability for demos and tests.
// Taps are injected programmatically, over the local control endpoint, or by
// replaying configured fixture tags. No hardware or network agent is
// involved; the simulator plays the capability's role end to end, including
// publish outcomes and session cancellation.
package simnfc

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/nfc"
)

// DefaultReplayInterval is used when fixtures are configured without an
// explicit interval.
const DefaultReplayInterval = 5 * time.Second

// Config configures the simulated reader.
type Config struct {
	// Fixtures are replayed in order, one per interval, while listening.
	Fixtures []*nfc.TagInfo

	// ReplayInterval is the pause between replayed fixtures.
	ReplayInterval time.Duration

	Clock  nfc.Clock
	Logger *zap.Logger
}

// Reader is a simulated nfc.Reader.
type Reader struct {
	nfc.Hub

	clock    nfc.Clock
	logger   *zap.Logger
	fixtures []*nfc.TagInfo
	interval time.Duration

	mu          sync.Mutex
	enabled     bool
	closed      bool
	listening   bool
	pending     *nfc.Message
	nextFixture int
	stopReplay  chan struct{}
}

// New creates a simulated reader. It starts enabled and idle.
func New(cfg Config) *Reader {
	clock := cfg.Clock
	if clock == nil {
		clock = nfc.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.ReplayInterval
	if interval <= 0 {
		interval = DefaultReplayInterval
	}
	return &Reader{
		clock:    clock,
		logger:   logger.Named("simnfc"),
		fixtures: cfg.Fixtures,
		interval: interval,
		enabled:  true,
	}
}

// IsSupported always reports true; the simulator is its own capability.
func (r *Reader) IsSupported() bool { return true }

// IsAvailable reports whether the reader has not been closed.
func (r *Reader) IsAvailable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

// IsEnabled reports the simulated radio state.
func (r *Reader) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled && !r.closed
}

// StartListening opens the simulated session and begins fixture replay if
// fixtures are configured.
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
	r.listening = true
	var stop chan struct{}
	if len(r.fixtures) > 0 {
		stop = make(chan struct{})
		r.stopReplay = stop
	}
	r.mu.Unlock()

	r.logger.Info("listening session opened")
	r.EmitListeningChanged(true)
	if stop != nil {
		go r.replayLoop(stop)
	}
	return nil
}

// StopListening closes the session. Idle readers return nil.
func (r *Reader) StopListening() error {
	if !r.endSession() {
		return nil
	}
	r.logger.Info("listening session closed")
	r.EmitListeningChanged(false)
	return nil
}

// endSession clears the listening state and stops replay. Returns false
// when there was no session.
func (r *Reader) endSession() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening {
		return false
	}
	r.listening = false
	if r.stopReplay != nil {
		close(r.stopReplay)
		r.stopReplay = nil
	}
	return true
}

// Publish queues msg for the next tap.
func (r *Reader) Publish(ctx context.Context, msg *nfc.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nfc.NewNotSupportedError("Publish")
	}
	if !r.enabled {
		return nfc.NewDisabledError("Publish")
	}
	if msg.IsEmpty() {
		return nfc.Errorf(nfc.ErrCodePublish, "Publish", "message has no records")
	}
	if r.pending != nil {
		return nfc.ErrPublishPending
	}
	r.pending = msg
	return nil
}

// StopPublishing discards the pending publish, if any.
func (r *Reader) StopPublishing() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
	return nil
}

// Tap presents a tag to the simulated reader. While a publish is pending
// the tap consumes it and reports the publish outcome; otherwise the tag is
// delivered as a received message. Returns nfc.ErrNoSession when no
// listening session is open.
func (r *Reader) Tap(tag *nfc.TagInfo) error {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return nfc.ErrNoSession
	}
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if pending != nil {
		if !tag.Supported {
			err := nfc.NewPublishError("Publish", tag.SerialNumber(), errors.New("tag not writable"))
			r.logger.Warn("publish failed", zap.String("tag", tag.String()), zap.Error(err))
			r.EmitMessagePublished(tag, err)
			return nil
		}
		// The published message becomes the tag's content.
		written := *tag
		written.Records = pending.Records
		written.Empty = false
		r.logger.Info("message published", zap.String("tag", written.String()))
		r.EmitMessagePublished(&written, nil)
		return nil
	}

	r.logger.Info("tag presented", zap.String("tag", tag.String()))
	r.EmitMessageReceived(tag)
	return nil
}

// SetEnabled flips the simulated radio. Disabling it while a session is
// open cancels the session the way a platform radio toggle would.
func (r *Reader) SetEnabled(enabled bool, message string) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()

	r.logger.Info("radio state changed", zap.Bool("enabled", enabled))
	r.EmitStatusChanged(nfc.Status{Enabled: enabled, Message: message})
	if !enabled {
		r.cancel("reader disabled")
	}
}

// CancelSession ends the session from the capability's side.
func (r *Reader) CancelSession(reason string) {
	r.cancel(reason)
}

func (r *Reader) cancel(reason string) {
	if !r.endSession() {
		return
	}
	r.logger.Warn("session canceled", zap.String("reason", reason))
	r.EmitSessionCanceled(reason)
	r.EmitListeningChanged(false)
}

// Close shuts the simulator down. An open session is canceled first.
func (r *Reader) Close() error {
	r.cancel("reader closed")
	r.mu.Lock()
	r.closed = true
	r.pending = nil
	r.mu.Unlock()
	return nil
}

// replayLoop feeds fixtures through Tap until the session ends. Fixtures
// cycle; each delivery refreshes the scan timestamp.
func (r *Reader) replayLoop(stop chan struct{}) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			r.mu.Lock()
			if len(r.fixtures) == 0 {
				r.mu.Unlock()
				return
			}
			fixture := r.fixtures[r.nextFixture%len(r.fixtures)]
			r.nextFixture++
			r.mu.Unlock()

			replay := *fixture
			replay.ScannedAt = r.clock.Now()
			if err := r.Tap(&replay); err != nil {
				return
			}
		}
	}
}
