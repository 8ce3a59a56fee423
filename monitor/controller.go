package monitor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dotside-studios/tapboard/nfc"
)

// Presenter renders alerts to the user. Frontends (console, systray)
// implement it; tests use a recorder.
type Presenter interface {
	ShowAlert(title, body string)
}

// Config configures a Controller.
type Config struct {
	Reader    nfc.Reader
	Presenter Presenter

	// AutoStart opens a listening session during Attach. Off on platforms
	// where sessions are user-initiated.
	AutoStart bool

	// Filter, when non-nil, decides whether a scanned tag is alerted.
	// Rejected tags are logged and dropped.
	Filter func(*nfc.TagInfo) bool

	Logger *zap.Logger
}

// Controller mediates between the view and the NFC capability. Button
// handlers call its methods and render returned errors; capability events
// flow through its handlers into State and the Presenter.
//
// Informational conditions (unsupported reader, scanned tags, publish
// outcomes) are presented directly. Operation failures are returned to the
// caller, which decides how to surface them.
type Controller struct {
	reader    nfc.Reader
	presenter Presenter
	state     *State
	filter    func(*nfc.TagInfo) bool
	autoStart bool
	logger    *zap.Logger

	mu         sync.Mutex
	subscribed bool // guards against double event registration
	subID      int
}

// New creates a Controller. The reader and presenter are required.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		reader:    cfg.Reader,
		presenter: cfg.Presenter,
		state:     NewState(nil),
		filter:    cfg.Filter,
		autoStart: cfg.AutoStart,
		logger:    logger.Named("monitor"),
	}
}

// State returns the view-bound state.
func (c *Controller) State() *State {
	return c.state
}

// OnStateChange installs the view's re-render callback.
func (c *Controller) OnStateChange(fn func()) {
	c.state.SetNotify(fn)
}

// Attach runs the page-appearing sequence: check support and enablement,
// subscribe event handlers (once, guarded), and auto-start listening when
// configured. An unsupported reader is presented and Attach stops there.
// Only the auto-start can fail; its error is returned for the caller to
// surface.
func (c *Controller) Attach(ctx context.Context) error {
	if !c.reader.IsSupported() {
		c.logger.Warn("nfc not supported, page stays inert")
		c.presenter.ShowAlert(TitleNFC, bodyNotSupported)
		return nil
	}

	enabled := c.reader.IsEnabled()
	c.state.SetNfcEnabled(enabled)
	if !enabled {
		c.presenter.ShowAlert(TitleNFC, bodyDisabled)
	}

	c.mu.Lock()
	if !c.subscribed {
		c.subID = c.reader.Subscribe(nfc.Handlers{
			MessageReceived:  c.handleMessageReceived,
			MessagePublished: c.handleMessagePublished,
			StatusChanged:    c.handleStatusChanged,
			ListeningChanged: c.handleListeningChanged,
			SessionCanceled:  c.handleSessionCanceled,
		})
		c.subscribed = true
	}
	c.mu.Unlock()

	if c.autoStart && enabled {
		if err := c.reader.StartListening(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Detach runs the leaving-the-page sequence: unsubscribe all handlers and
// stop listening. Always succeeds; a stop failure is logged, since there is
// no page left to show it on. Stopping may race a just-delivered tag event;
// the late alert is accepted.
func (c *Controller) Detach() {
	c.mu.Lock()
	if c.subscribed {
		c.reader.Unsubscribe(c.subID)
		c.subscribed = false
	}
	c.mu.Unlock()

	if err := c.reader.StopListening(); err != nil {
		c.logger.Warn("stop listening on detach", zap.Error(err))
	}
}

// StartListening opens a listening session. The error is returned, not
// presented; the caller renders it.
func (c *Controller) StartListening(ctx context.Context) error {
	return c.reader.StartListening(ctx)
}

// StopListening closes the listening session. The error is returned, not
// presented; the caller renders it.
func (c *Controller) StopListening() error {
	return c.reader.StopListening()
}

// PublishText queues a single text record for the next presented tag. The
// outcome arrives later as a publish event.
func (c *Controller) PublishText(ctx context.Context, text string) error {
	return c.reader.Publish(ctx, nfc.NewTextMessage(text, ""))
}

// StopPublishing discards a pending publish.
func (c *Controller) StopPublishing() error {
	return c.reader.StopPublishing()
}

// SetFilter swaps the tag filter. Used by config reload; a nil filter
// accepts every tag.
func (c *Controller) SetFilter(filter func(*nfc.TagInfo) bool) {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
}

func (c *Controller) handleMessageReceived(tag *nfc.TagInfo) {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()
	if filter != nil && !filter(tag) {
		c.logger.Info("tag filtered", zap.String("tag", tag.String()))
		return
	}
	c.logger.Info("tag received", zap.String("tag", tag.String()))
	c.state.SetLastTag(tag.String())

	title, body := FormatTagAlert(tag)
	c.presenter.ShowAlert(title, body)
}

func (c *Controller) handleMessagePublished(tag *nfc.TagInfo, err error) {
	// The session published what it had; clear any leftover queue state.
	if stopErr := c.reader.StopPublishing(); stopErr != nil {
		c.logger.Warn("stop publishing after outcome", zap.Error(stopErr))
	}

	if err != nil {
		c.logger.Warn("publish failed", zap.Error(err))
		c.presenter.ShowAlert(TitlePublish, err.Error())
		return
	}
	if tag != nil {
		c.state.SetLastTag(tag.String())
	}
	c.presenter.ShowAlert(TitlePublish, bodyPublished)
}

func (c *Controller) handleStatusChanged(status nfc.Status) {
	c.logger.Info("reader status changed",
		zap.Bool("enabled", status.Enabled),
		zap.String("message", status.Message))
	c.state.SetNfcEnabled(status.Enabled)
}

func (c *Controller) handleListeningChanged(listening bool) {
	c.logger.Info("listening changed", zap.Bool("listening", listening))
	c.state.SetListening(listening)
}

func (c *Controller) handleSessionCanceled(reason string) {
	c.logger.Warn("session canceled by capability", zap.String("reason", reason))
	body := bodyCanceled
	if reason != "" {
		body += ": " + reason
	}
	c.presenter.ShowAlert(TitleNFC, body)
}
