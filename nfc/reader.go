// Package nfc defines the capability seam between the application and an
// external NFC reader: the Reader interface, the pre-parsed tag/record
// model, and the event hub implementations emit through.
//
// Implementations live in subpackages: agentnfc talks to a network NFC
// agent over WebSocket, simnfc fabricates taps for demos and tests. Radio
// access, tag protocols, and NDEF parsing all happen on the capability's
// side of this seam.
package nfc

import "context"

// Reader is the external NFC capability as consumed by the application.
//
// StartListening on an already-listening reader and StopListening on an
// idle one are no-ops returning nil. Implementations emit events through
// their Hub from a single goroutine, so subscribers observe events in
// emission order.
type Reader interface {
	// IsSupported reports whether a backend is present and configured.
	IsSupported() bool

	// IsAvailable reports whether the capability's transport is reachable
	// right now (for the agent backend, a live connection).
	IsAvailable() bool

	// IsEnabled reports whether the capability's reader hardware is up
	// per the last status event.
	IsEnabled() bool

	// StartListening opens a listening session. Tags are delivered via
	// MessageReceived events until the session ends.
	StartListening(ctx context.Context) error

	// StopListening ends the listening session, if any.
	StopListening() error

	// Publish queues msg to be written to the next presented tag. The
	// outcome arrives as a MessagePublished event. Returns
	// ErrPublishPending while an earlier publish is still waiting.
	Publish(ctx context.Context, msg *Message) error

	// StopPublishing discards any pending publish.
	StopPublishing() error

	// Subscribe registers event handlers and returns a subscription id.
	Subscribe(h Handlers) int

	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id int)

	// Close releases the backend. The reader cannot be reused afterwards.
	Close() error
}
