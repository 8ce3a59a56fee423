package nfc

import "errors"

// Status describes the capability's reader state as last reported by a
// status event.
type Status struct {
	Enabled bool   // the reader hardware is up and able to scan
	Message string // human-readable detail, e.g. "agent connected"
}

// Common sentinel errors returned by Reader implementations.
var (
	// ErrNotSupported indicates no capability backend is present at all.
	ErrNotSupported = errors.New("nfc not supported on this device")

	// ErrDisabled indicates the capability exists but its reader is down.
	ErrDisabled = errors.New("nfc reader is disabled")

	// ErrNoSession indicates an operation that needs a listening session
	// was called without one.
	ErrNoSession = errors.New("no listening session")

	// ErrSessionClaimed indicates the agent's single session is held by
	// another client.
	ErrSessionClaimed = errors.New("listening session claimed by another client")

	// ErrPublishPending indicates a publish was requested while an earlier
	// one is still waiting for a tag.
	ErrPublishPending = errors.New("a publish is already pending")
)
