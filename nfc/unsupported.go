package nfc

import "context"

// UnsupportedReader is the null Reader used when no backend is configured.
// Every capability check reports false and session operations fail with a
// not-supported error, so frontends fall into their unsupported flow without
// special-casing a nil reader.
type UnsupportedReader struct {
	Hub
}

var _ Reader = (*UnsupportedReader)(nil)

// NewUnsupportedReader returns a Reader with no backend behind it.
func NewUnsupportedReader() *UnsupportedReader {
	return &UnsupportedReader{}
}

func (r *UnsupportedReader) IsSupported() bool { return false }
func (r *UnsupportedReader) IsAvailable() bool { return false }
func (r *UnsupportedReader) IsEnabled() bool   { return false }

func (r *UnsupportedReader) StartListening(ctx context.Context) error {
	return NewNotSupportedError("StartListening")
}

func (r *UnsupportedReader) StopListening() error { return nil }

func (r *UnsupportedReader) Publish(ctx context.Context, msg *Message) error {
	return NewNotSupportedError("Publish")
}

func (r *UnsupportedReader) StopPublishing() error { return nil }

func (r *UnsupportedReader) Close() error { return nil }
