package nfc

import (
	"context"
	"sync"
)

// MockReader is a configurable Reader implementation for tests. Error
// fields make the corresponding call fail; driver methods (InjectTag,
// SetEnabled, CancelSession) emit events the way a real backend would.
type MockReader struct {
	Hub

	// Configurable state
	SupportedVal bool
	AvailableVal bool
	EnabledVal   bool

	// Configurable errors
	StartError          error
	StopError           error
	PublishError        error
	StopPublishingError error
	CloseError          error

	// PublishResultError, when set, fails the publish outcome delivered by
	// the next InjectTag instead of the Publish call itself.
	PublishResultError error

	// CallLog records method invocations for assertions
	CallLog []string

	mu        sync.Mutex
	listening bool
	pending   *Message
}

// NewMockReader returns a mock that reports a supported, enabled reader.
func NewMockReader() *MockReader {
	return &MockReader{
		SupportedVal: true,
		AvailableVal: true,
		EnabledVal:   true,
	}
}

func (m *MockReader) logCall(name string) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, name)
	m.mu.Unlock()
}

func (m *MockReader) IsSupported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SupportedVal
}

func (m *MockReader) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AvailableVal
}

func (m *MockReader) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EnabledVal
}

func (m *MockReader) StartListening(ctx context.Context) error {
	m.logCall("StartListening")
	m.mu.Lock()
	if m.StartError != nil {
		err := m.StartError
		m.mu.Unlock()
		return err
	}
	if m.listening {
		m.mu.Unlock()
		return nil
	}
	m.listening = true
	m.mu.Unlock()

	m.EmitListeningChanged(true)
	return nil
}

func (m *MockReader) StopListening() error {
	m.logCall("StopListening")
	m.mu.Lock()
	if m.StopError != nil {
		err := m.StopError
		m.mu.Unlock()
		return err
	}
	if !m.listening {
		m.mu.Unlock()
		return nil
	}
	m.listening = false
	m.mu.Unlock()

	m.EmitListeningChanged(false)
	return nil
}

func (m *MockReader) Publish(ctx context.Context, msg *Message) error {
	m.logCall("Publish")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	if m.pending != nil {
		return ErrPublishPending
	}
	m.pending = msg
	return nil
}

func (m *MockReader) StopPublishing() error {
	m.logCall("StopPublishing")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StopPublishingError != nil {
		return m.StopPublishingError
	}
	m.pending = nil
	return nil
}

func (m *MockReader) Close() error {
	m.logCall("Close")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseError
}

// IsListening reports the mock's session state.
func (m *MockReader) IsListening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listening
}

// InjectTag simulates a tag presented to the reader. While a publish is
// pending the tag is consumed by the write and a MessagePublished event is
// emitted; otherwise the tag arrives as a MessageReceived event. Tags
// injected while not listening are dropped, as a real reader would.
func (m *MockReader) InjectTag(tag *TagInfo) {
	m.mu.Lock()
	if !m.listening {
		m.mu.Unlock()
		return
	}
	pending := m.pending
	resultErr := m.PublishResultError
	m.pending = nil
	m.mu.Unlock()

	if pending != nil {
		m.EmitMessagePublished(tag, resultErr)
		return
	}
	m.EmitMessageReceived(tag)
}

// SetEnabled flips the reader's enabled state and emits a status event.
func (m *MockReader) SetEnabled(enabled bool, message string) {
	m.mu.Lock()
	m.EnabledVal = enabled
	m.mu.Unlock()
	m.EmitStatusChanged(Status{Enabled: enabled, Message: message})
}

// CancelSession simulates the capability revoking the session from its
// side, emitting SessionCanceled followed by ListeningChanged(false).
func (m *MockReader) CancelSession(reason string) {
	m.mu.Lock()
	if !m.listening {
		m.mu.Unlock()
		return
	}
	m.listening = false
	m.mu.Unlock()

	m.EmitSessionCanceled(reason)
	m.EmitListeningChanged(false)
}
