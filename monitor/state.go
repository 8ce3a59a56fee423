// Package monitor contains the tap page controller: it mediates between
// the view and an nfc.Reader, mirrors reader state into view-bound flags,
// and renders scanned tags as alerts.
package monitor

import "sync"

// State holds the view-bound flags. Event handlers and button code mutate
// it; the view re-renders on every change via the notify callback. Nothing
// here is persisted; the state dies with the page.
type State struct {
	mu         sync.Mutex
	nfcEnabled bool
	listening  bool
	lastTag    string
	notify     func()
}

// NewState creates a State. notify, when non-nil, runs after every
// mutation, on the mutating goroutine, outside the state lock.
func NewState(notify func()) *State {
	return &State{notify: notify}
}

// SetNotify installs the change callback. Views attach themselves here
// after the controller is built.
func (s *State) SetNotify(notify func()) {
	s.mu.Lock()
	s.notify = notify
	s.mu.Unlock()
}

// NfcEnabled reports whether the reader is enabled per the last status event.
func (s *State) NfcEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nfcEnabled
}

// NfcDisabled is the display complement of NfcEnabled.
func (s *State) NfcDisabled() bool {
	return !s.NfcEnabled()
}

// Listening reports whether a listening session is active per the last
// listening event.
func (s *State) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// CanStart reports whether the start-listening control should be offered.
func (s *State) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nfcEnabled && !s.listening
}

// CanStop reports whether the stop-listening control should be offered.
func (s *State) CanStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nfcEnabled && s.listening
}

// LastTag returns a short summary of the most recently scanned tag.
func (s *State) LastTag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTag
}

// SetNfcEnabled records a reader status change.
func (s *State) SetNfcEnabled(v bool) {
	s.mu.Lock()
	s.nfcEnabled = v
	s.mu.Unlock()
	s.changed()
}

// SetListening records a session state change.
func (s *State) SetListening(v bool) {
	s.mu.Lock()
	s.listening = v
	s.mu.Unlock()
	s.changed()
}

// SetLastTag records a scanned tag summary for the status line.
func (s *State) SetLastTag(summary string) {
	s.mu.Lock()
	s.lastTag = summary
	s.mu.Unlock()
	s.changed()
}

func (s *State) changed() {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}
