package nfc

import "sync"

// Handlers bundles the event callbacks a subscriber cares about. Nil fields
// are skipped during dispatch.
type Handlers struct {
	// MessageReceived fires for every tag scanned during a listening
	// session, with records pre-parsed by the capability.
	MessageReceived func(tag *TagInfo)

	// MessagePublished fires when a queued publish completes. A non-nil
	// tag identifies where the message landed; err reports failure.
	MessagePublished func(tag *TagInfo, err error)

	// StatusChanged fires when the capability's reader goes up or down.
	StatusChanged func(status Status)

	// ListeningChanged fires when a listening session opens or closes.
	ListeningChanged func(listening bool)

	// SessionCanceled fires when the capability ends the session from its
	// side (claimed elsewhere, agent gone). A ListeningChanged(false)
	// always follows it.
	SessionCanceled func(reason string)
}

type subscription struct {
	id int
	h  Handlers
}

// Hub dispatches capability events to subscribers in registration order.
// Backends embed a Hub and emit from their pump goroutine; dispatch is
// synchronous, so a subscriber sees events in the order they were emitted.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// Subscribe registers h and returns its subscription id.
func (hub *Hub) Subscribe(h Handlers) int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.nextID++
	hub.subs = append(hub.subs, subscription{id: hub.nextID, h: h})
	return hub.nextID
}

// Unsubscribe removes the subscription with the given id. Unknown ids are
// ignored, so double-unsubscribe is harmless.
func (hub *Hub) Unsubscribe(id int) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for i, sub := range hub.subs {
		if sub.id == id {
			hub.subs = append(hub.subs[:i], hub.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (hub *Hub) SubscriberCount() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subs)
}

// snapshot copies the subscription list so handlers can subscribe or
// unsubscribe from within a callback without deadlocking.
func (hub *Hub) snapshot() []subscription {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	out := make([]subscription, len(hub.subs))
	copy(out, hub.subs)
	return out
}

// EmitMessageReceived delivers a scanned tag to all subscribers.
func (hub *Hub) EmitMessageReceived(tag *TagInfo) {
	for _, sub := range hub.snapshot() {
		if sub.h.MessageReceived != nil {
			sub.h.MessageReceived(tag)
		}
	}
}

// EmitMessagePublished delivers a publish outcome to all subscribers.
func (hub *Hub) EmitMessagePublished(tag *TagInfo, err error) {
	for _, sub := range hub.snapshot() {
		if sub.h.MessagePublished != nil {
			sub.h.MessagePublished(tag, err)
		}
	}
}

// EmitStatusChanged delivers a reader status change to all subscribers.
func (hub *Hub) EmitStatusChanged(status Status) {
	for _, sub := range hub.snapshot() {
		if sub.h.StatusChanged != nil {
			sub.h.StatusChanged(status)
		}
	}
}

// EmitListeningChanged delivers a session state change to all subscribers.
func (hub *Hub) EmitListeningChanged(listening bool) {
	for _, sub := range hub.snapshot() {
		if sub.h.ListeningChanged != nil {
			sub.h.ListeningChanged(listening)
		}
	}
}

// EmitSessionCanceled reports a capability-side session cancellation.
func (hub *Hub) EmitSessionCanceled(reason string) {
	for _, sub := range hub.snapshot() {
		if sub.h.SessionCanceled != nil {
			sub.h.SessionCanceled(reason)
		}
	}
}
