package nfc

import (
	"sync"
	"time"
)

// ScanCache suppresses duplicate tag deliveries. Agents re-announce a card
// that stays on the reader and replay the present card after a reconnect;
// subscribers should see one event per distinct scan, not one per
// announcement.
type ScanCache struct {
	mu       sync.Mutex
	clock    Clock
	window   time.Duration
	lastUID  string
	lastText string
	lastAt   time.Time
}

// NewScanCache creates a cache that treats a repeated (uid, text) pair as a
// duplicate when it arrives within window of the previous delivery.
func NewScanCache(clock Clock, window time.Duration) *ScanCache {
	if clock == nil {
		clock = NewRealClock()
	}
	return &ScanCache{clock: clock, window: window}
}

// IsDuplicate records the scan and reports whether it repeats the previous
// one within the window. A repeat refreshes the window, so a card parked on
// the reader stays suppressed until it is removed or changed.
func (c *ScanCache) IsDuplicate(uid, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	dup := uid == c.lastUID && text == c.lastText &&
		!c.lastAt.IsZero() && now.Sub(c.lastAt) < c.window

	c.lastUID = uid
	c.lastText = text
	c.lastAt = now
	return dup
}

// LastScanned returns the UID and text of the most recent delivery.
func (c *ScanCache) LastScanned() (uid, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUID, c.lastText
}

// Clear forgets the previous delivery, so the next scan is never treated
// as a duplicate. Called when a session ends.
func (c *ScanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUID = ""
	c.lastText = ""
	c.lastAt = time.Time{}
}
