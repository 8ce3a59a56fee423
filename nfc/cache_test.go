package nfc

import (
	"testing"
	"time"
)

func TestScanCacheSuppressesRepeats(t *testing.T) {
	clock := NewFakeClock(time.Unix(1000, 0))
	cache := NewScanCache(clock, time.Second)

	if cache.IsDuplicate("04:AB", "hello") {
		t.Error("first scan should never be a duplicate")
	}
	clock.Advance(200 * time.Millisecond)
	if !cache.IsDuplicate("04:AB", "hello") {
		t.Error("same uid+text within window should be a duplicate")
	}
}

func TestScanCacheDifferentTagPasses(t *testing.T) {
	clock := NewFakeClock(time.Unix(1000, 0))
	cache := NewScanCache(clock, time.Second)

	cache.IsDuplicate("04:AB", "hello")
	if cache.IsDuplicate("05:CD", "hello") {
		t.Error("different uid should not be a duplicate")
	}
	if cache.IsDuplicate("05:CD", "changed") {
		t.Error("same uid with different text should not be a duplicate")
	}
}

func TestScanCacheWindowExpires(t *testing.T) {
	clock := NewFakeClock(time.Unix(1000, 0))
	cache := NewScanCache(clock, time.Second)

	cache.IsDuplicate("04:AB", "hello")
	clock.Advance(2 * time.Second)
	if cache.IsDuplicate("04:AB", "hello") {
		t.Error("scan after window should not be a duplicate")
	}
}

func TestScanCacheRepeatRefreshesWindow(t *testing.T) {
	clock := NewFakeClock(time.Unix(1000, 0))
	cache := NewScanCache(clock, time.Second)

	cache.IsDuplicate("04:AB", "hello")
	// Card parked on the reader: agent re-announces every 800ms
	for i := 0; i < 3; i++ {
		clock.Advance(800 * time.Millisecond)
		if !cache.IsDuplicate("04:AB", "hello") {
			t.Fatalf("re-announcement %d should stay suppressed", i)
		}
	}
}

func TestScanCacheClear(t *testing.T) {
	cache := NewScanCache(NewFakeClock(time.Unix(1000, 0)), time.Second)

	cache.IsDuplicate("04:AB", "hello")
	cache.Clear()
	if cache.IsDuplicate("04:AB", "hello") {
		t.Error("scan after Clear should not be a duplicate")
	}

	uid, text := cache.LastScanned()
	if uid != "04:AB" || text != "hello" {
		t.Errorf("LastScanned() = %q, %q", uid, text)
	}
}
