package database

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// countingLister is a test double that records how many times each guild was
// listed from the "store".
type countingLister struct {
	mu      sync.Mutex
	calls   map[string]int
	entries map[string][]*models.BlacklistEntry
	err     error
}

func newCountingLister() *countingLister {
	return &countingLister{
		calls:   make(map[string]int),
		entries: make(map[string][]*models.BlacklistEntry),
	}
}

func (l *countingLister) ListByGuild(guildID string) ([]*models.BlacklistEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[guildID]++
	if l.err != nil {
		return nil, l.err
	}
	return l.entries[guildID], nil
}

func (l *countingLister) callCount(guildID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[guildID]
}

func entry(guildID string, kind models.BlacklistKind, content string) *models.BlacklistEntry {
	return &models.BlacklistEntry{
		ID:        content + "-id",
		GuildID:   guildID,
		Kind:      kind,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestGetPartitionsByKind(t *testing.T) {
	lister := newCountingLister()
	lister.entries["g1"] = []*models.BlacklistEntry{
		entry("g1", models.BlacklistKindText, "raid now"),
		entry("g1", models.BlacklistKindURL, "http://bad.example/x"),
		entry("g1", models.BlacklistKindImage, "00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff"),
		entry("g1", models.BlacklistKindText, "otra frase"),
	}

	cache := NewBlacklistCache(lister, time.Minute)
	snap, err := cache.Get("g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if len(snap.Text) != 2 || len(snap.URL) != 1 || len(snap.Image) != 1 {
		t.Errorf("partition sizes = %d/%d/%d, want 2/1/1", len(snap.Text), len(snap.URL), len(snap.Image))
	}
	if snap.Len() != 4 {
		t.Errorf("Len() = %d, want 4", snap.Len())
	}
}

func TestGetUsesCacheWithinTTL(t *testing.T) {
	lister := newCountingLister()
	cache := NewBlacklistCache(lister, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := cache.Get("g1"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}

	if got := lister.callCount("g1"); got != 1 {
		t.Errorf("store reads = %d, want 1 (TTL should absorb repeat gets)", got)
	}
}

func TestGetRefreshesAfterTTL(t *testing.T) {
	lister := newCountingLister()
	cache := NewBlacklistCache(lister, 10*time.Millisecond)

	cache.Get("g1")
	time.Sleep(20 * time.Millisecond)
	cache.Get("g1")

	if got := lister.callCount("g1"); got != 2 {
		t.Errorf("store reads = %d, want 2 after TTL expiry", got)
	}
}

func TestInvalidateForcesFreshRead(t *testing.T) {
	lister := newCountingLister()
	cache := NewBlacklistCache(lister, time.Hour) // TTL que nunca expira en el test

	cache.Get("g1")
	cache.Invalidate("g1")
	cache.Get("g1")

	if got := lister.callCount("g1"); got != 2 {
		t.Errorf("store reads = %d, want 2 (invalidate must bypass TTL)", got)
	}
}

func TestInvalidateOnlyAffectsOneGuild(t *testing.T) {
	lister := newCountingLister()
	cache := NewBlacklistCache(lister, time.Hour)

	cache.Get("g1")
	cache.Get("g2")
	cache.Invalidate("g1")
	cache.Get("g1")
	cache.Get("g2")

	if got := lister.callCount("g1"); got != 2 {
		t.Errorf("g1 store reads = %d, want 2", got)
	}
	if got := lister.callCount("g2"); got != 1 {
		t.Errorf("g2 store reads = %d, want 1", got)
	}
}

func TestGetServesStaleSnapshotOnStoreError(t *testing.T) {
	lister := newCountingLister()
	lister.entries["g1"] = []*models.BlacklistEntry{entry("g1", models.BlacklistKindText, "raid now")}

	cache := NewBlacklistCache(lister, 10*time.Millisecond)
	first, err := cache.Get("g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	lister.mu.Lock()
	lister.err = errors.New("mongo caído")
	lister.mu.Unlock()

	snap, err := cache.Get("g1")
	if err != nil {
		t.Fatalf("Get with stale snapshot available should not fail: %v", err)
	}
	if snap != first {
		t.Error("expected the previous snapshot to be served on store error")
	}

	// Sin snapshot previo el error sí se propaga.
	if _, err := cache.Get("g2"); err == nil {
		t.Error("Get without prior snapshot should surface the store error")
	}
}

func TestConcurrentGetAndInvalidate(t *testing.T) {
	lister := newCountingLister()
	lister.entries["g1"] = []*models.BlacklistEntry{
		entry("g1", models.BlacklistKindText, "raid now"),
		entry("g1", models.BlacklistKindURL, "http://bad.example/x"),
	}

	cache := NewBlacklistCache(lister, time.Millisecond)

	var wg sync.WaitGroup
	var bad int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap, err := cache.Get("g1")
				if err != nil || snap == nil {
					atomic.StoreInt32(&bad, 1)
					return
				}
				// Un snapshot jamás debe observarse a medio construir.
				if snap.Len() != 2 {
					atomic.StoreInt32(&bad, 1)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			cache.Invalidate("g1")
		}
	}()
	wg.Wait()

	if bad != 0 {
		t.Error("concurrent readers observed a partial or missing snapshot")
	}
}
