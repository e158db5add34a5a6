// Package database provides the BlacklistCache, the read-through snapshot
// cache that keeps the message hot path away from mongo.
package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
)

// DefaultBlacklistCacheTTL bounds how stale a guild snapshot may get before
// the next read refreshes it from the registry.
const DefaultBlacklistCacheTTL = 60 * time.Second

// EntryLister is the slice of the registry the cache needs. Satisfied by
// *BlacklistService; tests substitute a counting double.
type EntryLister interface {
	ListByGuild(guildID string) ([]*models.BlacklistEntry, error)
}

// BlacklistSnapshot is an immutable, timestamped copy of one guild's
// entries, partitioned by kind. Readers share it; it is never mutated after
// construction, only replaced wholesale.
type BlacklistSnapshot struct {
	Text      []*models.BlacklistEntry
	URL       []*models.BlacklistEntry
	Image     []*models.BlacklistEntry
	FetchedAt time.Time
}

// Len returns the total number of entries in the snapshot.
func (s *BlacklistSnapshot) Len() int {
	return len(s.Text) + len(s.URL) + len(s.Image)
}

// BlacklistCache caches one snapshot per guild with a TTL. Administrative
// mutations call Invalidate so fresh entries are visible immediately; the
// TTL only bounds staleness introduced by other processes.
type BlacklistCache struct {
	lister    EntryLister
	ttl       time.Duration
	mu        sync.RWMutex
	snapshots map[string]*BlacklistSnapshot
}

// NewBlacklistCache creates a cache over the given registry view. A
// non-positive ttl falls back to DefaultBlacklistCacheTTL.
func NewBlacklistCache(lister EntryLister, ttl time.Duration) *BlacklistCache {
	if ttl <= 0 {
		ttl = DefaultBlacklistCacheTTL
	}
	return &BlacklistCache{
		lister:    lister,
		ttl:       ttl,
		snapshots: make(map[string]*BlacklistSnapshot),
	}
}

// Get returns the guild's snapshot, refreshing from the registry when the
// cached one is missing or older than the TTL.
func (c *BlacklistCache) Get(guildID string) (*BlacklistSnapshot, error) {
	c.mu.RLock()
	snap, ok := c.snapshots[guildID]
	c.mu.RUnlock()

	if ok && time.Since(snap.FetchedAt) < c.ttl {
		return snap, nil
	}

	entries, err := c.lister.ListByGuild(guildID)
	if err != nil {
		// Con un snapshot viejo disponible es preferible servirlo a fallar
		// el pipeline completo.
		if ok {
			logger.Warn(fmt.Sprintf("Refresco de blacklist falló para guild %s, usando snapshot previo: %v", guildID, err), "BlacklistCache")
			return snap, nil
		}
		return nil, err
	}

	fresh := buildSnapshot(entries)

	c.mu.Lock()
	c.snapshots[guildID] = fresh
	c.mu.Unlock()

	logger.Debug(fmt.Sprintf("Snapshot de blacklist refrescado: guild=%s entradas=%d", guildID, fresh.Len()), "BlacklistCache")
	return fresh, nil
}

// Invalidate drops a guild's snapshot so the next Get hits the registry.
// Called by the administrative layer after every insert/remove.
func (c *BlacklistCache) Invalidate(guildID string) {
	c.mu.Lock()
	delete(c.snapshots, guildID)
	c.mu.Unlock()
}

// Size returns the number of cached guild snapshots.
func (c *BlacklistCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshots)
}

// buildSnapshot partitions entries by kind into a fresh snapshot.
func buildSnapshot(entries []*models.BlacklistEntry) *BlacklistSnapshot {
	snap := &BlacklistSnapshot{FetchedAt: time.Now()}
	for _, entry := range entries {
		switch entry.Kind {
		case models.BlacklistKindText:
			snap.Text = append(snap.Text, entry)
		case models.BlacklistKindURL:
			snap.URL = append(snap.URL, entry)
		case models.BlacklistKindImage:
			snap.Image = append(snap.Image, entry)
		default:
			logger.Warn(fmt.Sprintf("Entrada de blacklist con kind desconocido: %s", entry.Kind), "BlacklistCache")
		}
	}
	return snap
}
