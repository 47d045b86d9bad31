package cache

import (
	"sync"
	"time"

	"github.com/sumatoshi-tech/probe/pkg/alg/lru"
	"github.com/sumatoshi-tech/probe/pkg/selector"
)

// DefaultSessionTTL is how long an idle session's seen-set survives
// (spec 3: "process-scoped session_id -> set<(file,start,end)>").
const DefaultSessionTTL = 30 * time.Minute

type sessionEntry struct {
	mu      sync.Mutex
	seen    map[selector.SeenKey]struct{}
	expires time.Time
}

// SessionCache is the process-scoped session cache of spec 3, keyed by
// session_id. It implements selector.SessionStore (so the selector can
// dedup against previously returned blocks) and
// observability.CacheStatsProvider (so it reports hit/miss metrics like
// the AST cache). Each session's entry has its own lock (spec 3:
// "per-session locking"); the outer LRU lock only ever guards the
// sessions map itself, not a session's contents.
type SessionCache struct {
	mu       sync.Mutex // guards the get-or-create sequence in entryFor; each session's own mu guards its contents
	sessions *lru.Cache[string, *sessionEntry]
	ttl      time.Duration
}

// NewSessionCache builds a SessionCache holding at most maxSessions
// concurrent sessions, each expiring after ttl of inactivity.
func NewSessionCache(maxSessions int, ttl time.Duration) *SessionCache {
	if maxSessions <= 0 {
		maxSessions = 256
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionCache{
		sessions: lru.New[string, *sessionEntry](lru.WithMaxEntries[string, *sessionEntry](maxSessions)),
		ttl:      ttl,
	}
}

func (c *SessionCache) entryFor(sessionID string) *sessionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.sessions.Get(sessionID); ok && time.Now().Before(e.expires) {
		return e
	}

	e := &sessionEntry{seen: make(map[selector.SeenKey]struct{}), expires: time.Now().Add(c.ttl)}
	c.sessions.Put(sessionID, e)

	return e
}

// Seen implements selector.SessionStore.
func (c *SessionCache) Seen(sessionID string, key selector.SeenKey) bool {
	e := c.entryFor(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.seen[key]

	return ok
}

// MarkSeen implements selector.SessionStore.
func (c *SessionCache) MarkSeen(sessionID string, keys []selector.SeenKey) {
	e := c.entryFor(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.expires = time.Now().Add(c.ttl)

	for _, k := range keys {
		e.seen[k] = struct{}{}
	}
}

// CacheHits implements observability.CacheStatsProvider.
func (c *SessionCache) CacheHits() int64 { return c.sessions.CacheHits() }

// CacheMisses implements observability.CacheStatsProvider.
func (c *SessionCache) CacheMisses() int64 { return c.sessions.CacheMisses() }
