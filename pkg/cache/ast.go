// Package cache adapts the teacher's generic pkg/alg/lru into Probe's two
// caches: a process-wide parsed-AST cache keyed by file content, and the
// process-scoped per-session "seen blocks" cache spec 3 describes. Both
// implement observability.CacheStatsProvider so pkg/probe can register
// them with RegisterCacheMetrics.
package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/sumatoshi-tech/probe/pkg/alg/lru"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

// DefaultASTCacheEntries bounds the parsed-AST cache (spec 5: parsing is
// the CPU-bound step worth memoizing across a process's requests).
const DefaultASTCacheEntries = 512

type astKey struct {
	path string
	hash string
}

// ASTCache memoizes parsed trees by (path, content hash) so re-scanning
// unchanged files across requests (or across a single request's
// walk/expand/structural-match stages) doesn't reparse.
type ASTCache struct {
	cache *lru.Cache[astKey, *node.Node]
}

// NewASTCache builds an ASTCache holding at most maxEntries trees.
func NewASTCache(maxEntries int) *ASTCache {
	if maxEntries <= 0 {
		maxEntries = DefaultASTCacheEntries
	}

	return &ASTCache{cache: lru.New[astKey, *node.Node](lru.WithMaxEntries[astKey, *node.Node](maxEntries))}
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)

	return hex.EncodeToString(sum[:])
}

// Get returns the cached tree for path/content, if present.
func (c *ASTCache) Get(path string, content []byte) (*node.Node, bool) {
	return c.cache.Get(astKey{path: path, hash: hashContent(content)})
}

// Put stores root as the parsed tree for path/content.
func (c *ASTCache) Put(path string, content []byte, root *node.Node) {
	c.cache.Put(astKey{path: path, hash: hashContent(content)}, root)
}

// CacheHits implements observability.CacheStatsProvider.
func (c *ASTCache) CacheHits() int64 { return c.cache.CacheHits() }

// CacheMisses implements observability.CacheStatsProvider.
func (c *ASTCache) CacheMisses() int64 { return c.cache.CacheMisses() }
