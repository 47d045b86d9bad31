package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sumatoshi-tech/probe/pkg/cache"
	"github.com/sumatoshi-tech/probe/pkg/selector"
	"github.com/sumatoshi-tech/probe/pkg/uast/pkg/node"
)

func TestASTCache_MissThenHit(t *testing.T) {
	t.Parallel()

	c := cache.NewASTCache(10)
	content := []byte("package p\n")

	_, ok := c.Get("a.go", content)
	assert.False(t, ok)

	root := &node.Node{Type: node.UASTFile}
	c.Put("a.go", content, root)

	got, ok := c.Get("a.go", content)
	assert.True(t, ok)
	assert.Same(t, root, got)

	assert.Equal(t, int64(1), c.CacheHits())
	assert.Equal(t, int64(1), c.CacheMisses())
}

func TestASTCache_DifferentContentIsDifferentEntry(t *testing.T) {
	t.Parallel()

	c := cache.NewASTCache(10)
	c.Put("a.go", []byte("v1"), &node.Node{Type: node.UASTFile})

	_, ok := c.Get("a.go", []byte("v2"))
	assert.False(t, ok)
}

func TestSessionCache_SeenAndMarkSeen(t *testing.T) {
	t.Parallel()

	sc := cache.NewSessionCache(10, time.Hour)
	key := selector.SeenKey{Path: "a.go", Start: 1, End: 5}

	assert.False(t, sc.Seen("s1", key))

	sc.MarkSeen("s1", []selector.SeenKey{key})
	assert.True(t, sc.Seen("s1", key))
}

func TestSessionCache_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	sc := cache.NewSessionCache(10, time.Hour)
	key := selector.SeenKey{Path: "a.go", Start: 1, End: 5}

	sc.MarkSeen("s1", []selector.SeenKey{key})
	assert.False(t, sc.Seen("s2", key))
}

func TestSessionCache_ExpiredSessionForgetsSeenSet(t *testing.T) {
	t.Parallel()

	sc := cache.NewSessionCache(10, time.Millisecond)
	key := selector.SeenKey{Path: "a.go", Start: 1, End: 5}

	sc.MarkSeen("s1", []selector.SeenKey{key})
	time.Sleep(5 * time.Millisecond)

	assert.False(t, sc.Seen("s1", key))
}
