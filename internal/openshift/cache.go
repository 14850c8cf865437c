package openshift

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// LoadFunc fetches the full collection of kind owned by scope
type LoadFunc func(ctx context.Context, kind Kind, scope Scope) (map[string]Resource, error)

// ResourceCache holds one collection per (scope, kind). Entries are filled
// lazily, reused until invalidated and replaced wholesale on a forced
// refresh. A session owns one cache and must not share it across goroutines.
type ResourceCache struct {
	entries *gocache.Cache
	load    LoadFunc
	log     logrus.FieldLogger
}

// NewResourceCache creates a cache that fetches through load. A positive ttl
// also expires entries; zero keeps them until invalidated.
func NewResourceCache(ttl time.Duration, load LoadFunc, log logrus.FieldLogger) *ResourceCache {
	expiration, cleanup := gocache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &ResourceCache{
		entries: gocache.New(expiration, cleanup),
		load:    load,
		log:     log.WithField("component", "cache"),
	}
}

func entryKey(scope Scope, kind Kind) string {
	return scope.ScopeKey() + "|" + string(kind)
}

// Get returns the collection of kind owned by scope, fetching it when it is
// missing or force is set
func (c *ResourceCache) Get(ctx context.Context, kind Kind, scope Scope, force bool) (map[string]Resource, error) {
	return c.GetWith(ctx, kind, scope, force, c.load)
}

// GetWith is Get with a custom loader, used for collections derived from a
// sibling collection
func (c *ResourceCache) GetWith(ctx context.Context, kind Kind, scope Scope, force bool, load LoadFunc) (map[string]Resource, error) {
	key := entryKey(scope, kind)
	if !force {
		if v, ok := c.entries.Get(key); ok {
			return v.(map[string]Resource), nil
		}
	}

	items, err := load(ctx, kind, scope)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Failed to load collection")
		return nil, err
	}

	if old, ok := c.entries.Get(key); ok {
		c.dropDescendants(old)
	}
	c.entries.Set(key, items, gocache.DefaultExpiration)
	c.log.WithFields(logrus.Fields{"key": key, "items": len(items), "forced": force, "entries": c.entries.ItemCount()}).Debug("Loaded collection")
	return items, nil
}

// Loaded reports whether the collection is currently cached
func (c *ResourceCache) Loaded(scope Scope, kind Kind) bool {
	_, ok := c.entries.Get(entryKey(scope, kind))
	return ok
}

// InvalidateKind drops one collection and everything cached below its items
func (c *ResourceCache) InvalidateKind(scope Scope, kind Kind) {
	key := entryKey(scope, kind)
	if old, ok := c.entries.Get(key); ok {
		c.entries.Delete(key)
		c.dropDescendants(old)
	}
}

// dropDescendants evicts the collections derived from the items of a
// replaced or dropped entry. Their scope keys are never produced again.
func (c *ResourceCache) dropDescendants(entry any) {
	items, _ := entry.(map[string]Resource)
	for _, r := range items {
		c.Invalidate(r.Base())
	}
}

// Invalidate drops every collection owned by scope or by any scope below it
func (c *ResourceCache) Invalidate(scope Scope) {
	base := scope.ScopeKey()
	own, nested := base+"|", base+"/"
	for key := range c.entries.Items() {
		if strings.HasPrefix(key, own) || strings.HasPrefix(key, nested) {
			c.entries.Delete(key)
		}
	}
}

// Flush drops everything
func (c *ResourceCache) Flush() {
	c.entries.Flush()
}
