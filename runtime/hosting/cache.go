package hosting

import (
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yockey88/DotOther/internal/logging"
	"github.com/yockey88/DotOther/runtime/interop"
)

// TypeCache interns Type records by handle and indexes them by full name.
//
// Interning is check-then-insert: CacheType returns the existing record for a
// handle instead of wrapping it again, and concurrent first requests for one
// handle share a single construction. The name index keeps the first record
// cached under a name; a later handle reporting the same name is still
// interned by handle but does not replace the name entry.
type TypeCache struct {
	table *interop.Table
	log   *zap.Logger
	null  *Type

	group singleflight.Group

	mu     sync.RWMutex
	byName map[string]*Type
	byID   map[interop.Handle]*Type
}

// NewTypeCache creates an empty cache resolving through table.
func NewTypeCache(table *interop.Table, log *zap.Logger) *TypeCache {
	c := &TypeCache{
		table:  table,
		log:    logging.OrNop(log).Named("types"),
		byName: make(map[string]*Type),
		byID:   make(map[interop.Handle]*Type),
	}
	c.null = newType(c, interop.NullHandle)
	return c
}

// Null returns the sentinel record (handle -1) handed out for lookups that
// miss and relations that do not exist.
func (c *TypeCache) Null() *Type {
	return c.null
}

// CacheType returns the canonical record for h, creating, initializing and
// indexing it on first request. The null handle yields the sentinel, which is
// never indexed. So does any handle while the table is incomplete, since the
// record could not be initialized.
func (c *TypeCache) CacheType(h interop.Handle) *Type {
	if !h.Valid() {
		return c.null
	}
	if t := c.lookup(h); t != nil {
		return t
	}
	if err := c.table.Require(); err != nil {
		c.log.Error("cannot cache type", zap.Int32("handle", int32(h)), zap.Error(err))
		return c.null
	}

	v, _, _ := c.group.Do(strconv.FormatInt(int64(h), 10), func() (any, error) {
		if t := c.lookup(h); t != nil {
			return t, nil
		}

		t := newType(c, h)
		t.Init()
		name := t.FullName()

		c.mu.Lock()
		c.byID[h] = t
		if prev, ok := c.byName[name]; ok {
			c.log.Warn("type name already cached under another handle",
				zap.String("type", name),
				zap.Int32("handle", int32(h)),
				zap.Int32("cached_handle", int32(prev.handle)))
		} else {
			c.byName[name] = t
		}
		c.mu.Unlock()

		c.log.Debug("cached type", zap.String("type", name), zap.Int32("handle", int32(h)))
		return t, nil
	})
	return v.(*Type)
}

func (c *TypeCache) lookup(h interop.Handle) *Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[h]
}

// GetType looks a cached type up by full name. A miss is an expected
// "not loaded yet" condition and returns nil.
func (c *TypeCache) GetType(name string) *Type {
	c.mu.RLock()
	t, ok := c.byName[name]
	c.mu.RUnlock()

	if !ok {
		c.log.Debug("type not cached", zap.String("type", name))
		return nil
	}
	return t
}

// GetTypeByHandle looks a cached type up by handle. Handles normally reach
// the native side only through CacheType, so a miss is logged as an error.
func (c *TypeCache) GetTypeByHandle(h interop.Handle) *Type {
	t := c.lookup(h)
	if t == nil {
		c.log.Error("type not found", zap.Int32("handle", int32(h)))
	}
	return t
}

// Resolve returns the type named name, asking the runtime for its handle
// when the name has not been cached yet. It never returns nil: unknown names
// yield the sentinel.
func (c *TypeCache) Resolve(name string) *Type {
	c.mu.RLock()
	t, ok := c.byName[name]
	c.mu.RUnlock()
	if ok {
		return t
	}

	if err := c.table.Require(); err != nil {
		c.log.Error("cannot resolve type", zap.String("type", name), zap.Error(err))
		return c.null
	}
	h := interop.NullHandle
	c.table.GetTypeID(name, &h)
	return c.CacheType(h)
}

// Types returns every interned record ordered by handle.
func (c *TypeCache) Types() []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	types := make([]*Type, 0, len(c.byID))
	for _, t := range c.byID {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].handle < types[j].handle })
	return types
}

// Len returns the number of interned records.
func (c *TypeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Reset forgets every record. Records already handed out stay usable but are
// no longer canonical.
func (c *TypeCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName = make(map[string]*Type)
	c.byID = make(map[interop.Handle]*Type)
}
