package objects

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/internal/logging"
	"github.com/yockey88/DotOther/runtime/interop"
)

// Requirer reports whether the operation table a registry depends on is
// complete. *interop.Table satisfies it.
type Requirer interface {
	Require() error
}

// Registry maps managed object handles to the native objects that answer
// calls made on them. It does not own the objects: each Object registers and
// unregisters itself.
type Registry struct {
	table Requirer
	log   *zap.Logger

	mu      sync.RWMutex
	objects map[interop.ObjectHandle]*Object
}

// NewRegistry creates an empty registry guarded by table.
func NewRegistry(table Requirer, log *zap.Logger) *Registry {
	return &Registry{
		table:   table,
		log:     logging.OrNop(log).Named("objects"),
		objects: make(map[interop.ObjectHandle]*Object),
	}
}

// Register makes obj reachable under handle. Registration is refused when
// the operation table is incomplete (interop.ErrNotBound), when handle or
// obj is null (ErrInvalidRegistration), or when handle is already taken
// (ErrAlreadyRegistered); in the last case the existing entry is kept.
func (r *Registry) Register(handle interop.ObjectHandle, obj *Object) error {
	if err := r.table.Require(); err != nil {
		r.log.Error("cannot register object", zap.Stringer("object", handle), zap.Error(err))
		return fmt.Errorf("register object %s: %w", handle, err)
	}

	if !handle.Valid() || obj == nil || obj.proxy == nil {
		r.log.Error("invalid object registration", zap.Stringer("object", handle))
		return fmt.Errorf("register object %s: %w", handle, ErrInvalidRegistration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[handle]; exists {
		r.log.Warn("object already registered", zap.Stringer("object", handle))
		return fmt.Errorf("register object %s: %w", handle, ErrAlreadyRegistered)
	}

	r.log.Info("registering object", zap.Stringer("object", handle), zap.String("type", obj.proxy.TypeName()))
	r.objects[handle] = obj
	return nil
}

// Unregister forgets handle. A missing handle is logged and reported as
// ErrNotRegistered; other entries are unaffected.
func (r *Registry) Unregister(handle interop.ObjectHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[handle]
	if !ok {
		r.log.Error("object not found", zap.Stringer("object", handle))
		return fmt.Errorf("unregister object %s: %w", handle, ErrNotRegistered)
	}

	r.log.Info("unregistering object", zap.Stringer("object", handle), zap.String("type", obj.proxy.TypeName()))
	delete(r.objects, handle)
	return nil
}

// Lookup returns the object registered under handle, or nil.
func (r *Registry) Lookup(handle interop.ObjectHandle) *Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[handle]
}

// InvokeByName forwards a managed-side call to the object's proxy. An
// unknown handle is logged and ignored. The registry lock is released before
// the member runs, so members may register or unregister objects.
func (r *Registry) InvokeByName(handle interop.ObjectHandle, member string) {
	r.log.Debug("invoking native member", zap.Stringer("object", handle), zap.String("member", member))

	obj := r.Lookup(handle)
	if obj == nil {
		r.log.Error("object not found", zap.Stringer("object", handle), zap.String("member", member))
		return
	}
	obj.proxy.Invoke(member)
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Handles returns the registered handles in ascending order.
func (r *Registry) Handles() []interop.ObjectHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]interop.ObjectHandle, 0, len(r.objects))
	for h := range r.objects {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// Reset drops every registration. The dropped objects are told so, and a
// later Close on them is a quiet no-op.
func (r *Registry) Reset() {
	r.mu.Lock()
	dropped := r.objects
	r.objects = make(map[interop.ObjectHandle]*Object)
	r.mu.Unlock()

	// object locks are taken after the registry lock is released; Close
	// holds them in the opposite order
	for _, obj := range dropped {
		obj.dropped(r)
	}
}
