package objects

import (
	"sync"

	"github.com/yockey88/DotOther/runtime/interop"
)

// Object is the native side of a managed peer. It owns its proxy and holds
// its registry entry for as long as it is open.
type Object struct {
	handle   interop.ObjectHandle
	proxy    Proxy
	registry *Registry

	mu         sync.Mutex
	registered bool
}

// NewObject wraps target and, when handle is not null, registers the result
// under handle. An object created with the null handle is usable locally but
// unreachable from the managed side.
func NewObject[T any](reg *Registry, handle interop.ObjectHandle, target *T, binding *Binding[T]) (*Object, error) {
	obj := &Object{
		handle:   handle,
		proxy:    NewProxy(target, binding, reg.log),
		registry: reg,
	}
	if !handle.Valid() {
		return obj, nil
	}

	if err := reg.Register(handle, obj); err != nil {
		return nil, err
	}
	obj.registered = true
	return obj, nil
}

// Handle returns the managed handle, or interop.NullObject once closed.
func (o *Object) Handle() interop.ObjectHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle
}

// Proxy returns the object's dispatch proxy.
func (o *Object) Proxy() Proxy {
	return o.proxy
}

// Close removes the object's registration. It is safe to call repeatedly.
func (o *Object) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var err error
	if o.registered {
		err = o.registry.Unregister(o.handle)
		o.registered = false
	}
	o.handle = interop.NullObject
	return err
}

// dropped records that reg forgot the object without a Close.
func (o *Object) dropped(reg *Registry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.registry == reg {
		o.registered = false
	}
}
