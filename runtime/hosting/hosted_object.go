package hosting

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/runtime/interop"
)

// ErrDestroyed is returned for calls on a HostedObject after Destroy.
var ErrDestroyed = errors.New("hosted object destroyed")

// HostedObject is a managed instance created from the native side.
type HostedObject struct {
	typ *Type

	mu     sync.Mutex
	handle interop.ObjectHandle
}

// New creates an instance of t, passing args to the managed constructor.
func (t *Type) New(args ...any) (*HostedObject, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("new instance: %w", interop.ErrInvalidHandle)
	}
	if err := t.cache.table.Require(); err != nil {
		return nil, fmt.Errorf("new %s: %w", t.FullName(), err)
	}

	handle := t.cache.table.CreateObject(t.handle, false, args, argTypes(args))
	if !handle.Valid() {
		t.cache.log.Error("failed to create managed object", zap.String("type", t.FullName()))
		return nil, fmt.Errorf("new %s: runtime returned a null object", t.FullName())
	}
	t.cache.log.Debug("created managed object", zap.String("type", t.FullName()), zap.Stringer("object", handle))
	return &HostedObject{typ: t, handle: handle}, nil
}

// InvokeStatic calls a static method of t.
func (t *Type) InvokeStatic(method string, args ...any) error {
	if !t.Valid() {
		return fmt.Errorf("invoke static %s: %w", method, interop.ErrInvalidHandle)
	}
	if err := t.cache.table.Require(); err != nil {
		return fmt.Errorf("invoke static %s: %w", method, err)
	}
	t.cache.table.InvokeStaticMethod(t.handle, method, args, argTypes(args))
	return nil
}

// InvokeStaticRet calls a static method of t and returns its result.
func (t *Type) InvokeStaticRet(method string, args ...any) (any, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invoke static %s: %w", method, interop.ErrInvalidHandle)
	}
	if err := t.cache.table.Require(); err != nil {
		return nil, fmt.Errorf("invoke static %s: %w", method, err)
	}
	return t.cache.table.InvokeStaticMethodRet(t.handle, method, args, argTypes(args)), nil
}

// Type returns the instance's type.
func (o *HostedObject) Type() *Type { return o.typ }

// Handle returns the managed handle, or interop.NullObject once destroyed.
func (o *HostedObject) Handle() interop.ObjectHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle
}

func (o *HostedObject) live() (interop.ObjectHandle, *interop.Table, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.handle.Valid() {
		return interop.NullObject, nil, ErrDestroyed
	}
	table := o.typ.cache.table
	if err := table.Require(); err != nil {
		return interop.NullObject, nil, err
	}
	return o.handle, table, nil
}

// Invoke calls an instance method for its side effects.
func (o *HostedObject) Invoke(method string, args ...any) error {
	h, table, err := o.live()
	if err != nil {
		return fmt.Errorf("invoke %s: %w", method, err)
	}
	table.InvokeMethod(h, method, args, argTypes(args))
	return nil
}

// InvokeRet calls an instance method and returns its result.
func (o *HostedObject) InvokeRet(method string, args ...any) (any, error) {
	h, table, err := o.live()
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", method, err)
	}
	return table.InvokeMethodRet(h, method, args, argTypes(args)), nil
}

func (o *HostedObject) SetField(name string, value any) error {
	h, table, err := o.live()
	if err != nil {
		return fmt.Errorf("set field %s: %w", name, err)
	}
	table.SetField(h, name, value)
	return nil
}

func (o *HostedObject) GetField(name string) (any, error) {
	h, table, err := o.live()
	if err != nil {
		return nil, fmt.Errorf("get field %s: %w", name, err)
	}
	return table.GetField(h, name), nil
}

func (o *HostedObject) SetProperty(name string, value any) error {
	h, table, err := o.live()
	if err != nil {
		return fmt.Errorf("set property %s: %w", name, err)
	}
	table.SetProperty(h, name, value)
	return nil
}

func (o *HostedObject) GetProperty(name string) (any, error) {
	h, table, err := o.live()
	if err != nil {
		return nil, fmt.Errorf("get property %s: %w", name, err)
	}
	return table.GetProperty(h, name), nil
}

// Destroy releases the managed instance. Later calls do nothing.
func (o *HostedObject) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.handle.Valid() {
		return
	}
	if destroy := o.typ.cache.table.DestroyObject; destroy != nil {
		destroy(o.handle)
	}
	o.handle = interop.NullObject
}

func argTypes(args []any) []interop.ManagedType {
	if len(args) == 0 {
		return nil
	}
	types := make([]interop.ManagedType, len(args))
	for i, a := range args {
		types[i] = interop.ManagedTypeOf(a)
	}
	return types
}
