package refrt

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/runtime/interop"
)

// ErrNoInbound is returned by CallNative before a native surface is attached.
var ErrNoInbound = errors.New("no native surface attached")

// Instance is a managed object living in the runtime.
type Instance struct {
	rt       *Runtime
	handle   interop.ObjectHandle
	typ      interop.Handle
	typeName string
	weak     bool

	mu     sync.Mutex
	fields map[string]any
	props  map[string]any
}

func (i *Instance) Handle() interop.ObjectHandle { return i.handle }

func (i *Instance) TypeName() string { return i.typeName }

func (i *Instance) Field(name string) any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fields[name]
}

func (i *Instance) SetField(name string, v any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fields[name] = v
}

func (i *Instance) Property(name string) any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.props[name]
}

func (i *Instance) SetProperty(name string, v any) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.props[name] = v
}

// CallNative dispatches member on the native object registered under this
// instance's handle.
func (i *Instance) CallNative(member string) error {
	i.rt.mu.Lock()
	in := i.rt.inbound
	i.rt.mu.Unlock()
	if in == nil {
		return ErrNoInbound
	}
	in.InvokeNativeFunction(i.handle, member)
	return nil
}

// bodyLocked finds typeName::method on t or its nearest ancestor.
func (r *Runtime) bodyLocked(h interop.Handle, method string) Body {
	for t := r.types[h]; t != nil; t = r.types[t.base] {
		if b, ok := r.bodies[t.name+"::"+method]; ok {
			return b
		}
	}
	return nil
}

func (r *Runtime) createObject(h interop.Handle, weak bool, args []any, _ []interop.ManagedType) interop.ObjectHandle {
	r.mu.Lock()
	t := r.types[h]
	if t == nil {
		r.mu.Unlock()
		r.log.Error("cannot create object of unknown type", zap.Int32("type", int32(h)))
		return interop.NullObject
	}

	inst := &Instance{
		rt:       r,
		handle:   r.nextObject,
		typ:      h,
		typeName: t.name,
		weak:     weak,
		fields:   make(map[string]any),
		props:    make(map[string]any),
	}
	r.nextObject++
	for cur := t; cur != nil; cur = r.types[cur.base] {
		for _, fh := range cur.fields {
			f := r.fields[fh]
			if _, shadowed := inst.fields[f.name]; !shadowed {
				inst.fields[f.name] = zeroFor(r.kindLocked(f.typ))
			}
		}
		for _, ph := range cur.properties {
			p := r.properties[ph]
			if _, shadowed := inst.props[p.name]; !shadowed {
				inst.props[p.name] = zeroFor(r.kindLocked(p.typ))
			}
		}
	}
	r.objects[inst.handle] = inst
	ctor := r.bodyLocked(h, ".ctor")
	r.mu.Unlock()

	if ctor != nil {
		ctor(inst, args)
	} else if len(args) > 0 {
		r.log.Warn("no constructor accepts arguments",
			zap.String("type", t.name),
			zap.Int("args", len(args)),
		)
	}
	return inst.handle
}

func (r *Runtime) kindLocked(h interop.Handle) interop.ManagedType {
	if t := r.types[h]; t != nil {
		return t.kind
	}
	return interop.ManagedUnknown
}

func (r *Runtime) destroyObject(obj interop.ObjectHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[obj]; !ok {
		r.log.Warn("destroying unknown object", zap.Stringer("handle", obj))
		return
	}
	delete(r.objects, obj)
}

// instanceBody resolves the live instance and the body for method.
func (r *Runtime) instanceBody(obj interop.ObjectHandle, method string) (*Instance, Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst := r.objects[obj]
	if inst == nil {
		r.log.Warn("no such object", zap.Stringer("handle", obj), zap.String("member", method))
		return nil, nil
	}
	return inst, r.bodyLocked(inst.typ, method)
}

func (r *Runtime) invoke(obj interop.ObjectHandle, method string, args []any, _ []interop.ManagedType) any {
	inst, body := r.instanceBody(obj, method)
	if inst == nil {
		return nil
	}
	if body == nil {
		r.log.Warn("method has no body",
			zap.String("type", inst.typeName),
			zap.String("method", method),
		)
		return nil
	}
	return body(inst, args)
}

func (r *Runtime) invokeMethod(obj interop.ObjectHandle, method string, args []any, types []interop.ManagedType) {
	r.invoke(obj, method, args, types)
}

func (r *Runtime) invokeStatic(h interop.Handle, method string, args []any, _ []interop.ManagedType) any {
	r.mu.Lock()
	body := r.bodyLocked(h, method)
	r.mu.Unlock()
	if body == nil {
		r.log.Warn("static method has no body",
			zap.Int32("type", int32(h)),
			zap.String("method", method),
		)
		return nil
	}
	return body(nil, args)
}

func (r *Runtime) invokeStaticMethod(h interop.Handle, method string, args []any, types []interop.ManagedType) {
	r.invokeStatic(h, method, args, types)
}

func (r *Runtime) setField(obj interop.ObjectHandle, name string, value any) {
	if inst, _ := r.instanceBody(obj, ""); inst != nil {
		inst.SetField(name, value)
	}
}

func (r *Runtime) getField(obj interop.ObjectHandle, name string) any {
	if inst, _ := r.instanceBody(obj, ""); inst != nil {
		return inst.Field(name)
	}
	return nil
}

func (r *Runtime) setProperty(obj interop.ObjectHandle, name string, value any) {
	inst, setter := r.instanceBody(obj, "set_"+name)
	switch {
	case inst == nil:
	case setter != nil:
		setter(inst, []any{value})
	default:
		inst.SetProperty(name, value)
	}
}

func (r *Runtime) getProperty(obj interop.ObjectHandle, name string) any {
	inst, getter := r.instanceBody(obj, "get_"+name)
	switch {
	case inst == nil:
		return nil
	case getter != nil:
		return getter(inst, nil)
	default:
		return inst.Property(name)
	}
}

// internal calls

func (r *Runtime) setInternalCalls(calls []interop.InternalCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range calls {
		r.calls[c.Name] = c.Fn
	}
	r.log.Debug("installed internal calls", zap.Int("count", len(calls)))
}

func (r *Runtime) setInternalCall(name string, fn uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name] = fn
}

// runtime control

// collectGarbage drops every weakly created object.
func (r *Runtime) collectGarbage(generation int32, mode interop.GCMode, blocking, compacting bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Collections++
	for h, inst := range r.objects {
		if inst.weak {
			delete(r.objects, h)
			r.stats.Collected++
		}
	}
	r.log.Debug("collected garbage",
		zap.Int32("generation", generation),
		zap.Int32("mode", int32(mode)),
		zap.Bool("blocking", blocking),
		zap.Bool("compacting", compacting),
	)
}

func (r *Runtime) waitForPendingFinalizers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.FinalizerWaits++
}

// Table returns an operation table with every primitive bound to r.
func (r *Runtime) Table() *interop.Table {
	return &interop.Table{
		CreateAssemblyLoadContext: r.createContext,
		UnloadAssemblyLoadContext: r.unloadContext,
		LoadAssembly:              r.loadAssembly,
		GetLastLoadStatus:         r.lastLoadStatus,
		GetAssemblyName:           r.assemblyName,

		GetNetCoreTypes:     r.netCoreTypes,
		GetAsmTypes:         r.asmTypes,
		GetTypeID:           r.typeID,
		GetFullTypeName:     r.fullTypeName,
		GetAsmQualifiedName: r.asmQualifiedName,
		GetBaseType:         r.baseType,
		GetTypeSize:         r.typeSize,
		IsTypeDerivedFrom:   r.derivedFrom,
		IsAssignableTo:      r.assignableTo,
		IsAssignableFrom:    r.assignableFrom,
		IsTypeSzArray:       r.isSzArray,
		GetElementType:      r.elementType,
		GetTypeMethods:      r.typeMethods,
		GetTypeFields:       r.typeFields,
		GetTypeProperties:   r.typeProperties,
		HasTypeAttribute:    r.hasTypeAttribute,
		GetTypeAttributes:   r.typeAttributes,
		GetTypeManagedType:  r.managedType,

		GetFieldName:          r.fieldName,
		GetFieldType:          r.fieldType,
		GetFieldAttributes:    r.fieldAttributes,
		GetFieldAccessibility: r.fieldAccessibility,

		GetPropertyName:       r.propertyName,
		GetPropertyType:       r.propertyType,
		GetPropertyAttributes: r.propertyAttributes,

		GetAttrValue: r.attrValue,
		GetAttrType:  r.attrType,

		GetMethodName:          r.methodName,
		GetMethodReturnType:    r.methodReturnType,
		GetMethodParamTypes:    r.methodParamTypes,
		GetMethodAttributes:    r.methodAttributes,
		GetMethodAccessibility: r.methodAccessibility,

		SetInternalCalls: r.setInternalCalls,
		SetInternalCall:  r.setInternalCall,

		CreateObject:          r.createObject,
		DestroyObject:         r.destroyObject,
		InvokeMethod:          r.invokeMethod,
		InvokeMethodRet:       r.invoke,
		InvokeStaticMethod:    r.invokeStaticMethod,
		InvokeStaticMethodRet: r.invokeStatic,
		SetField:              r.setField,
		GetField:              r.getField,
		SetProperty:           r.setProperty,
		GetProperty:           r.getProperty,

		CollectGarbage:           r.collectGarbage,
		WaitForPendingFinalizers: r.waitForPendingFinalizers,
	}
}
