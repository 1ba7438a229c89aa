package refrt

import (
	"math"

	"fortio.org/safecast"

	"github.com/yockey88/DotOther/runtime/interop"
)

// fill answers one round of the two-phase enumeration protocol.
func fill(list []interop.Handle, out []interop.Handle, count *int32) {
	if count == nil {
		return
	}
	n, err := safecast.Conv[int32](len(list))
	if err != nil {
		n = math.MaxInt32
	}
	if out == nil {
		*count = n
		return
	}
	written, err := safecast.Conv[int32](copy(out, list))
	if err != nil {
		written = math.MaxInt32
	}
	*count = written
}

func relation(h interop.Handle, out *interop.Handle) {
	if out != nil {
		*out = h
	}
}

func (r *Runtime) typeOf(h interop.Handle) *typeInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.types[h]
}

func (r *Runtime) netCoreTypes(out []interop.Handle, count *int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fill(r.core, out, count)
}

func (r *Runtime) asmTypes(asm interop.AssemblyID, out []interop.Handle, count *int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []interop.Handle
	if a, ok := r.assemblies[asm]; ok {
		list = a.types
	}
	fill(list, out, count)
}

func (r *Runtime) typeID(name string, out *interop.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := interop.NullHandle
	if t, ok := r.lookupLocked(name); ok {
		h = t.handle
	}
	relation(h, out)
}

func (r *Runtime) fullTypeName(h interop.Handle) string {
	if t := r.typeOf(h); t != nil {
		return t.name
	}
	return ""
}

func (r *Runtime) asmQualifiedName(h interop.Handle) string {
	if t := r.typeOf(h); t != nil {
		return t.name + ", " + t.assembly
	}
	return ""
}

func (r *Runtime) baseType(h interop.Handle, out *interop.Handle) {
	base := interop.NullHandle
	if t := r.typeOf(h); t != nil {
		base = t.base
	}
	relation(base, out)
}

func (r *Runtime) typeSize(h interop.Handle) int32 {
	if t := r.typeOf(h); t != nil {
		return t.size
	}
	return 0
}

// derivedLocked walks the strict ancestors of h.
func (r *Runtime) derivedLocked(h, base interop.Handle) bool {
	t := r.types[h]
	for t != nil && t.base.Valid() {
		if t.base == base {
			return true
		}
		t = r.types[t.base]
	}
	return false
}

func (r *Runtime) derivedFrom(h, base interop.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.derivedLocked(h, base)
}

func (r *Runtime) assignableTo(h, other interop.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[h]; !ok {
		return false
	}
	return h == other || r.derivedLocked(h, other)
}

func (r *Runtime) assignableFrom(h, other interop.Handle) bool {
	return r.assignableTo(other, h)
}

func (r *Runtime) isSzArray(h interop.Handle) bool {
	t := r.typeOf(h)
	return t != nil && t.array
}

func (r *Runtime) elementType(h interop.Handle, out *interop.Handle) {
	elem := interop.NullHandle
	if t := r.typeOf(h); t != nil {
		elem = t.elem
	}
	relation(elem, out)
}

func (r *Runtime) typeMethods(h interop.Handle, out []interop.Handle, count *int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []interop.Handle
	if t := r.types[h]; t != nil {
		list = t.methods
	}
	fill(list, out, count)
}

func (r *Runtime) typeFields(h interop.Handle, out []interop.Handle, count *int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []interop.Handle
	if t := r.types[h]; t != nil {
		list = t.fields
	}
	fill(list, out, count)
}

func (r *Runtime) typeProperties(h interop.Handle, out []interop.Handle, count *int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []interop.Handle
	if t := r.types[h]; t != nil {
		list = t.properties
	}
	fill(list, out, count)
}

func (r *Runtime) typeAttributes(h interop.Handle, out []interop.Handle, count *int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []interop.Handle
	if t := r.types[h]; t != nil {
		list = t.attributes
	}
	fill(list, out, count)
}

func (r *Runtime) hasTypeAttribute(h, attrType interop.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.types[h]
	if t == nil {
		return false
	}
	for _, a := range t.attributes {
		if info := r.attrs[a]; info != nil && info.typ == attrType {
			return true
		}
	}
	return false
}

func (r *Runtime) managedType(h interop.Handle) interop.ManagedType {
	if t := r.typeOf(h); t != nil {
		return t.kind
	}
	return interop.ManagedUnknown
}

// fields

func (r *Runtime) field(h interop.Handle) *fieldInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fields[h]
}

func (r *Runtime) fieldName(h interop.Handle) string {
	if f := r.field(h); f != nil {
		return f.name
	}
	return ""
}

func (r *Runtime) fieldType(h interop.Handle, out *interop.Handle) {
	typ := interop.NullHandle
	if f := r.field(h); f != nil {
		typ = f.typ
	}
	relation(typ, out)
}

func (r *Runtime) fieldAttributes(h interop.Handle, out []interop.Handle, count *int32) {
	var list []interop.Handle
	if f := r.field(h); f != nil {
		list = f.attributes
	}
	fill(list, out, count)
}

func (r *Runtime) fieldAccessibility(h interop.Handle) interop.TypeAccessibility {
	if f := r.field(h); f != nil {
		return f.access
	}
	return interop.AccessPublic
}

// properties

func (r *Runtime) property(h interop.Handle) *propertyInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.properties[h]
}

func (r *Runtime) propertyName(h interop.Handle) string {
	if p := r.property(h); p != nil {
		return p.name
	}
	return ""
}

func (r *Runtime) propertyType(h interop.Handle, out *interop.Handle) {
	typ := interop.NullHandle
	if p := r.property(h); p != nil {
		typ = p.typ
	}
	relation(typ, out)
}

func (r *Runtime) propertyAttributes(h interop.Handle, out []interop.Handle, count *int32) {
	var list []interop.Handle
	if p := r.property(h); p != nil {
		list = p.attributes
	}
	fill(list, out, count)
}

// attributes

func (r *Runtime) attrValue(attr interop.Handle, field string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.attrs[attr]; a != nil {
		return a.values[field]
	}
	return nil
}

func (r *Runtime) attrType(attr interop.Handle, out *interop.Handle) {
	r.mu.Lock()
	typ := interop.NullHandle
	if a := r.attrs[attr]; a != nil {
		typ = a.typ
	}
	r.mu.Unlock()
	relation(typ, out)
}

// methods

func (r *Runtime) method(h interop.Handle) *methodInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.methods[h]
}

func (r *Runtime) methodName(h interop.Handle) string {
	if m := r.method(h); m != nil {
		return m.name
	}
	return ""
}

func (r *Runtime) methodReturnType(h interop.Handle, out *interop.Handle) {
	ret := interop.NullHandle
	if m := r.method(h); m != nil {
		ret = m.ret
	}
	relation(ret, out)
}

func (r *Runtime) methodParamTypes(h interop.Handle, out []interop.Handle, count *int32) {
	var list []interop.Handle
	if m := r.method(h); m != nil {
		list = m.params
	}
	fill(list, out, count)
}

func (r *Runtime) methodAttributes(h interop.Handle, out []interop.Handle, count *int32) {
	var list []interop.Handle
	if m := r.method(h); m != nil {
		list = m.attributes
	}
	fill(list, out, count)
}

func (r *Runtime) methodAccessibility(h interop.Handle) interop.TypeAccessibility {
	if m := r.method(h); m != nil {
		return m.access
	}
	return interop.AccessPublic
}
