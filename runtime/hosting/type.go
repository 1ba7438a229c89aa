package hosting

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/runtime/interop"
)

// Type is the cached metadata record for one managed type handle.
type Type struct {
	cache  *TypeCache
	handle interop.Handle

	initMu      sync.Mutex
	initialized bool
	methods     []*Method
	fields      []*Field
	properties  []*Property
	attributes  []*Attribute

	name memo[string]
	size memo[int32]
	base memo[*Type]
	elem memo[*Type]
}

func newType(c *TypeCache, h interop.Handle) *Type {
	return &Type{cache: c, handle: h}
}

// Handle returns the managed handle.
func (t *Type) Handle() interop.Handle {
	return t.handle
}

// Valid reports whether t is a real type rather than the sentinel.
func (t *Type) Valid() bool {
	return t != nil && t.handle.Valid()
}

// Equal compares records by handle.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.handle == other.handle
}

// Init enumerates the type's methods, fields, properties and attributes.
// It runs at most once; later calls and calls on the sentinel do nothing.
func (t *Type) Init() {
	if !t.Valid() {
		return
	}

	t.initMu.Lock()
	defer t.initMu.Unlock()
	if t.initialized {
		return
	}

	table := t.cache.table
	for _, h := range interop.FetchHandles(t.handle, table.GetTypeMethods) {
		t.methods = append(t.methods, newMethod(t, h))
	}
	for _, h := range interop.FetchHandles(t.handle, table.GetTypeFields) {
		t.fields = append(t.fields, newField(t, h))
	}
	for _, h := range interop.FetchHandles(t.handle, table.GetTypeProperties) {
		t.properties = append(t.properties, newProperty(t, h))
	}
	t.attributes = t.cache.wrapAttributes(interop.FetchHandles(t.handle, table.GetTypeAttributes))

	t.initialized = true
	t.cache.log.Debug("initialized type", zap.String("type", t.FullName()), zap.Int32("handle", int32(t.handle)))
}

// Initialized reports whether Init has completed.
func (t *Type) Initialized() bool {
	t.initMu.Lock()
	defer t.initMu.Unlock()
	return t.initialized
}

// Methods returns the type's methods in runtime order.
func (t *Type) Methods() []*Method {
	t.Init()
	return slices.Clone(t.methods)
}

// Fields returns the type's fields in runtime order.
func (t *Type) Fields() []*Field {
	t.Init()
	return slices.Clone(t.fields)
}

// Properties returns the type's properties in runtime order.
func (t *Type) Properties() []*Property {
	t.Init()
	return slices.Clone(t.properties)
}

// Attributes returns the attributes applied to the type.
func (t *Type) Attributes() []*Attribute {
	t.Init()
	return slices.Clone(t.attributes)
}

// Field returns the first field called name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields() {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// Method returns the first method called name, or nil.
func (t *Type) Method(name string) *Method {
	for _, m := range t.Methods() {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// Property returns the first property called name, or nil.
func (t *Type) Property(name string) *Property {
	for _, p := range t.Properties() {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// FullName returns the namespace-qualified name. The sentinel has none.
func (t *Type) FullName() string {
	if !t.Valid() {
		return ""
	}
	return t.name.get(func() string {
		return t.cache.table.GetFullTypeName(t.handle)
	})
}

// AsmQualifiedName returns the assembly-qualified name.
func (t *Type) AsmQualifiedName() string {
	if !t.Valid() {
		return ""
	}
	return t.cache.table.GetAsmQualifiedName(t.handle)
}

// Size returns the managed size of the type in bytes.
func (t *Type) Size() int32 {
	if !t.Valid() {
		return 0
	}
	return t.size.get(func() int32 {
		return t.cache.table.GetTypeSize(t.handle)
	})
}

// BaseObject returns the base type, or the sentinel when there is none.
func (t *Type) BaseObject() *Type {
	if !t.Valid() {
		return t.cache.null
	}
	return t.base.get(func() *Type {
		return t.cache.resolveRelation(t.cache.table.GetBaseType, t.handle)
	})
}

// IsArray reports whether t is a single-dimension zero-based array.
func (t *Type) IsArray() bool {
	if !t.Valid() {
		return false
	}
	return t.cache.table.IsTypeSzArray(t.handle)
}

// ElementType returns the array element type. Check IsArray first: for other
// types the result is whatever the runtime reports, normally the sentinel.
func (t *Type) ElementType() *Type {
	if !t.Valid() {
		return t.cache.null
	}
	return t.elem.get(func() *Type {
		return t.cache.resolveRelation(t.cache.table.GetElementType, t.handle)
	})
}

// BaseResolved reports whether BaseObject has queried the runtime yet.
func (t *Type) BaseResolved() bool {
	return t.base.resolved()
}

// ElementResolved reports whether ElementType has queried the runtime yet.
func (t *Type) ElementResolved() bool {
	return t.elem.resolved()
}

// DerivedFrom reports whether t derives from other.
func (t *Type) DerivedFrom(other *Type) bool {
	if !t.Valid() || !other.Valid() {
		return false
	}
	return t.cache.table.IsTypeDerivedFrom(t.handle, other.handle)
}

// AssignableTo reports whether a value of t can be assigned to other.
func (t *Type) AssignableTo(other *Type) bool {
	if !t.Valid() || !other.Valid() {
		return false
	}
	return t.cache.table.IsAssignableTo(t.handle, other.handle)
}

// AssignableFrom reports whether a value of other can be assigned to t.
func (t *Type) AssignableFrom(other *Type) bool {
	if !t.Valid() || !other.Valid() {
		return false
	}
	return t.cache.table.IsAssignableFrom(t.handle, other.handle)
}

// HasAttribute reports whether an attribute of type attr is applied to t.
func (t *Type) HasAttribute(attr *Type) bool {
	if !t.Valid() || !attr.Valid() {
		return false
	}
	return t.cache.table.HasTypeAttribute(t.handle, attr.handle)
}

// ManagedType returns the primitive kind tag of the type.
func (t *Type) ManagedType() interop.ManagedType {
	if !t.Valid() {
		return interop.ManagedUnknown
	}
	return t.cache.table.GetTypeManagedType(t.handle)
}

func (t *Type) String() string {
	if !t.Valid() {
		return "(null-type)"
	}
	return t.FullName()
}

// resolveRelation queries a related handle and interns it.
func (c *TypeCache) resolveRelation(query interop.RelationFunc, h interop.Handle) *Type {
	related := interop.NullHandle
	query(h, &related)
	return c.CacheType(related)
}

func (c *TypeCache) wrapAttributes(handles []interop.Handle) []*Attribute {
	if len(handles) == 0 {
		return nil
	}
	attrs := make([]*Attribute, 0, len(handles))
	for _, h := range handles {
		attrs = append(attrs, newAttribute(c, h))
	}
	return attrs
}
