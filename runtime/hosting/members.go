package hosting

import (
	"slices"

	"github.com/yockey88/DotOther/runtime/interop"
)

// Field is a field of a managed type.
type Field struct {
	owner  *Type
	handle interop.Handle

	name  memo[string]
	typ   memo[*Type]
	attrs memo[[]*Attribute]
}

func newField(owner *Type, h interop.Handle) *Field {
	return &Field{owner: owner, handle: h}
}

func (f *Field) Handle() interop.Handle { return f.handle }

// Owner returns the declaring type.
func (f *Field) Owner() *Type { return f.owner }

func (f *Field) Name() string {
	return f.name.get(func() string {
		return f.owner.cache.table.GetFieldName(f.handle)
	})
}

// Type returns the declared type of the field.
func (f *Field) Type() *Type {
	c := f.owner.cache
	return f.typ.get(func() *Type {
		return c.resolveRelation(c.table.GetFieldType, f.handle)
	})
}

func (f *Field) Accessibility() interop.TypeAccessibility {
	return f.owner.cache.table.GetFieldAccessibility(f.handle)
}

func (f *Field) Attributes() []*Attribute {
	c := f.owner.cache
	return slices.Clone(f.attrs.get(func() []*Attribute {
		return c.wrapAttributes(interop.FetchHandles(f.handle, c.table.GetFieldAttributes))
	}))
}

// Property is a property of a managed type.
type Property struct {
	owner  *Type
	handle interop.Handle

	name  memo[string]
	typ   memo[*Type]
	attrs memo[[]*Attribute]
}

func newProperty(owner *Type, h interop.Handle) *Property {
	return &Property{owner: owner, handle: h}
}

func (p *Property) Handle() interop.Handle { return p.handle }

func (p *Property) Owner() *Type { return p.owner }

func (p *Property) Name() string {
	return p.name.get(func() string {
		return p.owner.cache.table.GetPropertyName(p.handle)
	})
}

// Type returns the declared type of the property.
func (p *Property) Type() *Type {
	c := p.owner.cache
	return p.typ.get(func() *Type {
		return c.resolveRelation(c.table.GetPropertyType, p.handle)
	})
}

func (p *Property) Attributes() []*Attribute {
	c := p.owner.cache
	return slices.Clone(p.attrs.get(func() []*Attribute {
		return c.wrapAttributes(interop.FetchHandles(p.handle, c.table.GetPropertyAttributes))
	}))
}

// Method is a method of a managed type.
type Method struct {
	owner  *Type
	handle interop.Handle

	name   memo[string]
	ret    memo[*Type]
	params memo[[]*Type]
	attrs  memo[[]*Attribute]
}

func newMethod(owner *Type, h interop.Handle) *Method {
	return &Method{owner: owner, handle: h}
}

func (m *Method) Handle() interop.Handle { return m.handle }

func (m *Method) Owner() *Type { return m.owner }

func (m *Method) Name() string {
	return m.name.get(func() string {
		return m.owner.cache.table.GetMethodName(m.handle)
	})
}

// ReturnType returns the declared return type.
func (m *Method) ReturnType() *Type {
	c := m.owner.cache
	return m.ret.get(func() *Type {
		return c.resolveRelation(c.table.GetMethodReturnType, m.handle)
	})
}

// ParamTypes returns the parameter types in declaration order. The whole
// list is resolved on first call and cached, including an empty list.
func (m *Method) ParamTypes() []*Type {
	c := m.owner.cache
	return slices.Clone(m.params.get(func() []*Type {
		handles := interop.FetchHandles(m.handle, c.table.GetMethodParamTypes)
		params := make([]*Type, len(handles))
		for i, h := range handles {
			params[i] = c.CacheType(h)
		}
		return params
	}))
}

// Arity returns the number of parameters.
func (m *Method) Arity() int {
	return len(m.ParamTypes())
}

func (m *Method) Accessibility() interop.TypeAccessibility {
	return m.owner.cache.table.GetMethodAccessibility(m.handle)
}

func (m *Method) Attributes() []*Attribute {
	c := m.owner.cache
	return slices.Clone(m.attrs.get(func() []*Attribute {
		return c.wrapAttributes(interop.FetchHandles(m.handle, c.table.GetMethodAttributes))
	}))
}

// Attribute is an attribute instance applied to a type or member.
type Attribute struct {
	cache  *TypeCache
	handle interop.Handle

	typ memo[*Type]
}

func newAttribute(c *TypeCache, h interop.Handle) *Attribute {
	return &Attribute{cache: c, handle: h}
}

func (a *Attribute) Handle() interop.Handle { return a.handle }

// Type returns the attribute's class.
func (a *Attribute) Type() *Type {
	return a.typ.get(func() *Type {
		return a.cache.resolveRelation(a.cache.table.GetAttrType, a.handle)
	})
}

// Value reads a field of the attribute instance.
func (a *Attribute) Value(field string) any {
	return a.cache.table.GetAttrValue(a.handle, field)
}
