package interop

import (
	"reflect"
)

// Enumerate functions follow the two-phase protocol: called with a nil out
// slice they store the number of handles in count; called again with a slice
// of that length they fill it and store the number written.
type (
	EnumerateFunc         func(owner Handle, out []Handle, count *int32)
	EnumerateAssemblyFunc func(asm AssemblyID, out []Handle, count *int32)
	EnumerateCoreFunc     func(out []Handle, count *int32)
)

// Relation functions store the related handle in out, or NullHandle when
// there is none.
type RelationFunc func(h Handle, out *Handle)

type (
	NameFunc      func(h Handle) string
	PredicateFunc func(h, other Handle) bool
	AccessFunc    func(h Handle) TypeAccessibility
)

// Object primitives. args and argTypes are parallel slices.
type (
	CreateObjectFunc    func(t Handle, weak bool, args []any, argTypes []ManagedType) ObjectHandle
	InvokeFunc          func(obj ObjectHandle, method string, args []any, argTypes []ManagedType)
	InvokeRetFunc       func(obj ObjectHandle, method string, args []any, argTypes []ManagedType) any
	InvokeStaticFunc    func(t Handle, method string, args []any, argTypes []ManagedType)
	InvokeStaticRetFunc func(t Handle, method string, args []any, argTypes []ManagedType) any
	SetMemberFunc       func(obj ObjectHandle, name string, value any)
	GetMemberFunc       func(obj ObjectHandle, name string) any
)

// Table is the externally supplied set of cross-boundary primitives. The
// managed runtime fills it in during bootstrap; every field must be non-nil
// before the bridge is considered bound.
type Table struct {
	// assembly
	CreateAssemblyLoadContext func(name string) ContextID
	UnloadAssemblyLoadContext func(ctx ContextID)
	LoadAssembly              func(ctx ContextID, path string) AssemblyID
	GetLastLoadStatus         func() AssemblyLoadStatus
	GetAssemblyName           func(asm AssemblyID) string

	// types
	GetNetCoreTypes     EnumerateCoreFunc
	GetAsmTypes         EnumerateAssemblyFunc
	GetTypeID           func(name string, out *Handle)
	GetFullTypeName     NameFunc
	GetAsmQualifiedName NameFunc
	GetBaseType         RelationFunc
	GetTypeSize         func(h Handle) int32
	IsTypeDerivedFrom   PredicateFunc
	IsAssignableTo      PredicateFunc
	IsAssignableFrom    PredicateFunc
	IsTypeSzArray       func(h Handle) bool
	GetElementType      RelationFunc
	GetTypeMethods      EnumerateFunc
	GetTypeFields       EnumerateFunc
	GetTypeProperties   EnumerateFunc
	HasTypeAttribute    PredicateFunc
	GetTypeAttributes   EnumerateFunc
	GetTypeManagedType  func(h Handle) ManagedType

	// fields
	GetFieldName          NameFunc
	GetFieldType          RelationFunc
	GetFieldAttributes    EnumerateFunc
	GetFieldAccessibility AccessFunc

	// properties
	GetPropertyName       NameFunc
	GetPropertyType       RelationFunc
	GetPropertyAttributes EnumerateFunc

	// attributes
	GetAttrValue func(attr Handle, field string) any
	GetAttrType  RelationFunc

	// methods
	GetMethodName          NameFunc
	GetMethodReturnType    RelationFunc
	GetMethodParamTypes    EnumerateFunc
	GetMethodAttributes    EnumerateFunc
	GetMethodAccessibility AccessFunc

	// internal calls
	SetInternalCalls func(calls []InternalCall)
	SetInternalCall  func(name string, fn uintptr)

	// objects
	CreateObject          CreateObjectFunc
	DestroyObject         func(obj ObjectHandle)
	InvokeMethod          InvokeFunc
	InvokeMethodRet       InvokeRetFunc
	InvokeStaticMethod    InvokeStaticFunc
	InvokeStaticMethodRet InvokeStaticRetFunc
	SetField              SetMemberFunc
	GetField              GetMemberFunc
	SetProperty           SetMemberFunc
	GetProperty           GetMemberFunc

	// runtime control
	CollectGarbage           func(generation int32, mode GCMode, blocking, compacting bool)
	WaitForPendingFinalizers func()
}

// Missing returns the names of the primitives that have not been supplied,
// in declaration order.
func (t *Table) Missing() []string {
	if t == nil {
		return operationNames()
	}
	var missing []string
	v := reflect.ValueOf(t).Elem()
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).IsNil() {
			missing = append(missing, v.Type().Field(i).Name)
		}
	}
	return missing
}

// Bound reports whether every primitive is present.
func (t *Table) Bound() bool {
	return t != nil && len(t.Missing()) == 0
}

// Require returns ErrNotBound, annotated with the first missing primitive,
// when the table is incomplete.
func (t *Table) Require() error {
	missing := t.Missing()
	if len(missing) == 0 {
		return nil
	}
	return &unboundError{missing: missing}
}

// Operations returns the names of every primitive the Table carries.
func Operations() []string {
	return operationNames()
}

func operationNames() []string {
	rt := reflect.TypeOf(Table{})
	names := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		names = append(names, rt.Field(i).Name)
	}
	return names
}

type unboundError struct {
	missing []string
}

func (e *unboundError) Error() string {
	if len(e.missing) == 1 {
		return ErrNotBound.Error() + ": missing " + e.missing[0]
	}
	return ErrNotBound.Error() + ": missing " + e.missing[0] + " and others"
}

func (e *unboundError) Unwrap() error {
	return ErrNotBound
}
