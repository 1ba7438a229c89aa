package interop

import "fmt"

// Handle identifies a managed-side metadata entity: a type, a member or an
// attribute. The managed runtime owns the entity; the native side only
// remembers the number.
type Handle int32

// NullHandle is the invalid/none sentinel for metadata handles.
const NullHandle Handle = -1

// Valid reports whether h refers to an entity.
func (h Handle) Valid() bool {
	return h != NullHandle
}

// ObjectHandle identifies a managed object instance (or the managed peer of a
// native object).
type ObjectHandle uint64

// NullObject is the invalid/none sentinel for object handles.
const NullObject ObjectHandle = 0

// Valid reports whether h refers to an object.
func (h ObjectHandle) Valid() bool {
	return h != NullObject
}

func (h ObjectHandle) String() string {
	return fmt.Sprintf("%#08x", uint64(h))
}

// ContextID identifies an assembly load context.
type ContextID int32

// AssemblyID identifies a loaded assembly. -1 signals a failed load.
type AssemblyID int32

// InvalidAssembly is returned by LoadAssembly when nothing was loaded.
const InvalidAssembly AssemblyID = -1

// InternalCall binds a managed extern method to a native function pointer.
// Name uses the managed convention "Namespace.Class+Method, Assembly".
type InternalCall struct {
	Name string
	Fn   uintptr
}
