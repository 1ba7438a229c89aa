package interop

import (
	"fmt"
	"strings"
)

// ManagedType tags the primitive kind of a managed type or boundary value.
// The value set is defined by the managed side.
type ManagedType int32

const (
	ManagedUnknown ManagedType = iota
	ManagedSByte
	ManagedByte
	ManagedShort
	ManagedUShort
	ManagedInt
	ManagedUInt
	ManagedLong
	ManagedULong
	ManagedFloat
	ManagedDouble
	ManagedBool
	ManagedPointer
)

var managedTypeNames = [...]string{
	ManagedUnknown: "unknown",
	ManagedSByte:   "sbyte",
	ManagedByte:    "byte",
	ManagedShort:   "short",
	ManagedUShort:  "ushort",
	ManagedInt:     "int",
	ManagedUInt:    "uint",
	ManagedLong:    "long",
	ManagedULong:   "ulong",
	ManagedFloat:   "float",
	ManagedDouble:  "double",
	ManagedBool:    "bool",
	ManagedPointer: "pointer",
}

func (m ManagedType) String() string {
	if m >= 0 && int(m) < len(managedTypeNames) {
		return managedTypeNames[m]
	}
	return fmt.Sprintf("ManagedType(%d)", int32(m))
}

// ParseManagedType maps a lower-case kind name back to its tag. Unknown names
// map to ManagedUnknown with ok == false.
func ParseManagedType(s string) (ManagedType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range managedTypeNames {
		if name == s {
			return ManagedType(i), true
		}
	}
	return ManagedUnknown, false
}

// ManagedTypeOf classifies a native argument value the way the managed side
// expects argument tags.
func ManagedTypeOf(v any) ManagedType {
	switch v.(type) {
	case int8:
		return ManagedSByte
	case uint8:
		return ManagedByte
	case int16:
		return ManagedShort
	case uint16:
		return ManagedUShort
	case int32:
		return ManagedInt
	case uint32:
		return ManagedUInt
	case int64, int:
		return ManagedLong
	case uint64, uint:
		return ManagedULong
	case float32:
		return ManagedFloat
	case float64:
		return ManagedDouble
	case bool:
		return ManagedBool
	case uintptr:
		return ManagedPointer
	default:
		return ManagedUnknown
	}
}

// TypeAccessibility is the declared visibility of a field or method.
type TypeAccessibility int32

const (
	AccessPublic TypeAccessibility = iota
	AccessPrivate
	AccessProtected
	AccessInternal
	AccessProtectedPublic
	AccessPrivateProtected
)

var accessibilityNames = [...]string{
	AccessPublic:           "public",
	AccessPrivate:          "private",
	AccessProtected:        "protected",
	AccessInternal:         "internal",
	AccessProtectedPublic:  "protected public",
	AccessPrivateProtected: "private protected",
}

func (a TypeAccessibility) String() string {
	if a >= 0 && int(a) < len(accessibilityNames) {
		return accessibilityNames[a]
	}
	return fmt.Sprintf("TypeAccessibility(%d)", int32(a))
}

// ParseAccessibility maps a visibility keyword to its value. The empty string
// means public.
func ParseAccessibility(s string) (TypeAccessibility, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AccessPublic, true
	}
	for i, name := range accessibilityNames {
		if name == s {
			return TypeAccessibility(i), true
		}
	}
	return AccessPublic, false
}

// AssemblyLoadStatus is the outcome of the most recent assembly load.
type AssemblyLoadStatus int32

const (
	LoadSuccess AssemblyLoadStatus = iota
	LoadNotFound
	LoadFailed
	LoadInvalidPath
	LoadInvalidAssembly
	LoadCorruptContext
	LoadUnknownError
)

func (s AssemblyLoadStatus) String() string {
	switch s {
	case LoadSuccess:
		return "success"
	case LoadNotFound:
		return "not found"
	case LoadFailed:
		return "failed"
	case LoadInvalidPath:
		return "invalid path"
	case LoadInvalidAssembly:
		return "invalid assembly"
	case LoadCorruptContext:
		return "corrupt context"
	case LoadUnknownError:
		return "unknown error"
	default:
		return fmt.Sprintf("AssemblyLoadStatus(%d)", int32(s))
	}
}

// GCMode selects how an explicit collection is performed.
type GCMode int32

const (
	GCDefault GCMode = iota
	GCForced
	GCOptimized
)
