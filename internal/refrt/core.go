package refrt

import (
	"strings"

	"github.com/yockey88/DotOther/runtime/interop"
)

const coreAssembly = "System.Private.CoreLib"

type coreType struct {
	name string
	base string
	size int32
	kind interop.ManagedType
}

// Core types exist in every runtime before any assembly is loaded.
var coreTypes = []coreType{
	{"System.Object", "", 8, interop.ManagedUnknown},
	{"System.ValueType", "System.Object", 0, interop.ManagedUnknown},
	{"System.Array", "System.Object", 8, interop.ManagedUnknown},
	{"System.Attribute", "System.Object", 8, interop.ManagedUnknown},
	{"System.String", "System.Object", 8, interop.ManagedUnknown},
	{"System.Void", "System.ValueType", 0, interop.ManagedUnknown},
	{"System.Boolean", "System.ValueType", 1, interop.ManagedBool},
	{"System.SByte", "System.ValueType", 1, interop.ManagedSByte},
	{"System.Byte", "System.ValueType", 1, interop.ManagedByte},
	{"System.Int16", "System.ValueType", 2, interop.ManagedShort},
	{"System.UInt16", "System.ValueType", 2, interop.ManagedUShort},
	{"System.Int32", "System.ValueType", 4, interop.ManagedInt},
	{"System.UInt32", "System.ValueType", 4, interop.ManagedUInt},
	{"System.Int64", "System.ValueType", 8, interop.ManagedLong},
	{"System.UInt64", "System.ValueType", 8, interop.ManagedULong},
	{"System.Single", "System.ValueType", 4, interop.ManagedFloat},
	{"System.Double", "System.ValueType", 8, interop.ManagedDouble},
	{"System.IntPtr", "System.ValueType", 8, interop.ManagedPointer},
}

var aliases = map[string]string{
	"object": "System.Object",
	"string": "System.String",
	"void":   "System.Void",
	"bool":   "System.Boolean",
	"sbyte":  "System.SByte",
	"byte":   "System.Byte",
	"short":  "System.Int16",
	"ushort": "System.UInt16",
	"int":    "System.Int32",
	"uint":   "System.UInt32",
	"long":   "System.Int64",
	"ulong":  "System.UInt64",
	"float":  "System.Single",
	"double": "System.Double",
	"nint":   "System.IntPtr",
}

// canonical expands C# keyword aliases, including inside array suffixes.
func canonical(name string) string {
	name = strings.TrimSpace(name)
	suffix := ""
	for strings.HasSuffix(name, "[]") {
		name = strings.TrimSuffix(name, "[]")
		suffix += "[]"
	}
	if full, ok := aliases[name]; ok {
		name = full
	}
	return name + suffix
}

func zeroFor(kind interop.ManagedType) any {
	switch kind {
	case interop.ManagedSByte:
		return int8(0)
	case interop.ManagedByte:
		return uint8(0)
	case interop.ManagedShort:
		return int16(0)
	case interop.ManagedUShort:
		return uint16(0)
	case interop.ManagedInt:
		return int32(0)
	case interop.ManagedUInt:
		return uint32(0)
	case interop.ManagedLong:
		return int64(0)
	case interop.ManagedULong:
		return uint64(0)
	case interop.ManagedFloat:
		return float32(0)
	case interop.ManagedDouble:
		return float64(0)
	case interop.ManagedBool:
		return false
	case interop.ManagedPointer:
		return uintptr(0)
	default:
		return nil
	}
}
