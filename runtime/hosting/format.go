package hosting

import (
	"fmt"
	"strings"
)

// FormatType renders a multi-line description of t and its members.
func FormatType(t *Type) string {
	if !t.Valid() {
		return "(null-type)"
	}

	fields := t.Fields()
	properties := t.Properties()
	methods := t.Methods()
	attributes := t.Attributes()

	var b strings.Builder
	fmt.Fprintf(&b, "Type : %s\n", t.FullName())
	if base := t.BaseObject(); base.Valid() {
		fmt.Fprintf(&b, "  > Base : %s\n", base.FullName())
	}
	if t.IsArray() {
		fmt.Fprintf(&b, "  > Element : %s\n", t.ElementType())
	}

	fmt.Fprintf(&b, "  > Fields : %d\n", len(fields))
	for _, f := range fields {
		fmt.Fprintf(&b, "      Field : %s %s %s\n", f.Accessibility(), f.Type(), f.Name())
	}

	fmt.Fprintf(&b, "  > Properties : %d\n", len(properties))
	for _, p := range properties {
		fmt.Fprintf(&b, "      Property : %s %s\n", p.Type(), p.Name())
	}

	fmt.Fprintf(&b, "  > Methods : %d\n", len(methods))
	for _, m := range methods {
		params := m.ParamTypes()
		names := make([]string, len(params))
		for i, p := range params {
			names[i] = p.String()
		}
		fmt.Fprintf(&b, "      Method : %s %s %s(%s)\n", m.Accessibility(), m.ReturnType(), m.Name(), strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "  > Attributes : %d\n", len(attributes))
	for _, a := range attributes {
		fmt.Fprintf(&b, "      Attribute : %s\n", a.Type())
	}
	return b.String()
}
