package commands

import (
	"fmt"
	"math"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/yockey88/DotOther/internal/cli/ui"
	"github.com/yockey88/DotOther/runtime/hosting"
	"github.com/yockey88/DotOther/runtime/interop"
)

// NewInvokeCommand creates the invoke command
func NewInvokeCommand(opts *globalOptions) *cobra.Command {
	var (
		static bool
		fields []string
		dump   bool
	)

	cmd := &cobra.Command{
		Use:   "invoke <manifest> <type> <method> [arg...]",
		Short: "Create an instance and call a method",
		Long: `Load an assembly, create an instance of a type and call one of its methods
through the operation table. Arguments are converted to the declared
parameter types of the method.`,
		Example: `  # Call an instance method
  dotother invoke sample.toml Sample.Player Heal 2.5 true

  # Call a static method
  dotother invoke --static sample.toml Sample.Player Create

  # Set fields before the call and print them afterwards
  dotother invoke --field Health=10 --dump sample.toml Sample.Player Ping`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.load(args[:1]); err != nil {
				return err
			}

			t, err := s.lookup(args[1])
			if err != nil {
				return err
			}

			method := findMethod(t, args[2])
			if method == nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.MemberNotFoundError(t.FullName(), args[2], methodNames(t), s.noColor))
				return errReported
			}

			callArgs, err := convertArgs(method, args[3:])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			call := fmt.Sprintf("%s.%s(%s)", t.FullName(), method.Name(), strings.Join(args[3:], ", "))

			if static {
				result, err := t.InvokeStaticRet(method.Name(), callArgs...)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s = %v\n", call, result)
				return nil
			}

			obj, err := t.New()
			if err != nil {
				return err
			}
			defer obj.Destroy()

			for _, assignment := range fields {
				name, value, ok := strings.Cut(assignment, "=")
				if !ok {
					return fmt.Errorf("invalid --field %q, expected name=value", assignment)
				}
				converted, err := convertField(t, name, value)
				if err != nil {
					return err
				}
				if err := obj.SetField(name, converted); err != nil {
					return err
				}
			}

			result, err := obj.InvokeRet(method.Name(), callArgs...)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = %v\n", call, result)

			if dump {
				details := ui.NewDetails(out, fmt.Sprintf("%s %s", t.FullName(), obj.Handle()), s.noColor)
				for cur := t; cur.Valid(); cur = cur.BaseObject() {
					for _, f := range cur.Fields() {
						v, _ := obj.GetField(f.Name())
						details.Add(f.Name(), v)
					}
					for _, p := range cur.Properties() {
						v, _ := obj.GetProperty(p.Name())
						details.Add(p.Name(), v)
					}
				}
				details.Render()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&static, "static", false, "Call a static method without creating an instance")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "Set a field before the call (name=value, repeatable)")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the instance's fields and properties after the call")

	return cmd
}

// findMethod searches t and then its base types.
func findMethod(t *hosting.Type, name string) *hosting.Method {
	for cur := t; cur.Valid(); cur = cur.BaseObject() {
		if m := cur.Method(name); m != nil {
			return m
		}
	}
	return nil
}

func findField(t *hosting.Type, name string) *hosting.Field {
	for cur := t; cur.Valid(); cur = cur.BaseObject() {
		if f := cur.Field(name); f != nil {
			return f
		}
	}
	return nil
}

func methodNames(t *hosting.Type) []string {
	var names []string
	for cur := t; cur.Valid(); cur = cur.BaseObject() {
		for _, m := range cur.Methods() {
			names = append(names, m.Name())
		}
	}
	return names
}

func convertArgs(m *hosting.Method, raw []string) ([]any, error) {
	params := m.ParamTypes()
	if len(raw) != len(params) {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", m.Name(), len(params), len(raw))
	}

	out := make([]any, len(raw))
	for i, p := range params {
		v, err := convert(raw[i], p.ManagedType())
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i+1, m.Name(), err)
		}
		out[i] = v
	}
	return out, nil
}

func convertField(t *hosting.Type, name, raw string) (any, error) {
	f := findField(t, name)
	if f == nil {
		return nil, fmt.Errorf("type %s has no field %s", t.FullName(), name)
	}
	v, err := convert(raw, f.Type().ManagedType())
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}

// convert parses raw as the primitive kind; non-primitive kinds keep the
// string. Values outside the range of the kind are rejected.
func convert(raw string, kind interop.ManagedType) (any, error) {
	switch kind {
	case interop.ManagedSByte:
		return signed[int8](raw)
	case interop.ManagedByte:
		return unsigned[uint8](raw)
	case interop.ManagedShort:
		return signed[int16](raw)
	case interop.ManagedUShort:
		return unsigned[uint16](raw)
	case interop.ManagedInt:
		return signed[int32](raw)
	case interop.ManagedUInt:
		return unsigned[uint32](raw)
	case interop.ManagedLong:
		return cast.ToInt64E(raw)
	case interop.ManagedULong:
		return cast.ToUint64E(raw)
	case interop.ManagedFloat:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, err
		}
		if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%s is out of range for float", raw)
		}
		return float32(f), nil
	case interop.ManagedDouble:
		return cast.ToFloat64E(raw)
	case interop.ManagedBool:
		return cast.ToBoolE(raw)
	default:
		return raw, nil
	}
}

func signed[N int8 | int16 | int32](raw string) (any, error) {
	v, err := cast.ToInt64E(raw)
	if err != nil {
		return nil, err
	}
	n, err := safecast.Conv[N](v)
	if err != nil {
		return nil, fmt.Errorf("%s is out of range for %T: %w", raw, n, err)
	}
	return n, nil
}

func unsigned[N uint8 | uint16 | uint32](raw string) (any, error) {
	v, err := cast.ToUint64E(raw)
	if err != nil {
		return nil, err
	}
	n, err := safecast.Conv[N](v)
	if err != nil {
		return nil, fmt.Errorf("%s is out of range for %T: %w", raw, n, err)
	}
	return n, nil
}
