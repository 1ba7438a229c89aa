package objects

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"

	"fortio.org/safecast"
)

// MemberKind distinguishes bound methods from bound fields.
type MemberKind int

const (
	KindMethod MemberKind = iota
	KindField
)

func (k MemberKind) String() string {
	if k == KindField {
		return "field"
	}
	return "method"
}

// MemberInfo describes one bound member.
type MemberInfo struct {
	Name  string
	Kind  MemberKind
	Arity int
}

type member[T any] struct {
	info MemberInfo
	call func(target *T, args []any) (any, error)
}

// Binding is the name -> member table for one native type. Build it once,
// usually in a package init, and share it between all instances.
type Binding[T any] struct {
	typeName string

	mu      sync.RWMutex
	members map[string]*member[T]
}

// NewBinding creates an empty table for T, reported under typeName.
func NewBinding[T any](typeName string) *Binding[T] {
	return &Binding[T]{
		typeName: typeName,
		members:  make(map[string]*member[T]),
	}
}

// TypeName returns the name the binding was created with.
func (b *Binding[T]) TypeName() string {
	return b.typeName
}

// Members lists the bound members sorted by name.
func (b *Binding[T]) Members() []MemberInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := make([]MemberInfo, 0, len(b.members))
	for _, m := range b.members {
		infos = append(infos, m.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (b *Binding[T]) lookup(name string) (*member[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.members[name]
	return m, ok
}

// add panics on a duplicate name: bindings are built at init time and a
// clash is a programming error.
func (b *Binding[T]) add(m *member[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.members[m.info.Name]; exists {
		panic(fmt.Sprintf("objects: %s.%s bound twice", b.typeName, m.info.Name))
	}
	b.members[m.info.Name] = m
}

// BindMethod binds a method taking no arguments and returning nothing.
func BindMethod[T any](b *Binding[T], name string, fn func(*T)) {
	b.add(&member[T]{
		info: MemberInfo{Name: name, Kind: KindMethod},
		call: func(target *T, args []any) (any, error) {
			if len(args) != 0 {
				return nil, fmt.Errorf("%s takes 0 arguments, got %d: %w", name, len(args), ErrArity)
			}
			fn(target)
			return nil, nil
		},
	})
}

// BindMethod1 binds a method taking one argument and returning nothing.
func BindMethod1[T, A any](b *Binding[T], name string, fn func(*T, A)) {
	b.add(&member[T]{
		info: MemberInfo{Name: name, Kind: KindMethod, Arity: 1},
		call: func(target *T, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s takes 1 argument, got %d: %w", name, len(args), ErrArity)
			}
			arg, err := convertArg[A](args[0])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			fn(target, arg)
			return nil, nil
		},
	})
}

// BindFunc binds a method taking no arguments and returning a value.
func BindFunc[T, R any](b *Binding[T], name string, fn func(*T) R) {
	b.add(&member[T]{
		info: MemberInfo{Name: name, Kind: KindMethod},
		call: func(target *T, args []any) (any, error) {
			if len(args) != 0 {
				return nil, fmt.Errorf("%s takes 0 arguments, got %d: %w", name, len(args), ErrArity)
			}
			return fn(target), nil
		},
	})
}

// BindFunc1 binds a method taking one argument and returning a value.
func BindFunc1[T, A, R any](b *Binding[T], name string, fn func(*T, A) R) {
	b.add(&member[T]{
		info: MemberInfo{Name: name, Kind: KindMethod, Arity: 1},
		call: func(target *T, args []any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%s takes 1 argument, got %d: %w", name, len(args), ErrArity)
			}
			arg, err := convertArg[A](args[0])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return fn(target, arg), nil
		},
	})
}

// BindField binds a field through an accessor returning its address. Called
// with no arguments the member reads the field; with one argument it writes
// the field and returns the stored value.
func BindField[T, V any](b *Binding[T], name string, ref func(*T) *V) {
	b.add(&member[T]{
		info: MemberInfo{Name: name, Kind: KindField},
		call: func(target *T, args []any) (any, error) {
			switch len(args) {
			case 0:
				return *ref(target), nil
			case 1:
				v, err := convertArg[V](args[0])
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				p := ref(target)
				*p = v
				return *p, nil
			default:
				return nil, fmt.Errorf("field %s takes at most 1 argument, got %d: %w", name, len(args), ErrArity)
			}
		},
	})
}

// convertArg accepts exact types, nil for nilable types, and numeric
// conversions that preserve the value (the managed side boxes integers at
// its own width). Overflow, sign changes and fractional parts for integer
// targets are rejected.
func convertArg[A any](v any) (A, error) {
	var zero A
	if a, ok := v.(A); ok {
		return a, nil
	}

	want := reflect.TypeOf((*A)(nil)).Elem()
	if v == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return zero, nil
		}
		return zero, fmt.Errorf("nil for %s: %w", want, ErrArgType)
	}

	rv := reflect.ValueOf(v)
	if isNumeric(rv.Kind()) && isNumeric(want.Kind()) {
		out, err := convertNumber(rv, want)
		if err != nil {
			return zero, fmt.Errorf("%v (%T) for %s: %w", v, v, want, ErrArgType)
		}
		return out.Interface().(A), nil
	}
	return zero, fmt.Errorf("%T for %s: %w", v, want, ErrArgType)
}

type number interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

func convertNumber(v reflect.Value, want reflect.Type) (reflect.Value, error) {
	var (
		out any
		err error
	)
	switch want.Kind() {
	case reflect.Int:
		out, err = narrow[int](v)
	case reflect.Int8:
		out, err = narrow[int8](v)
	case reflect.Int16:
		out, err = narrow[int16](v)
	case reflect.Int32:
		out, err = narrow[int32](v)
	case reflect.Int64:
		out, err = narrow[int64](v)
	case reflect.Uint:
		out, err = narrow[uint](v)
	case reflect.Uint8:
		out, err = narrow[uint8](v)
	case reflect.Uint16:
		out, err = narrow[uint16](v)
	case reflect.Uint32:
		out, err = narrow[uint32](v)
	case reflect.Uint64, reflect.Uintptr:
		out, err = narrow[uint64](v)
	case reflect.Float32:
		if isFloat(v.Kind()) {
			// float to float keeps the nearest value; only the range is checked
			f := v.Float()
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return reflect.Value{}, fmt.Errorf("%g exceeds float32", f)
			}
			out = float32(f)
		} else {
			out, err = narrow[float32](v)
		}
	case reflect.Float64:
		if isFloat(v.Kind()) {
			out = v.Float()
		} else {
			out, err = narrow[float64](v)
		}
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(out).Convert(want), nil
}

// narrow converts v to N, failing when the value does not survive.
func narrow[N number](v reflect.Value) (N, error) {
	switch {
	case v.CanInt():
		return safecast.Convert[N](v.Int())
	case v.CanUint():
		return safecast.Convert[N](v.Uint())
	default:
		return safecast.Convert[N](v.Float())
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
