package objects

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/internal/logging"
)

// Proxy resolves member names on one native value at call time.
type Proxy interface {
	// TypeName is the name of the native type behind the proxy.
	TypeName() string
	// Call invokes a member and reports failures as errors.
	Call(member string, args ...any) (any, error)
	// Invoke invokes a member for its side effects. Failures are logged.
	Invoke(member string, args ...any)

	report(member string, err error)
}

// ObjectProxy is the Proxy for a *T described by a Binding[T].
type ObjectProxy[T any] struct {
	target  *T
	binding *Binding[T]
	log     *zap.Logger
}

// NewProxy wraps target. A nil logger discards failure reports.
func NewProxy[T any](target *T, binding *Binding[T], log *zap.Logger) *ObjectProxy[T] {
	return &ObjectProxy[T]{
		target:  target,
		binding: binding,
		log:     logging.OrNop(log),
	}
}

func (p *ObjectProxy[T]) TypeName() string {
	return p.binding.TypeName()
}

// Target returns the wrapped value.
func (p *ObjectProxy[T]) Target() *T {
	return p.target
}

func (p *ObjectProxy[T]) Call(name string, args ...any) (result any, err error) {
	m, ok := p.binding.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", p.TypeName(), name, ErrUnknownMember)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%s.%s panicked: %v", p.TypeName(), name, r)
		}
	}()
	return m.call(p.target, args)
}

func (p *ObjectProxy[T]) Invoke(name string, args ...any) {
	if _, err := p.Call(name, args...); err != nil {
		p.report(name, err)
	}
}

func (p *ObjectProxy[T]) report(name string, err error) {
	p.log.Error("native invocation failed",
		zap.String("type", p.TypeName()),
		zap.String("member", name),
		zap.Error(err))
}

// InvokeAs invokes a member and returns its result as R. Any failure,
// including a result of another type, is logged and yields R's zero value.
func InvokeAs[R any](p Proxy, name string, args ...any) R {
	var zero R

	v, err := p.Call(name, args...)
	if err != nil {
		p.report(name, err)
		return zero
	}
	if v == nil {
		return zero
	}
	r, ok := v.(R)
	if !ok {
		p.report(name, fmt.Errorf("result %T is not %T: %w", v, zero, ErrArgType))
		return zero
	}
	return r
}
