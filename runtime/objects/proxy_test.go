package objects_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yockey88/DotOther/runtime/objects"
)

func newProxy(t *testing.T, c *counter) (*objects.ObjectProxy[counter], *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	return objects.NewProxy(c, counterBinding, zap.New(core)), logs
}

func TestProxy_Call(t *testing.T) {
	c := &counter{n: 3}
	p, _ := newProxy(t, c)

	assert.Equal(t, "Counter", p.TypeName())
	assert.Same(t, c, p.Target())

	tests := []struct {
		name    string
		member  string
		args    []any
		want    any
		wantErr error
	}{
		{"value", "Value", nil, 3, nil},
		{"one arg", "Times", []any{2}, 6, nil},
		{"widened arg", "Times", []any{int32(3)}, 9, nil},
		{"unknown member", "Missing", nil, nil, objects.ErrUnknownMember},
		{"too many args", "Value", []any{1}, nil, objects.ErrArity},
		{"missing arg", "Times", nil, nil, objects.ErrArity},
		{"wrong type", "Times", []any{"two"}, nil, objects.ErrArgType},
		{"nil for int", "Times", []any{nil}, nil, objects.ErrArgType},
		{"whole float", "Times", []any{2.0}, 6, nil},
		{"fractional float", "Times", []any{3.9}, nil, objects.ErrArgType},
		{"unsigned overflow", "Times", []any{uint64(math.MaxUint64)}, nil, objects.ErrArgType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Call(tt.member, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProxy_Fields(t *testing.T) {
	c := &counter{}
	p, _ := newProxy(t, c)

	got, err := p.Call("Label", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "hello", c.label)

	assert.Equal(t, "hello", objects.InvokeAs[string](p, "Label"))

	_, err = p.Call("Label", "a", "b")
	assert.ErrorIs(t, err, objects.ErrArity)
}

type gauge struct {
	b int8
	u uint32
	i int
	f float32
}

var gaugeBinding = func() *objects.Binding[gauge] {
	b := objects.NewBinding[gauge]("Gauge")
	objects.BindField(b, "B", func(g *gauge) *int8 { return &g.b })
	objects.BindField(b, "U", func(g *gauge) *uint32 { return &g.u })
	objects.BindField(b, "I", func(g *gauge) *int { return &g.i })
	objects.BindField(b, "F", func(g *gauge) *float32 { return &g.f })
	return b
}()

func TestProxy_FieldNarrowing(t *testing.T) {
	tests := []struct {
		name    string
		member  string
		arg     any
		want    any
		wantErr bool
	}{
		{"int8 in range", "B", int64(-12), int8(-12), false},
		{"int8 overflow", "B", 300, int8(0), true},
		{"uint32 from small unsigned", "U", uint8(7), uint32(7), false},
		{"uint32 from negative", "U", -1, uint32(0), true},
		{"int from whole float", "I", 4.0, 4, false},
		{"int from fractional float", "I", 3.9, 0, true},
		{"float32 from float64", "F", 0.5, float32(0.5), false},
		{"float32 overflow", "F", 1e40, float32(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &gauge{}
			p := objects.NewProxy(g, gaugeBinding, zap.NewNop())

			_, err := p.Call(tt.member, tt.arg)
			if tt.wantErr {
				assert.ErrorIs(t, err, objects.ErrArgType)
			} else {
				require.NoError(t, err)
			}

			got, err := p.Call(tt.member)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "a rejected value leaves the field untouched")
		})
	}
}

func TestProxy_InvokeMutates(t *testing.T) {
	c := &counter{}
	p, logs := newProxy(t, c)

	p.Invoke("Add", int64(5))
	p.Invoke("Incr")
	assert.Equal(t, 6, c.n)
	assert.Equal(t, 0, logs.Len())
}

func TestInvokeAs_FailuresYieldZero(t *testing.T) {
	c := &counter{n: 7}
	p, logs := newProxy(t, c)

	assert.Equal(t, 7, objects.InvokeAs[int](p, "Value"))
	assert.Equal(t, 0, logs.Len())

	assert.Equal(t, 0, objects.InvokeAs[int](p, "Boom"), "a panicking member yields the zero value")
	assert.Equal(t, "", objects.InvokeAs[string](p, "Value"), "a result of another type yields the zero value")
	assert.Equal(t, 0, objects.InvokeAs[int](p, "Missing"))
	assert.Equal(t, 0, objects.InvokeAs[int](p, "Incr"), "void members yield the zero value")

	failures := logs.FilterMessage("native invocation failed").All()
	require.Len(t, failures, 3)
	for _, f := range failures {
		assert.Equal(t, zapcore.ErrorLevel, f.Level)
	}
	assert.Equal(t, 8, c.n)
}

func TestBinding_Members(t *testing.T) {
	members := counterBinding.Members()
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"Add", "Boom", "Incr", "Label", "Times", "Value"}, names)
	assert.Equal(t, objects.KindField, members[3].Kind)
	assert.Equal(t, "field", members[3].Kind.String())
	assert.Equal(t, 1, members[0].Arity)
}

func TestBinding_DuplicatePanics(t *testing.T) {
	b := objects.NewBinding[counter]("Counter")
	objects.BindMethod(b, "Incr", func(c *counter) { c.n++ })
	assert.Panics(t, func() {
		objects.BindFunc(b, "Incr", func(c *counter) int { return c.n })
	})
}
