package objects_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yockey88/DotOther/runtime/interop"
	"github.com/yockey88/DotOther/runtime/objects"
)

type bound struct{}

func (bound) Require() error { return nil }

type counter struct {
	n     int
	label string
}

var counterBinding = func() *objects.Binding[counter] {
	b := objects.NewBinding[counter]("Counter")
	objects.BindMethod(b, "Incr", func(c *counter) { c.n++ })
	objects.BindMethod1(b, "Add", func(c *counter, d int) { c.n += d })
	objects.BindFunc(b, "Value", func(c *counter) int { return c.n })
	objects.BindFunc1(b, "Times", func(c *counter, k int) int { return c.n * k })
	objects.BindField(b, "Label", func(c *counter) *string { return &c.label })
	objects.BindMethod(b, "Boom", func(*counter) { panic("boom") })
	return b
}()

func newRegistry(t *testing.T) (*objects.Registry, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	return objects.NewRegistry(bound{}, zap.New(core)), logs
}

func TestRegister_RequiresBoundTable(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := objects.NewRegistry(&interop.Table{}, zap.New(core))

	_, err := objects.NewObject(reg, 0x10, &counter{}, counterBinding)
	assert.ErrorIs(t, err, interop.ErrNotBound)
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 1, logs.FilterMessage("cannot register object").FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestRegister_Invalid(t *testing.T) {
	reg, logs := newRegistry(t)

	assert.ErrorIs(t, reg.Register(interop.NullObject, &objects.Object{}), objects.ErrInvalidRegistration)
	assert.ErrorIs(t, reg.Register(0x10, nil), objects.ErrInvalidRegistration)
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 2, logs.FilterMessage("invalid object registration").Len())
}

func TestRegister_DuplicateKeepsOriginal(t *testing.T) {
	reg, logs := newRegistry(t)

	first, err := objects.NewObject(reg, 0x10, &counter{}, counterBinding)
	require.NoError(t, err)

	second, err := objects.NewObject(reg, 0x10, &counter{}, counterBinding)
	assert.ErrorIs(t, err, objects.ErrAlreadyRegistered)
	assert.Nil(t, second)
	assert.Same(t, first, reg.Lookup(0x10))
	assert.Equal(t, 1, logs.FilterMessage("object already registered").FilterLevelExact(zapcore.WarnLevel).Len())

	local, err := objects.NewObject(reg, interop.NullObject, &counter{}, counterBinding)
	require.NoError(t, err)
	assert.ErrorIs(t, reg.Register(0x10, local), objects.ErrAlreadyRegistered)
	require.NoError(t, local.Close(), "closing an unregistered object leaves the registry alone")
	assert.Same(t, first, reg.Lookup(0x10))
}

func TestUnregister(t *testing.T) {
	reg, logs := newRegistry(t)

	a, err := objects.NewObject(reg, 0x10, &counter{}, counterBinding)
	require.NoError(t, err)
	_, err = objects.NewObject(reg, 0x20, &counter{}, counterBinding)
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Unregister(0x30), objects.ErrNotRegistered)
	assert.Equal(t, 1, logs.FilterMessage("object not found").Len())
	assert.Equal(t, []interop.ObjectHandle{0x10, 0x20}, reg.Handles())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Nil(t, reg.Lookup(0x10))
	assert.Equal(t, interop.NullObject, a.Handle())
	assert.NotNil(t, reg.Lookup(0x20))

	reg.Reset()
	assert.Equal(t, 0, reg.Len())
}

func TestReset_ClosesQuietly(t *testing.T) {
	reg, logs := newRegistry(t)

	obj, err := objects.NewObject(reg, 0x10, &counter{}, counterBinding)
	require.NoError(t, err)

	reg.Reset()
	assert.Nil(t, reg.Lookup(0x10))

	require.NoError(t, obj.Close())
	assert.Equal(t, interop.NullObject, obj.Handle())
	assert.Equal(t, 0, logs.FilterMessage("object not found").Len())
	errs := logs.Filter(func(e observer.LoggedEntry) bool { return e.Level >= zapcore.ErrorLevel })
	assert.Equal(t, 0, errs.Len())
}

func TestInvokeByName(t *testing.T) {
	reg, logs := newRegistry(t)
	c := &counter{}
	_, err := objects.NewObject(reg, 0x10, c, counterBinding)
	require.NoError(t, err)

	reg.InvokeByName(0x10, "Incr")
	reg.InvokeByName(0x10, "Incr")
	assert.Equal(t, 2, c.n)

	reg.InvokeByName(0x99, "Incr")
	missing := logs.FilterMessage("object not found").All()
	require.Len(t, missing, 1)
	assert.Equal(t, zapcore.ErrorLevel, missing[0].Level)

	reg.InvokeByName(0x10, "Nope")
	failed := logs.FilterMessage("native invocation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "Nope", failed[0].ContextMap()["member"])
	assert.Equal(t, 2, c.n)
}

func TestInvokeByName_MemberMayTouchRegistry(t *testing.T) {
	reg, _ := newRegistry(t)

	type closer struct{ self *objects.Object }
	b := objects.NewBinding[closer]("Closer")
	objects.BindMethod(b, "Dispose", func(c *closer) { _ = c.self.Close() })

	target := &closer{}
	obj, err := objects.NewObject(reg, 0x10, target, b)
	require.NoError(t, err)
	target.self = obj

	reg.InvokeByName(0x10, "Dispose")
	assert.Nil(t, reg.Lookup(0x10))
}

func TestRegistry_Concurrent(t *testing.T) {
	reg, _ := newRegistry(t)

	var wg sync.WaitGroup
	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(h interop.ObjectHandle) {
			defer wg.Done()
			obj, err := objects.NewObject(reg, h, &counter{}, counterBinding)
			if !assert.NoError(t, err) {
				return
			}
			reg.InvokeByName(h, "Incr")
			assert.NoError(t, obj.Close())
		}(interop.ObjectHandle(i))
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}
