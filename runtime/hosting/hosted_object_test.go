package hosting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/yockey88/DotOther/internal/refrt"
	"github.com/yockey88/DotOther/internal/refrt/refrttest"
	"github.com/yockey88/DotOther/runtime/hosting"
	"github.com/yockey88/DotOther/runtime/interop"
	"github.com/yockey88/DotOther/runtime/objects"
)

func TestHostedObject_Lifecycle(t *testing.T) {
	f := newFixture(t)
	f.load(t, "sample", refrttest.Sample)

	f.rt.Define("Sample.Player", ".ctor", func(self *refrt.Instance, args []any) any {
		self.SetField("Health", args[0])
		return nil
	})
	f.rt.Define("Sample.Player", "Heal", func(self *refrt.Instance, args []any) any {
		h := self.Field("Health").(float32) + args[0].(float32)
		self.SetField("Health", h)
		return h
	})
	f.rt.Define("Sample.Player", "Create", func(_ *refrt.Instance, _ []any) any {
		return "static"
	})

	player := f.host.GetType("Sample.Player")
	obj, err := player.New(float32(50))
	require.NoError(t, err)
	assert.Same(t, player, obj.Type())
	assert.True(t, obj.Handle().Valid())

	got, err := obj.InvokeRet("Heal", float32(25), false)
	require.NoError(t, err)
	assert.Equal(t, float32(75), got)

	require.NoError(t, obj.SetField("Health", float32(1)))
	health, err := obj.GetField("Health")
	require.NoError(t, err)
	assert.Equal(t, float32(1), health)

	require.NoError(t, obj.SetProperty("Name", "grace"))
	name, err := obj.GetProperty("Name")
	require.NoError(t, err)
	assert.Equal(t, "grace", name)

	require.NoError(t, obj.Invoke("Ping"))

	res, err := player.InvokeStaticRet("Create")
	require.NoError(t, err)
	assert.Equal(t, "static", res)
	require.NoError(t, player.InvokeStatic("Create"))

	obj.Destroy()
	obj.Destroy()
	assert.Equal(t, interop.NullObject, obj.Handle())
	assert.Equal(t, 0, f.rt.Stats().Live)

	assert.ErrorIs(t, obj.Invoke("Ping"), hosting.ErrDestroyed)
	_, err = obj.GetField("Health")
	assert.ErrorIs(t, err, hosting.ErrDestroyed)
}

func TestHostedObject_NullType(t *testing.T) {
	f := newFixture(t)

	_, err := f.host.GetType("Ghost").New()
	assert.ErrorIs(t, err, interop.ErrInvalidHandle)
	_, err = f.host.GetType("Ghost").InvokeStaticRet("Make")
	assert.ErrorIs(t, err, interop.ErrInvalidHandle)
}

type scoreboard struct {
	pings int
}

func TestInvokeNativeFunction_FromManagedSide(t *testing.T) {
	f := newFixture(t)
	f.load(t, "sample", refrttest.Sample)
	f.rt.Attach(f.host)
	f.rt.Define("Sample.Player", "Ping", func(self *refrt.Instance, _ []any) any {
		return self.CallNative("OnPing")
	})

	managed, err := f.host.GetType("Sample.Player").New()
	require.NoError(t, err)

	binding := objects.NewBinding[scoreboard]("Scoreboard")
	objects.BindMethod(binding, "OnPing", func(s *scoreboard) { s.pings++ })

	board := &scoreboard{}
	native, err := objects.NewObject(f.host.Objects(), managed.Handle(), board, binding)
	require.NoError(t, err)

	require.NoError(t, managed.Invoke("Ping"))
	require.NoError(t, managed.Invoke("Ping"))
	assert.Equal(t, 2, board.pings)

	require.NoError(t, native.Close())
	require.NoError(t, managed.Invoke("Ping"))
	assert.Equal(t, 2, board.pings)

	missed := f.logs.FilterMessage("object not found").All()
	require.Len(t, missed, 1)
	assert.Equal(t, zapcore.ErrorLevel, missed[0].Level)
}

func TestInvokeNativeFunction_UnknownHandle(t *testing.T) {
	f := newFixture(t)

	f.host.InvokeNativeFunction(0xDEAD, "Anything")

	entries := f.logs.FilterMessage("object not found").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "Anything", entries[0].ContextMap()["member"])
}

func TestRegisterObject_Inbound(t *testing.T) {
	f := newFixture(t)

	binding := objects.NewBinding[scoreboard]("Scoreboard")
	objects.BindMethod(binding, "OnPing", func(s *scoreboard) { s.pings++ })
	board := &scoreboard{}

	local, err := objects.NewObject(f.host.Objects(), interop.NullObject, board, binding)
	require.NoError(t, err)

	require.NoError(t, f.host.RegisterObject(0x42, local))
	f.host.InvokeNativeFunction(0x42, "OnPing")
	assert.Equal(t, 1, board.pings)

	require.NoError(t, f.host.UnregisterObject(0x42))
	assert.ErrorIs(t, f.host.UnregisterObject(0x42), objects.ErrNotRegistered)
}

func TestGarbageCollection(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.host.CollectGarbage(-1, interop.GCForced, true, true))
	require.NoError(t, f.host.WaitForPendingFinalizers())

	stats := f.rt.Stats()
	assert.Equal(t, 1, stats.Collections)
	assert.Equal(t, 1, stats.FinalizerWaits)
}
