package hosting

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yockey88/DotOther/internal/logging"
	"github.com/yockey88/DotOther/runtime/interop"
	"github.com/yockey88/DotOther/runtime/objects"
)

// Host is the context object for one binding to a managed runtime. Every
// cache and registry the bridge uses hangs off a Host; two hosts share
// nothing.
type Host struct {
	id    uuid.UUID
	table *interop.Table
	log   *zap.Logger
	sinks *logging.Switch

	types   *TypeCache
	objects *objects.Registry

	mu       sync.Mutex
	contexts []*AssemblyContext
	closed   bool
}

// Option configures a Host.
type Option func(*hostOptions)

type hostOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger the host and its components write to.
func WithLogger(l *zap.Logger) Option {
	return func(o *hostOptions) {
		o.logger = l
	}
}

// NewHost creates a host over table. The table may still be incomplete;
// operations that need it check and fail with interop.ErrNotBound.
func NewHost(table *interop.Table, opts ...Option) *Host {
	var o hostOptions
	for _, opt := range opts {
		opt(&o)
	}

	h := &Host{
		id:    uuid.New(),
		table: table,
	}
	h.log = logging.OrNop(o.logger).
		WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			h.sinks = logging.NewSwitch(c)
			return h.sinks.Core()
		})).
		With(zap.String("host_id", h.id.String()))

	h.types = NewTypeCache(table, h.log)
	h.objects = objects.NewRegistry(table, h.log)
	return h
}

// ID returns the session id attached to every log line of the host.
func (h *Host) ID() uuid.UUID { return h.id }

// Table returns the operation table.
func (h *Host) Table() *interop.Table { return h.table }

// Types returns the host's metadata cache.
func (h *Host) Types() *TypeCache { return h.types }

// Objects returns the host's object registry.
func (h *Host) Objects() *objects.Registry { return h.objects }

// Logger returns the host logger.
func (h *Host) Logger() *zap.Logger { return h.log }

// Bound reports whether the operation table is complete.
func (h *Host) Bound() bool { return h.table.Bound() }

// OverrideLogSink sends all host log output to sink, at the host's current
// level, until ResetLogSink is called.
func (h *Host) OverrideLogSink(sink logging.Sink) {
	h.sinks.Override(logging.NewSinkCore(sink, h.sinks.Base()))
}

// ResetLogSink restores the logger the host was created with.
func (h *Host) ResetLogSink() {
	h.sinks.Reset()
}

// GetType returns the cached type named name, or the sentinel.
func (h *Host) GetType(name string) *Type {
	if t := h.types.GetType(name); t != nil {
		return t
	}
	return h.types.Null()
}

// ResolveType is GetType falling back to a lookup in the runtime, for types
// no loaded assembly has exposed yet.
func (h *Host) ResolveType(name string) *Type {
	return h.types.Resolve(name)
}

// CreateAssemblyContext opens a new load context in the runtime.
func (h *Host) CreateAssemblyContext(name string) (*AssemblyContext, error) {
	if err := h.table.Require(); err != nil {
		h.log.Error("cannot create assembly context", zap.String("context", name), zap.Error(err))
		return nil, fmt.Errorf("create assembly context %q: %w", name, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("create assembly context %q: host closed", name)
	}

	ctx := &AssemblyContext{
		host: h,
		id:   h.table.CreateAssemblyLoadContext(name),
		name: name,
	}
	h.contexts = append(h.contexts, ctx)
	h.log.Info("created assembly context", zap.String("context", name), zap.Int32("context_id", int32(ctx.id)))
	return ctx, nil
}

// Contexts returns the load contexts created by this host.
func (h *Host) Contexts() []*AssemblyContext {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*AssemblyContext, len(h.contexts))
	copy(out, h.contexts)
	return out
}

// CollectGarbage asks the runtime for a collection of the given generation.
func (h *Host) CollectGarbage(generation int32, mode interop.GCMode, blocking, compacting bool) error {
	if err := h.table.Require(); err != nil {
		return fmt.Errorf("collect garbage: %w", err)
	}
	h.table.CollectGarbage(generation, mode, blocking, compacting)
	return nil
}

// WaitForPendingFinalizers blocks until the runtime's finalizer queue drains.
func (h *Host) WaitForPendingFinalizers() error {
	if err := h.table.Require(); err != nil {
		return fmt.Errorf("wait for pending finalizers: %w", err)
	}
	h.table.WaitForPendingFinalizers()
	return nil
}

// RegisterObject is the inbound entry point for the runtime to announce a
// native peer.
func (h *Host) RegisterObject(handle interop.ObjectHandle, obj *objects.Object) error {
	return h.objects.Register(handle, obj)
}

// UnregisterObject is the inbound entry point for forgetting a native peer.
func (h *Host) UnregisterObject(handle interop.ObjectHandle) error {
	return h.objects.Unregister(handle)
}

// InvokeNativeFunction is the inbound entry point for calling a member of a
// native peer by name. It never fails towards the caller.
func (h *Host) InvokeNativeFunction(handle interop.ObjectHandle, member string) {
	h.objects.InvokeByName(handle, member)
}

// Close unloads every context the host created and clears its cache and
// registry. The host cannot create contexts afterwards.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	contexts := h.contexts
	h.contexts = nil
	h.mu.Unlock()

	for _, ctx := range contexts {
		ctx.Unload()
	}
	h.objects.Reset()
	h.types.Reset()
	h.log.Info("host closed")
	// stderr cannot be synced on every platform
	_ = h.log.Sync()
	return nil
}
