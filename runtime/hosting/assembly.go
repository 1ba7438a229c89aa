package hosting

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/runtime/interop"
)

// AssemblyContext is a managed load context and the assemblies loaded into it.
type AssemblyContext struct {
	host *Host
	id   interop.ContextID
	name string

	mu         sync.Mutex
	assemblies []*Assembly
	unloaded   bool
}

func (c *AssemblyContext) ID() interop.ContextID { return c.id }

func (c *AssemblyContext) Name() string { return c.name }

// LoadAssembly loads the image at path and interns every type it exposes.
// A missing file, a rejected load or a "failed" status is returned as an
// *interop.LoadError. Any other non-success status yields the assembly with
// that status and no types.
func (c *AssemblyContext) LoadAssembly(path string) (*Assembly, error) {
	h := c.host
	log := h.log.With(zap.String("path", path))

	if err := h.table.Require(); err != nil {
		return nil, fmt.Errorf("load assembly %s: %w", path, err)
	}

	if _, err := os.Stat(path); err != nil {
		log.Error("assembly file does not exist", zap.Error(err))
		status := interop.LoadInvalidPath
		if errors.Is(err, os.ErrNotExist) {
			status = interop.LoadNotFound
		}
		return nil, &interop.LoadError{Path: path, Status: status}
	}
	log.Debug("loading assembly")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unloaded {
		return nil, &interop.LoadError{Path: path, Status: interop.LoadCorruptContext}
	}

	id := h.table.LoadAssembly(c.id, path)
	if id == interop.InvalidAssembly {
		status := h.table.GetLastLoadStatus()
		if status == interop.LoadSuccess {
			status = interop.LoadFailed
		}
		log.Error("failed to load assembly", zap.Stringer("status", status))
		return nil, &interop.LoadError{Path: path, Status: status}
	}

	asm := &Assembly{
		ctx:    c,
		id:     id,
		status: h.table.GetLastLoadStatus(),
	}
	if asm.status == interop.LoadFailed {
		log.Error("failed to load assembly", zap.Stringer("status", asm.status))
		return nil, &interop.LoadError{Path: path, Status: asm.status}
	}
	c.assemblies = append(c.assemblies, asm)

	if asm.status != interop.LoadSuccess {
		log.Error("assembly loaded with errors", zap.Stringer("status", asm.status))
		return asm, nil
	}

	asm.name = h.table.GetAssemblyName(id)
	log.Info("assembly loaded", zap.String("assembly", asm.name))

	handles := interop.FetchHandles(id, h.table.GetAsmTypes)
	log.Debug("loading types", zap.Int("count", len(handles)))
	for _, th := range handles {
		asm.types = append(asm.types, h.types.CacheType(th))
	}
	log.Debug("loaded types", zap.Int("count", len(asm.types)))
	return asm, nil
}

// Assemblies returns the assemblies loaded into the context.
func (c *AssemblyContext) Assemblies() []*Assembly {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Assembly, len(c.assemblies))
	copy(out, c.assemblies)
	return out
}

// Unload releases the load context. Records already cached remain valid
// descriptions but their handles should not be used against the runtime.
func (c *AssemblyContext) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unloaded {
		return
	}
	c.unloaded = true
	if c.host.table.UnloadAssemblyLoadContext != nil {
		c.host.table.UnloadAssemblyLoadContext(c.id)
	}
	c.host.log.Info("unloaded assembly context", zap.String("context", c.name))
}

// Assembly is a loaded managed assembly.
type Assembly struct {
	ctx    *AssemblyContext
	id     interop.AssemblyID
	name   string
	status interop.AssemblyLoadStatus
	types  []*Type

	mu            sync.Mutex
	internalCalls []interop.InternalCall
}

func (a *Assembly) ID() interop.AssemblyID { return a.id }

func (a *Assembly) Name() string { return a.name }

func (a *Assembly) LoadStatus() interop.AssemblyLoadStatus { return a.status }

// Types returns the types the assembly exposed at load time.
func (a *Assembly) Types() []*Type {
	out := make([]*Type, len(a.types))
	copy(out, a.types)
	return out
}

// GetType returns the cached type class in namespace ns, or the sentinel.
func (a *Assembly) GetType(class, ns string) *Type {
	return a.ctx.host.GetType(qualify(class, ns))
}

// HasType reports whether GetType would find a real type.
func (a *Assembly) HasType(class, ns string) bool {
	return a.GetType(class, ns).Valid()
}

// AsmQualifiedName returns "ns.class", or class alone without a namespace.
func (a *Assembly) AsmQualifiedName(class, ns string) string {
	return qualify(class, ns)
}

// AsmQualifiedMethodName returns "ns.class+method".
func (a *Assembly) AsmQualifiedMethodName(class, method, ns string) string {
	return qualify(class, ns) + "+" + method
}

// SetInternalCall queues fn as the implementation of the extern method
// class.method. Queued calls reach the runtime on UploadInternalCalls.
func (a *Assembly) SetInternalCall(class, method string, fn uintptr) {
	log := a.ctx.host.log
	if fn == 0 {
		log.Error("internal call registered with a null function pointer",
			zap.String("type", class), zap.String("member", method))
		return
	}

	name := class + "+" + method + ", " + a.name

	a.mu.Lock()
	a.internalCalls = append(a.internalCalls, interop.InternalCall{Name: name, Fn: fn})
	a.mu.Unlock()

	log.Debug("internal call registered", zap.String("assembly", a.name), zap.String("name", name), zap.Uintptr("fn", fn))
}

// InternalCalls returns the queued internal calls.
func (a *Assembly) InternalCalls() []interop.InternalCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]interop.InternalCall, len(a.internalCalls))
	copy(out, a.internalCalls)
	return out
}

// UploadInternalCalls hands every queued internal call to the runtime. An
// incomplete operation table is a hard error here: continuing would leave
// extern methods unbound.
func (a *Assembly) UploadInternalCalls() error {
	table := a.ctx.host.table
	if err := table.Require(); err != nil {
		a.ctx.host.log.Error("interop is not bound to assembly", zap.String("assembly", a.name), zap.Error(err))
		return fmt.Errorf("upload internal calls for %s: %w", a.name, err)
	}

	calls := a.InternalCalls()
	if len(calls) == 0 {
		return nil
	}
	table.SetInternalCalls(calls)
	return nil
}

func qualify(class, ns string) string {
	if ns == "" {
		return class
	}
	return ns + "." + class
}
