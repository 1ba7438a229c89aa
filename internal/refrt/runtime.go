// Package refrt is an in-process managed runtime that serves assembly
// metadata from TOML manifests. It fills every slot of an interop.Table and
// backs the command line tool and the bridge tests.
package refrt

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/runtime/interop"
)

// Body implements a managed method. self is nil for static methods.
type Body func(self *Instance, args []any) any

// Inbound is the native surface the runtime calls back into.
type Inbound interface {
	InvokeNativeFunction(obj interop.ObjectHandle, member string)
}

// Stats counts runtime control requests.
type Stats struct {
	Collections    int
	FinalizerWaits int
	Collected      int
	Live           int
}

type typeInfo struct {
	handle     interop.Handle
	name       string
	assembly   string
	base       interop.Handle
	elem       interop.Handle
	array      bool
	size       int32
	kind       interop.ManagedType
	methods    []interop.Handle
	fields     []interop.Handle
	properties []interop.Handle
	attributes []interop.Handle
}

type fieldInfo struct {
	name       string
	typ        interop.Handle
	access     interop.TypeAccessibility
	attributes []interop.Handle
}

type propertyInfo struct {
	name       string
	typ        interop.Handle
	attributes []interop.Handle
}

type methodInfo struct {
	name       string
	ret        interop.Handle
	params     []interop.Handle
	access     interop.TypeAccessibility
	static     bool
	attributes []interop.Handle
}

type attrInfo struct {
	typ    interop.Handle
	values map[string]any
}

type assemblyInfo struct {
	id    interop.AssemblyID
	ctx   interop.ContextID
	name  string
	path  string
	types []interop.Handle
}

// Runtime holds every metadata record and live object. All exported methods
// are safe for concurrent use; method bodies run without the runtime lock so
// they may call back into the bridge.
type Runtime struct {
	log *zap.Logger

	mu         sync.Mutex
	next       interop.Handle
	types      map[interop.Handle]*typeInfo
	byName     map[string]interop.Handle
	fields     map[interop.Handle]*fieldInfo
	properties map[interop.Handle]*propertyInfo
	methods    map[interop.Handle]*methodInfo
	attrs      map[interop.Handle]*attrInfo
	core       []interop.Handle

	contexts     map[interop.ContextID]string
	nextContext  interop.ContextID
	assemblies   map[interop.AssemblyID]*assemblyInfo
	nextAssembly interop.AssemblyID
	lastStatus   interop.AssemblyLoadStatus

	objects    map[interop.ObjectHandle]*Instance
	nextObject interop.ObjectHandle
	bodies     map[string]Body
	calls      map[string]uintptr
	inbound    Inbound
	stats      Stats
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger for runtime diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a runtime with the core library types already defined.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		log:          zap.NewNop(),
		next:         1,
		types:        make(map[interop.Handle]*typeInfo),
		byName:       make(map[string]interop.Handle),
		fields:       make(map[interop.Handle]*fieldInfo),
		properties:   make(map[interop.Handle]*propertyInfo),
		methods:      make(map[interop.Handle]*methodInfo),
		attrs:        make(map[interop.Handle]*attrInfo),
		contexts:     make(map[interop.ContextID]string),
		nextContext:  1,
		assemblies:   make(map[interop.AssemblyID]*assemblyInfo),
		nextAssembly: 1,
		objects:      make(map[interop.ObjectHandle]*Instance),
		nextObject:   0x1000,
		bodies:       make(map[string]Body),
		calls:        make(map[string]uintptr),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("refrt")

	for _, ct := range coreTypes {
		t := r.newTypeLocked(ct.name, coreAssembly)
		t.size = ct.size
		t.kind = ct.kind
		if ct.base != "" {
			t.base = r.byName[ct.base]
		}
		r.core = append(r.core, t.handle)
	}
	return r
}

// Define installs the body of typeName.method. Constructors use ".ctor";
// property accessors use "get_Name" and "set_Name".
func (r *Runtime) Define(typeName, method string, body Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies[canonical(typeName)+"::"+method] = body
}

// Attach sets the native surface used by Instance.CallNative.
func (r *Runtime) Attach(in Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbound = in
}

// InternalCall returns the function pointer uploaded under name.
func (r *Runtime) InternalCall(name string) (uintptr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.calls[name]
	return fn, ok
}

// Stats returns a snapshot of the runtime counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Live = len(r.objects)
	return s
}

// Object returns the live instance behind obj.
func (r *Runtime) Object(obj interop.ObjectHandle) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.objects[obj]
	return inst, ok
}

func (r *Runtime) alloc() interop.Handle {
	h := r.next
	r.next++
	return h
}

func (r *Runtime) newTypeLocked(name, assembly string) *typeInfo {
	t := &typeInfo{
		handle:   r.alloc(),
		name:     name,
		assembly: assembly,
		base:     interop.NullHandle,
		elem:     interop.NullHandle,
	}
	r.types[t.handle] = t
	if _, taken := r.byName[name]; !taken {
		r.byName[name] = t.handle
	}
	return t
}

// arrayOfLocked returns the single-dimension array type over elem, creating
// it on first use.
func (r *Runtime) arrayOfLocked(elem *typeInfo) *typeInfo {
	name := elem.name + "[]"
	if h, ok := r.byName[name]; ok && r.types[h].elem == elem.handle {
		return r.types[h]
	}
	t := r.newTypeLocked(name, elem.assembly)
	t.array = true
	t.elem = elem.handle
	t.base = r.byName["System.Array"]
	t.size = 8
	return t
}

func (r *Runtime) lookupLocked(name string) (*typeInfo, bool) {
	name = canonical(name)
	if h, ok := r.byName[name]; ok {
		return r.types[h], true
	}
	if inner, ok := strings.CutSuffix(name, "[]"); ok {
		elem, found := r.lookupLocked(inner)
		if !found {
			return nil, false
		}
		return r.arrayOfLocked(elem), true
	}
	return nil, false
}

// assembly

func (r *Runtime) createContext(name string) interop.ContextID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextContext
	r.nextContext++
	r.contexts[id] = name
	r.log.Debug("created load context", zap.String("name", name), zap.Int32("id", int32(id)))
	return id
}

func (r *Runtime) unloadContext(ctx interop.ContextID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, ctx)
	for id, asm := range r.assemblies {
		if asm.ctx == ctx {
			delete(r.assemblies, id)
		}
	}
}

func (r *Runtime) loadAssembly(ctx interop.ContextID, path string) interop.AssemblyID {
	m, err := LoadManifest(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contexts[ctx]; !ok {
		r.lastStatus = interop.LoadCorruptContext
		return interop.InvalidAssembly
	}
	if err != nil {
		r.lastStatus = interop.LoadInvalidAssembly
		if errors.Is(err, fs.ErrNotExist) {
			r.lastStatus = interop.LoadNotFound
		}
		r.log.Warn("failed to load assembly", zap.String("path", path), zap.Error(err))
		return interop.InvalidAssembly
	}

	l := &loader{rt: r, asm: m.Name, local: make(map[string]*typeInfo)}
	handles, err := l.load(m)
	if err != nil {
		l.rollback()
		r.lastStatus = interop.LoadInvalidAssembly
		r.log.Warn("rejected assembly manifest", zap.String("path", path), zap.Error(err))
		return interop.InvalidAssembly
	}

	id := r.nextAssembly
	r.nextAssembly++
	r.assemblies[id] = &assemblyInfo{id: id, ctx: ctx, name: m.Name, path: path, types: handles}
	r.lastStatus = interop.LoadSuccess
	r.log.Debug("loaded assembly",
		zap.String("name", m.Name),
		zap.Int("types", len(handles)),
	)
	return id
}

func (r *Runtime) lastLoadStatus() interop.AssemblyLoadStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStatus
}

func (r *Runtime) assemblyName(asm interop.AssemblyID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assemblies[asm]; ok {
		return a.name
	}
	return ""
}

// loader stages one manifest. Every handle it allocates is recorded so a
// failed load leaves no trace.
type loader struct {
	rt      *Runtime
	asm     string
	local   map[string]*typeInfo
	created []interop.Handle
}

func (l *loader) track(h interop.Handle) interop.Handle {
	l.created = append(l.created, h)
	return h
}

func (l *loader) rollback() {
	r := l.rt
	for _, h := range l.created {
		if t, ok := r.types[h]; ok && r.byName[t.name] == h {
			delete(r.byName, t.name)
		}
		delete(r.types, h)
		delete(r.fields, h)
		delete(r.properties, h)
		delete(r.methods, h)
		delete(r.attrs, h)
	}
}

func (l *loader) resolve(name string) (*typeInfo, error) {
	name = canonical(name)
	if t, ok := l.local[name]; ok {
		return t, nil
	}
	if inner, ok := strings.CutSuffix(name, "[]"); ok {
		elem, err := l.resolve(inner)
		if err != nil {
			return nil, err
		}
		before := l.rt.next
		arr := l.rt.arrayOfLocked(elem)
		if arr.handle >= before {
			l.track(arr.handle)
		}
		l.local[name] = arr
		return arr, nil
	}
	if h, ok := l.rt.byName[name]; ok {
		return l.rt.types[h], nil
	}
	return nil, fmt.Errorf("unknown type %q: %w", name, ErrInvalidManifest)
}

func (l *loader) load(m *Manifest) ([]interop.Handle, error) {
	r := l.rt
	handles := make([]interop.Handle, 0, len(m.Types))
	for _, tm := range m.Types {
		t := r.newTypeLocked(canonical(tm.Name), l.asm)
		l.track(t.handle)
		l.local[t.name] = t
		handles = append(handles, t.handle)
	}

	for _, tm := range m.Types {
		t := l.local[canonical(tm.Name)]
		if err := l.fill(t, tm); err != nil {
			return nil, fmt.Errorf("type %s: %w", tm.Name, err)
		}
	}
	return handles, nil
}

func (l *loader) fill(t *typeInfo, tm TypeManifest) error {
	r := l.rt

	base := tm.Base
	if base == "" {
		base = "System.Object"
	}
	bt, err := l.resolve(base)
	if err != nil {
		return err
	}
	if bt == t {
		return fmt.Errorf("type derives from itself: %w", ErrInvalidManifest)
	}
	t.base = bt.handle
	t.size = tm.Size
	if t.size == 0 {
		t.size = 8
	}
	if tm.Kind != "" {
		kind, ok := interop.ParseManagedType(tm.Kind)
		if !ok {
			return fmt.Errorf("unknown kind %q: %w", tm.Kind, ErrInvalidManifest)
		}
		t.kind = kind
	}

	if t.attributes, err = l.attributes(tm.Attributes); err != nil {
		return err
	}

	for _, fm := range tm.Fields {
		ft, err := l.resolve(fm.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", fm.Name, err)
		}
		access, ok := interop.ParseAccessibility(fm.Access)
		if !ok {
			return fmt.Errorf("field %s: unknown access %q: %w", fm.Name, fm.Access, ErrInvalidManifest)
		}
		attrs, err := l.attributes(fm.Attributes)
		if err != nil {
			return fmt.Errorf("field %s: %w", fm.Name, err)
		}
		h := l.track(r.alloc())
		r.fields[h] = &fieldInfo{name: fm.Name, typ: ft.handle, access: access, attributes: attrs}
		t.fields = append(t.fields, h)
	}

	for _, pm := range tm.Properties {
		pt, err := l.resolve(pm.Type)
		if err != nil {
			return fmt.Errorf("property %s: %w", pm.Name, err)
		}
		attrs, err := l.attributes(pm.Attributes)
		if err != nil {
			return fmt.Errorf("property %s: %w", pm.Name, err)
		}
		h := l.track(r.alloc())
		r.properties[h] = &propertyInfo{name: pm.Name, typ: pt.handle, attributes: attrs}
		t.properties = append(t.properties, h)
	}

	for _, mm := range tm.Methods {
		ret := mm.Returns
		if ret == "" {
			ret = "void"
		}
		rt, err := l.resolve(ret)
		if err != nil {
			return fmt.Errorf("method %s: %w", mm.Name, err)
		}
		params := make([]interop.Handle, 0, len(mm.Params))
		for _, p := range mm.Params {
			pt, err := l.resolve(p)
			if err != nil {
				return fmt.Errorf("method %s: %w", mm.Name, err)
			}
			params = append(params, pt.handle)
		}
		access, ok := interop.ParseAccessibility(mm.Access)
		if !ok {
			return fmt.Errorf("method %s: unknown access %q: %w", mm.Name, mm.Access, ErrInvalidManifest)
		}
		attrs, err := l.attributes(mm.Attributes)
		if err != nil {
			return fmt.Errorf("method %s: %w", mm.Name, err)
		}
		h := l.track(r.alloc())
		r.methods[h] = &methodInfo{
			name:       mm.Name,
			ret:        rt.handle,
			params:     params,
			access:     access,
			static:     mm.Static,
			attributes: attrs,
		}
		t.methods = append(t.methods, h)
	}
	return nil
}

func (l *loader) attributes(list []AttributeManifest) ([]interop.Handle, error) {
	var out []interop.Handle
	for _, am := range list {
		at, err := l.resolve(am.Type)
		if err != nil {
			return nil, fmt.Errorf("attribute: %w", err)
		}
		h := l.track(l.rt.alloc())
		l.rt.attrs[h] = &attrInfo{typ: at.handle, values: am.Values}
		out = append(out, h)
	}
	return out, nil
}
