// Package snapshot captures the metadata of a loaded assembly as a plain
// value tree and persists it in a key/value store.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/yockey88/DotOther/runtime/hosting"
)

// Current schema version - increment when the Snapshot layout changes
const Schema uint16 = 1

// ErrSchemaMismatch is returned when decoding a snapshot written with another
// schema version.
var ErrSchemaMismatch = errors.New("snapshot schema mismatch")

// Snapshot is the metadata of one assembly.
type Snapshot struct {
	Schema   uint16
	Assembly string
	Types    []TypeSnapshot
}

type TypeSnapshot struct {
	Handle           int32
	Name             string
	AsmQualifiedName string
	Kind             string
	Size             int32
	Base             string
	IsArray          bool
	Element          string
	Fields           []FieldSnapshot
	Properties       []PropertySnapshot
	Methods          []MethodSnapshot
	Attributes       []AttributeSnapshot
}

type FieldSnapshot struct {
	Name       string
	Type       string
	Access     string
	Attributes []AttributeSnapshot
}

type PropertySnapshot struct {
	Name       string
	Type       string
	Attributes []AttributeSnapshot
}

type MethodSnapshot struct {
	Name       string
	Returns    string
	Params     []string
	Access     string
	Attributes []AttributeSnapshot
}

type AttributeSnapshot struct {
	Type string
}

// Build walks every type of asm, resolving all of its relations.
func Build(asm *hosting.Assembly) *Snapshot {
	s := &Snapshot{Schema: Schema, Assembly: asm.Name()}
	for _, t := range asm.Types() {
		s.Types = append(s.Types, buildType(t))
	}
	return s
}

func buildType(t *hosting.Type) TypeSnapshot {
	ts := TypeSnapshot{
		Handle:           int32(t.Handle()),
		Name:             t.FullName(),
		AsmQualifiedName: t.AsmQualifiedName(),
		Kind:             t.ManagedType().String(),
		Size:             t.Size(),
		Base:             t.BaseObject().FullName(),
		IsArray:          t.IsArray(),
		Attributes:       attributes(t.Attributes()),
	}
	if ts.IsArray {
		ts.Element = t.ElementType().FullName()
	}

	for _, f := range t.Fields() {
		ts.Fields = append(ts.Fields, FieldSnapshot{
			Name:       f.Name(),
			Type:       f.Type().FullName(),
			Access:     f.Accessibility().String(),
			Attributes: attributes(f.Attributes()),
		})
	}
	for _, p := range t.Properties() {
		ts.Properties = append(ts.Properties, PropertySnapshot{
			Name:       p.Name(),
			Type:       p.Type().FullName(),
			Attributes: attributes(p.Attributes()),
		})
	}
	for _, m := range t.Methods() {
		ms := MethodSnapshot{
			Name:       m.Name(),
			Returns:    m.ReturnType().FullName(),
			Access:     m.Accessibility().String(),
			Attributes: attributes(m.Attributes()),
		}
		for _, p := range m.ParamTypes() {
			ms.Params = append(ms.Params, p.FullName())
		}
		ts.Methods = append(ts.Methods, ms)
	}
	return ts
}

func attributes(attrs []*hosting.Attribute) []AttributeSnapshot {
	var out []AttributeSnapshot
	for _, a := range attrs {
		out = append(out, AttributeSnapshot{Type: a.Type().FullName()})
	}
	return out
}

// Type returns the type snapshot called name.
func (s *Snapshot) Type(name string) (TypeSnapshot, bool) {
	for _, t := range s.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeSnapshot{}, false
}

// Encode serializes s.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode deserializes a snapshot and checks its schema version.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Schema != Schema {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, s.Schema, Schema)
	}
	return &s, nil
}

// Save stores s under its assembly name.
func Save(ctx context.Context, store Store, s *Snapshot, ttl time.Duration) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, s.Assembly, data, ttl); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", s.Assembly, err)
	}
	return nil
}

// Load fetches the snapshot of the named assembly.
func Load(ctx context.Context, store Store, assembly string) (*Snapshot, error) {
	data, err := store.Get(ctx, assembly)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
