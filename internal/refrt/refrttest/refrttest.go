// Package refrttest provides manifests and helpers for tests that drive the
// bridge through the reference runtime.
package refrttest

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/yockey88/DotOther/internal/refrt"
)

// Minimal is one type Foo with one int field Bar.
const Minimal = `
name = "Minimal"

[[types]]
name = "Foo"

  [[types.fields]]
  name = "Bar"
  type = "int"
`

// Sample exercises inheritance, arrays, attributes, properties and methods.
const Sample = `
name = "Sample"

[[types]]
name = "Sample.SerializableAttribute"
base = "System.Attribute"

[[types]]
name = "Sample.Entity"
size = 16

  [[types.fields]]
  name = "Id"
  type = "long"
  access = "protected"

  [[types.methods]]
  name = "Describe"
  returns = "string"

[[types]]
name = "Sample.Player"
base = "Sample.Entity"
size = 32

  [[types.attributes]]
  type = "Sample.SerializableAttribute"
  values = { Version = 2, Label = "player" }

  [[types.fields]]
  name = "Health"
  type = "float"

  [[types.fields]]
  name = "Scores"
  type = "int[]"
  access = "private"

    [[types.fields.attributes]]
    type = "Sample.SerializableAttribute"
    values = { Version = 1 }

  [[types.properties]]
  name = "Name"
  type = "string"

  [[types.methods]]
  name = "Damage"
  params = ["float"]

  [[types.methods]]
  name = "Heal"
  returns = "float"
  params = ["float", "bool"]
  access = "internal"

  [[types.methods]]
  name = "Ping"

  [[types.methods]]
  name = "Create"
  returns = "Sample.Player"
  static = true
`

// WriteManifest writes body to a file in a per-test directory and returns
// its path.
func WriteManifest(t testing.TB, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name+".toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

// NewRuntime creates a reference runtime logging to the test.
func NewRuntime(t testing.TB, log *zap.Logger) *refrt.Runtime {
	t.Helper()

	if log == nil {
		log = zap.NewNop()
	}
	return refrt.New(refrt.WithLogger(log))
}
