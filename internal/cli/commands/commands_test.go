package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yockey88/DotOther/internal/refrt/refrttest"
	"github.com/yockey88/DotOther/runtime/interop"
)

type result struct {
	out    string
	errOut string
	err    error
}

func run(t *testing.T, args ...string) result {
	t.Helper()

	noColor := color.NoColor
	t.Cleanup(func() { color.NoColor = noColor })

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color", "--log-level", "error"}, args...))

	err := cmd.Execute()
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dotother.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "dotother", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, flag := range []string{"config", "log-level", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"version", "describe", "snapshot", "invoke"})
}

func TestVersionCommand(t *testing.T) {
	Version, GitCommit = "1.0.0-test", "abc123"
	t.Cleanup(func() { Version, GitCommit = "dev", "unknown" })

	r := run(t, "version")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "DotOther version: 1.0.0-test")
	assert.Contains(t, r.out, "Git commit: abc123")
	assert.Contains(t, r.out, "Go version: go")
}

func TestDescribe(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "describe", manifest)
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Sample\n")
	assert.Contains(t, r.out, "Status: success")
	assert.Contains(t, r.out, "Handle")
	assert.Contains(t, r.out, "Sample.Player")
	assert.Contains(t, r.out, "Sample.Entity")
}

func TestDescribe_Verbose(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "describe", "--verbose", manifest)
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Type : Sample.Player")
	assert.Contains(t, r.out, "  > Base : Sample.Entity")
	assert.Contains(t, r.out, "Method : internal System.Single Heal(System.Single, System.Boolean)")
}

func TestDescribe_Type(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "describe", "--type", "Sample.Entity", manifest)
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Type : Sample.Entity")
	assert.NotContains(t, r.out, "Type : Sample.Player")
}

func TestDescribe_TypeNotFound(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "describe", "--type", "Sample.Playr", manifest)
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "TYPE NOT FOUND")
	assert.Contains(t, r.errOut, "Did you mean: Sample.Player?")
}

func TestDescribe_LoadFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.toml")

	r := run(t, "describe", missing)
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "LOAD FAILED")
	assert.Contains(t, r.errOut, "not found")
}

func TestDescribe_InvalidManifest(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "bad", `name = "Bad"
[[types]]
name = "Bad.Thing"
base = "Bad.Missing"
`)

	r := run(t, "describe", manifest)
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "invalid assembly")
}

func TestDescribe_ConfiguredAssemblies(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "minimal", refrttest.Minimal)
	cfg := writeConfig(t, "runtime:\n  assemblies:\n    - "+manifest+"\n")

	r := run(t, "--config", cfg, "describe")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Foo")
}

func TestDescribe_NoAssemblies(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: error\n")

	r := run(t, "--config", cfg, "describe")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "no assemblies given")
}

func TestInvoke(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "invoke", manifest, "Sample.Player", "Heal", "2.5", "true")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Sample.Player.Heal(2.5, true) = ")
}

func TestInvoke_InheritedMethod(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "invoke", manifest, "Sample.Player", "Describe")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Sample.Player.Describe() = ")
}

func TestInvoke_Static(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "invoke", "--static", manifest, "Sample.Player", "Create")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Sample.Player.Create() = ")
}

func TestInvoke_FieldsAndDump(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "invoke", "--field", "Health=10", "--field", "Id=7", "--dump",
		manifest, "Sample.Player", "Ping")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Health: 10")
	assert.Contains(t, r.out, "Id:")
	assert.Contains(t, r.out, " 7\n")
}

func TestInvoke_Errors(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"arity", []string{"Sample.Player", "Heal", "1"}, "Heal takes 2 argument(s), got 1"},
		{"conversion", []string{"Sample.Player", "Heal", "abc", "true"}, "argument 1 of Heal"},
		{"out of range", []string{"Sample.Player", "Heal", "1e40", "true"}, "out of range for float"},
		{"field syntax", []string{"--field", "Health", "Sample.Player", "Ping"}, "expected name=value"},
		{"unknown field", []string{"--field", "Mana=1", "Sample.Player", "Ping"}, "has no field Mana"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"invoke", manifest}, tt.args...)
			r := run(t, args...)
			require.Error(t, r.err)
			assert.Contains(t, r.err.Error(), tt.wantErr)
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		raw     string
		kind    interop.ManagedType
		want    any
		wantErr bool
	}{
		{"127", interop.ManagedSByte, int8(127), false},
		{"300", interop.ManagedSByte, nil, true},
		{"255", interop.ManagedByte, uint8(255), false},
		{"-1", interop.ManagedUInt, nil, true},
		{"70000", interop.ManagedUShort, nil, true},
		{"99999999999", interop.ManagedInt, nil, true},
		{"99999999999", interop.ManagedLong, int64(99999999999), false},
		{"2.5", interop.ManagedFloat, float32(2.5), false},
		{"1e40", interop.ManagedFloat, nil, true},
		{"true", interop.ManagedBool, true, false},
		{"hello", interop.ManagedUnknown, "hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String()+"_"+tt.raw, func(t *testing.T) {
			got, err := convert(tt.raw, tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoke_MemberNotFound(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)

	r := run(t, "invoke", manifest, "Sample.Player", "Heel")
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "MEMBER NOT FOUND")
	assert.Contains(t, r.errOut, "Did you mean: Heal?")
}

func TestSnapshot_SaveShowDrop(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)
	db := filepath.Join(t.TempDir(), "snapshots.db")
	cfg := writeConfig(t, "snapshot:\n  backend: sqlite\n  sqlite:\n    path: "+db+"\n")

	r := run(t, "--config", cfg, "snapshot", "save", manifest)
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "✓ Saved Sample")
	assert.Contains(t, r.out, "to sqlite store")

	r = run(t, "--config", cfg, "snapshot", "show", "Sample")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Schema: 1")
	assert.Contains(t, r.out, "Sample.Player")

	r = run(t, "--config", cfg, "snapshot", "show", "--type", "Sample.Player", "Sample")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Base:")
	assert.Contains(t, r.out, "Sample.Entity")
	assert.Contains(t, r.out, "Heal")
	assert.Contains(t, r.out, "Health")

	r = run(t, "--config", cfg, "snapshot", "show", "--type", "Sample.Playr", "Sample")
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "Did you mean: Sample.Player?")

	r = run(t, "--config", cfg, "snapshot", "drop", "Sample")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "✓ Dropped Sample")

	r = run(t, "--config", cfg, "snapshot", "show", "Sample")
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "NO SNAPSHOT")
}

func TestSnapshot_MemoryBackendWarns(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)
	cfg := writeConfig(t, "snapshot:\n  backend: memory\n")

	r := run(t, "--config", cfg, "snapshot", "save", manifest)
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "✓ Saved Sample")
	assert.Contains(t, r.errOut, "MEMORY STORE")

	r = run(t, "--config", cfg, "snapshot", "show", "Sample")
	require.ErrorIs(t, r.err, errReported)
	assert.Contains(t, r.errOut, "MEMORY STORE")
	assert.Contains(t, r.errOut, "NO SNAPSHOT")
}

func TestSnapshot_SQLiteDoesNotWarn(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)
	db := filepath.Join(t.TempDir(), "snapshots.db")
	cfg := writeConfig(t, "snapshot:\n  backend: sqlite\n  sqlite:\n    path: "+db+"\n")

	r := run(t, "--config", cfg, "snapshot", "save", manifest)
	require.NoError(t, r.err)
	assert.NotContains(t, r.errOut, "MEMORY STORE")
}

func TestSnapshot_DropRequiresTarget(t *testing.T) {
	r := run(t, "snapshot", "drop")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "--all")
}

func TestSnapshot_DropAll(t *testing.T) {
	manifest := refrttest.WriteManifest(t, "sample", refrttest.Sample)
	db := filepath.Join(t.TempDir(), "snapshots.db")
	cfg := writeConfig(t, "snapshot:\n  backend: sqlite\n  sqlite:\n    path: "+db+"\n")

	require.NoError(t, run(t, "--config", cfg, "snapshot", "save", manifest).err)

	r := run(t, "--config", cfg, "snapshot", "drop", "--all")
	require.NoError(t, r.err)

	r = run(t, "--config", cfg, "snapshot", "show", "Sample")
	require.ErrorIs(t, r.err, errReported)
}
