package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/yockey88/DotOther/internal/config"
	"github.com/yockey88/DotOther/internal/refrt/refrttest"
	"github.com/yockey88/DotOther/runtime/hosting"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	rt := refrttest.NewRuntime(t, nil)
	host := hosting.NewHost(rt.Table())
	t.Cleanup(func() { _ = host.Close() })

	ctx, err := host.CreateAssemblyContext("snapshot")
	require.NoError(t, err)
	asm, err := ctx.LoadAssembly(refrttest.WriteManifest(t, "sample", refrttest.Sample))
	require.NoError(t, err)
	return Build(asm)
}

func TestBuild(t *testing.T) {
	s := sampleSnapshot(t)

	assert.Equal(t, Schema, s.Schema)
	assert.Equal(t, "Sample", s.Assembly)
	require.Len(t, s.Types, 3)

	player, ok := s.Type("Sample.Player")
	require.True(t, ok)

	want := TypeSnapshot{
		Handle:           player.Handle,
		Name:             "Sample.Player",
		AsmQualifiedName: "Sample.Player, Sample",
		Kind:             "unknown",
		Size:             32,
		Base:             "Sample.Entity",
		Attributes:       []AttributeSnapshot{{Type: "Sample.SerializableAttribute"}},
		Fields: []FieldSnapshot{
			{Name: "Health", Type: "System.Single", Access: "public"},
			{
				Name:       "Scores",
				Type:       "System.Int32[]",
				Access:     "private",
				Attributes: []AttributeSnapshot{{Type: "Sample.SerializableAttribute"}},
			},
		},
		Properties: []PropertySnapshot{{Name: "Name", Type: "System.String"}},
		Methods: []MethodSnapshot{
			{Name: "Damage", Returns: "System.Void", Params: []string{"System.Single"}, Access: "public"},
			{Name: "Heal", Returns: "System.Single", Params: []string{"System.Single", "System.Boolean"}, Access: "internal"},
			{Name: "Ping", Returns: "System.Void", Access: "public"},
			{Name: "Create", Returns: "Sample.Player", Access: "public"},
		},
	}
	if diff := cmp.Diff(want, player); diff != "" {
		t.Errorf("player snapshot mismatch (-want +got):\n%s", diff)
	}

	_, ok = s.Type("Nope")
	assert.False(t, ok)
}

func TestEncodeDecode(t *testing.T) {
	s := sampleSnapshot(t)

	data, err := Encode(s)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("decoded snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_SchemaMismatch(t *testing.T) {
	data, err := msgpack.Marshal(&Snapshot{Schema: Schema + 1, Assembly: "Old"})
	require.NoError(t, err)

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}

// storeContract runs the behaviour every backend shares.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "a", []byte("one"), time.Minute))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, store.Set(ctx, "a", []byte("two"), 0))
	got, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	ok, err := store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "a"))
	ok, err = store.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "b", []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, "c", []byte("y"), -1))
	require.NoError(t, store.Clear(ctx))
	for _, k := range []string{"b", "c"} {
		_, err := store.Get(ctx, k)
		assert.ErrorIs(t, err, ErrMiss, k)
	}

	s := sampleSnapshot(t)
	require.NoError(t, Save(ctx, store, s, time.Minute))
	loaded, err := Load(ctx, store, "Sample")
	require.NoError(t, err)
	if diff := cmp.Diff(s, loaded); diff != "" {
		t.Errorf("loaded snapshot mismatch (-want +got):\n%s", diff)
	}

	_, err = Load(ctx, store, "Other")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	defer store.Close()

	storeContract(t, store)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore(DefaultOptions())
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Set(ctx, "a", nil, 0), context.Canceled)
	_, err = store.Exists(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreWithClient(client, DefaultOptions()), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	defer store.Close()

	storeContract(t, store)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("dotother:k"))
	assert.Equal(t, time.Minute, mr.TTL("dotother:k"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(RedisOptions{Addr: mr.Addr(), Options: DefaultOptions()})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewRedisStore(RedisOptions{Addr: "localhost:99999", Options: DefaultOptions()})
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"), DefaultOptions())
	require.NoError(t, err)
	defer store.Close()

	storeContract(t, store)
}

func TestSQLiteStore_ExpiryAndPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	a, err := NewSQLiteStore(path, Options{DefaultTTL: time.Minute, Prefix: "a_"})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteStore(path, Options{DefaultTTL: time.Minute, Prefix: "ab"})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Set(ctx, "k", []byte("1"), 0))
	require.NoError(t, b.Set(ctx, "k", []byte("2"), 0))
	require.NoError(t, a.Clear(ctx))

	_, err = a.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got, "an underscore in the prefix is not a wildcard")

	require.NoError(t, a.Set(ctx, "short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	ok, err := a.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.SnapshotConfig
		want    any
		wantErr bool
	}{
		{"memory", config.SnapshotConfig{Backend: config.BackendMemory, TTL: time.Minute}, &MemoryStore{}, false},
		{"redis", config.SnapshotConfig{Backend: config.BackendRedis, TTL: time.Minute, Redis: config.RedisConfig{Addr: mr.Addr()}}, &RedisStore{}, false},
		{"sqlite", config.SnapshotConfig{Backend: config.BackendSQLite, TTL: time.Minute, SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}}, &SQLiteStore{}, false},
		{"unknown", config.SnapshotConfig{Backend: "etcd"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}
