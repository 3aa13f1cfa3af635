package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher serves a fixed snapshot and records every call
type countingFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
	snap  func(branch string) *models.Snapshot
}

func (f *countingFetcher) Fetch(_ context.Context, branch, arch string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snap(branch)
	if arch != "" {
		snap = snap.Filter(arch)
	}
	return snap, nil
}

func (f *countingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleSnapshot(branch string) *models.Snapshot {
	return models.NewSnapshot(branch, []models.Package{
		{Name: "foo", Version: "1.2", Release: "alt1", Arch: "x86_64", Source: "foo"},
		{Name: "foo", Version: "1.1", Release: "alt1", Arch: "x86_64", Source: "foo"},
		{Name: "bar", Epoch: 2, Version: "0.1", Release: "alt3", Arch: "aarch64", Buildtime: 1700000000},
		{Name: "baz", Version: "3", Release: "alt1", Arch: "noarch", Disttag: "sisyphus+1"},
	})
}

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func newDisk(t *testing.T, f *countingFetcher, c *clock, codec utils.Codec) (*Cache, string) {
	dir := t.TempDir()
	return NewDiskStore(f, Options{Dir: dir, Codec: codec, Now: c.Now}), dir
}

func TestDiskRoundTripWithoutFetch(t *testing.T) {
	for _, codec := range []utils.Codec{utils.CodecNone, utils.CodecGzip, utils.CodecXZ, utils.CodecZstd} {
		t.Run(string(codec), func(t *testing.T) {
			f := &countingFetcher{snap: sampleSnapshot}
			c := newClock()
			store, dir := newDisk(t, f, c, codec)
			ctx := context.Background()

			first, err := store.Get(ctx, "sisyphus", "", false)
			require.NoError(t, err)
			assert.Equal(t, 1, f.Calls())
			assert.FileExists(t, Path(dir, codec, "sisyphus", ""))

			c.Advance(59 * time.Minute)

			// A fresh store reads the file back without fetching.
			reopened := NewDiskStore(f, Options{Dir: dir, Codec: codec, Now: c.Now})
			second, err := reopened.Get(ctx, "sisyphus", "", false)
			require.NoError(t, err)
			assert.Equal(t, 1, f.Calls())
			assert.Equal(t, first, second)
		})
	}
}

func TestDiskExpiredEntryRefetches(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	store, _ := newDisk(t, f, c, utils.CodecGzip)
	ctx := context.Background()

	_, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)

	c.Advance(time.Hour)
	_, err = store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())

	// The refetch renewed the entry.
	c.Advance(30 * time.Minute)
	_, err = store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())
}

func TestForceAlwaysFetches(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	store, _ := newDisk(t, f, c, utils.CodecGzip)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := store.Get(ctx, "p10", "", true)
		require.NoError(t, err)
		assert.Equal(t, i, f.Calls())
	}
}

func TestArchFilterUsesSeparateKey(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	store, dir := newDisk(t, f, c, utils.CodecGzip)
	ctx := context.Background()

	all, err := store.Get(ctx, "sisyphus", "", false)
	require.NoError(t, err)
	one, err := store.Get(ctx, "sisyphus", "x86_64", false)
	require.NoError(t, err)

	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, []string{"aarch64", "noarch", "x86_64"}, all.Architectures())
	assert.Equal(t, []string{"x86_64"}, one.Architectures())
	assert.FileExists(t, filepath.Join(dir, "sisyphus.all.json.gz"))
	assert.FileExists(t, filepath.Join(dir, "sisyphus.x86_64.json.gz"))
}

func TestCorruptEntryIsRefetched(t *testing.T) {
	tests := map[string]func(path string) error{
		"garbage": func(path string) error {
			return os.WriteFile(path, []byte("definitely not gzip"), 0600)
		},
		"truncated": func(path string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return os.WriteFile(path, data[:len(data)/2], 0600)
		},
		"wrong key": func(path string) error {
			data, err := encodeEntry("p9", "", &cached{snapshot: sampleSnapshot("p9"), fetchedAt: time.Now()}, utils.CodecGzip)
			if err != nil {
				return err
			}
			return os.WriteFile(path, data, 0600)
		},
		"tampered payload": func(path string) error {
			data, err := encodeEntry("sisyphus", "", &cached{snapshot: sampleSnapshot("sisyphus"), fetchedAt: time.Now()}, utils.CodecNone)
			if err != nil {
				return err
			}
			raw, err := utils.GzipCompress(bytes.Replace(data, []byte(`"1.2"`), []byte(`"9.9"`), 1))
			if err != nil {
				return err
			}
			return os.WriteFile(path, raw, 0600)
		},
	}

	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			f := &countingFetcher{snap: sampleSnapshot}
			c := newClock()
			store, dir := newDisk(t, f, c, utils.CodecGzip)
			ctx := context.Background()

			_, err := store.Get(ctx, "sisyphus", "", false)
			require.NoError(t, err)
			require.NoError(t, corrupt(Path(dir, utils.CodecGzip, "sisyphus", "")))

			snap, err := store.Get(ctx, "sisyphus", "", false)
			require.NoError(t, err)
			assert.Equal(t, 2, f.Calls())
			assert.Equal(t, sampleSnapshot("sisyphus"), snap)
		})
	}
}

func TestFetchFailureFailsFast(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	store, _ := newDisk(t, f, c, utils.CodecGzip)
	ctx := context.Background()

	_, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)
	f.err = models.NewError(models.ErrFetch, "p11", errors.New("connection refused"))

	_, err = store.Get(ctx, "p11", "", false)
	require.Error(t, err)
	assert.True(t, models.IsType(err, models.ErrFetch))
}

func TestFetchFailureServesStaleWhenEnabled(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	dir := t.TempDir()
	store := NewDiskStore(f, Options{Dir: dir, Codec: utils.CodecGzip, Now: c.Now, StaleFallback: true})
	ctx := context.Background()

	want, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)

	c.Advance(2 * time.Hour)
	f.err = errors.New("connection refused")

	got, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Forced refresh falls back too.
	got, err = store.Get(ctx, "p11", "", true)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Without any entry there is nothing to fall back to.
	_, err = store.Get(ctx, "p10", "", false)
	assert.Error(t, err)
}

func TestCancelledFetchDoesNotWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &countingFetcher{snap: func(branch string) *models.Snapshot {
		cancel()
		return sampleSnapshot(branch)
	}}
	c := newClock()
	store, dir := newDisk(t, f, c, utils.CodecGzip)

	_, err := store.Get(ctx, "p11", "", false)
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	store := NewMemoryStore(f, Options{Now: c.Now, TTL: 10 * time.Minute})
	ctx := context.Background()

	a, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	b, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, f.Calls())

	c.Advance(10 * time.Minute)
	_, err = store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())

	_, err = store.Get(ctx, "p11", "", true)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Calls())
}

func TestFutureEntryIsRefetched(t *testing.T) {
	f := &countingFetcher{snap: sampleSnapshot}
	c := newClock()
	dir := t.TempDir()
	store := NewDiskStore(f, Options{Dir: dir, Codec: utils.CodecGzip, Now: c.Now, StaleFallback: true})
	ctx := context.Background()

	_, err := store.Get(ctx, "p11", "", false)
	require.NoError(t, err)

	// Clock moved back: the entry claims a fetch time still to come
	c.Advance(-3 * time.Hour)
	_, err = store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())

	// The rewritten entry carries the current time and is valid again
	_, err = store.Get(ctx, "p11", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls())

	// A future entry is not a fallback either
	c.Advance(-3 * time.Hour)
	f.err = errors.New("connection refused")
	_, err = store.Get(ctx, "p11", "", false)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "sisyphus.all", Key("sisyphus", ""))
	assert.Equal(t, "p11.aarch64", Key("p11", "aarch64"))
}

func TestDefaultDir(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("BRANCHDIFF_CACHE_DIR", custom)
	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, custom, dir)

	t.Setenv("BRANCHDIFF_CACHE_DIR", "")
	t.Setenv("HOME", custom)
	dir, err = DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(custom, DirName), dir)
}
