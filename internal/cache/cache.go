// Package cache keeps fetched branch snapshots for a bounded time so that
// repeated comparisons do not hit the network.
package cache

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ralt/branchdiff/internal/fetcher"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/utils"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a cached snapshot stays valid
const DefaultTTL = time.Hour

// Store returns branch snapshots, fetching them when the cached copy is
// missing, expired or a refresh is forced
type Store interface {
	Get(ctx context.Context, branch, arch string, force bool) (*models.Snapshot, error)
}

// Options tunes a Cache
type Options struct {
	// Dir holds the cache files of a disk store
	Dir string
	// TTL is the validity period of an entry, DefaultTTL when zero
	TTL time.Duration
	// Codec compresses payloads of a disk store
	Codec utils.Codec
	// StaleFallback serves an expired entry when the refetch fails
	StaleFallback bool
	// Now replaces time.Now, for tests
	Now func() time.Time
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// cached is a snapshot together with the time it was fetched
type cached struct {
	snapshot  *models.Snapshot
	fetchedAt time.Time
	size      int64
}

// backend persists cached snapshots
type backend interface {
	// load returns nil without error on a miss
	load(branch, arch string) (*cached, error)
	save(branch, arch string, c *cached) error
	describe(branch, arch string) string
}

// Cache implements Store on top of a backend and a Fetcher
type Cache struct {
	backend backend
	fetcher fetcher.Fetcher
	opts    Options
}

// Key names the cache entry of branch restricted to arch
func Key(branch, arch string) string {
	if arch == "" {
		arch = "all"
	}
	return branch + "." + arch
}

// Get returns the snapshot of branch, fetching it unless a valid entry exists
func (c *Cache) Get(ctx context.Context, branch, arch string, force bool) (*models.Snapshot, error) {
	var entry *cached
	if !force || c.opts.StaleFallback {
		var err error
		entry, err = c.backend.load(branch, arch)
		if err != nil {
			logrus.Warnf("Ignoring unreadable cache entry %s: %v", c.backend.describe(branch, arch), err)
			entry = nil
		}
	}

	now := c.opts.now()
	if entry != nil && entry.fetchedAt.After(now) {
		logrus.Warnf("Ignoring cache entry %s fetched in the future (%s)",
			c.backend.describe(branch, arch), entry.fetchedAt.Format(time.RFC3339))
		entry = nil
	}

	switch {
	case entry == nil:
		logrus.Debugf("Cache miss for %s", Key(branch, arch))
	case force:
		logrus.Infof("Forcing refresh of %s", Key(branch, arch))
	case now.Sub(entry.fetchedAt) < c.opts.ttl():
		logrus.Infof("Using cached %s from %s (%s)", Key(branch, arch),
			humanize.RelTime(entry.fetchedAt, now, "ago", "from now"), humanize.Bytes(uint64(entry.size)))
		return entry.snapshot, nil
	default:
		logrus.Infof("Cached %s expired (fetched %s)", Key(branch, arch),
			humanize.RelTime(entry.fetchedAt, now, "ago", "from now"))
	}

	snap, err := c.fetcher.Fetch(ctx, branch, arch)
	if err != nil {
		if entry != nil && c.opts.StaleFallback {
			logrus.Warnf("Fetching %s failed, serving stale cache entry: %v", branch, err)
			return entry.snapshot, nil
		}
		return nil, err
	}

	// An interrupted run must not publish a new entry
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.backend.save(branch, arch, &cached{snapshot: snap, fetchedAt: c.opts.now()}); err != nil {
		logrus.Warnf("Failed to cache %s: %v", Key(branch, arch), err)
	}
	return snap, nil
}
