package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Info describes one file found in the cache directory
type Info struct {
	Path      string
	Branch    string
	Arch      string
	FetchedAt time.Time
	Size      int64
	// Err is set when the file could not be decoded
	Err error
}

// Stale reports whether the entry is older than ttl at now
func (i Info) Stale(now time.Time, ttl time.Duration) bool {
	return i.Err != nil || now.Sub(i.FetchedAt) >= ttl
}

// List scans dir for cache entries, sorted by path. A missing directory
// yields no entries.
func List(ctx context.Context, dir string) ([]Info, error) {
	var infos []Info

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		codec, ok := codecOf(d.Name())
		if !ok {
			return nil
		}

		info := Info{Path: path}
		data, err := os.ReadFile(path)
		if err != nil {
			info.Err = err
			infos = append(infos, info)
			return nil
		}
		info.Size = int64(len(data))

		entry, _, err := decodeEntry(data, codec)
		if err != nil {
			info.Err = err
		} else {
			info.Branch = entry.Branch
			info.Arch = entry.Arch
			info.FetchedAt = entry.FetchedAt
		}

		logrus.Debugf("Found cache file: %s", path)
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache directory: %w", err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

// Purge removes entries fetched more than maxAge before now, unreadable
// entries and leftover temporary files. With maxAge <= 0 every entry is
// removed. It returns the removed paths.
func Purge(ctx context.Context, dir string, maxAge time.Duration, now time.Time) ([]string, error) {
	infos, err := List(ctx, dir)
	if err != nil {
		return nil, err
	}

	var victims []string
	for _, info := range infos {
		if maxAge <= 0 || info.Stale(now, maxAge) {
			victims = append(victims, info.Path)
		}
	}

	// Temporary files of interrupted writes
	tmps, err := filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
	if err != nil {
		return nil, err
	}
	victims = append(victims, tmps...)

	var removed []string
	var result *multierror.Error
	for _, path := range victims {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Warnf("Failed to remove cache file %s", path)
			result = multierror.Append(result, err)
			continue
		}
		logrus.Debugf("Removed cache file %s", path)
		removed = append(removed, path)
	}

	return removed, result.ErrorOrNil()
}

