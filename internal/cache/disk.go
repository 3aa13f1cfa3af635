package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ralt/branchdiff/internal/fetcher"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/utils"
	"github.com/sirupsen/logrus"
)

// DirName is the cache directory created in the user's home
const DirName = ".sisyphus"

// Entry is the on-disk form of a cached snapshot
type Entry struct {
	Branch    string          `json:"branch"`
	Arch      string          `json:"arch,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Checksum  string          `json:"checksum"`
	Payload   json.RawMessage `json:"payload"`
}

// DefaultDir resolves the base cache directory.
// Precedence:
//  1. BRANCHDIFF_CACHE_DIR, if set and non-empty
//  2. $HOME/.sisyphus
func DefaultDir() (string, error) {
	if c, ok := os.LookupEnv("BRANCHDIFF_CACHE_DIR"); ok && c != "" {
		return c, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve cache directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

type diskBackend struct {
	dir   string
	codec utils.Codec
}

// NewDiskStore creates a Store keeping one file per branch and architecture
// filter in opts.Dir
func NewDiskStore(f fetcher.Fetcher, opts Options) *Cache {
	return &Cache{
		backend: &diskBackend{dir: opts.Dir, codec: opts.Codec},
		fetcher: f,
		opts:    opts,
	}
}

// Path returns the file holding the entry of branch and arch
func Path(dir string, codec utils.Codec, branch, arch string) string {
	return filepath.Join(dir, Key(branch, arch)+".json"+codec.Extension())
}

func (b *diskBackend) describe(branch, arch string) string {
	return Path(b.dir, b.codec, branch, arch)
}

func (b *diskBackend) load(branch, arch string) (*cached, error) {
	path := Path(b.dir, b.codec, branch, arch)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, models.NewError(models.ErrFileOp, path, err)
	}

	entry, snap, err := decodeEntry(data, b.codec)
	if err != nil {
		return nil, models.NewError(models.ErrCacheCorruption, path, err)
	}
	if entry.Branch != branch || entry.Arch != arch {
		return nil, models.NewError(models.ErrCacheCorruption, path,
			fmt.Errorf("entry holds %s, expected %s", Key(entry.Branch, entry.Arch), Key(branch, arch)))
	}

	logrus.Debugf("Cache hit: %s", path)
	return &cached{snapshot: snap, fetchedAt: entry.FetchedAt, size: int64(len(data))}, nil
}

func (b *diskBackend) save(branch, arch string, c *cached) error {
	data, err := encodeEntry(branch, arch, c, b.codec)
	if err != nil {
		return err
	}
	path := Path(b.dir, b.codec, branch, arch)
	if err := utils.WriteFile(path, data, 0600); err != nil {
		return models.NewError(models.ErrFileOp, path, err)
	}
	c.size = int64(len(data))
	logrus.Debugf("Cache write: %s", path)
	return nil
}

func encodeEntry(branch, arch string, c *cached, codec utils.Codec) ([]byte, error) {
	payload, err := json.Marshal(c.snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	entry := Entry{
		Branch:    branch,
		Arch:      arch,
		FetchedAt: c.fetchedAt.UTC(),
		Checksum:  utils.CalculateChecksum(payload, "sha256"),
		Payload:   payload,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return codec.Compress(data)
}

// decodeEntry checks and decodes a cache file. Any failure means the file
// cannot be trusted.
func decodeEntry(data []byte, codec utils.Codec) (*Entry, *models.Snapshot, error) {
	raw, err := codec.Decompress(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decompress: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	if entry.FetchedAt.IsZero() {
		return nil, nil, fmt.Errorf("entry has no fetch time")
	}
	if sum := utils.CalculateChecksum(entry.Payload, "sha256"); sum != entry.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: %s != %s", sum, entry.Checksum)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(entry.Payload, &snap); err != nil {
		return nil, nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &entry, &snap, nil
}

// codecOf infers the codec from a cache file name
func codecOf(name string) (utils.Codec, bool) {
	switch {
	case strings.HasSuffix(name, ".json"):
		return utils.CodecNone, true
	case strings.HasSuffix(name, ".json.gz"):
		return utils.CodecGzip, true
	case strings.HasSuffix(name, ".json.xz"):
		return utils.CodecXZ, true
	case strings.HasSuffix(name, ".json.zst"):
		return utils.CodecZstd, true
	default:
		return utils.CodecNone, false
	}
}
