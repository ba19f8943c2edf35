package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/toolcache/observe"
)

// DefaultFileMode is the permission used for snapshot files.
const DefaultFileMode os.FileMode = 0o644

// FileConfig configures a FileCache.
type FileConfig struct {
	// FullPath is the JSON snapshot file. Required.
	FullPath string

	// Indent writes human-readable JSON.
	Indent bool

	// FileMode is the snapshot permission. Default: 0644.
	FileMode os.FileMode
}

// FileCache mirrors a wrapped store to a single JSON file.
//
// The file holds one JSON object mapping keys to values. It is read once at
// construction and rewritten in full after every Set, Delete or Clear. Reads
// never touch the disk.
type FileCache[V any] struct {
	mu    sync.Mutex // serializes mutate+persist
	store SnapshotStore[V]
	path  string
	cfg   FileConfig
	opts  options
}

// NewFileCache creates a FileCache backed by a new UnconstrainedCache and
// loads the snapshot at cfg.FullPath if it exists.
func NewFileCache[V any](ctx context.Context, cfg FileConfig, opts ...Option) (*FileCache[V], error) {
	return FileCacheFromProvider[V](ctx, NewUnconstrainedCache[V](), cfg, opts...)
}

// FileCacheFromProvider wraps an existing store. Entries already in store are
// kept; entries from an existing snapshot are added on top of them.
func FileCacheFromProvider[V any](ctx context.Context, store SnapshotStore[V], cfg FileConfig, opts ...Option) (*FileCache[V], error) {
	if store == nil {
		return nil, ErrNilStore
	}

	path, err := resolveSnapshotPath(cfg.FullPath)
	if err != nil {
		return nil, err
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = DefaultFileMode
	}

	c := &FileCache[V]{
		store: store,
		path:  path,
		cfg:   cfg,
		opts:  newOptions("file", opts),
	}

	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// resolveSnapshotPath validates path and makes sure its directory exists.
func resolveSnapshotPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidPath)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidPath, abs)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if err := checkWritable(dir); err != nil {
		return "", fmt.Errorf("%w: snapshot directory %s is not writable: %v", ErrInvalidPath, dir, err)
	}
	return abs, nil
}

// checkWritable creates and removes a temp file in dir.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".toolcache-*.tmp")
	if err != nil {
		return err
	}
	return errors.Join(f.Close(), os.Remove(f.Name()))
}

// Source returns the resolved snapshot path.
func (c *FileCache[V]) Source() string {
	return c.path
}

// Get delegates to the wrapped store.
func (c *FileCache[V]) Get(ctx context.Context, key string) (V, bool) {
	if !c.opts.enabled {
		var zero V
		return zero, false
	}
	return c.store.Get(ctx, key)
}

// Has delegates to the wrapped store.
func (c *FileCache[V]) Has(ctx context.Context, key string) bool {
	return c.opts.enabled && c.store.Has(ctx, key)
}

// Size delegates to the wrapped store.
func (c *FileCache[V]) Size(ctx context.Context) int {
	if !c.opts.enabled {
		return 0
	}
	return c.store.Size(ctx)
}

// Enabled reports whether both this cache and the wrapped store serve reads.
func (c *FileCache[V]) Enabled() bool {
	return c.opts.enabled && c.store.Enabled()
}

// Snapshot delegates to the wrapped store.
func (c *FileCache[V]) Snapshot(ctx context.Context) map[string]V {
	return c.store.Snapshot(ctx)
}

// Set stores value and persists the snapshot.
func (c *FileCache[V]) Set(ctx context.Context, key string, value V) error {
	if !c.opts.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, key, value); err != nil {
		return err
	}
	return c.save(ctx)
}

// Delete removes key and persists the snapshot if anything was removed.
func (c *FileCache[V]) Delete(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, err := c.store.Delete(ctx, key)
	if err != nil || !removed {
		return removed, err
	}
	return true, c.save(ctx)
}

// Clear removes every entry and persists the empty snapshot.
func (c *FileCache[V]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	return c.save(ctx)
}

// Reload reads the snapshot again and sets every entry it holds.
// Entries not present in the file are left in place.
func (c *FileCache[V]) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *FileCache[V]) load(ctx context.Context) (err error) {
	ctx, span := c.opts.tracer.StartSpan(ctx, "load", c.opts.name, attribute.String("cache.path", c.path))
	start := time.Now()
	defer func() {
		c.opts.tracer.EndSpan(span, err)
		c.opts.recorder.RecordPersist(ctx, c.opts.name, "load", time.Since(start), err)
	}()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		c.opts.logger.Debug(ctx, "no snapshot found, starting empty",
			observe.Field{Key: "path", Value: c.path})
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: "load", Path: c.path, Err: err}
	}

	var entries map[string]V
	if err := json.Unmarshal(data, &entries); err != nil {
		return &PersistenceError{Op: "load", Path: c.path, Err: err}
	}

	// Sorted so a bounded provider keeps the same entries on every load.
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		if err := c.store.Set(ctx, k, entries[k]); err != nil {
			return &PersistenceError{Op: "load", Path: c.path, Err: err}
		}
	}

	c.opts.logger.Info(ctx, "snapshot loaded",
		observe.Field{Key: "path", Value: c.path},
		observe.Field{Key: "entries", Value: len(entries)},
	)
	return nil
}

func (c *FileCache[V]) save(ctx context.Context) (err error) {
	ctx, span := c.opts.tracer.StartSpan(ctx, "persist", c.opts.name, attribute.String("cache.path", c.path))
	start := time.Now()
	defer func() {
		c.opts.tracer.EndSpan(span, err)
		c.opts.recorder.RecordPersist(ctx, c.opts.name, "save", time.Since(start), err)
		if err != nil {
			c.opts.logger.Error(ctx, "snapshot save failed",
				observe.Field{Key: "path", Value: c.path},
				observe.Field{Key: "error", Value: err},
			)
		}
	}()

	snapshot := c.store.Snapshot(ctx)

	var data []byte
	if c.cfg.Indent {
		data, err = json.MarshalIndent(snapshot, "", "  ")
	} else {
		data, err = json.Marshal(snapshot)
	}
	if err != nil {
		return &PersistenceError{Op: "save", Path: c.path, Err: err}
	}

	if err := writeFileAtomic(c.path, data, c.cfg.FileMode); err != nil {
		return &PersistenceError{Op: "save", Path: c.path, Err: err}
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path. The temp file is closed and removed on every failure.
func writeFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Ensure FileCache implements SnapshotStore
var _ SnapshotStore[int] = (*FileCache[int])(nil)
