package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonwraymond/toolcache/cache"
)

// Sizer is the part of a cache.Store a StoreChecker reads.
type Sizer interface {
	Size(ctx context.Context) int
	Enabled() bool
}

// StoreChecker reports on a cache store.
//
// A disabled store is degraded, as is one that has reached capacity
// and is evicting on every insert.
type StoreChecker struct {
	name     string
	store    Sizer
	capacity int
}

// NewStoreChecker creates a checker for store. capacity <= 0 means unbounded.
func NewStoreChecker(name string, store Sizer, capacity int) *StoreChecker {
	return &StoreChecker{name: name, store: store, capacity: capacity}
}

// Name returns the checker name.
func (c *StoreChecker) Name() string { return c.name }

// Check inspects the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("store is nil", cache.ErrNilStore)
	}
	if err := ctx.Err(); err != nil {
		return Unhealthy("check cancelled", err)
	}

	size := c.store.Size(ctx)
	details := map[string]any{
		"size":    size,
		"enabled": c.store.Enabled(),
	}
	if c.capacity > 0 {
		details["capacity"] = c.capacity
	}

	switch {
	case !c.store.Enabled():
		return Degraded("store is disabled").WithDetails(details)
	case c.capacity > 0 && size >= c.capacity:
		return Degraded(fmt.Sprintf("store is full (%d/%d)", size, c.capacity)).WithDetails(details)
	default:
		return Healthy("store is serving").WithDetails(details)
	}
}

// FileChecker verifies a snapshot file can be written and, if present, parsed.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for the snapshot at path.
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

// Name returns the checker name.
func (c *FileChecker) Name() string { return c.name }

// Check probes the snapshot directory and decodes the snapshot.
func (c *FileChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("check cancelled", err)
	}
	details := map[string]any{"path": c.path}

	if err := probeWritable(filepath.Dir(c.path)); err != nil {
		return Unhealthy("snapshot directory is not writable",
			&cache.PersistenceError{Op: "check", Path: c.path, Err: err}).WithDetails(details)
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		details["exists"] = false
		return Healthy("no snapshot yet").WithDetails(details)
	}
	if err != nil {
		return Unhealthy("snapshot is unreadable",
			&cache.PersistenceError{Op: "check", Path: c.path, Err: err}).WithDetails(details)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return Unhealthy("snapshot is corrupt",
			&cache.PersistenceError{Op: "check", Path: c.path, Err: err}).WithDetails(details)
	}

	details["exists"] = true
	details["entries"] = len(entries)
	details["bytes"] = len(data)
	return Healthy("snapshot is readable").WithDetails(details)
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	closeErr := f.Close()
	return errors.Join(closeErr, os.Remove(name))
}
