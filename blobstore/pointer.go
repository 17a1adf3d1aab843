package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CurrentName is the blob that holds the latest pointer.
const CurrentName = "CURRENT"

// ErrConcurrentModification is returned when another writer moved the latest
// pointer between read and commit.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// Committer records which checkpoint blob is the newest.
type Committer interface {
	// Commit makes name the latest checkpoint and returns its version.
	Commit(ctx context.Context, name string) (uint64, error)
	// Latest returns the newest committed checkpoint. Version 0 means none.
	Latest(ctx context.Context) (version uint64, name string, err error)
}

// PointerCommitter stores the latest pointer as a "<version> <name>" blob.
// It serializes commits made through the same value; it cannot detect
// writers in other processes.
type PointerCommitter struct {
	store   BlobStore
	pointer string
	mu      sync.Mutex
}

// NewPointerCommitter creates a committer that keeps its pointer in the blob
// named pointer (CurrentName when empty).
func NewPointerCommitter(store BlobStore, pointer string) *PointerCommitter {
	if pointer == "" {
		pointer = CurrentName
	}
	return &PointerCommitter{store: store, pointer: pointer}
}

// Commit implements Committer.
func (c *PointerCommitter) Commit(ctx context.Context, name string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	version, _, err := c.Latest(ctx)
	if err != nil {
		return 0, err
	}
	version++
	if err := c.store.Put(ctx, c.pointer, []byte(fmt.Sprintf("%d %s\n", version, name))); err != nil {
		return 0, err
	}
	return version, nil
}

// Latest implements Committer.
func (c *PointerCommitter) Latest(ctx context.Context) (uint64, string, error) {
	data, err := ReadAll(ctx, c.store, c.pointer)
	if errors.Is(err, ErrNotFound) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}

	v, name, ok := strings.Cut(strings.TrimSpace(string(data)), " ")
	if !ok {
		return 0, "", fmt.Errorf("malformed pointer %q", data)
	}
	version, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed pointer version: %w", err)
	}
	return version, name, nil
}
