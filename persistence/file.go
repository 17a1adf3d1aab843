package persistence

import (
	"fmt"
	"os"

	"github.com/hupe1980/mcckpt/internal/fs"
	"github.com/hupe1980/mcckpt/model"
)

// WriteFile atomically replaces the checkpoint at path.
//
// The snapshot is validated before anything touches the filesystem. On any
// error the previous file at path, if there was one, is left unchanged.
func WriteFile(fsys fs.FileSystem, path string, snap *model.Snapshot, opts WriteOptions) (*Layout, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	f, err := fs.CreateAtomic(fsys, path, 0o644)
	if err != nil {
		return nil, err
	}

	layout, err := WriteCheckpoint(f, snap, opts)
	if err != nil {
		_ = f.Abort()
		return nil, err
	}
	if err := f.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkpoint %s: %w", path, err)
	}
	return layout, nil
}

// SaveToFile atomically replaces path with the bytes produced by writeFunc.
func SaveToFile(fsys fs.FileSystem, path string, writeFunc func(f *fs.AtomicFile) error) error {
	f, err := fs.CreateAtomic(fsys, path, 0o644)
	if err != nil {
		return err
	}
	if err := writeFunc(f); err != nil {
		_ = f.Abort()
		return err
	}
	return f.Commit()
}

// Exists reports whether a checkpoint file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
