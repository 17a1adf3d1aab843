package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "replica0")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "checkpoint.dat")
	f, err := lfs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.Equal(t, path, f.Name())

	_, err = f.Write([]byte("state"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	renamed := filepath.Join(dir, "checkpoint.old")
	require.NoError(t, lfs.Rename(path, renamed))
	require.NoError(t, lfs.SyncDir(dir))

	require.NoError(t, lfs.Remove(renamed))
	_, err = lfs.Stat(renamed)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_FailAfterBytes(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule(".tmp", Fault{FailAfterBytes: 5})

	path := filepath.Join(tmp, "checkpoint.dat.tmp")
	f, err := ffs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hel"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.Write([]byte("lo!!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(5), ffs.Written())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFaultyFS_SyncCloseRename(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("disk gone")
	ffs := NewFaultyFS(nil)
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom})
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true})
	ffs.AddRule("final", Fault{FailAfterBytes: -1, FailOnRename: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "sync"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(tmp, "close"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), ErrInjected)

	err = ffs.Rename(filepath.Join(tmp, "close"), filepath.Join(tmp, "final"))
	assert.ErrorIs(t, err, ErrInjected)
	_, err = ffs.Stat(filepath.Join(tmp, "close"))
	assert.NoError(t, err)

	assert.Len(t, ffs.Opened(), 2)
}

func TestFaultyFS_FailOnOpen(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("locked", Fault{FailOnOpen: true})

	_, err := ffs.OpenFile(filepath.Join(t.TempDir(), "locked"), os.O_CREATE|os.O_RDWR, 0o644)
	var pathErr *os.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Empty(t, ffs.Opened())
}

func TestFaultyFS_LongestPatternWins(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("ckpt", Fault{FailOnOpen: true})
	ffs.AddRule("ckpt/ok", Fault{FailAfterBytes: -1})

	dir := filepath.Join(t.TempDir(), "ckpt")
	require.NoError(t, ffs.MkdirAll(dir, 0o755))

	f, err := ffs.OpenFile(filepath.Join(dir, "ok"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = ffs.OpenFile(filepath.Join(dir, "bad"), os.O_CREATE|os.O_RDWR, 0o644)
	assert.Error(t, err)
}
