package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// DefaultBufferSize is the write buffer used by AtomicFile.
const DefaultBufferSize = 256 * 1024

// ErrCommitted is returned when an AtomicFile is used after Commit or Abort.
var ErrCommitted = errors.New("atomic file already committed or aborted")

var tempSeq atomic.Uint64

// AtomicFile writes to a temporary file next to its destination and renames
// it into place on Commit. Readers of the destination see either the old
// contents or the complete new contents.
type AtomicFile struct {
	fs   FileSystem
	path string
	tmp  string
	f    File
	buf  *bufio.Writer
	done bool
}

// CreateAtomic opens a temporary file in the directory of path. The
// directory must already exist.
func CreateAtomic(fsys FileSystem, path string, perm os.FileMode) (*AtomicFile, error) {
	if fsys == nil {
		fsys = Default
	}
	tmp := fmt.Sprintf("%s.tmp-%d-%d", path, time.Now().UnixNano(), tempSeq.Add(1))
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return nil, err
	}
	return &AtomicFile{
		fs:   fsys,
		path: path,
		tmp:  tmp,
		f:    f,
		buf:  bufio.NewWriterSize(f, DefaultBufferSize),
	}, nil
}

// Name returns the destination path.
func (a *AtomicFile) Name() string { return a.path }

// Write implements io.Writer.
func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, ErrCommitted
	}
	return a.buf.Write(p)
}

// Commit flushes and fsyncs the temporary file, renames it over the
// destination and syncs the directory. On error the temporary file is
// removed and the destination is left untouched.
func (a *AtomicFile) Commit() error {
	if a.done {
		return ErrCommitted
	}
	a.done = true

	err := a.buf.Flush()
	if err == nil {
		err = a.f.Sync()
	}
	if closeErr := a.f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = a.fs.Rename(a.tmp, a.path)
	}
	if err != nil {
		_ = a.fs.Remove(a.tmp)
		return err
	}

	// The rename is complete; a failed directory sync only weakens durability.
	_ = a.fs.SyncDir(filepath.Dir(a.path))
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.f.Close()
	return a.fs.Remove(a.tmp)
}
