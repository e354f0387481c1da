// Package atomicfile writes files so that readers see either the old
// content or the complete new content, never a partial write.
//
// Data goes to a temporary file in the destination directory which is
// synced and renamed over the destination on Close. If anything fails,
// the temporary file is removed and the destination is left alone.
//
//	err := atomicfile.WriteWith(path, func(w io.Writer) error {
//		_, err := w.Write(data)
//		return err
//	})
package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to RemoveIfNotClosed()
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

// File is a file being written atomically
type File struct {
	dstPath string
	dir     string
	tmpFile *os.File
	tmpPath string
	// first error, returned by all subsequent calls
	err error
}

// New creates a temporary file next to path. The directory of path
// must exist. The file gets the permissions of the existing file at
// path, or 0644 if there's none.
func New(path string) (*File, error) {
	dir, fName := filepath.Split(path)
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmpFile, err := os.CreateTemp(dir, fName+".*.tmp")
	if err != nil {
		return nil, err
	}
	// CreateTemp uses 0600, keep the mode of the file being replaced
	mode := os.FileMode(0644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	if err = tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

// Write writes data to the temporary file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	if err != nil {
		f.err = err
		_ = f.Close()
	}
	return n, err
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if Close wasn't called yet.
// The destination is not touched. Meant for defer, to clean up after an
// early return or a panic. No-op after Close.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it to the destination.
// Can be called multiple times, returns the first error.
func (f *File) Close() error {
	if f.alreadyClosed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
	}
	if didRename {
		// persist the rename. nice to have, so errors are ignored
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}

// WriteWith atomically replaces path with whatever fn writes
func WriteWith(path string, fn func(w io.Writer) error) error {
	f, err := New(path)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if err = fn(f); err != nil {
		return err
	}
	return f.Close()
}
