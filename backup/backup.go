// Package backup saves a compressed copy of a notebook file and restores
// it. The compression is picked from the backup file's extension:
// .zst (zstd) or .br (brotli).
package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/obi-vvan-kenobi/notebook/atomicfile"
	"github.com/obi-vvan-kenobi/notebook/store"
)

type codec int

const (
	codecZstd codec = iota + 1
	codecBrotli
)

func codecFromPath(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return codecZstd, nil
	case ".br":
		return codecBrotli, nil
	}
	return 0, fmt.Errorf("backup: unsupported extension in '%s', use .zst or .br", path)
}

func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func compress(dst io.Writer, src io.Reader, c codec) error {
	switch c {
	case codecZstd:
		// in my tests SpeedBestCompression isn't much better and is much slower
		w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		_, err = io.Copy(w, src)
		return getErr(err, w.Close())
	case codecBrotli:
		w := brotli.NewWriterLevel(dst, brotli.BestCompression)
		_, err := io.Copy(w, src)
		return getErr(err, w.Close())
	}
	panic(fmt.Sprintf("unknown codec %d", c))
}

func decompress(src io.Reader, c codec) ([]byte, error) {
	switch c {
	case codecZstd:
		r, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case codecBrotli:
		return io.ReadAll(brotli.NewReader(src))
	}
	panic(fmt.Sprintf("unknown codec %d", c))
}

// Create compresses notebook file src into dst. Returns size of dst.
func Create(dst string, src string) (int64, error) {
	c, err := codecFromPath(dst)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	defer f.Close()

	cw := &countingWriter{}
	err = atomicfile.WriteWith(dst, func(w io.Writer) error {
		cw.w = w
		return compress(cw, f, c)
	})
	if err != nil {
		return 0, fmt.Errorf("backup: writing '%s': %w", dst, err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (w *countingWriter) Write(d []byte) (int, error) {
	n, err := w.w.Write(d)
	w.n += int64(n)
	return n, err
}

// Restore replaces notebook file dst with a backup src. The backup is
// checked to be a valid notebook before dst is touched.
// The notebook must not be open while it's being restored.
// Returns number of records in the restored notebook.
func Restore(dst string, src string) (int, error) {
	c, err := codecFromPath(src)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	defer f.Close()
	d, err := decompress(f, c)
	if err != nil {
		return 0, fmt.Errorf("backup: decompressing '%s': %w", src, err)
	}
	n, err := store.Verify(bytes.NewReader(d))
	if err != nil {
		return 0, fmt.Errorf("backup: '%s' is not a valid notebook: %w", src, err)
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	err = atomicfile.WriteWith(dst, func(w io.Writer) error {
		_, err := w.Write(d)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("backup: writing '%s': %w", dst, err)
	}
	return n, nil
}
