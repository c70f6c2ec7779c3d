// Package backup implements cold backup/export of a dms data file: the
// engine must be closed before Export or Import touches its file, since
// neither takes any of the engine's locks.
package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Export streams the entirety of the file at path, zstd-compressed, to w.
// Grounded on mnohosten/laura-db's pkg/compression zstd encoder wiring
// (zstd.NewWriter with an explicit encoder level), adapted from
// compressing in-memory buffers to streaming a whole file.
func Export(path string, w io.Writer, level int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return fmt.Errorf("backup: new zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, f); err != nil {
		enc.Close()
		return fmt.Errorf("backup: compress %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("backup: flush zstd writer: %w", err)
	}
	return nil
}

// Import reverses Export: it reads a zstd-compressed stream from r and
// writes the decompressed bytes to a fresh file at path. path must not
// already exist; Import refuses to overwrite a live data file.
func Import(r io.Reader, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backup: refusing to overwrite existing file %s", path)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("backup: new zstd reader: %w", err)
	}
	defer dec.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, dec); err != nil {
		return fmt.Errorf("backup: decompress into %s: %w", path, err)
	}
	return f.Sync()
}
