package dms

import (
	"os"
	"syscall"
	"unsafe"
)

// hostFile wraps the single on-disk *.dms file: growing it in fixed
// chunks, and mapping fixed-size regions of it into memory. It has no
// knowledge of segments, pages, or records — those live in segment.go and
// above.
//
// Grounded on mnohosten/laura-db's MmapDiskManager, which hand-rolls
// syscall.Mmap/Munmap/msync directly; there is no ecosystem wrapper for
// raw memory-mapped file I/O in the example pack, so this file is
// genuinely stdlib/syscall-only.
type hostFile struct {
	f *os.File
}

func openHostFile(path string) (*hostFile, bool, error) {
	existed := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		existed = false
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, ioError(err, "open %s", path)
	}
	return &hostFile{f: f}, existed, nil
}

func (h *hostFile) size() (int64, error) {
	fi, err := h.f.Stat()
	if err != nil {
		return 0, ioError(err, "stat")
	}
	return fi.Size(), nil
}

// extend grows the file by n bytes, zero-filling in ExtendUnit chunks
// starting at the current end of file, matching the original's
// _extendFile chunked-write approach rather than a single ftruncate (so a
// crash mid-extend leaves only zero bytes, never uninitialized ones, ahead
// of the last durable write).
func (h *hostFile) extend(n int64) error {
	cur, err := h.size()
	if err != nil {
		return err
	}
	zero := make([]byte, ExtendUnit)
	var written int64
	for written < n {
		chunk := int64(ExtendUnit)
		if remaining := n - written; remaining < chunk {
			chunk = remaining
		}
		if _, err := h.f.WriteAt(zero[:chunk], cur+written); err != nil {
			return ioError(err, "extend write at %d", cur+written)
		}
		written += chunk
	}
	return nil
}

// mapRegion maps exactly length bytes of the file starting at offset.
func (h *hostFile) mapRegion(offset, length int64) ([]byte, error) {
	b, err := syscall.Mmap(int(h.f.Fd()), offset, int(length), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, ioError(err, "mmap offset=%d length=%d", offset, length)
	}
	return b, nil
}

func unmapRegion(b []byte) error {
	if b == nil {
		return nil
	}
	if err := syscall.Munmap(b); err != nil {
		return ioError(err, "munmap")
	}
	return nil
}

// syncRegion flushes a mapped region to the backing file.
func syncRegion(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, _, errno := syscall.Syscall(syscall.SYS_MSYNC, uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(syscall.MS_SYNC))
	if errno != 0 {
		return ioError(errno, "msync")
	}
	return nil
}

func (h *hostFile) close() error {
	if err := h.f.Sync(); err != nil {
		return ioError(err, "sync")
	}
	if err := h.f.Close(); err != nil {
		return ioError(err, "close")
	}
	return nil
}
