package bytestream

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// pageSize is the process-wide OS page size, looked up once and cached, per
// the single lazy-global concurrency contract shared across Stream
// constructors.
var (
	pageSizeOnce sync.Once
	pageSize     int
)

func getPageSize() int {
	pageSizeOnce.Do(func() {
		pageSize = os.Getpagesize()
	})
	return pageSize
}

// mmapStream is a Stream backed by a read-only memory map that slides over
// page-aligned offsets of the underlying file. Once the whole file is
// mapped, Advance only moves pointers within the existing mapping.
type mmapStream struct {
	f        *os.File
	fileSize int64

	mapping    []byte // the current mmap'd region, from a page-aligned offset
	mapOffset  int64  // file offset of mapping[0]
	bufOffset  int    // offset of the logical window start within mapping
	windowSize int    // logical size of the current window (excludes padding)

	tail []byte // zero-filled padding appended past EOF when the file is fully mapped
}

// OpenMmap memory-maps path and returns a Stream over it, padded with at
// least Padding zero bytes past the logical end of file.
func OpenMmap(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &mmapStream{f: f, fileSize: info.Size()}
	if err := s.remap(0, 0); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// remap replaces the mapping so it starts at the page boundary at or before
// fileOffset and covers at least reqSize bytes of logical data from there.
func (s *mmapStream) remap(fileOffset int64, reqSize int) error {
	if s.mapping != nil {
		_ = unix.Munmap(s.mapping)
		s.mapping = nil
	}

	ps := int64(getPageSize())
	base := (fileOffset / ps) * ps
	inPage := int(fileOffset - base)

	mapLen := int64(inPage + reqSize)
	remaining := s.fileSize - base
	if mapLen > remaining {
		mapLen = remaining
	}
	if mapLen < 0 {
		mapLen = 0
	}
	// round up to a page so the mapping is valid even for a zero-length tail
	mapLenRounded := ((mapLen + ps - 1) / ps) * ps
	if mapLenRounded == 0 {
		mapLenRounded = ps
	}

	var mapping []byte
	var err error
	if mapLenRounded > 0 && base < s.fileSize {
		mapping, err = unix.Mmap(int(s.f.Fd()), base, int(mapLenRounded), unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			return err
		}
	} else {
		mapping = make([]byte, 0)
	}

	s.mapping = mapping
	s.mapOffset = base
	s.bufOffset = inPage
	s.windowSize = int(s.fileSize - (base + int64(inPage)))
	if s.windowSize < 0 {
		s.windowSize = 0
	}
	return nil
}

func (s *mmapStream) Advance(reqSize, step int) error {
	cur := s.Bytes()
	if step > len(cur) {
		return ErrInvalidArgument
	}

	fileOffset := s.mapOffset + int64(s.bufOffset) + int64(step)
	if fileOffset > s.fileSize {
		return ErrInvalidArgument
	}

	// Fully mapped already: just slide the logical window pointer.
	if s.mapOffset+int64(len(s.mapping)) >= s.fileSize {
		s.bufOffset += step
		s.windowSize -= step
		if s.windowSize < 0 {
			s.windowSize = 0
		}
		return nil
	}

	return s.remap(fileOffset, reqSize)
}

// Bytes returns the logical window plus Padding zero-filled bytes.
func (s *mmapStream) Bytes() []byte {
	avail := len(s.mapping) - s.bufOffset
	if avail < 0 {
		avail = 0
	}
	out := make([]byte, s.windowSize+Padding)
	n := s.windowSize
	if n > avail {
		n = avail
	}
	if n > 0 {
		copy(out, s.mapping[s.bufOffset:s.bufOffset+n])
	}
	if n < s.windowSize {
		// The window runs past the current mapping; read the rest from the file.
		_, _ = s.f.ReadAt(out[n:s.windowSize], s.mapOffset+int64(s.bufOffset+n))
	}
	return out
}

func (s *mmapStream) Close() error {
	if s.mapping != nil {
		_ = unix.Munmap(s.mapping)
		s.mapping = nil
	}
	return s.f.Close()
}
