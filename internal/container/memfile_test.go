package container_test

import "github.com/pkg/errors"

// errShortFile is returned by memFile.ReadAt when the requested range runs
// past the end of the buffer.
var errShortFile = errors.New("container_test: short read past end of memFile")

// memFile is a growable in-memory buffer implementing io.ReaderAt and
// io.WriterAt, used so container round-trip tests never touch the
// filesystem.
type memFile struct {
	buf []byte
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[off:end], p)
	return len(p), nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.buf)) {
		return 0, errShortFile
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, errShortFile
	}
	return n, nil
}

func (f *memFile) Size() int64 { return int64(len(f.buf)) }
