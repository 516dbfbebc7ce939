package stream

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FileStream adapts an OS file to the Stream capability. It is a thin
// wrapper: all I/O is the file's ordinary blocking I/O, and Get surfaces the
// file's end as io.EOF, making it the one stream variant that can die.
type FileStream struct {
	f     *os.File
	path  string
	clock Clock
}

// NewFileStream wraps an already-open file. conf may be nil.
func NewFileStream(f *os.File, conf *Config) *FileStream {
	return &FileStream{f: f, path: f.Name(), clock: conf.clock()}
}

// Write hands p to the file and returns the number of bytes taken.
func (s *FileStream) Write(p []byte) int {
	n, err := s.f.Write(p)
	if err != nil {
		internalLogger.Warnf("stream: write %s: %v", s.path, err)
	}
	return n
}

// Read performs one read against the file and returns the byte count, 0 at
// end of file.
func (s *FileStream) Read(p []byte) int {
	n, err := s.f.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		internalLogger.Warnf("stream: read %s: %v", s.path, err)
	}
	return n
}

// Get collects bytes until len(p), a delimiter, end of file, or the tick
// budget. io.EOF is returned only when the file is exhausted and nothing was
// collected; other read faults surface as the underlying error; a timeout
// with partial progress returns the count + ErrTimeout.
func (s *FileStream) Get(p []byte, delims []byte, timeoutTicks uint64) (int, error) {
	collected := 0
	idleSince := s.clock.Now()

	var one [1]byte
	for collected < len(p) {
		n, err := s.f.Read(one[:])
		if n == 0 {
			if err != nil {
				if !errors.Is(err, io.EOF) {
					internalLogger.Warnf("stream: read %s: %v", s.path, err)
					return collected, err
				}
				if collected == 0 {
					return 0, io.EOF
				}
				return collected, nil
			}
			if timeoutTicks != 0 && s.clock.Now()-idleSince >= timeoutTicks {
				return collected, ErrTimeout
			}
			s.clock.DelayTick()
			continue
		}
		idleSince = s.clock.Now()

		c := one[0]
		if len(delims) > 0 && bytes.IndexByte(delims, c) >= 0 {
			return collected, nil
		}
		p[collected] = c
		collected++
	}
	return collected, nil
}

// Available returns the bytes between the current offset and the file end.
func (s *FileStream) Available() int {
	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	info, err := s.f.Stat()
	if err != nil {
		return 0
	}
	if info.Size() <= pos {
		return 0
	}
	return int(info.Size() - pos)
}

// Flush syncs the file to stable storage.
func (s *FileStream) Flush() {
	if err := s.f.Sync(); err != nil {
		internalLogger.Warnf("stream: sync %s: %v", s.path, err)
	}
}

// Skip discards all unread bytes by seeking to the end.
func (s *FileStream) Skip() {
	if _, err := s.f.Seek(0, io.SeekEnd); err != nil {
		internalLogger.Warnf("stream: seek %s: %v", s.path, err)
	}
}

// Close flushes and closes the underlying file.
func (s *FileStream) Close() {
	s.Flush()
	if err := s.f.Close(); err != nil {
		internalLogger.Warnf("stream: close %s: %v", s.path, err)
	}
}

// Reopen closes and reopens the backing path, retrying with a constant
// backoff. The read offset resets to the start.
func (s *FileStream) Reopen() error {
	_ = s.f.Close()
	return backoff.Retry(func() error {
		f, err := os.OpenFile(s.path, os.O_RDWR, 0o644)
		if err != nil {
			return err
		}
		s.f = f
		return nil
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 5))
}

var _ Stream = (*FileStream)(nil)

// FileStreamFactory opens file streams beneath a fixed directory.
type FileStreamFactory struct {
	dir  string
	conf *Config
}

// NewFileStreamFactory returns a factory rooted at dir. conf may be nil and
// applies to every stream the factory opens.
func NewFileStreamFactory(dir string, conf *Config) *FileStreamFactory {
	return &FileStreamFactory{dir: dir, conf: conf}
}

// Open creates or opens the named file for read/write, retrying transient
// failures with a constant backoff.
func (fa *FileStreamFactory) Open(name string) (*FileStream, error) {
	path := filepath.Join(fa.dir, name)

	var f *os.File
	err := backoff.Retry(func() error {
		var openErr error
		f, openErr = os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		return openErr
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 5))
	if err != nil {
		return nil, err
	}
	return NewFileStream(f, fa.conf), nil
}
