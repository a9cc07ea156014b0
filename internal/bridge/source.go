package bridge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineSource yields raw sensor lines one at a time. ReadLine blocks until a
// line is available and returns io.EOF when the source is exhausted or closed.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

// DeviceSource reads newline-delimited UTF-8 text from a serial device node
// (e.g. /dev/ttyUSB0). Port settings such as baud rate are expected to be
// configured on the host before the bridge starts.
type DeviceSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

func OpenDevice(path string) (*DeviceSource, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", path, err)
	}

	return &DeviceSource{
		f:       f,
		scanner: bufio.NewScanner(f),
	}, nil
}

func (s *DeviceSource) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

func (s *DeviceSource) Close() error {
	return s.f.Close()
}

// ReaderSource wraps any line-oriented stream, used for tests and for
// replaying captured sensor logs.
type ReaderSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

func NewReaderSource(r io.Reader) *ReaderSource {
	src := &ReaderSource{scanner: bufio.NewScanner(r)}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

func (s *ReaderSource) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

func (s *ReaderSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
