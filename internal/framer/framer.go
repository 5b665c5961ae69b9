// Package framer splits a pusher byte stream into newline-delimited lines.
package framer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/tinytelemetry/logfollow/internal/model"
)

// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
const DefaultMaxLineSize = model.DefaultMaxLineSize

// ErrLineTooLong is returned when a line exceeds the configured maximum size.
var ErrLineTooLong = errors.New("framer: line exceeds max size")

// Config holds tunable parameters for a Framer.
type Config struct {
	MaxLineSize int
}

// Framer yields complete lines from one connection. A line ends at a single
// '\n'; the delimiter and trailing whitespace are removed. Bytes after the
// last delimiter are discarded when the stream ends.
type Framer struct {
	r           *bufio.Reader
	maxLineSize int
	buf         []byte
}

// New creates a Framer reading from r.
func New(r io.Reader, conf ...Config) *Framer {
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 && conf[0].MaxLineSize > 0 {
		maxLineSize = conf[0].MaxLineSize
	}
	readerSize := 64 * 1024
	if maxLineSize < readerSize {
		readerSize = maxLineSize
	}
	return &Framer{
		r:           bufio.NewReaderSize(r, readerSize),
		maxLineSize: maxLineSize,
	}
}

// Next blocks until a full line is available. It returns io.EOF when the
// stream ends, and an error wrapping model.ErrTransport on a read failure or
// an oversized line. The Framer must not be used after a non-nil error.
func (f *Framer) Next() (string, error) {
	f.buf = f.buf[:0]
	for {
		chunk, err := f.r.ReadSlice('\n')
		f.buf = append(f.buf, chunk...)
		if len(f.buf) > f.maxLineSize+1 {
			return "", fmt.Errorf("%w: %w", model.ErrTransport, ErrLineTooLong)
		}

		switch {
		case err == nil:
			line := f.buf[:len(f.buf)-1]
			return strings.TrimRightFunc(string(line), unicode.IsSpace), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			// Partial trailing line is dropped.
			return "", io.EOF
		default:
			return "", fmt.Errorf("%w: %w", model.ErrTransport, err)
		}
	}
}
