package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxFrameSize bounds a single frame.
const MaxFrameSize = 4 << 20

var (
	// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

	// ErrMalformedFrame is returned for a line that is not a valid frame.
	// The stream stays usable; the next read continues with the next line.
	ErrMalformedFrame = errors.New("protocol: malformed frame")
)

// Conn reads and writes frames. Writes are safe for concurrent use; reads
// must happen from a single goroutine.
type Conn struct {
	scanner *bufio.Scanner

	mu sync.Mutex
	w  io.Writer
}

// NewConn wraps r and w.
func NewConn(r io.Reader, w io.Writer) *Conn {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxFrameSize)
	return &Conn{scanner: s, w: w}
}

// ReadRequest reads the next request. It returns io.EOF when the peer closed
// the stream.
func (c *Conn) ReadRequest() (*Request, error) {
	var req Request
	if err := c.read(&req); err != nil {
		return nil, err
	}
	if req.Method == "" {
		return nil, fmt.Errorf("%w: request %d has no method", ErrMalformedFrame, req.ID)
	}
	return &req, nil
}

// ReadEvent reads the next event. It returns io.EOF when the peer closed the
// stream.
func (c *Conn) ReadEvent() (*Event, error) {
	var ev Event
	if err := c.read(&ev); err != nil {
		return nil, err
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: event %d has no type", ErrMalformedFrame, ev.ID)
	}
	return &ev, nil
}

// WriteRequest writes req as one frame.
func (c *Conn) WriteRequest(req *Request) error {
	return c.write(req)
}

// WriteEvent writes ev as one frame.
func (c *Conn) WriteEvent(ev *Event) error {
	return c.write(ev)
}

func (c *Conn) read(v any) error {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, v); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return nil
	}
	if err := c.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return ErrFrameTooLarge
		}
		return err
	}
	return io.EOF
}

func (c *Conn) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: encode frame: %w", err)
	}
	if len(data) >= MaxFrameSize {
		return ErrFrameTooLarge
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(data)
	return err
}
