package xmodem

import (
	"io"
	"sync"
)

// Channel is the duplex byte transport the protocol engine runs over. The
// engine polls Available between short sleeps instead of issuing blocking
// reads, so any transport that can report pending input can carry a
// transfer, whether or not it supports read deadlines.
type Channel interface {
	// Available reports the number of bytes that can be read without
	// blocking.
	Available() int

	// ReadByte returns the next input byte. It must not block when
	// Available reports at least one byte.
	ReadByte() (byte, error)

	io.Writer

	// Flush pushes any buffered output to the peer. Every single-byte
	// control signal is flushed synchronously, never batched.
	Flush() error
}

// StreamChannel adapts a plain reader/writer pair (SSH pipes, stdio, a
// net.Conn) into a Channel. A background goroutine drains the reader into
// an internal buffer so Available works over blocking readers; the transfer
// itself stays single-threaded.
type StreamChannel struct {
	w io.Writer

	mu   sync.Mutex
	buf  []byte
	err  error
	done chan struct{}
}

// NewStreamChannel creates a channel over r and w and starts the read pump.
// The pump exits when r returns an error (including io.EOF after the far
// side closes).
func NewStreamChannel(r io.Reader, w io.Writer) *StreamChannel {
	c := &StreamChannel{
		w:    w,
		done: make(chan struct{}),
	}
	go c.pump(r)
	return c
}

func (c *StreamChannel) pump(r io.Reader) {
	defer close(c.done)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		c.mu.Lock()
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			c.err = err
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// Available reports the number of buffered input bytes.
func (c *StreamChannel) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// ReadByte returns the next buffered byte. When the buffer is empty it
// returns the pump's terminal error, or io.ErrNoProgress if the pump is
// still running.
func (c *StreamChannel) ReadByte() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.ErrNoProgress
	}
	b := c.buf[0]
	c.buf = c.buf[1:]
	return b, nil
}

// Write writes to the underlying writer.
func (c *StreamChannel) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Flush flushes the underlying writer if it supports flushing.
func (c *StreamChannel) Flush() error {
	if f, ok := c.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Done is closed when the read pump has exited.
func (c *StreamChannel) Done() <-chan struct{} {
	return c.done
}
