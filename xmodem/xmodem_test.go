package xmodem

import (
	"bytes"
	"sync"
	"time"
)

// memChannel is an in-memory Channel for tests. Input either comes from a
// preloaded script (feed) or from a linked peer's writes; output is
// captured, or delivered to the peer when linked.
type memChannel struct {
	mu   sync.Mutex
	in   []byte
	out  bytes.Buffer
	peer *memChannel
}

func newMemChannel() *memChannel {
	return &memChannel{}
}

// newMemLink returns two channels wired back to back: writes on one become
// input on the other.
func newMemLink() (*memChannel, *memChannel) {
	a := newMemChannel()
	b := newMemChannel()
	a.peer = b
	b.peer = a
	return a, b
}

// feed appends script bytes to the channel's input.
func (m *memChannel) feed(p ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in = append(m.in, p...)
}

func (m *memChannel) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.in)
}

func (m *memChannel) ReadByte() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.in[0]
	m.in = m.in[1:]
	return b, nil
}

func (m *memChannel) Write(p []byte) (int, error) {
	if m.peer != nil {
		m.peer.feed(p...)
		return len(p), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.Write(p)
}

func (m *memChannel) Flush() error { return nil }

// written snapshots everything written to an unlinked channel.
func (m *memChannel) written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.out.Bytes()...)
}

// testConfig returns a config with the protocol's timing scaled down so
// retry and timeout paths run in milliseconds.
func testConfig() *Config {
	return &Config{
		RetryLimit:           10,
		HandshakeTimeout:     200 * time.Millisecond,
		HandshakeRetryPeriod: 20 * time.Millisecond,
		ResponseTimeout:      50 * time.Millisecond,
		BlockTimeout:         30 * time.Millisecond,
		EOTTimeout:           20 * time.Millisecond,
		PollInterval:         time.Millisecond,
		ProgressInterval:     time.Millisecond,
	}
}

func newTestIO(ch Channel) *transferIO {
	return &transferIO{ch: ch, config: testConfig(), logger: NoopLogger{}}
}

// buildBlock frames a block the way the sender does, for comparing against
// captured wire bytes.
func buildBlock(header, seq byte, payload []byte, cs Checksum) []byte {
	frame := []byte{header, seq, ^seq}
	frame = append(frame, payload...)
	return append(frame, cs.Sum(payload)...)
}

// padded returns data extended to size with CPMEOF filler.
func padded(data []byte, size int) []byte {
	out := append([]byte(nil), data...)
	for len(out) < size {
		out = append(out, CPMEOF)
	}
	return out
}

func countByte(p []byte, b byte) int {
	n := 0
	for _, c := range p {
		if c == b {
			n++
		}
	}
	return n
}
