package xmodem

import (
	"context"
	"io"
	"os"
	"time"
)

// Session represents an XModem transfer over one channel.
// It provides a high-level API for sending and receiving files.
type Session struct {
	// I/O
	ch Channel

	// Configuration
	config *Config

	// Callbacks
	callbacks *Callbacks

	// Internal state
	sender   *Sender
	receiver *Receiver

	// Logger
	logger Logger
}

// Config holds session configuration. The timeout and retry defaults are
// the protocol's classic values; tests shorten them.
type Config struct {
	// RetryLimit is the consecutive-error budget per block and per
	// handshake step
	RetryLimit int

	// HandshakeTimeout is the sender's single long wait for the
	// receiver's start request
	HandshakeTimeout time.Duration

	// HandshakeRetryPeriod is the receiver's start-request retry cadence
	HandshakeRetryPeriod time.Duration

	// ResponseTimeout is the sender's wait for an ACK/NAK per block
	ResponseTimeout time.Duration

	// BlockTimeout covers the receiver's block reads and the wait for
	// the next block start
	BlockTimeout time.Duration

	// EOTTimeout is the per-attempt wait for the EOT acknowledgment
	EOTTimeout time.Duration

	// PollInterval is the sleep between channel polls
	PollInterval time.Duration

	// Progress update interval
	ProgressInterval time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		RetryLimit:           10,
		HandshakeTimeout:     60 * time.Second,
		HandshakeRetryPeriod: 3 * time.Second,
		ResponseTimeout:      10 * time.Second,
		BlockTimeout:         time.Second,
		EOTTimeout:           time.Second,
		PollInterval:         10 * time.Millisecond,
		ProgressInterval:     100 * time.Millisecond,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(config *Config) Option {
	return func(s *Session) {
		s.config = config
	}
}

// WithCallbacks sets the session callbacks.
func WithCallbacks(callbacks *Callbacks) Option {
	return func(s *Session) {
		s.callbacks = mergeCallbacks(callbacks)
	}
}

// WithLogger sets a logger for protocol debugging.
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a new XModem session over the channel. The channel is
// assumed pre-connected and single-owner for the duration of each call;
// the session does not manage connection setup or teardown.
func NewSession(ch Channel, opts ...Option) *Session {
	s := &Session{
		ch:        ch,
		config:    DefaultConfig(),
		callbacks: defaultCallbacks(),
		logger:    NoopLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	tio := &transferIO{ch: ch, config: s.config, logger: s.logger}
	s.sender = &Sender{transferIO: tio, callbacks: s.callbacks}
	s.receiver = &Receiver{transferIO: tio, callbacks: s.callbacks}

	return s
}

// Send transmits the bytes of src as numbered blocks. use1K selects
// 1024-byte blocks (XModem-1K); the header byte and block size are fixed
// for the whole session. The checksum strategy is the receiver's choice,
// taken from its start request during the handshake.
//
// A final chunk shorter than the block size is padded with CPMEOF bytes up
// to the block boundary; the padding is not recoverable on the far side.
func (s *Session) Send(ctx context.Context, src io.Reader, use1K bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.sender.Send(ctx, src, use1K)
	if err != nil {
		s.callbacks.OnError(err, "send")
	}
	return err
}

// Receive drives the receiving side: it requests the checksum strategy
// (CRC-16 when useCRC16 is set, the 8-bit sum otherwise), then accepts
// blocks until EOT, writing each accepted payload to dst as soon as it
// verifies. On a fatal failure dst may already contain a prefix of
// correctly received blocks.
func (s *Session) Receive(ctx context.Context, dst io.Writer, useCRC16 bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.receiver.Receive(ctx, dst, useCRC16)
	if err != nil {
		s.callbacks.OnError(err, "receive")
	}
	return err
}

// SendFile opens the named file and sends it.
func (s *Session) SendFile(ctx context.Context, path string, use1K bool) error {
	f, err := os.Open(path)
	if err != nil {
		s.callbacks.OnError(err, "open file")
		return err
	}
	defer f.Close()

	return s.Send(ctx, f, use1K)
}

// ReceiveFile receives into the named file, creating or truncating it. The
// file is kept on failure; it may hold a prefix of the transfer.
func (s *Session) ReceiveFile(ctx context.Context, path string, useCRC16 bool) error {
	f, err := os.Create(path)
	if err != nil {
		s.callbacks.OnError(err, "create file")
		return err
	}
	defer f.Close()

	return s.Receive(ctx, f, useCRC16)
}
