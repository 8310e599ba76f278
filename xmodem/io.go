package xmodem

import (
	"context"
	"time"
)

// transferIO provides the byte-level polling primitives shared by the
// sender and receiver state machines. Timeouts are implemented by active
// polling: every wait loop checks Available, sleeps one poll interval when
// nothing is pending, and rechecks until data appears or the deadline
// passes. Each sleep is a cancellation point.
type transferIO struct {
	ch     Channel
	config *Config
	logger Logger
}

// readByte polls the channel until a byte is available or the timer's
// deadline passes.
func (t *transferIO) readByte(ctx context.Context, tm *timer) (byte, error) {
	for {
		if t.ch.Available() > 0 {
			b, err := t.ch.ReadByte()
			if err != nil {
				return 0, NewError(ErrIO, err.Error())
			}
			return b, nil
		}
		if tm.expired() {
			return 0, NewError(ErrTimeout, "no data within deadline")
		}
		if err := t.pollWait(ctx); err != nil {
			return 0, err
		}
	}
}

// pollWait sleeps one poll interval. If the caller cancels during the
// sleep, a best-effort CAN pair is sent to the peer before unwinding.
func (t *transferIO) pollWait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		t.interruptTransmission()
		return NewError(ErrCancelled, "transmission interrupted")
	case <-time.After(t.config.PollInterval):
		return nil
	}
}

// sendByte writes one control byte and flushes immediately.
func (t *transferIO) sendByte(b byte) error {
	if _, err := t.ch.Write([]byte{b}); err != nil {
		return NewError(ErrIO, err.Error())
	}
	if err := t.ch.Flush(); err != nil {
		return NewError(ErrIO, err.Error())
	}
	return nil
}

// interruptTransmission sends CAN twice to abort the peer. I/O failures
// here are not escalated; the transfer is already unwinding.
func (t *transferIO) interruptTransmission() {
	t.ch.Write([]byte{CAN, CAN})
	t.ch.Flush()
	t.logger.Debug("sent CAN CAN")
}

// drainInput discards any bytes already pending on the channel, so a stale
// byte from a previous session cannot be mistaken for a block start.
func (t *transferIO) drainInput() {
	for t.ch.Available() > 0 {
		if _, err := t.ch.ReadByte(); err != nil {
			return
		}
	}
}
