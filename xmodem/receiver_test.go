package xmodem

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReceiver(ch Channel) *Receiver {
	return &Receiver{transferIO: newTestIO(ch), callbacks: defaultCallbacks()}
}

// receiveScripted runs the receive state machine against input fed before
// the call, skipping the stale-input drain that Receive performs.
func receiveScripted(r *Receiver, useCRC16 bool, dst io.Writer) error {
	first, err := r.requestTransmissionStart(context.Background(), useCRC16)
	if err != nil {
		return err
	}
	return r.processBlocks(context.Background(), newChecksum(useCRC16), first, dst)
}

func TestReceiveAcceptsDuplicateBlockOnce(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	// Payload bytes must not collide with block start bytes: the scan for
	// the next block walks over a duplicate's unread remainder.
	payload := bytes.Repeat([]byte{0xAA}, ShortBlockSize)
	block := buildBlock(SOH, 1, payload, checksum8{})
	ch.feed(block...)
	ch.feed(block...) // resend of the same block, as if our ACK was lost
	ch.feed(EOT)

	var dst bytes.Buffer
	require.NoError(t, receiveScripted(r, false, &dst))

	// The payload lands exactly once
	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, []byte{NAK, ACK, ACK, ACK}, ch.written())
}

func TestReceiveCRC16(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	payload := bytes.Repeat([]byte{0x55}, ShortBlockSize)
	ch.feed(buildBlock(SOH, 1, payload, crc16{})...)
	ch.feed(EOT)

	var dst bytes.Buffer
	require.NoError(t, receiveScripted(r, true, &dst))

	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, []byte{CRCRequest, ACK, ACK}, ch.written())
}

func TestReceive1KBlock(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	payload := bytes.Repeat([]byte{0x55}, LongBlockSize)
	ch.feed(buildBlock(STX, 1, payload, crc16{})...)
	ch.feed(EOT)

	var dst bytes.Buffer
	require.NoError(t, receiveScripted(r, true, &dst))
	assert.Equal(t, payload, dst.Bytes())
}

func TestReceiveSyncLost(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	// Block 5 while expecting block 1: neither current nor a repeat
	ch.feed(SOH, 5)

	err := receiveScripted(r, false, io.Discard)
	require.Error(t, err)
	assert.True(t, IsSyncLost(err))
	assert.Equal(t, []byte{NAK, CAN, CAN}, ch.written())
}

func TestReceiveInvalidBlockThenResend(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	payload := bytes.Repeat([]byte{0xAA}, ShortBlockSize)
	bad := buildBlock(SOH, 1, payload, checksum8{})
	bad[2] = 0x42 // corrupt the sequence complement
	ch.feed(bad...)
	ch.feed(buildBlock(SOH, 1, payload, checksum8{})...)
	ch.feed(EOT)

	var dst bytes.Buffer
	require.NoError(t, receiveScripted(r, false, &dst))

	assert.Equal(t, payload, dst.Bytes())
	assert.Equal(t, []byte{NAK, NAK, ACK, ACK}, ch.written())
}

func TestReceiveBadChecksumThenResend(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	payload := bytes.Repeat([]byte{0xAA}, ShortBlockSize)
	bad := buildBlock(SOH, 1, payload, checksum8{})
	bad[len(bad)-1] ^= 0xFF
	ch.feed(bad...)
	ch.feed(buildBlock(SOH, 1, payload, checksum8{})...)
	ch.feed(EOT)

	var dst bytes.Buffer
	require.NoError(t, receiveScripted(r, false, &dst))
	assert.Equal(t, []byte{NAK, NAK, ACK, ACK}, ch.written())
}

func TestReceiveRetryBudget(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	payload := bytes.Repeat([]byte{0xAA}, ShortBlockSize)
	bad := buildBlock(SOH, 1, payload, checksum8{})
	bad[2] = 0x42
	for i := 0; i < 10; i++ {
		ch.feed(bad...)
	}

	err := receiveScripted(r, false, io.Discard)
	require.Error(t, err)
	assert.True(t, IsRetryExceeded(err))

	// Request, a NAK per rejected block until the limit, then the abort
	want := []byte{NAK}
	want = append(want, bytes.Repeat([]byte{NAK}, 9)...)
	want = append(want, CAN, CAN)
	assert.Equal(t, want, ch.written())
}

func TestReceiveHandshakeTimeout(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	err := r.Receive(context.Background(), io.Discard, false)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	want := append(bytes.Repeat([]byte{NAK}, 10), CAN, CAN)
	assert.Equal(t, want, ch.written())
}

func TestReceiveNextBlockStartTimeout(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	payload := bytes.Repeat([]byte{0xAA}, ShortBlockSize)
	ch.feed(buildBlock(SOH, 1, payload, checksum8{})...)
	// Then silence: no second block and no EOT

	err := receiveScripted(r, false, io.Discard)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	// The accept verdict is repeated on each expiry before giving up
	want := []byte{NAK, ACK}
	want = append(want, bytes.Repeat([]byte{ACK}, 9)...)
	want = append(want, CAN, CAN)
	assert.Equal(t, want, ch.written())
}

func TestReceiveLocalCancellation(t *testing.T) {
	ch := newMemChannel()
	r := newTestReceiver(ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Receive(ctx, io.Discard, false)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, []byte{NAK, CAN, CAN}, ch.written())
}
