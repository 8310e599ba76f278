package xmodem

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(ch Channel) *Sender {
	return &Sender{transferIO: newTestIO(ch), callbacks: defaultCallbacks()}
}

func TestSendTwoBlockScenario(t *testing.T) {
	// 130 bytes with 128-byte blocks and the 8-bit checksum: exactly two
	// data blocks (the second padded with 126 filler bytes), then EOT.
	ch := newMemChannel()
	s := newTestSender(ch)

	src := make([]byte, 130)
	for i := range src {
		src[i] = byte(i)
	}
	ch.feed(NAK, ACK, ACK, ACK)

	require.NoError(t, s.Send(context.Background(), bytes.NewReader(src), false))

	cs := checksum8{}
	want := buildBlock(SOH, 1, src[:128], cs)
	want = append(want, buildBlock(SOH, 2, padded(src[128:], ShortBlockSize), cs)...)
	want = append(want, EOT)
	assert.Equal(t, want, ch.written())
}

func TestSendNegotiatesCRC16(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	src := bytes.Repeat([]byte{0x77}, 10)
	ch.feed(CRCRequest, ACK, ACK)

	require.NoError(t, s.Send(context.Background(), bytes.NewReader(src), false))

	want := buildBlock(SOH, 1, padded(src, ShortBlockSize), crc16{})
	want = append(want, EOT)
	assert.Equal(t, want, ch.written())
}

func TestSend1KBlocks(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	src := bytes.Repeat([]byte{0x33}, LongBlockSize)
	ch.feed(CRCRequest, ACK, ACK)

	require.NoError(t, s.Send(context.Background(), bytes.NewReader(src), true))

	want := buildBlock(STX, 1, src, crc16{})
	want = append(want, EOT)
	assert.Equal(t, want, ch.written())
}

func TestSendResendsOnNAK(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	src := bytes.Repeat([]byte{0x11}, 10)
	ch.feed(NAK, NAK, ACK, ACK)

	require.NoError(t, s.Send(context.Background(), bytes.NewReader(src), false))

	// The same block is retransmitted unchanged
	block := buildBlock(SOH, 1, padded(src, ShortBlockSize), checksum8{})
	want := append(append([]byte(nil), block...), block...)
	want = append(want, EOT)
	assert.Equal(t, want, ch.written())
}

func TestSendRetryBudget(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	src := bytes.Repeat([]byte{0x11}, 10)
	script := []byte{NAK} // handshake
	for i := 0; i < 10; i++ {
		script = append(script, NAK)
	}
	ch.feed(script...)

	err := s.Send(context.Background(), bytes.NewReader(src), false)
	require.Error(t, err)
	assert.True(t, IsRetryExceeded(err))

	// Exactly 10 transmissions, no 11th attempt and no EOT
	blockLen := 3 + ShortBlockSize + 1
	assert.Len(t, ch.written(), 10*blockLen)
	assert.Equal(t, 0, countByte(ch.written(), EOT))
}

func TestSendPeerCancel(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	ch.feed(NAK, CAN)

	err := s.Send(context.Background(), bytes.NewReader(bytes.Repeat([]byte{0x11}, 10)), false)
	require.Error(t, err)
	assert.True(t, IsPeerCancelled(err))
}

func TestSendHandshakeTimeout(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)
	s.config.HandshakeTimeout = 50 * time.Millisecond

	err := s.Send(context.Background(), bytes.NewReader([]byte{0x11}), false)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Empty(t, ch.written())
}

func TestSendHandshakeIgnoresGarbage(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	// Line noise before the real request byte is skipped
	ch.feed(0x00, 0x7F, 'X', CRCRequest, ACK, ACK)

	require.NoError(t, s.Send(context.Background(), bytes.NewReader([]byte{0x11}), false))
}

func TestSendEOTExhaustionIsNotFatal(t *testing.T) {
	// A silent peer during the EOT exchange does not fail the transfer;
	// the receiver most likely finished and its ACK was lost.
	ch := newMemChannel()
	s := newTestSender(ch)

	ch.feed(NAK) // handshake only; no response to any EOT

	require.NoError(t, s.Send(context.Background(), bytes.NewReader(nil), false))
	assert.Equal(t, bytes.Repeat([]byte{EOT}, 10), ch.written())
}

func TestSendLocalCancellation(t *testing.T) {
	ch := newMemChannel()
	s := newTestSender(ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, bytes.NewReader([]byte{0x11}), false)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, []byte{CAN, CAN}, ch.written())
}
