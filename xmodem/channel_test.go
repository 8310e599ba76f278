package xmodem

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitAvailable(t *testing.T, c *StreamChannel, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for c.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d bytes, have %d", n, c.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStreamChannelReadWrite(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	c := NewStreamChannel(inR, outW)
	defer func() {
		inW.Close()
		<-c.Done()
	}()

	go inW.Write([]byte{SOH, 0x01, 0xFE})
	waitAvailable(t, c, 3)

	b, err := c.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(SOH), b)
	assert.Equal(t, 2, c.Available())

	got := make([]byte, 4)
	go func() {
		c.Write([]byte{ACK, EOT, NAK, CAN})
		c.Flush()
	}()
	_, err = io.ReadFull(outR, got)
	require.NoError(t, err)
	assert.Equal(t, []byte{ACK, EOT, NAK, CAN}, got)
}

func TestStreamChannelEmptyRead(t *testing.T) {
	inR, inW := io.Pipe()
	c := NewStreamChannel(inR, io.Discard)
	defer func() {
		inW.Close()
		<-c.Done()
	}()

	// Nothing buffered and the pump still running
	_, err := c.ReadByte()
	assert.Equal(t, io.ErrNoProgress, err)
}

func TestStreamChannelPumpExit(t *testing.T) {
	inR, inW := io.Pipe()
	c := NewStreamChannel(inR, io.Discard)

	go func() {
		inW.Write([]byte{0x11})
		inW.Close()
	}()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after the reader closed")
	}

	// Buffered input survives the pump; then the terminal error surfaces
	b, err := c.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x11), b)
	_, err = c.ReadByte()
	assert.Equal(t, io.EOF, err)
}
