package xmodem

import (
	"context"
	"io"
)

// Receiver drives the receiving side of a transfer: announce the checksum
// choice until the sender starts, then accept, NAK, or cancel block by
// block until EOT.
type Receiver struct {
	*transferIO
	callbacks *Callbacks
}

// Receive requests transmission and accepts blocks into dst until EOT.
// Accepted payloads are written out immediately, so dst may hold a prefix
// of the transfer when a later block fails fatally.
func (r *Receiver) Receive(ctx context.Context, dst io.Writer, useCRC16 bool) error {
	r.drainInput()

	first, err := r.requestTransmissionStart(ctx, useCRC16)
	if err != nil {
		return err
	}
	cs := newChecksum(useCRC16)

	blockSize := ShortBlockSize
	if first == STX {
		blockSize = LongBlockSize
	}
	r.logger.Info("receive: handshake complete (block=%d, crc16=%v)", blockSize, useCRC16)
	r.callbacks.OnStart(RoleReceiver, blockSize, useCRC16)

	return r.processBlocks(ctx, cs, first, dst)
}

// requestTransmissionStart repeatedly emits the start-request byte (the
// CRC request character, or NAK for the 8-bit sum) until the first block
// start byte arrives. That byte is returned as the start of the first
// block. Ten unanswered requests cancel the peer and fail.
func (r *Receiver) requestTransmissionStart(ctx context.Context, useCRC16 bool) (byte, error) {
	requestByte := byte(NAK)
	if useCRC16 {
		requestByte = CRCRequest
	}

	if err := r.sendByte(requestByte); err != nil {
		return 0, err
	}
	tm := newTimer(r.config.HandshakeRetryPeriod).start()
	errorCount := 0

	for {
		for r.ch.Available() > 0 {
			c, err := r.ch.ReadByte()
			if err != nil {
				return 0, NewError(ErrIO, err.Error())
			}
			if c == SOH || c == STX {
				// First block
				return c, nil
			}
		}

		if err := r.pollWait(ctx); err != nil {
			return 0, err
		}

		if tm.expired() {
			errorCount++
			if errorCount == r.config.RetryLimit {
				r.interruptTransmission()
				return 0, NewError(ErrTimeout, "timeout waiting for transmitter")
			}
			r.logger.Debug("receive: re-requesting start (%s, attempt %d)", controlName(requestByte), errorCount+1)
			if err := r.sendByte(requestByte); err != nil {
				return 0, err
			}
			tm.start()
		}
	}
}

// processBlocks is the receiver block loop. Each iteration starts from an
// already-read block start byte: EOT finishes the transfer, SOH/STX select
// the payload size for that block.
func (r *Receiver) processBlocks(ctx context.Context, cs Checksum, first byte, dst io.Writer) error {
	var (
		seq        byte = 1
		errorCount int
		accepted   bool
		received   int64
	)

	progress := NewProgressTracker(r.callbacks.OnProgress, r.config.ProgressInterval)
	progress.Start(0)

	shortBlock := make([]byte, ShortBlockSize)
	longBlock := make([]byte, LongBlockSize)

	c := first
	for {
		if c == EOT {
			if err := r.sendByte(ACK); err != nil {
				return err
			}
			r.callbacks.OnComplete(received, progress.Complete())
			r.logger.Info("receive: complete (%d bytes)", received)
			return nil
		}

		block := longBlock
		if c == SOH {
			block = shortBlock
		}

		outcome, err := r.readBlock(ctx, seq, block, cs)
		if err != nil {
			return err
		}

		switch outcome {
		case blockOK:
			if _, err := dst.Write(block); err != nil {
				return NewError(ErrIO, err.Error())
			}
			seq++
			errorCount = 0
			accepted = true
			received += int64(len(block))
			progress.Update(received)
			if err := r.sendByte(ACK); err != nil {
				return err
			}

		case blockRepeated:
			// The peer resent the last block, its ACK was lost. Accept
			// without writing the payload again or advancing the counter.
			r.logger.Debug("receive: duplicate block %d", seq-1)
			accepted = true
			if err := r.sendByte(ACK); err != nil {
				return err
			}

		case blockInvalid, blockTimeout:
			errorCount++
			r.logger.Debug("receive: block %d %s (errors=%d)", seq, outcome, errorCount)
			if errorCount == r.config.RetryLimit {
				r.interruptTransmission()
				return NewError(ErrRetryExceeded, "transmission aborted, error count exceeded max")
			}
			accepted = false
			if err := r.sendByte(NAK); err != nil {
				return err
			}

		case blockSyncLost:
			r.interruptTransmission()
			return NewError(ErrSyncLost, "fatal transmission error")
		}

		c, err = r.readNextBlockStart(ctx, accepted)
		if err != nil {
			return err
		}
	}
}

// readNextBlockStart polls for the next block start byte (SOH, STX or
// EOT), skipping anything else. On each deadline expiry the previous
// verdict is repeated - ACK if the last block was accepted or a duplicate,
// NAK if it was rejected - in case the peer missed it. Ten expiries cancel
// the peer and fail.
func (r *Receiver) readNextBlockStart(ctx context.Context, lastAccepted bool) (byte, error) {
	tm := newTimer(r.config.BlockTimeout).start()
	errorCount := 0

	for {
		for r.ch.Available() > 0 {
			c, err := r.ch.ReadByte()
			if err != nil {
				return 0, NewError(ErrIO, err.Error())
			}
			if c == SOH || c == STX || c == EOT {
				return c, nil
			}
		}

		if err := r.pollWait(ctx); err != nil {
			return 0, err
		}

		if tm.expired() {
			errorCount++
			if errorCount == r.config.RetryLimit {
				r.interruptTransmission()
				return 0, NewError(ErrTimeout, "timeout, no data received from transmitter")
			}
			verdict := byte(NAK)
			if lastAccepted {
				verdict = ACK
			}
			if err := r.sendByte(verdict); err != nil {
				return 0, err
			}
			tm.start()
		}
	}
}
