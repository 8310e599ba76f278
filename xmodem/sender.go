package xmodem

import (
	"context"
	"io"
	"time"
)

// Sender drives the transmitting side of a transfer: wait for the
// receiver's start request, stream numbered blocks with retry on NAK or
// silence, then negotiate EOT.
type Sender struct {
	*transferIO
	callbacks *Callbacks
}

// Send transmits src as a sequence of blocks. The block size is fixed for
// the whole session by use1K; the checksum strategy is fixed by the
// receiver's start request.
func (s *Sender) Send(ctx context.Context, src io.Reader, use1K bool) error {
	blockSize := ShortBlockSize
	header := byte(SOH)
	if use1K {
		blockSize = LongBlockSize
		header = STX
	}

	useCRC16, err := s.waitReceiverRequest(ctx)
	if err != nil {
		return err
	}
	cs := newChecksum(useCRC16)

	s.logger.Info("send: handshake complete (block=%d, crc16=%v)", blockSize, useCRC16)
	s.callbacks.OnStart(RoleSender, blockSize, useCRC16)

	progress := NewProgressTracker(s.callbacks.OnProgress, s.config.ProgressInterval)
	progress.Start(0)

	var (
		seq   byte = 1
		sent  int64
		begin = time.Now()
		block = make([]byte, blockSize)
	)

	for {
		n, err := io.ReadFull(src, block)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return NewError(ErrIO, err.Error())
		}

		if err := s.sendBlock(ctx, header, seq, block, n, cs); err != nil {
			return err
		}
		seq++
		sent += int64(n)
		progress.Update(sent)

		if n < blockSize {
			// Short read means the source is exhausted
			break
		}
	}

	if err := s.sendEOT(ctx); err != nil {
		return err
	}

	s.callbacks.OnComplete(sent, progress.Complete())
	s.logger.Info("send: complete (%d bytes in %v)", sent, time.Since(begin))
	return nil
}

// waitReceiverRequest blocks on a single long deadline until the receiver
// announces its checksum choice: NAK for the 8-bit sum, 'C' for CRC-16.
// Any other byte is ignored. There is no retry on this side; expiry fails
// the transfer.
func (s *Sender) waitReceiverRequest(ctx context.Context) (bool, error) {
	tm := newTimer(s.config.HandshakeTimeout).start()
	for {
		c, err := s.readByte(ctx, tm)
		if err != nil {
			if IsTimeout(err) {
				return false, NewError(ErrTimeout, "timeout waiting for receiver")
			}
			return false, err
		}
		switch c {
		case NAK:
			return false, nil
		case CRCRequest:
			return true, nil
		}
	}
}

// sendBlock transmits one block and waits for the receiver's verdict,
// resending the same block unchanged on NAK or silence. Ten consecutive
// errors on the same block abandon the transfer.
func (s *Sender) sendBlock(ctx context.Context, header, seq byte, block []byte, dataLen int, cs Checksum) error {
	for i := dataLen; i < len(block); i++ {
		block[i] = CPMEOF
	}

	tm := newTimer(s.config.ResponseTimeout)
	errorCount := 0

	for errorCount < s.config.RetryLimit {
		tm.start()

		if err := s.writeBlock(header, seq, block, cs); err != nil {
			return err
		}

	await:
		for {
			c, err := s.readByte(ctx, tm)
			if err != nil {
				if IsTimeout(err) {
					errorCount++
					s.logger.Debug("send: block %d response timeout (errors=%d)", seq, errorCount)
					break await
				}
				return err
			}
			switch c {
			case ACK:
				return nil
			case NAK:
				errorCount++
				s.logger.Debug("send: block %d NAK (errors=%d)", seq, errorCount)
				break await
			case CAN:
				return NewError(ErrPeerCancelled, "transmission terminated")
			}
			// Ignore anything else and keep waiting
		}
	}

	return NewError(ErrRetryExceeded, "too many errors, abandoning transfer")
}

// sendEOT ends the transfer: EOT is repeated on a short deadline until the
// receiver ACKs. Exhausting the attempts without any response is not an
// error; the receiver most likely finished and its ACK was lost.
func (s *Sender) sendEOT(ctx context.Context) error {
	tm := newTimer(s.config.EOTTimeout)

	for errorCount := 0; errorCount < s.config.RetryLimit; errorCount++ {
		if err := s.sendByte(EOT); err != nil {
			return err
		}

		c, err := s.readByte(ctx, tm.start())
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			return err
		}

		switch c {
		case ACK:
			return nil
		case CAN:
			return NewError(ErrPeerCancelled, "transmission terminated")
		}
	}

	return nil
}
