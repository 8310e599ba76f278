package xmodem

import "context"

// blockOutcome classifies the result of reading one block on the receiver
// side. The receiver loop dispatches on the tag; only channel failures and
// cancellation travel as errors.
type blockOutcome int

const (
	// blockOK - sequence matched, complement matched, checksum verified
	blockOK blockOutcome = iota

	// blockRepeated - sequence was one behind, the peer resent a block
	// whose ACK was lost
	blockRepeated

	// blockInvalid - complement or checksum mismatch
	blockInvalid

	// blockTimeout - the block did not arrive in full within the deadline
	blockTimeout

	// blockSyncLost - sequence was neither current nor one behind
	blockSyncLost
)

func (o blockOutcome) String() string {
	switch o {
	case blockOK:
		return "ok"
	case blockRepeated:
		return "repeated"
	case blockInvalid:
		return "invalid"
	case blockTimeout:
		return "timeout"
	case blockSyncLost:
		return "sync lost"
	default:
		return "unknown"
	}
}

// writeBlock frames and sends one block: header byte, sequence byte, its
// bitwise complement, the padded payload, then the checksum trailer. The
// whole frame is flushed as a unit.
func (t *transferIO) writeBlock(header, seq byte, block []byte, cs Checksum) error {
	frame := make([]byte, 0, 3+len(block)+cs.Size())
	frame = append(frame, header, seq, ^seq)
	frame = append(frame, block...)
	frame = append(frame, cs.Sum(block)...)

	if _, err := t.ch.Write(frame); err != nil {
		return NewError(ErrIO, err.Error())
	}
	if err := t.ch.Flush(); err != nil {
		return NewError(ErrIO, err.Error())
	}
	return nil
}

// readBlock reads the remainder of a block whose start byte has already
// been consumed: sequence byte, complement byte, payload of len(block)
// bytes, checksum trailer. The payload lands in block. One deadline covers
// the whole read.
func (t *transferIO) readBlock(ctx context.Context, seq byte, block []byte, cs Checksum) (blockOutcome, error) {
	tm := newTimer(t.config.BlockTimeout).start()

	c, err := t.readByte(ctx, tm)
	if err != nil {
		return t.readOutcome(err)
	}

	if c == seq-1 {
		// Repeat of the last block, the peer likely lost our ACK
		return blockRepeated, nil
	}
	if c != seq {
		// Wrong block - fatal loss of synchronization
		return blockSyncLost, nil
	}

	c, err = t.readByte(ctx, tm)
	if err != nil {
		return t.readOutcome(err)
	}
	if c != ^seq {
		return blockInvalid, nil
	}

	for i := range block {
		b, err := t.readByte(ctx, tm)
		if err != nil {
			return t.readOutcome(err)
		}
		block[i] = b
	}

	trailer := make([]byte, cs.Size())
	for i := range trailer {
		b, err := t.readByte(ctx, tm)
		if err != nil {
			return t.readOutcome(err)
		}
		trailer[i] = b
	}

	if !cs.Verify(block, trailer) {
		return blockInvalid, nil
	}
	return blockOK, nil
}

// readOutcome folds a readByte failure into the outcome tag: deadline
// expiry is a recoverable per-block timeout, anything else aborts.
func (t *transferIO) readOutcome(err error) (blockOutcome, error) {
	if IsTimeout(err) {
		return blockTimeout, nil
	}
	return 0, err
}
