package xmodem

// Checksum is the block trailer strategy negotiated during the handshake.
// The receiver's first request byte selects the strategy for the whole
// session: NAK selects the 8-bit additive sum, 'C' selects CRC-16.
type Checksum interface {
	// Size returns the number of trailer bytes appended to each block.
	Size() int

	// Sum computes the trailer bytes for a block payload.
	Sum(block []byte) []byte

	// Verify reports whether trailer matches the checksum of block.
	Verify(block, trailer []byte) bool
}

// newChecksum returns the strategy selected by the handshake.
func newChecksum(useCRC16 bool) Checksum {
	if useCRC16 {
		return crc16{}
	}
	return checksum8{}
}

// checksum8 is the original XModem 8-bit additive checksum: the low byte of
// the sum of all payload bytes.
type checksum8 struct{}

func (checksum8) Size() int { return 1 }

func (checksum8) Sum(block []byte) []byte {
	var sum byte
	for _, b := range block {
		sum += b
	}
	return []byte{sum}
}

func (c checksum8) Verify(block, trailer []byte) bool {
	if len(trailer) != 1 {
		return false
	}
	return c.Sum(block)[0] == trailer[0]
}

// crc16 is the XModem-CRC trailer: CRC-16 with polynomial 0x1021 and zero
// initial value, transmitted high byte first.
type crc16 struct{}

func (crc16) Size() int { return 2 }

func (crc16) Sum(block []byte) []byte {
	crc := crc16Sum(block)
	return []byte{byte(crc >> 8), byte(crc)}
}

func (c crc16) Verify(block, trailer []byte) bool {
	if len(trailer) != 2 {
		return false
	}
	crc := crc16Sum(block)
	return trailer[0] == byte(crc>>8) && trailer[1] == byte(crc)
}

// crc16Sum computes the XModem CRC-16 of data
func crc16Sum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
