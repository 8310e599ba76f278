// Package xmodem implements the XModem family of file transfer protocols.
//
// XModem is the classic block-oriented transfer protocol for serial links:
// fixed-size framed blocks with a one-byte sequence number and its bitwise
// complement, acknowledged one at a time, with checksum or CRC-16 trailers
// negotiated by the receiver's first request byte. This package implements
// basic XModem, XModem-1K (1024-byte blocks) and XModem-CRC, plus the data
// phase of YModem. YModem's block 0 (filename, size, timestamp) is not
// implemented; transfers begin at data block 1 regardless of variant.
//
// The package is designed as a library that runs over any duplex byte
// channel. Adapters are provided for serial ports, SSH sessions, WebSocket
// bridges and plain reader/writer pairs.
package xmodem

// Protocol control bytes. These values are fixed by the protocol.
const (
	// SOH starts a 128-byte block
	SOH = 0x01

	// STX starts a 1024-byte block
	STX = 0x02

	// EOT ends the transmission
	EOT = 0x04

	// ACK acknowledges a block
	ACK = 0x06

	// NAK rejects a block; as the receiver's start request it selects the
	// 8-bit additive checksum
	NAK = 0x15

	// CAN cancels the transfer (sent twice)
	CAN = 0x18

	// CPMEOF pads a short final block to the full block size
	CPMEOF = 0x1A

	// CRCRequest is the receiver's start request selecting CRC-16 ('C')
	CRCRequest = 0x43
)

// Block payload sizes. The header byte of each block selects which one is
// in use: SOH for ShortBlockSize, STX for LongBlockSize.
const (
	ShortBlockSize = 128
	LongBlockSize  = 1024
)

// controlName returns a human-readable name for a protocol control byte.
// Used for debugging and logging.
func controlName(b byte) string {
	switch b {
	case SOH:
		return "SOH"
	case STX:
		return "STX"
	case EOT:
		return "EOT"
	case ACK:
		return "ACK"
	case NAK:
		return "NAK"
	case CAN:
		return "CAN"
	case CRCRequest:
		return "C"
	default:
		return "UNKNOWN"
	}
}
