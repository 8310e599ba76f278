package xmodem

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialChannel runs a transfer over a local serial port, the protocol's
// native transport.
type SerialChannel struct {
	*StreamChannel
	port serial.Port
}

// OpenSerial opens the named serial port at the given baud rate (8N1) and
// wraps it in a Channel.
func OpenSerial(portName string, baudRate int) (*SerialChannel, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}

	return &SerialChannel{
		StreamChannel: NewStreamChannel(port, port),
		port:          port,
	}, nil
}

// Close closes the serial port, which also unblocks and stops the read pump.
func (c *SerialChannel) Close() error {
	return c.port.Close()
}
