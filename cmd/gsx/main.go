package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drunlade/go-sxrx/xmodem"
)

var (
	use1K   = flag.Bool("k", false, "use 1024-byte blocks (XModem-1K)")
	port    = flag.String("p", "", "serial port device (default: stdio)")
	baud    = flag.Int("b", 115200, "baud rate (serial only)")
	wsURL   = flag.String("url", "", "WebSocket URL (ws:// or wss://)")
	timeout = flag.Int("t", 100, "block response timeout in tenths of seconds")
	verbose = flag.Bool("v", false, "verbose mode")
	quiet   = flag.Bool("q", false, "quiet mode")
	logFile = flag.String("log", "", "protocol log file (for debugging)")
	help    = flag.Bool("h", false, "show help")
	version = flag.Bool("version", false, "show version")
)

const versionString = "gsx version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	files := flag.Args()
	if len(files) != 1 {
		fmt.Fprintf(os.Stderr, "%s: exactly one file must be specified\n", os.Args[0])
		showUsage(1)
	}

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := signalContext(sigChan)
	defer cancel()

	opts, cleanup, err := sessionOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	channel, closeChannel, err := openChannel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeChannel()

	session := xmodem.NewSession(channel, opts...)

	if err := session.SendFile(ctx, files[0], *use1K); err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// sessionOptions builds the session options from the command line flags.
func sessionOptions() ([]xmodem.Option, func(), error) {
	config := xmodem.DefaultConfig()
	config.ResponseTimeout = time.Duration(*timeout) * 100 * time.Millisecond

	callbacks := &xmodem.Callbacks{
		OnStart: func(role xmodem.Role, blockSize int, useCRC16 bool) {
			if *verbose && !*quiet {
				fmt.Fprintf(os.Stderr, "Sending with %d-byte blocks (CRC-16: %v)\n", blockSize, useCRC16)
			}
		},
		OnProgress: func(transferred int64, rate float64) {
			if *verbose && !*quiet {
				fmt.Fprintf(os.Stderr, "\r%d bytes (%.0f bytes/s)", transferred, rate)
			}
		},
		OnComplete: func(bytesTransferred int64, duration time.Duration) {
			if !*quiet {
				fmt.Fprintf(os.Stderr, "\nSent %d bytes in %v\n", bytesTransferred, duration)
			}
		},
		OnError: func(err error, context string) {
			if !*quiet {
				fmt.Fprintf(os.Stderr, "Error in %s: %v\n", context, err)
			}
		},
	}

	opts := []xmodem.Option{
		xmodem.WithConfig(config),
		xmodem.WithCallbacks(callbacks),
	}

	cleanup := func() {}
	if *logFile != "" {
		logger, err := xmodem.NewFileLogger(*logFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, xmodem.WithLogger(logger))
		cleanup = func() { logger.Close() }
	}

	return opts, cleanup, nil
}

// openChannel opens the transfer channel selected by the flags: a serial
// port, a WebSocket bridge, or stdio.
func openChannel() (xmodem.Channel, func(), error) {
	switch {
	case *port != "":
		ch, err := xmodem.OpenSerial(*port, *baud)
		if err != nil {
			return nil, nil, err
		}
		return ch, func() { ch.Close() }, nil

	case *wsURL != "":
		ch, err := xmodem.DialWebSocket(*wsURL)
		if err != nil {
			return nil, nil, err
		}
		return ch, func() { ch.Close() }, nil

	default:
		ch, err := xmodem.NewStdioChannel()
		if err != nil {
			return nil, nil, err
		}
		return ch, func() { ch.Restore() }, nil
	}
}

func signalContext(sigChan chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

func showUsage(exitcode int) {
	fmt.Fprintf(os.Stderr, `%s - send a file with the XMODEM protocol

Usage: %s [options] file

Options:
  -k               use 1024-byte blocks (XModem-1K)
  -p device        serial port device (default: stdio)
  -b N             baud rate for serial (default: 115200)
  -url URL         WebSocket URL (ws:// or wss://)
  -t N             block response timeout in tenths of seconds (default: 100)
  -log file        protocol log file for debugging
  -q               quiet mode, minimal output
  -v               verbose mode
  -h               show this help message
  --version        show version

Examples:
  %s file.bin                       # Send over stdio
  %s -p /dev/ttyUSB0 file.bin       # Send over a serial port
  %s -k -v firmware.img             # 1K blocks, verbose

`, versionString, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	os.Exit(exitcode)
}
