package xmodem

import "time"

// Role identifies which side of the transfer a session is driving.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

func (r Role) String() string {
	switch r {
	case RoleSender:
		return "sender"
	case RoleReceiver:
		return "receiver"
	default:
		return "unknown"
	}
}

// Callbacks provides hooks for transfer events.
// All callbacks are optional - nil callbacks use default behavior.
type Callbacks struct {
	// OnStart is called once the handshake has fixed the block size and
	// checksum strategy for the session.
	OnStart func(role Role, blockSize int, useCRC16 bool)

	// OnProgress is called periodically during the transfer.
	// transferred: bytes transferred so far
	// rate: transfer rate in bytes per second
	OnProgress func(transferred int64, rate float64)

	// OnComplete is called when the transfer finishes successfully.
	// duration: time taken for the transfer
	OnComplete func(bytesTransferred int64, duration time.Duration)

	// OnError is called when a transfer fails.
	// context: description of where the error occurred
	OnError func(err error, context string)
}

// defaultCallbacks returns a set of callbacks with default implementations.
func defaultCallbacks() *Callbacks {
	return &Callbacks{
		OnStart:    func(Role, int, bool) {},
		OnProgress: func(int64, float64) {},
		OnComplete: func(int64, time.Duration) {},
		OnError:    func(error, string) {},
	}
}

// mergeCallbacks merges user callbacks with defaults.
// User callbacks override defaults, nil callbacks use defaults.
func mergeCallbacks(user *Callbacks) *Callbacks {
	if user == nil {
		return defaultCallbacks()
	}

	result := defaultCallbacks()

	if user.OnStart != nil {
		result.OnStart = user.OnStart
	}
	if user.OnProgress != nil {
		result.OnProgress = user.OnProgress
	}
	if user.OnComplete != nil {
		result.OnComplete = user.OnComplete
	}
	if user.OnError != nil {
		result.OnError = user.OnError
	}

	return result
}
