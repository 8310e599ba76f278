package xmodem

import "fmt"

// Error represents an XModem protocol error
type Error struct {
	// Kind is the error kind
	Kind ErrorKind

	// Message is a human-readable error message
	Message string
}

// ErrorKind categorizes XModem errors
type ErrorKind int

const (
	// ErrTimeout indicates no byte arrived within a deadline
	ErrTimeout ErrorKind = iota

	// ErrInvalidBlock indicates a complement or checksum mismatch
	ErrInvalidBlock

	// ErrSyncLost indicates a fatal sequence number mismatch
	ErrSyncLost

	// ErrPeerCancelled indicates the peer sent CAN
	ErrPeerCancelled

	// ErrRetryExceeded indicates the consecutive-error budget was exhausted
	ErrRetryExceeded

	// ErrCancelled indicates the local caller aborted the transfer
	ErrCancelled

	// ErrIO indicates an I/O error on the channel or the local file
	ErrIO
)

func (e *Error) Error() string {
	return fmt.Sprintf("xmodem %s: %s", e.Kind, e.Message)
}

func (k ErrorKind) String() string {
	switch k {
	case ErrTimeout:
		return "timeout"
	case ErrInvalidBlock:
		return "invalid block"
	case ErrSyncLost:
		return "synchronization lost"
	case ErrPeerCancelled:
		return "peer cancelled"
	case ErrRetryExceeded:
		return "retry budget exceeded"
	case ErrCancelled:
		return "cancelled"
	case ErrIO:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// NewError creates a new XModem error
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrTimeout
	}
	return false
}

// IsCancelled checks if an error indicates local cancellation
func IsCancelled(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrCancelled
	}
	return false
}

// IsPeerCancelled checks if an error indicates the peer cancelled
func IsPeerCancelled(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrPeerCancelled
	}
	return false
}

// IsRetryExceeded checks if an error indicates the retry budget ran out
func IsRetryExceeded(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrRetryExceeded
	}
	return false
}

// IsSyncLost checks if an error indicates a fatal loss of synchronization
func IsSyncLost(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == ErrSyncLost
	}
	return false
}
