package base

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ErrNeedMoreData is returned by Decode when the buffer does not yet hold a
// complete frame. The caller has to read more bytes and retry.
var ErrNeedMoreData = errors.New("need more data")

// --------------------------------------------------------------------------
// Protocol errors
// --------------------------------------------------------------------------

// ProtocolError reports a peer that violated the framing rules. It closes only
// the connection it occurred on.
type ProtocolError struct {
	// Length is the declared payload length
	Length uint64
	// Max is the configured maximum frame size
	Max uint32
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: frame length %d exceeds maximum of %d bytes", e.Length, e.Max)
}

// --------------------------------------------------------------------------
// Transport errors
// --------------------------------------------------------------------------

// IOError is a transport level failure (reset, broken pipe, peer close).
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConnectError is returned when a client connection could not be established
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Startup errors
// --------------------------------------------------------------------------

// BindErrorKind classifies why a listener could not be created
type BindErrorKind uint8

const (
	BindErrOther BindErrorKind = iota
	BindErrAddrInUse
	BindErrPermissionDenied
	BindErrInvalidAddress
)

// String returns the string representation of a BindErrorKind
func (k BindErrorKind) String() string {
	switch k {
	case BindErrAddrInUse:
		return "address in use"
	case BindErrPermissionDenied:
		return "permission denied"
	case BindErrInvalidAddress:
		return "invalid address"
	default:
		return "other"
	}
}

// BindError is fatal to server startup, there is no retry
type BindError struct {
	Endpoint string
	Kind     BindErrorKind
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s (%s): %v", e.Endpoint, e.Kind, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// NewBindError wraps err into a BindError and classifies it
func NewBindError(endpoint string, err error) *BindError {
	var be *BindError
	if errors.As(err, &be) {
		return be
	}
	return &BindError{Endpoint: endpoint, Kind: classifyBindError(err), Err: err}
}

func classifyBindError(err error) BindErrorKind {
	var (
		addrErr  *net.AddrError
		parseErr *net.ParseError
		dnsErr   *net.DNSError
	)
	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		return BindErrAddrInUse
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return BindErrPermissionDenied
	case errors.Is(err, syscall.EADDRNOTAVAIL),
		errors.As(err, &addrErr), errors.As(err, &parseErr), errors.As(err, &dnsErr):
		return BindErrInvalidAddress
	default:
		return BindErrOther
	}
}

// --------------------------------------------------------------------------
// Shutdown errors
// --------------------------------------------------------------------------

// ShutdownTimeout is logged when connections did not close within the drain
// timeout and had to be force closed. It is never returned by Shutdown.
type ShutdownTimeout struct {
	Timeout   time.Duration
	Remaining int
}

func (e *ShutdownTimeout) Error() string {
	return fmt.Sprintf("shutdown timed out after %s, force closing %d connection(s)", e.Timeout, e.Remaining)
}
