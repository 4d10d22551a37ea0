package ubxmodem

import "fmt"

// ErrorKind enumerates the error categories the core surfaces (spec §7).
type ErrorKind string

const (
	ErrNotInitialised    ErrorKind = "not initialised"
	ErrInvalidParameter  ErrorKind = "invalid parameter"
	ErrPlatformError     ErrorKind = "platform error"
	ErrAtError           ErrorKind = "AT protocol error"
	ErrDeviceError       ErrorKind = "device error"
	ErrNotResponding     ErrorKind = "module not responding"
	ErrNotConfigured     ErrorKind = "configuration exhausted retries"
	ErrNotSupported      ErrorKind = "feature not supported"
	ErrNotConnected      ErrorKind = "not connected"
	ErrPinEntryNotSupported ErrorKind = "pin entry not supported"
	ErrNoMemory          ErrorKind = "no memory"
	ErrTimeout           ErrorKind = "timeout"
	ErrCancelled         ErrorKind = "cancelled"
)

// DeviceError is the structured +CME/+CMS payload attached to an Error
// when Kind is ErrDeviceError (spec §3, "last-device-error record").
type DeviceError struct {
	Class string // "CME" or "CMS"
	Code  int
}

func (d *DeviceError) Error() string {
	return fmt.Sprintf("+%s ERROR: %d", d.Class, d.Code)
}

// Error is the structured error every public entry point returns
// (spec §7 "no partial success is reported"; §9 "a result type per call
// with a dedicated error enum").
type Error struct {
	Op     string
	Handle uint32
	Kind   ErrorKind
	Device *DeviceError
	Msg    string
	Inner  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		if e.Handle != 0 {
			return fmt.Sprintf("ubxmodem: %s (op=%s handle=%d)", msg, e.Op, e.Handle)
		}
		return fmt.Sprintf("ubxmodem: %s (op=%s)", msg, e.Op)
	}
	return fmt.Sprintf("ubxmodem: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

func newError(op string, kind ErrorKind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

func wrapError(op string, kind ErrorKind, inner error) *Error {
	return &Error{Op: op, Kind: kind, Msg: inner.Error(), Inner: inner}
}

func deviceError(op string, class string, code int) *Error {
	return &Error{
		Op:     op,
		Kind:   ErrDeviceError,
		Device: &DeviceError{Class: class, Code: code},
		Msg:    fmt.Sprintf("+%s ERROR: %d", class, code),
	}
}
