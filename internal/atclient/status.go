package atclient

import "fmt"

// Kind enumerates the AT-layer failure categories from spec §7 that this
// package itself can detect. NotInitialised/NotSupported/NotConnected and
// the rest of the higher-level kinds are the root package's concern; this
// package only ever returns the wire-level subset below.
type Kind int

const (
	KindOK Kind = iota
	KindInvalidParameter
	KindAtError      // parser mismatch, plain ERROR line or write failure
	KindDeviceError  // structured +CME/+CMS ERROR
	KindTimeout      // no response within the transaction deadline
	KindNotLocked    // API misuse: command issued without Lock()
	KindCancelled
)

// DeviceError is the structured +CME ERROR/+CMS ERROR payload, spec §3's
// "last-device-error record".
type DeviceError struct {
	Class string // "CME" or "CMS"
	Code  int
}

func (d DeviceError) Error() string {
	return fmt.Sprintf("+%s ERROR: %d", d.Class, d.Code)
}

// Status is the error type every AT transaction surfaces through Unlock.
type Status struct {
	Kind    Kind
	Device  *DeviceError
	Message string
}

func (s *Status) Error() string {
	if s == nil {
		return "<nil>"
	}
	if s.Device != nil {
		return fmt.Sprintf("at: %s", s.Device.Error())
	}
	if s.Message != "" {
		return fmt.Sprintf("at: %s", s.Message)
	}
	return fmt.Sprintf("at: status %d", s.Kind)
}

func newStatus(kind Kind, msg string) *Status {
	return &Status{Kind: kind, Message: msg}
}

func deviceErrorStatus(class string, code int) *Status {
	return &Status{Kind: KindDeviceError, Device: &DeviceError{Class: class, Code: code}}
}
