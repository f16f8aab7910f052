package rhi

import (
	"errors"
	"fmt"
)

// Code classifies a failure reported by a backend.
type Code uint32

const (
	CodeUnknown Code = iota
	CodeInvalidArg
	CodeOutOfMemory
	CodeDeviceRemoved
	CodeNotSupported
)

func (c Code) String() string {
	switch c {
	case CodeInvalidArg:
		return "invalid argument"
	case CodeOutOfMemory:
		return "out of memory"
	case CodeDeviceRemoved:
		return "device removed"
	case CodeNotSupported:
		return "not supported"
	default:
		return "unknown failure"
	}
}

func (c Code) Error() string {
	return c.String()
}

var (
	ErrQueueMismatch               = errors.New("command list type not accepted by queue")
	ErrListClosed                  = errors.New("command list is not recording")
	ErrListNotClosed               = errors.New("command list is not closed")
	ErrInvalidHandle               = errors.New("invalid handle")
	ErrDeviceNotIdle               = errors.New("device has work in flight")
	ErrEnhancedBarriersUnsupported = errors.New("enhanced barriers not supported")
	ErrDeviceClosed                = errors.New("device closed")
)

// Error is returned by Device operations that fail in the backend or on
// validation. Code mirrors the platform result; Err is the cause.
type Error struct {
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil || e.Err == error(e.Code) {
		return fmt.Sprintf("rhi: %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("rhi: %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an *Error against its Code.
func (e *Error) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.Code
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Op == op {
		return err
	}
	return &Error{Op: op, Code: codeOf(err), Err: err}
}

func codeOf(err error) Code {
	var c Code
	if errors.As(err, &c) {
		return c
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, ErrInvalidHandle), errors.Is(err, ErrQueueMismatch),
		errors.Is(err, ErrListClosed), errors.Is(err, ErrListNotClosed):
		return CodeInvalidArg
	case errors.Is(err, ErrEnhancedBarriersUnsupported):
		return CodeNotSupported
	case errors.Is(err, ErrDeviceClosed):
		return CodeDeviceRemoved
	}
	return CodeUnknown
}
