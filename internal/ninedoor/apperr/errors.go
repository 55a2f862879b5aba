// Package apperr defines the sentinel error-code taxonomy shared by every
// NineDoor component, modelled on dittofs's pkg/metadata/errors package: an
// ErrorCode enum plus a small wrapping struct so call sites compare codes
// instead of string-matching messages.
package apperr

import (
	"errors"
	"fmt"
)

// ErrorCode names the kind of failure, not the implementation detail, per
// the wire-prefix taxonomy in spec §6/§7.
type ErrorCode int

const (
	// Permission covers deny-by-default, scope mismatch, single-use
	// consumed, bad ticket MAC, and worker-without-subject failures.
	Permission ErrorCode = iota + 1
	// Invalid covers schema mismatch, non-hex chunk names, random-offset
	// writes on append-only qids, malformed JSON, walk-depth overrun,
	// illegal path components, and illegal lifecycle transitions.
	Invalid
	// NotFound names a missing namespace node or unknown handle.
	NotFound
	// Exists names a name collision on create.
	Exists
	// IsDir names an operation that requires a file but received a directory.
	IsDir
	// NotDir names an operation that requires a directory but received a file.
	NotDir
	// TooBig covers oversize reads, exhausted quotas, and ring overflows.
	TooBig
	// Again names a transient refusal: short write, back-pressure.
	Again
	// IoError names an underlying I/O failure unrelated to the above.
	IoError
	// NoMem names an allocation failure surfaced to the wire.
	NoMem
)

// Prefix returns the wire-level textual prefix clients match on (spec §6).
func (c ErrorCode) Prefix() string {
	switch c {
	case Permission:
		return "EPERM"
	case Invalid:
		return "EINVAL"
	case NotFound:
		return "ENOENT"
	case Exists:
		return "EEXIST"
	case IsDir:
		return "EISDIR"
	case NotDir:
		return "ENOTDIR"
	case TooBig:
		return "ELIMIT"
	case Again:
		return "EAGAIN"
	case IoError:
		return "EIO"
	case NoMem:
		return "ENOMEM"
	default:
		return "EUNKNOWN"
	}
}

func (c ErrorCode) String() string {
	switch c {
	case Permission:
		return "Permission"
	case Invalid:
		return "Invalid"
	case NotFound:
		return "NotFound"
	case Exists:
		return "Exists"
	case IsDir:
		return "IsDir"
	case NotDir:
		return "NotDir"
	case TooBig:
		return "TooBig"
	case Again:
		return "Again"
	case IoError:
		return "IoError"
	case NoMem:
		return "NoMem"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carried across every component boundary.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.Prefix()
	}
	return fmt.Sprintf("%s: %s", e.Code.Prefix(), e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Is treats two *Error values as equal when their codes match, regardless
// of message text — callers are expected to branch on code.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Code == e.Code
	}
	return false
}

// New builds an *Error with the given code and formatted message.
func New(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying cause, preserving it for Unwrap.
func Wrap(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf extracts the ErrorCode from err: from an *Error, else from any error
// in the chain with a Code() ErrorCode method, defaulting to IoError
// otherwise (e.g. an unexpected stdlib/library error reached a boundary).
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c interface{ Code() ErrorCode }
	if errors.As(err, &c) {
		return c.Code()
	}
	return IoError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
