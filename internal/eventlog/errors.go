package eventlog

import (
	"errors"
	"fmt"
)

// Code is a machine-readable storage error code.
type Code string

const (
	// CodeConflict means another append claimed the same stream version.
	CodeConflict Code = "CONFLICT"
	// CodeStorageUnavailable means the backing store could not be reached.
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	// CodeCorruptLog means stored records could not be decoded.
	CodeCorruptLog Code = "CORRUPT_LOG"
)

// Error is a storage failure with a code, optional stream context and the
// underlying cause.
type Error struct {
	Code     Code
	Message  string
	StreamID string
	Version  int64
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.StreamID != "" {
		msg = fmt.Sprintf("%s (stream %s", msg, e.StreamID)
		if e.Version > 0 {
			msg = fmt.Sprintf("%s, version %d", msg, e.Version)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of stream.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is.
var (
	ErrConflict           = &Error{Code: CodeConflict, Message: "version conflict"}
	ErrStorageUnavailable = &Error{Code: CodeStorageUnavailable, Message: "storage unavailable"}
	ErrCorruptLog         = &Error{Code: CodeCorruptLog, Message: "corrupt event log"}
)

// Conflict reports that version of streamID was already taken.
func Conflict(streamID string, version int64, err error) *Error {
	return &Error{
		Code:     CodeConflict,
		Message:  "version already exists",
		StreamID: streamID,
		Version:  version,
		Err:      err,
	}
}

// Unavailable wraps a failure to reach the backing store during op.
func Unavailable(op string, err error) *Error {
	return &Error{Code: CodeStorageUnavailable, Message: op, Err: err}
}

// Corrupt wraps a failure to decode stored data.
func Corrupt(msg string, err error) *Error {
	return &Error{Code: CodeCorruptLog, Message: msg, Err: err}
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func IsCorruptLog(err error) bool {
	return errors.Is(err, ErrCorruptLog)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
