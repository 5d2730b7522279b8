package runtime

import (
	"errors"
	"fmt"
)

// ErrorNumber is a syscall local failure. Unlike an exit code it does not end
// the frame: actor code gets it back as a value and decides what to do.
type ErrorNumber uint32

const (
	ErrNone ErrorNumber = iota
	ErrIllegalArgument
	ErrIllegalOperation
	ErrLimitExceeded
	ErrAssertionFailed
	ErrInsufficientFunds
	ErrNotFound
	ErrInvalidHandle
	ErrIllegalCid
	ErrIllegalCodec
	ErrSerialization
	ErrForbidden
	ErrBufferTooSmall
)

var errorNumberNames = map[ErrorNumber]string{
	ErrNone:              "None",
	ErrIllegalArgument:   "IllegalArgument",
	ErrIllegalOperation:  "IllegalOperation",
	ErrLimitExceeded:     "LimitExceeded",
	ErrAssertionFailed:   "AssertionFailed",
	ErrInsufficientFunds: "InsufficientFunds",
	ErrNotFound:          "NotFound",
	ErrInvalidHandle:     "InvalidHandle",
	ErrIllegalCid:        "IllegalCid",
	ErrIllegalCodec:      "IllegalCodec",
	ErrSerialization:     "Serialization",
	ErrForbidden:         "Forbidden",
	ErrBufferTooSmall:    "BufferTooSmall",
}

func (n ErrorNumber) String() string {
	if s, ok := errorNumberNames[n]; ok {
		return s
	}
	return fmt.Sprintf("ErrorNumber(%d)", uint32(n))
}

// SyscallError is returned by kernel operations that fail recoverably.
type SyscallError struct {
	Number ErrorNumber
	Msg    string
}

func (e *SyscallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Number, e.Msg)
}

// Errorf builds a SyscallError with the given number.
func Errorf(n ErrorNumber, format string, args ...interface{}) error {
	return &SyscallError{Number: n, Msg: fmt.Sprintf(format, args...)}
}

// ErrorNumberOf extracts the syscall error number from err. Errors that did
// not originate in a syscall map to ErrAssertionFailed.
func ErrorNumberOf(err error) ErrorNumber {
	if err == nil {
		return ErrNone
	}
	var se *SyscallError
	if errors.As(err, &se) {
		return se.Number
	}
	return ErrAssertionFailed
}
