package runtime

import (
	"fmt"

	"github.com/filecoin-project/go-state-types/exitcode"
)

// ExecutionPanic is used to abort vm execution with an exit code.
type ExecutionPanic struct {
	code exitcode.ExitCode
	msg  string
}

// Code is the code used to abort the execution (see: `Abort()`).
func (p ExecutionPanic) Code() exitcode.ExitCode {
	return p.code
}

func (p ExecutionPanic) String() string {
	return fmt.Sprintf("ExitCode(%d): %s", p.code, p.msg)
}

// Abort aborts the current frame. The panic is recovered by the call manager,
// which turns it into the frame's exit code and discards the frame's writes.
func Abort(code exitcode.ExitCode, msg string) {
	panic(ExecutionPanic{code: code, msg: msg})
}

// Abortf will stop the execution of the current actor with the formatted message.
func Abortf(code exitcode.ExitCode, msg string, args ...interface{}) {
	panic(ExecutionPanic{code: code, msg: fmt.Sprintf(msg, args...)})
}
