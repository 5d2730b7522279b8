package dispatch

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// Actor is the interface all native actors have to implement.
type Actor interface {
	// Exports has a list of method available on the actor, indexed by method number.
	Exports() []interface{}
	// Code returns the code ID for this actor.
	Code() cid.Cid

	// State returns a new State object for this actor. This can be used to
	// decode the actor's state.
	State() cbor.Er
}

// Dispatcher allows for dynamic method dispatching on an actor.
type Dispatcher interface {
	// Dispatch will call the given method on the actor and pass the arguments.
	//
	//   - The kernel is passed as the first argument of the target method.
	//   - The raw params are decoded into the type of the second argument, if any.
	Dispatch(k runtime.Kernel, method abi.MethodNum, params []byte) ([]byte, *ExcuteError)
	// Signature is a helper function that returns the signature for a given method.
	//
	// Note: This is intended to be used by tests and tools.
	Signature(method abi.MethodNum) (MethodSignature, *ExcuteError)
}

type actorDispatcher struct {
	code  cid.Cid
	actor Actor
}

type method interface {
	Call(in []reflect.Value) []reflect.Value
	Type() reflect.Type
}

// Code is a native actor the call manager can invoke.
type Code interface {
	Dispatcher
	runtime.ActorCode
}

var _ Code = (*actorDispatcher)(nil)

// NewDispatcher wraps a native actor.
func NewDispatcher(actor Actor) Code {
	return &actorDispatcher{code: actor.Code(), actor: actor}
}

// Invoke implements runtime.ActorCode on top of Dispatch.
func (d *actorDispatcher) Invoke(k runtime.Kernel, methodNum abi.MethodNum, params runtime.BlockID) (runtime.BlockID, exitcode.ExitCode) {
	raw, err := runtime.ReadParams(k, params)
	if err != nil {
		runtime.Abortf(exitcode.ErrIllegalArgument, "failed to read params: %s", err)
	}

	ret, excErr := d.Dispatch(k, methodNum, raw)
	if excErr != nil {
		runtime.Abort(excErr.ExitCode(), excErr.Error())
	}
	if len(ret) == 0 {
		return runtime.NoBlock, exitcode.Ok
	}

	id, err := k.BlockCreate(runtime.CodecDagCBOR, ret)
	if err != nil {
		runtime.Abortf(exitcode.ErrIllegalState, "failed to store return value: %s", err)
	}
	return id, exitcode.Ok
}

// Dispatch implements `Dispatcher`.
func (d *actorDispatcher) Dispatch(k runtime.Kernel, methodNum abi.MethodNum, params []byte) ([]byte, *ExcuteError) {
	// get method signature
	m, err := d.signature(methodNum)
	if err != nil {
		return []byte{}, err
	}

	// build args to pass to the method
	args := []reflect.Value{
		// the kernel will be automatically coerced
		reflect.ValueOf(k),
	}
	// err code
	ec := exitcode.ErrSerialization
	if k.NetworkVersion() < network.Version7 {
		ec = 1
	}

	if m.method.Type().NumIn() > 1 {
		if len(params) == 0 {
			args = append(args, m.ArgNil())
		} else {
			obj, err := m.ArgInterface(params)
			if err != nil {
				return []byte{}, NewExcuteError(ec, "fail to decode params: %v", err)
			}
			args = append(args, reflect.ValueOf(obj))
		}
	}

	// invoke the method
	out := m.method.Call(args)

	// method returns unit
	// Note: we need to check for `IsNill()` here because Go doesnt work if you do `== nil` on the interface
	if len(out) == 0 || (out[0].Kind() != reflect.Struct && out[0].IsNil()) {
		return nil, nil
	}

	switch ret := out[0].Interface().(type) {
	case []byte:
		return ret, nil
	case *abi.EmptyValue:
		return []byte{}, nil
	case cbor.Marshaler:
		buf := new(bytes.Buffer)
		if err := ret.MarshalCBOR(buf); err != nil {
			return []byte{}, NewExcuteError(exitcode.SysErrSenderStateInvalid, "failed to marshal response to cbor err:%v", err)
		}
		return buf.Bytes(), nil
	case nil:
		return []byte{}, nil
	default:
		return []byte{}, NewExcuteError(exitcode.SysErrInvalidMethod, "could not determine type for response from call")
	}
}

func (d *actorDispatcher) signature(methodID abi.MethodNum) (*methodSignature, *ExcuteError) {
	exports := d.actor.Exports()

	// get method entry
	methodIdx := (uint64)(methodID)
	if len(exports) <= (int)(methodIdx) {
		return nil, NewExcuteError(exitcode.SysErrInvalidMethod, "Method undefined. method: %d, code: %s", methodID, d.code)
	}
	entry := exports[methodIdx]
	if entry == nil {
		return nil, NewExcuteError(exitcode.SysErrInvalidMethod, "Method undefined. method: %d, code: %s", methodID, d.code)
	}

	ventry := reflect.ValueOf(entry)
	if ventry.Kind() != reflect.Func || ventry.Type().NumIn() == 0 || ventry.Type().NumIn() > 2 {
		return nil, NewExcuteError(exitcode.SysErrInvalidMethod, "Method %d of %s has an unsupported signature", methodID, d.code)
	}
	return &methodSignature{method: ventry}, nil
}

// Signature implements `Dispatcher`.
func (d *actorDispatcher) Signature(methodNum abi.MethodNum) (MethodSignature, *ExcuteError) {
	return d.signature(methodNum)
}

// ExcuteError error in vm excute
type ExcuteError struct {
	code exitcode.ExitCode
	msg  string
}

func NewExcuteError(code exitcode.ExitCode, msg string, args ...interface{}) *ExcuteError {
	return &ExcuteError{code: code, msg: fmt.Sprintf(msg, args...)}
}

func (err *ExcuteError) ExitCode() exitcode.ExitCode {
	return err.code
}

func (err *ExcuteError) Error() string {
	return err.msg
}
