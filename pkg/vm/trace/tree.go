package trace

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

// MessageTrace is the call half of a frame.
type MessageTrace struct {
	From     address.Address
	To       address.Address
	Value    abi.TokenAmount
	Method   abi.MethodNum
	Params   []byte
	GasLimit int64
}

// ReturnTrace is the return half of a frame.
type ReturnTrace struct {
	ExitCode exitcode.ExitCode
	Return   []byte
	GasUsed  int64
}

// ExecutionTrace is one frame with its nested calls.
type ExecutionTrace struct {
	Msg        MessageTrace
	MsgRct     ReturnTrace
	Error      string
	GasCharges []gas.GasTrace
	Subcalls   []ExecutionTrace
}

// Tree rebuilds the nested trace. It returns nil for an empty tracer.
func (t *Tracer) Tree() (*ExecutionTrace, error) {
	if err := t.WellFormed(); err != nil {
		return nil, err
	}
	events := t.Events()
	if len(events) == 0 {
		return nil, nil
	}

	root, next := build(events, 0)
	if next != len(events) {
		return nil, fmt.Errorf("trace has %d events after the top level frame", len(events)-next)
	}
	return &root, nil
}

// build consumes the frame opened at events[i] and returns the index after it.
func build(events []Event, i int) (ExecutionTrace, int) {
	call := events[i]
	et := ExecutionTrace{
		Msg: MessageTrace{
			From:     call.From,
			To:       call.To,
			Value:    call.Value,
			Method:   call.Method,
			Params:   call.Params,
			GasLimit: call.GasLimit,
		},
	}
	i++
	for events[i].Kind == Call {
		var sub ExecutionTrace
		sub, i = build(events, i)
		et.Subcalls = append(et.Subcalls, sub)
	}
	ret := events[i]
	et.MsgRct = ReturnTrace{
		ExitCode: ret.ExitCode,
		Return:   ret.Return,
		GasUsed:  ret.GasUsed,
	}
	et.Error = ret.Error
	et.GasCharges = ret.GasCharges
	return et, i + 1
}

// Walk visits the frame and its subcalls in call order.
func (et *ExecutionTrace) Walk(f func(depth int, et *ExecutionTrace)) {
	et.walk(0, f)
}

func (et *ExecutionTrace) walk(depth int, f func(int, *ExecutionTrace)) {
	if et == nil {
		return
	}
	f(depth, et)
	for i := range et.Subcalls {
		et.Subcalls[i].walk(depth+1, f)
	}
}
