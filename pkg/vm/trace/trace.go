// Package trace records the call tree of one message. The trace is purely
// diagnostic: the engine never reads it back.
package trace

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

// Kind tells a call event from a return event.
type Kind int

const (
	Call Kind = iota
	Return
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "Call"
	case Return:
		return "Return"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one entry of the trace. Call events fill the message fields,
// return events fill the result fields.
type Event struct {
	Kind  Kind
	Depth int

	From     address.Address
	To       address.Address
	Method   abi.MethodNum
	Value    abi.TokenAmount
	Params   []byte
	GasLimit int64

	ExitCode   exitcode.ExitCode
	Return     []byte
	GasUsed    int64
	GasCharges []gas.GasTrace
	Error      string
}

// Tracer is an append-only event log. A nil *Tracer records nothing.
type Tracer struct {
	events []Event
}

// New returns an empty tracer.
func New() *Tracer {
	return &Tracer{}
}

// OnCall records the start of a frame at depth.
func (t *Tracer) OnCall(depth int, from, to address.Address, method abi.MethodNum, value abi.TokenAmount, params []byte, gasLimit int64) {
	if t == nil {
		return
	}
	t.events = append(t.events, Event{
		Kind:     Call,
		Depth:    depth,
		From:     from,
		To:       to,
		Method:   method,
		Value:    value,
		Params:   params,
		GasLimit: gasLimit,
	})
}

// OnReturn records the end of the frame at depth.
func (t *Tracer) OnReturn(depth int, code exitcode.ExitCode, ret []byte, gasUsed int64, charges []gas.GasTrace, errMsg string) {
	if t == nil {
		return
	}
	t.events = append(t.events, Event{
		Kind:       Return,
		Depth:      depth,
		ExitCode:   code,
		Return:     ret,
		GasUsed:    gasUsed,
		GasCharges: charges,
		Error:      errMsg,
	})
}

// Events returns the recorded events in order.
func (t *Tracer) Events() []Event {
	if t == nil {
		return nil
	}
	return t.events
}

// Len returns the number of recorded events.
func (t *Tracer) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// WellFormed checks that every Return closes exactly one open Call at the
// same depth and that nothing is left open.
func (t *Tracer) WellFormed() error {
	var open []int
	for i, ev := range t.Events() {
		switch ev.Kind {
		case Call:
			if ev.Depth != len(open) {
				return fmt.Errorf("event %d: call at depth %d with %d open frames", i, ev.Depth, len(open))
			}
			open = append(open, i)
		case Return:
			if len(open) == 0 {
				return fmt.Errorf("event %d: return without call", i)
			}
			if ev.Depth != len(open)-1 {
				return fmt.Errorf("event %d: return at depth %d closes frame at depth %d", i, ev.Depth, len(open)-1)
			}
			open = open[:len(open)-1]
		default:
			return fmt.Errorf("event %d: unknown kind %s", i, ev.Kind)
		}
	}
	if len(open) != 0 {
		return fmt.Errorf("%d calls never returned", len(open))
	}
	return nil
}
