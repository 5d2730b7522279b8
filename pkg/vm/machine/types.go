package machine

import (
	"context"
	"time"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/trace"
)

// NetworkContext is the chain position messages are executed at.
type NetworkContext struct {
	Epoch          abi.ChainEpoch
	NetworkVersion network.Version
	BaseFee        abi.TokenAmount
	CircSupply     abi.TokenAmount
}

// Receipt is the outcome of one top level message.
type Receipt struct {
	ExitCode exitcode.ExitCode
	Return   []byte
	GasUsed  int64
	// EventsRoot is the cid of the events the message emitted, nil when none.
	EventsRoot *cid.Cid
}

type Ret struct {
	GasTracker *gas.GasTracker
	Receipt    Receipt
	Events     []runtime.Event
	// Trace is set when tracing is enabled.
	Trace    *trace.ExecutionTrace
	Duration time.Duration
}

// Failure returns with a non-zero exit code.
func Failure(exitCode exitcode.ExitCode, gasAmount int64) Receipt {
	return Receipt{
		ExitCode: exitCode,
		Return:   []byte{},
		GasUsed:  gasAmount,
	}
}

type Interface interface {
	ExecuteMessage(ctx context.Context, msg *Message) (*Ret, error)
	ApplyImplicitMessage(ctx context.Context, msg *Message) (*Ret, error)
	Flush(ctx context.Context) (cid.Cid, error)
	StateRoot() cid.Cid
}
