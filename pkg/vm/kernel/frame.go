// Package kernel implements the syscall facade handed to actor code, one
// kernel per call frame.
package kernel

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/network"

	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/externs"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/registry"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/state"
)

// Externs are the host services a kernel reaches out to.
type Externs struct {
	Rand     externs.Rand
	Faults   externs.ConsensusFaultChecker
	Verifier externs.SignatureVerifier
}

// Env is the execution environment shared by all frames of one message.
type Env struct {
	Epoch          abi.ChainEpoch
	NetworkVersion network.Version
	BaseFee        abi.TokenAmount
	CircSupply     abi.TokenAmount
	// Network is the prefix addresses are formatted with.
	Network      address.Network
	MaxBlockSize int
	MaxBlocks    int

	Pricelist gas.Pricelist
	Externs   Externs
}

// CallManager is what a kernel needs from the call manager that built it.
type CallManager interface {
	// Send runs a nested frame on behalf of from. A non-nil error is fatal.
	Send(from abi.ActorID, to address.Address, method abi.MethodNum, params *registry.Block, value abi.TokenAmount, gasLimit int64) (runtime.InvocationResult, error)
	Context() context.Context
	Env() *Env
	StateTree() *state.State
	CodeLoader() runtime.CodeLoader
	Origin() address.Address
	Nonce() uint64
	NewActorAddress() (address.Address, error)
}

// Frame is the per-invocation record a kernel works on. The call manager owns
// it and reads back the fields the kernel sets once the frame returns.
type Frame struct {
	Depth    int
	Caller   abi.ActorID
	Receiver abi.ActorID
	Method   abi.MethodNum
	Value    abi.TokenAmount

	Gas    *gas.GasTracker
	Store  *bufstore.Layer
	Blocks *registry.Registry

	CallerValidated bool
	Events          []runtime.Event
	// SelfDestruct is the beneficiary once the actor asked to be deleted.
	SelfDestruct *abi.ActorID
}

// Builder creates the kernel for a frame.
type Builder func(cm CallManager, f *Frame) runtime.Kernel

// Decorator wraps the kernel built for a frame.
type Decorator func(inner runtime.Kernel, cm CallManager, f *Frame) runtime.Kernel

// Decorate returns a builder that applies decorators, innermost first, on
// top of base.
func Decorate(base Builder, decorators ...Decorator) Builder {
	return func(cm CallManager, f *Frame) runtime.Kernel {
		k := base(cm, f)
		for _, d := range decorators {
			k = d(k, cm, f)
		}
		return k
	}
}

// FormatAddress renders addr with the environment's network prefix instead
// of the process wide default.
func (e *Env) FormatAddress(addr address.Address) string {
	if addr == address.Undef {
		return addr.String()
	}
	prefix := address.MainnetPrefix
	if e.Network == address.Testnet {
		prefix = address.TestnetPrefix
	}
	return prefix + addr.String()[1:]
}
