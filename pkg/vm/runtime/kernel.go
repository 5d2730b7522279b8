// Package runtime defines the surface actor code runs against: the Kernel
// syscall facade, the ActorCode capability and the abort protocol.
package runtime

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/externs"
)

// SendResult is what a nested send hands back to the calling frame.
type SendResult struct {
	ExitCode exitcode.ExitCode
	// Return is registered in the caller's block registry, NoBlock when empty.
	Return  BlockID
	GasUsed int64
}

// InvocationResult is produced exactly once per frame.
type InvocationResult struct {
	ExitCode    exitcode.ExitCode
	Return      []byte
	ReturnCodec uint64
	GasUsed     int64
}

// EventEntry is one key/value pair of an actor event.
type EventEntry struct {
	Flags uint64
	Key   string
	Codec uint64
	Value []byte
}

// Event is emitted by actor code and becomes visible to the caller only if
// the emitting frame merges.
type Event struct {
	Emitter abi.ActorID
	Entries []EventEntry
}

// Size is the payload size used to price an event.
func (t *Event) Size() int {
	n := 0
	for _, e := range t.Entries {
		n += len(e.Key) + len(e.Value)
	}
	return n
}

// Kernel is the only surface actor code can observe or mutate state through.
// Every operation charges gas before it has any effect. Recoverable failures
// come back as *SyscallError; terminal ones abort the frame by panicking.
type Kernel interface {
	// ipld
	Root() cid.Cid
	SetRoot(c cid.Cid) error
	BlockOpen(c cid.Cid) (BlockID, BlockStat, error)
	BlockCreate(codec uint64, data []byte) (BlockID, error)
	BlockRead(id BlockID, offset uint32, buf []byte) (int, error)
	BlockStat(id BlockID) (BlockStat, error)
	BlockLink(id BlockID) (cid.Cid, error)

	// send
	Send(to address.Address, method abi.MethodNum, params BlockID, value abi.TokenAmount, gasLimit int64) (SendResult, error)

	// validation, each frame must call exactly one of these exactly once
	ValidateImmediateCallerAcceptAny()
	ValidateImmediateCallerIs(addrs ...address.Address)
	ValidateImmediateCallerType(codes ...cid.Cid)

	// rand
	GetRandomnessFromTickets(pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) (abi.Randomness, error)
	GetRandomnessFromBeacon(pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) (abi.Randomness, error)

	// gas
	ChargeGas(name string, compute int64) error
	GasAvailable() int64
	GasUsed() int64

	// self
	SelfDestruct(beneficiary address.Address) error
	CurrentBalance() abi.TokenAmount

	// event
	EmitEvent(ev Event) error

	// network
	NetworkEpoch() abi.ChainEpoch
	NetworkVersion() network.Version
	BaseFee() abi.TokenAmount
	TotalFilCircSupply() abi.TokenAmount

	// message
	Caller() address.Address
	Receiver() address.Address
	ValueReceived() abi.TokenAmount
	MethodNumber() abi.MethodNum
	Origin() address.Address
	Nonce() uint64

	// crypto
	HashBlake2b(data []byte) [32]byte
	VerifySignature(sig crypto.Signature, signer address.Address, plaintext []byte) (bool, error)
	VerifyConsensusFault(h1, h2, extra []byte) (*externs.ConsensusFault, error)

	// actor
	CreateActor(code cid.Cid, addr address.Address) (abi.ActorID, error)
	NewActorAddress() (address.Address, error)
	ResolveAddress(addr address.Address) (abi.ActorID, error)
	GetActorCodeCID(id abi.ActorID) (cid.Cid, error)

	// Abort ends the frame with code, discarding its writes. It never returns.
	Abort(code exitcode.ExitCode, msg string)
}

// ActorCode is the capability the call manager invokes for every frame. It
// returns a block handle for the return value (NoBlock for none) and the
// exit code. Code may also end the frame by panicking through Abort.
type ActorCode interface {
	Invoke(k Kernel, method abi.MethodNum, params BlockID) (BlockID, exitcode.ExitCode)
}

// ActorCodeFunc adapts a function to ActorCode.
type ActorCodeFunc func(k Kernel, method abi.MethodNum, params BlockID) (BlockID, exitcode.ExitCode)

func (f ActorCodeFunc) Invoke(k Kernel, method abi.MethodNum, params BlockID) (BlockID, exitcode.ExitCode) {
	return f(k, method, params)
}

// CodeLoader resolves code cids to actor code.
type CodeLoader interface {
	LoadCode(code cid.Cid) (ActorCode, bool)
}
