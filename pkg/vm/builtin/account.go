package builtin

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// AccountState is the state of an account actor.
type AccountState struct {
	Address address.Address
}

// AccountActor is a key-backed principal.
type AccountActor struct{}

var _ dispatch.Actor = AccountActor{}

// Account method numbers.
const (
	MethodsAccountConstructor   = MethodConstructor
	MethodsAccountPubkeyAddress = abi.MethodNum(2)
)

func (a AccountActor) Exports() []interface{} {
	return []interface{}{
		MethodConstructor:           a.Constructor,
		MethodsAccountPubkeyAddress: a.PubkeyAddress,
	}
}

func (AccountActor) Code() cid.Cid {
	return AccountActorCodeID
}

func (AccountActor) State() cbor.Er {
	return new(AccountState)
}

// Constructor binds the account to its key address. Only the system actor
// may construct accounts.
func (AccountActor) Constructor(k runtime.Kernel, addr *address.Address) *abi.EmptyValue {
	k.ValidateImmediateCallerIs(SystemActorAddr)
	if addr == nil || !IsPrincipal(*addr) {
		runtime.Abortf(exitcode.ErrIllegalArgument, "address must use BLS or SECP protocol, got %v", addr)
	}
	runtime.SaveState(k, &AccountState{Address: *addr})
	return nil
}

// PubkeyAddress returns the key address the account is bound to.
func (AccountActor) PubkeyAddress(k runtime.Kernel, _ *abi.EmptyValue) *address.Address {
	k.ValidateImmediateCallerAcceptAny()
	var st AccountState
	runtime.LoadState(k, &st)
	return &st.Address
}

// SystemActor owns no state and accepts nothing but plain value transfers.
type SystemActor struct{}

var _ dispatch.Actor = SystemActor{}

func (a SystemActor) Exports() []interface{} {
	return []interface{}{
		MethodConstructor: a.Constructor,
	}
}

func (SystemActor) Code() cid.Cid {
	return SystemActorCodeID
}

func (SystemActor) State() cbor.Er {
	return new(abi.EmptyValue)
}

func (SystemActor) Constructor(k runtime.Kernel, _ *abi.EmptyValue) *abi.EmptyValue {
	k.ValidateImmediateCallerIs(SystemActorAddr)
	return nil
}

// Actors returns every builtin actor.
func Actors() []dispatch.Actor {
	return []dispatch.Actor{SystemActor{}, AccountActor{}}
}
