package state

import (
	"errors"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-cid"
)

// ErrActorNotFound is returned when an address resolves to no actor.
var ErrActorNotFound = errors.New("actor not found")

// Actor is the central abstraction of entities in the system.
//
// Not safe for concurrent access.
type Actor struct {
	// ID is the actor's stable identifier in the state tree.
	ID abi.ActorID
	// Code is the cid of the actor's code.
	Code cid.Cid
	// Head is the cid of the root of the actor's own state.
	Head cid.Cid
	// Nonce is the number expected on the next message from this actor.
	Nonce uint64
	// Balance is the amount of FIL in the actor's account.
	Balance abi.TokenAmount
	// Address is the robust (key or actor) address, Undef when the actor has none.
	Address address.Address
}

// NewActor constructs a new actor.
func NewActor(code cid.Cid, head cid.Cid, balance abi.TokenAmount) *Actor {
	return &Actor{
		Code:    code,
		Head:    head,
		Balance: balance,
	}
}

// IncrementSeqNum increments the seq number.
func (a *Actor) IncrementSeqNum() {
	a.Nonce++
}

// IDAddress returns the ID address of the actor.
func (a *Actor) IDAddress() address.Address {
	addr, _ := address.NewIDAddress(uint64(a.ID))
	return addr
}

// Copy returns a deep enough copy for the snapshot layers.
func (a *Actor) Copy() *Actor {
	out := *a
	out.Balance = big.Add(a.Balance, big.Zero())
	return &out
}

// Format implements fmt.Formatter.
func (a *Actor) Format(f fmt.State, c rune) {
	f.Write([]byte(fmt.Sprintf("<actor %d (%s); balance: %v; nonce: %d>", a.ID, a.Code, a.Balance, a.Nonce))) // nolint: errcheck
}
