// Package builtin holds the actors every machine ships with.
package builtin

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// SystemActorAddr is the caller of implicit messages and account constructors.
var SystemActorAddr = mustIDAddress(0)

// Well known method numbers.
const (
	MethodSend        = abi.MethodNum(0)
	MethodConstructor = abi.MethodNum(1)
)

// Code ids of the builtin actors.
var (
	SystemActorCodeID  = makeBuiltinActorCode("fil/1/system")
	AccountActorCodeID = makeBuiltinActorCode("fil/1/account")
)

// EmptyObject is the encoding of an empty cbor array, the head of actors
// without state.
var EmptyObject = []byte{0x80}

// EmptyObjectCid is the cid of EmptyObject.
var EmptyObjectCid cid.Cid

func init() {
	c, err := cid.Prefix{
		Version:  1,
		Codec:    cid.DagCBOR,
		MhType:   mh.BLAKE2B_MIN + 31,
		MhLength: -1,
	}.Sum(EmptyObject)
	if err != nil {
		panic(err)
	}
	EmptyObjectCid = c
}

func makeBuiltinActorCode(name string) cid.Cid {
	builder := cid.V1Builder{Codec: cid.Raw, MhType: mh.IDENTITY}
	c, err := builder.Sum([]byte(name))
	if err != nil {
		panic(err)
	}
	return c
}

func mustIDAddress(id uint64) address.Address {
	addr, err := address.NewIDAddress(id)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsAccountActor reports whether code is the account actor.
func IsAccountActor(code cid.Cid) bool {
	return code.Equals(AccountActorCodeID)
}

// IsPrincipal reports whether addr is a key address an account actor can own.
func IsPrincipal(addr address.Address) bool {
	return addr.Protocol() == address.SECP256K1 || addr.Protocol() == address.BLS
}
