package testhelpers

import (
	"bytes"
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-cid"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/state"
)

// Genesis builds a state tree for tests on top of a durable store.
type Genesis struct {
	t       *testing.T
	ctx     context.Context
	bs      blockstore.Blockstore
	layer   *bufstore.Layer
	st      *state.State
	newAddr func() address.Address
}

// NewGenesis starts an empty state holding only the system actor. A nil bs
// gets an in-memory store.
func NewGenesis(t *testing.T, bs blockstore.Blockstore) *Genesis {
	if bs == nil {
		bs = bufstore.NewMemoryBlockstore()
	}
	layer := bufstore.New(bs)
	g := &Genesis{
		t:       t,
		ctx:     context.Background(),
		bs:      bs,
		layer:   layer,
		st:      state.NewState(layer),
		newAddr: NewForTestGetter(),
	}
	g.put(builtin.EmptyObject)

	sys := state.NewActor(builtin.SystemActorCodeID, builtin.EmptyObjectCid, big.Zero())
	sys.ID = 0
	require.NoError(t, g.st.SetActor(g.ctx, sys))
	return g
}

func (g *Genesis) put(data []byte) cid.Cid {
	c, err := g.layer.Put(g.ctx, runtime.CodecDagCBOR, data)
	require.NoError(g.t, err)
	return c
}

// Account creates an account actor bound to a fresh secp256k1 address.
func (g *Genesis) Account(balance abi.TokenAmount) (abi.ActorID, address.Address) {
	addr := g.newAddr()
	id, err := g.st.RegisterNewAddress(addr)
	require.NoError(g.t, err)

	buf := new(bytes.Buffer)
	require.NoError(g.t, (&builtin.AccountState{Address: addr}).MarshalCBOR(buf))

	act := state.NewActor(builtin.AccountActorCodeID, g.put(buf.Bytes()), balance)
	act.ID = id
	act.Address = addr
	require.NoError(g.t, g.st.SetActor(g.ctx, act))
	return id, addr
}

// Actor creates an actor running code with an empty state and no robust address.
func (g *Genesis) Actor(code cid.Cid, balance abi.TokenAmount) (abi.ActorID, address.Address) {
	id, err := g.st.RegisterNewAddress(address.Undef)
	require.NoError(g.t, err)

	act := state.NewActor(code, builtin.EmptyObjectCid, balance)
	act.ID = id
	require.NoError(g.t, g.st.SetActor(g.ctx, act))
	return id, act.IDAddress()
}

// State is the tree under construction.
func (g *Genesis) State() *state.State {
	return g.st
}

// Layer is the root buffer layer the tree writes into.
func (g *Genesis) Layer() *bufstore.Layer {
	return g.layer
}

// Blockstore is the durable store Commit writes into.
func (g *Genesis) Blockstore() blockstore.Blockstore {
	return g.bs
}

// Commit flushes the tree to the durable store and returns its root.
func (g *Genesis) Commit() cid.Cid {
	root, err := g.st.Flush(g.ctx)
	require.NoError(g.t, err)
	require.NoError(g.t, g.layer.Flush(g.ctx))
	return root
}

// ActorCode returns a code cid for test actors named name.
func ActorCode(name string) cid.Cid {
	c, err := cid.V1Builder{Codec: cid.Raw, MhType: mh.IDENTITY}.Sum([]byte("test/" + name))
	if err != nil {
		panic(err)
	}
	return c
}
