package state_test

import (
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/state"
)

func testCid(t *testing.T, data string) cid.Cid {
	c, err := bufstore.Sum(runtime.CodecRaw, []byte(data))
	require.NoError(t, err)
	return c
}

func newAccount(t *testing.T, st *state.State, addr address.Address, balance int64) *state.Actor {
	id, err := st.RegisterNewAddress(addr)
	require.NoError(t, err)
	act := state.NewActor(testCid(t, "account"), testCid(t, "empty"), abi.NewTokenAmount(balance))
	act.ID = id
	act.Address = addr
	require.NoError(t, st.SetActor(context.Background(), act))
	return act
}

func TestStatePutGetFlush(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	store := bufstore.New(bufstore.NewMemoryBlockstore())
	tree := state.NewState(store)

	addr1, err := address.NewSecp256k1Address([]byte("pubkey-1"))
	require.NoError(t, err)
	addr2, err := address.NewSecp256k1Address([]byte("pubkey-2"))
	require.NoError(t, err)
	act1 := newAccount(t, tree, addr1, 10)
	act2 := newAccount(t, tree, addr2, 20)
	assert.Equal(t, state.FirstNonSingletonActorID, act1.ID)
	assert.Equal(t, state.FirstNonSingletonActorID+1, act2.ID)

	require.NoError(t, tree.MutateActor(addr1, func(a *state.Actor) error {
		a.IncrementSeqNum()
		return nil
	}))

	root, err := tree.Flush(ctx)
	require.NoError(t, err)

	tree2, err := state.LoadState(ctx, store, root)
	require.NoError(t, err)

	out, found, err := tree2.GetActor(ctx, addr1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(1), out.Nonce)
	assert.Equal(t, addr1, out.Address)
	assert.Equal(t, abi.NewTokenAmount(10), out.Balance)

	out, found, err = tree2.GetActor(ctx, act2.IDAddress())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, addr2, out.Address)

	// same content, same root
	root2, err := tree2.Flush(ctx)
	require.NoError(t, err)
	assert.True(t, root.Equals(root2))

	// ids keep counting after reload
	addr3, err := address.NewActorAddress([]byte("actor-3"))
	require.NoError(t, err)
	id3, err := tree2.RegisterNewAddress(addr3)
	require.NoError(t, err)
	assert.Equal(t, state.FirstNonSingletonActorID+2, id3)
}

func TestSnapshotRevert(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	tree := state.NewState(bufstore.New(bufstore.NewMemoryBlockstore()))
	addr, err := address.NewSecp256k1Address([]byte("pubkey"))
	require.NoError(t, err)
	act := newAccount(t, tree, addr, 100)

	tree.Snapshot()
	assert.Equal(t, 1, tree.Depth())
	require.NoError(t, tree.MutateActor(addr, func(a *state.Actor) error {
		a.Balance = big.Sub(a.Balance, abi.NewTokenAmount(40))
		return nil
	}))
	other, err := address.NewActorAddress([]byte("created"))
	require.NoError(t, err)
	_, err = tree.RegisterNewAddress(other)
	require.NoError(t, err)
	tree.RevertSnapshot()

	out, found, err := tree.GetActorByID(act.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, abi.NewTokenAmount(100), out.Balance)

	_, err = tree.LookupID(other)
	assert.ErrorIs(t, err, state.ErrActorNotFound)

	// the reverted id is handed out again
	id, err := tree.RegisterNewAddress(other)
	require.NoError(t, err)
	assert.Equal(t, act.ID+1, id)

	_, err = tree.Flush(ctx)
	require.NoError(t, err)
}

func TestSnapshotMerge(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	tree := state.NewState(bufstore.New(bufstore.NewMemoryBlockstore()))
	addr, err := address.NewSecp256k1Address([]byte("pubkey"))
	require.NoError(t, err)
	newAccount(t, tree, addr, 1)

	tree.Snapshot()
	tree.Snapshot()
	require.NoError(t, tree.DeleteActor(ctx, addr))
	tree.ClearSnapshot()
	tree.ClearSnapshot()

	_, found, err := tree.GetActor(ctx, addr)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = tree.Flush(ctx)
	require.NoError(t, err)
}

func TestFlushWithOpenSnapshotFails(t *testing.T) {
	tf.UnitTest(t)

	tree := state.NewState(bufstore.New(bufstore.NewMemoryBlockstore()))
	tree.Snapshot()
	_, err := tree.Flush(context.Background())
	assert.Error(t, err)
}

func TestRegisterDuplicateAddress(t *testing.T) {
	tf.UnitTest(t)

	tree := state.NewState(bufstore.New(bufstore.NewMemoryBlockstore()))
	addr, err := address.NewSecp256k1Address([]byte("pubkey"))
	require.NoError(t, err)
	newAccount(t, tree, addr, 0)

	_, err = tree.RegisterNewAddress(addr)
	assert.Error(t, err)
}
