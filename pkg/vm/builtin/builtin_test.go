package builtin_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/filecoin-project/venus-fvm/pkg/testhelpers"
	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/callmanager"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/kernel"
	"github.com/filecoin-project/venus-fvm/pkg/vm/registry"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

func newManager(g *th.Genesis, origin address.Address) *callmanager.CallManager {
	env := &kernel.Env{
		Epoch:          1,
		NetworkVersion: network.Version16,
		Pricelist:      &gas.PricelistV0{},
	}
	loader := dispatch.NewBuilder().AddMany(dispatch.AnyVersion, builtin.Actors()...).Build()
	return callmanager.New(context.Background(), env, g.State(), g.Layer(), loader, origin, 0)
}

func TestEmptyObjectCid(t *testing.T) {
	tf.UnitTest(t)

	c, err := bufstore.Sum(runtime.CodecDagCBOR, builtin.EmptyObject)
	require.NoError(t, err)
	assert.Equal(t, c, builtin.EmptyObjectCid)
}

func TestIsPrincipal(t *testing.T) {
	tf.UnitTest(t)

	assert.True(t, builtin.IsPrincipal(th.NewForTestGetter()()))
	assert.False(t, builtin.IsPrincipal(th.RequireIDAddress(t, 1)))

	actorAddr, err := address.NewActorAddress([]byte("x"))
	require.NoError(t, err)
	assert.False(t, builtin.IsPrincipal(actorAddr))
}

func TestAccountPubkeyAddress(t *testing.T) {
	tf.UnitTest(t)

	g := th.NewGenesis(t, nil)
	id, addr := g.Account(abi.NewTokenAmount(10))
	_, caller := g.Account(abi.NewTokenAmount(10))
	callerID, err := g.State().LookupID(caller)
	require.NoError(t, err)

	ret, err := newManager(g, caller).Send(callerID, th.RequireIDAddress(t, int(id)), builtin.MethodsAccountPubkeyAddress, nil, big.Zero(), 10_000)
	require.NoError(t, err)
	require.Equal(t, exitcode.Ok, ret.ExitCode)

	var got address.Address
	require.NoError(t, got.UnmarshalCBOR(bytes.NewReader(ret.Return)))
	assert.Equal(t, addr, got)
}

func TestAccountConstructorOnlyFromSystem(t *testing.T) {
	tf.UnitTest(t)

	g := th.NewGenesis(t, nil)
	id, _ := g.Actor(builtin.AccountActorCodeID, big.Zero())
	_, caller := g.Account(abi.NewTokenAmount(10))
	callerID, err := g.State().LookupID(caller)
	require.NoError(t, err)

	key := th.NewForTestGetter()()
	buf := new(bytes.Buffer)
	require.NoError(t, key.MarshalCBOR(buf))
	params := &registry.Block{Codec: runtime.CodecDagCBOR, Data: buf.Bytes()}
	to := th.RequireIDAddress(t, int(id))

	ret, err := newManager(g, caller).Send(callerID, to, builtin.MethodsAccountConstructor, params, big.Zero(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, exitcode.SysErrForbidden, ret.ExitCode)

	ret, err = newManager(g, builtin.SystemActorAddr).Send(0, to, builtin.MethodsAccountConstructor, params, big.Zero(), 10_000)
	require.NoError(t, err)
	require.Equal(t, exitcode.Ok, ret.ExitCode)

	act, found, err := g.State().GetActorByID(id)
	require.NoError(t, err)
	require.True(t, found)
	raw, err := g.Layer().GetRaw(context.Background(), act.Head)
	require.NoError(t, err)
	var st builtin.AccountState
	require.NoError(t, st.UnmarshalCBOR(bytes.NewReader(raw)))
	assert.Equal(t, key, st.Address)
}

func TestAccountConstructorRejectsIDAddress(t *testing.T) {
	tf.UnitTest(t)

	g := th.NewGenesis(t, nil)
	id, _ := g.Actor(builtin.AccountActorCodeID, big.Zero())

	buf := new(bytes.Buffer)
	idAddr := th.RequireIDAddress(t, 77)
	require.NoError(t, idAddr.MarshalCBOR(buf))
	params := &registry.Block{Codec: runtime.CodecDagCBOR, Data: buf.Bytes()}

	ret, err := newManager(g, builtin.SystemActorAddr).Send(0, th.RequireIDAddress(t, int(id)), builtin.MethodsAccountConstructor, params, big.Zero(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, exitcode.ErrIllegalArgument, ret.ExitCode)
}
