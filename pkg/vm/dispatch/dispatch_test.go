package dispatch_test

import (
	"bytes"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/cbor"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/filecoin-project/venus-fvm/pkg/testhelpers"
	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/dispatch"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

var echoCode = th.ActorCode("echo")

type echoActor struct{}

func (a echoActor) Exports() []interface{} {
	return []interface{}{
		1: a.Constructor,
		2: a.Echo,
		3: a.Raw,
		5: a.Unsupported,
	}
}

func (echoActor) Code() cid.Cid { return echoCode }

func (echoActor) State() cbor.Er { return new(abi.EmptyValue) }

func (echoActor) Constructor(k runtime.Kernel) *abi.EmptyValue {
	return nil
}

func (echoActor) Echo(k runtime.Kernel, addr *address.Address) *address.Address {
	return addr
}

func (echoActor) Raw(k runtime.Kernel, _ *abi.EmptyValue) []byte {
	return []byte("raw")
}

func (echoActor) Unsupported(k runtime.Kernel, a, b *abi.EmptyValue) *abi.EmptyValue {
	return nil
}

// blockKernel keeps the blocks a dispatcher reads and writes.
type blockKernel struct {
	runtime.Kernel
	nv     network.Version
	blocks [][]byte
}

func (k *blockKernel) NetworkVersion() network.Version { return k.nv }

func (k *blockKernel) BlockCreate(_ uint64, data []byte) (runtime.BlockID, error) {
	k.blocks = append(k.blocks, data)
	return runtime.BlockID(len(k.blocks)), nil
}

func (k *blockKernel) BlockStat(id runtime.BlockID) (runtime.BlockStat, error) {
	return runtime.BlockStat{Codec: runtime.CodecDagCBOR, Size: uint32(len(k.blocks[id-1]))}, nil
}

func (k *blockKernel) BlockRead(id runtime.BlockID, offset uint32, buf []byte) (int, error) {
	return copy(buf, k.blocks[id-1][offset:]), nil
}

func encode(t *testing.T, m cbor.Marshaler) []byte {
	buf := new(bytes.Buffer)
	require.NoError(t, m.MarshalCBOR(buf))
	return buf.Bytes()
}

func TestDispatchDecodesParamsAndReturn(t *testing.T) {
	tf.UnitTest(t)

	d := dispatch.NewDispatcher(echoActor{})
	k := &blockKernel{nv: network.Version16}
	addr := th.RequireIDAddress(t, 42)

	ret, err := d.Dispatch(k, 2, encode(t, &addr))
	require.Nil(t, err)
	assert.Equal(t, encode(t, &addr), ret)

	ret, err = d.Dispatch(k, 3, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte("raw"), ret)

	ret, err = d.Dispatch(k, 1, nil)
	require.Nil(t, err)
	assert.Empty(t, ret)
}

func TestDispatchErrors(t *testing.T) {
	tf.UnitTest(t)

	d := dispatch.NewDispatcher(echoActor{})
	k := &blockKernel{nv: network.Version16}

	_, err := d.Dispatch(k, 4, nil)
	require.NotNil(t, err)
	assert.Equal(t, exitcode.SysErrInvalidMethod, err.ExitCode())

	_, err = d.Dispatch(k, 99, nil)
	require.NotNil(t, err)
	assert.Equal(t, exitcode.SysErrInvalidMethod, err.ExitCode())

	_, err = d.Dispatch(k, 5, nil)
	require.NotNil(t, err)
	assert.Equal(t, exitcode.SysErrInvalidMethod, err.ExitCode())

	_, err = d.Dispatch(k, 2, []byte{0xff})
	require.NotNil(t, err)
	assert.Equal(t, exitcode.ErrSerialization, err.ExitCode())

	// old networks used exit code 1 for bad params
	_, err = d.Dispatch(&blockKernel{nv: network.Version6}, 2, []byte{0xff})
	require.NotNil(t, err)
	assert.Equal(t, exitcode.ExitCode(1), err.ExitCode())
}

func TestSignature(t *testing.T) {
	tf.UnitTest(t)

	d := dispatch.NewDispatcher(echoActor{})
	sig, err := d.Signature(2)
	require.Nil(t, err)

	addr := th.RequireIDAddress(t, 7)
	obj, derr := sig.ArgInterface(encode(t, &addr))
	require.NoError(t, derr)
	assert.Equal(t, &addr, obj)
	assert.True(t, sig.ArgNil().IsNil())
}

func TestInvokeUsesBlocks(t *testing.T) {
	tf.UnitTest(t)

	d := dispatch.NewDispatcher(echoActor{})
	k := &blockKernel{nv: network.Version16}
	addr := th.RequireIDAddress(t, 9)
	params, err := k.BlockCreate(runtime.CodecDagCBOR, encode(t, &addr))
	require.NoError(t, err)

	ret, code := d.Invoke(k, 2, params)
	assert.Equal(t, exitcode.Ok, code)
	require.NotEqual(t, runtime.NoBlock, ret)
	assert.Equal(t, encode(t, &addr), k.blocks[ret-1])

	ret, code = d.Invoke(k, 1, runtime.NoBlock)
	assert.Equal(t, exitcode.Ok, code)
	assert.Equal(t, runtime.NoBlock, ret)
}

func TestInvokeAbortsOnDispatchError(t *testing.T) {
	tf.UnitTest(t)

	d := dispatch.NewDispatcher(echoActor{})
	defer func() {
		p, ok := recover().(runtime.ExecutionPanic)
		require.True(t, ok)
		assert.Equal(t, exitcode.SysErrInvalidMethod, p.Code())
	}()
	d.Invoke(&blockKernel{nv: network.Version16}, 4, runtime.NoBlock)
	t.Fatal("invoke should have aborted")
}

func TestCodeLoaderPredicates(t *testing.T) {
	tf.UnitTest(t)

	other := th.ActorCode("other")
	loader := dispatch.NewBuilder().
		Add(dispatch.NetworkVersionPredicate(network.Version10), echoActor{}).
		AddCode(other, nil, runtime.ActorCodeFunc(func(runtime.Kernel, abi.MethodNum, runtime.BlockID) (runtime.BlockID, exitcode.ExitCode) {
			return runtime.NoBlock, exitcode.Ok
		})).
		Build()

	assert.ElementsMatch(t, []cid.Cid{echoCode, other}, loader.Codes())

	_, ok := loader.LoadCode(th.ActorCode("missing"))
	assert.False(t, ok)

	code, ok := loader.LoadCode(echoCode)
	require.True(t, ok)
	_, exit := code.Invoke(&blockKernel{nv: network.Version16}, 1, runtime.NoBlock)
	assert.Equal(t, exitcode.Ok, exit)

	defer func() {
		p, ok := recover().(runtime.ExecutionPanic)
		require.True(t, ok)
		assert.Equal(t, exitcode.SysErrInvalidReceiver, p.Code())
	}()
	code.Invoke(&blockKernel{nv: network.Version9}, 1, runtime.NoBlock)
	t.Fatal("invoke below the minimum version should have aborted")
}
