package runtime_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	th "github.com/filecoin-project/venus-fvm/pkg/testhelpers"
	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

func TestErrorNumberOf(t *testing.T) {
	tf.UnitTest(t)

	assert.Equal(t, runtime.ErrNone, runtime.ErrorNumberOf(nil))
	assert.Equal(t, runtime.ErrNotFound, runtime.ErrorNumberOf(runtime.Errorf(runtime.ErrNotFound, "gone")))

	wrapped := fmt.Errorf("loading: %w", runtime.Errorf(runtime.ErrForbidden, "no"))
	assert.Equal(t, runtime.ErrForbidden, runtime.ErrorNumberOf(wrapped))
	assert.Equal(t, runtime.ErrAssertionFailed, runtime.ErrorNumberOf(fmt.Errorf("plain")))

	assert.Equal(t, "BufferTooSmall", runtime.ErrBufferTooSmall.String())
	assert.Equal(t, "ErrorNumber(99)", runtime.ErrorNumber(99).String())
}

func TestAbortPanicsWithCode(t *testing.T) {
	tf.UnitTest(t)

	defer func() {
		p, ok := recover().(runtime.ExecutionPanic)
		require.True(t, ok)
		assert.Equal(t, exitcode.ErrForbidden, p.Code())
		assert.Equal(t, "ExitCode(18): denied 3", p.String())
	}()
	runtime.Abortf(exitcode.ErrForbidden, "denied %d", 3)
}

func TestValidCodec(t *testing.T) {
	tf.UnitTest(t)

	assert.True(t, runtime.ValidCodec(runtime.CodecRaw))
	assert.True(t, runtime.ValidCodec(runtime.CodecCBOR))
	assert.True(t, runtime.ValidCodec(runtime.CodecDagCBOR))
	assert.False(t, runtime.ValidCodec(cid.DagProtobuf))
}

func TestEventSize(t *testing.T) {
	tf.UnitTest(t)

	ev := runtime.Event{Entries: []runtime.EventEntry{
		{Key: "ab", Value: []byte("cde")},
		{Key: "f", Value: nil},
	}}
	assert.Equal(t, 6, ev.Size())
}

// storeKernel backs the block calls ActorStorage makes with a buffer layer.
type storeKernel struct {
	runtime.Kernel
	layer  *bufstore.Layer
	blocks [][]byte
	codecs []uint64
	root   cid.Cid
}

func (k *storeKernel) BlockCreate(codec uint64, data []byte) (runtime.BlockID, error) {
	k.blocks = append(k.blocks, data)
	k.codecs = append(k.codecs, codec)
	return runtime.BlockID(len(k.blocks)), nil
}

func (k *storeKernel) BlockLink(id runtime.BlockID) (cid.Cid, error) {
	return k.layer.Put(context.Background(), k.codecs[id-1], k.blocks[id-1])
}

func (k *storeKernel) BlockOpen(c cid.Cid) (runtime.BlockID, runtime.BlockStat, error) {
	data, err := k.layer.GetRaw(context.Background(), c)
	if err != nil {
		return runtime.NoBlock, runtime.BlockStat{}, runtime.Errorf(runtime.ErrNotFound, "%s", err)
	}
	id, _ := k.BlockCreate(c.Prefix().Codec, data)
	return id, runtime.BlockStat{Codec: c.Prefix().Codec, Size: uint32(len(data))}, nil
}

func (k *storeKernel) BlockRead(id runtime.BlockID, offset uint32, buf []byte) (int, error) {
	return copy(buf, k.blocks[id-1][offset:]), nil
}

func (k *storeKernel) Root() cid.Cid { return k.root }

func (k *storeKernel) SetRoot(c cid.Cid) error {
	k.root = c
	return nil
}

func TestActorStateRoundTrip(t *testing.T) {
	tf.UnitTest(t)

	k := &storeKernel{layer: bufstore.New(bufstore.NewMemoryBlockstore())}
	in := &builtin.AccountState{Address: th.NewForTestGetter()()}

	runtime.SaveState(k, in)
	require.True(t, k.root.Defined())
	assert.Equal(t, uint64(cid.DagCBOR), k.root.Prefix().Codec)

	var out builtin.AccountState
	runtime.LoadState(k, &out)
	assert.Equal(t, *in, out)
}

func TestActorStorageMissingBlockAborts(t *testing.T) {
	tf.UnitTest(t)

	k := &storeKernel{layer: bufstore.New(bufstore.NewMemoryBlockstore())}
	missing, err := bufstore.Sum(runtime.CodecDagCBOR, []byte{0x80})
	require.NoError(t, err)

	defer func() {
		p, ok := recover().(runtime.ExecutionPanic)
		require.True(t, ok)
		assert.Equal(t, exitcode.ErrNotFound, p.Code())
	}()
	var out builtin.AccountState
	_ = runtime.NewActorStorage(k).Get(context.Background(), missing, &out)
	t.Fatal("get should have aborted")
}

func TestReadParamsNoBlock(t *testing.T) {
	tf.UnitTest(t)

	data, err := runtime.ReadParams(nil, runtime.NoBlock)
	require.NoError(t, err)
	assert.Nil(t, data)
}
