package bufstore_test

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

func TestChildSeesAncestorWrites(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	root := bufstore.New(bufstore.NewMemoryBlockstore())
	c0, err := root.Put(ctx, runtime.CodecRaw, []byte("frame0"))
	require.NoError(t, err)

	child := root.Child()
	grandChild := child.Child()
	assert.Equal(t, 2, grandChild.Depth())

	raw, err := grandChild.GetRaw(ctx, c0)
	require.NoError(t, err)
	assert.Equal(t, []byte("frame0"), raw)

	c2, err := grandChild.Put(ctx, runtime.CodecRaw, []byte("frame2"))
	require.NoError(t, err)

	// not visible above the writer until merged
	_, err = child.Get(ctx, c2)
	assert.ErrorIs(t, err, bufstore.ErrNotFound)
	has, err := root.Has(ctx, c2)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMergeMovesWritesUp(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	root := bufstore.New(bufstore.NewMemoryBlockstore())
	child := root.Child()
	grandChild := child.Child()

	c, err := grandChild.Put(ctx, runtime.CodecDagCBOR, []byte{0x81, 0x01})
	require.NoError(t, err)

	require.NoError(t, grandChild.Merge())
	require.NoError(t, child.Merge())

	raw, err := root.GetRaw(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0x01}, raw)
	assert.Equal(t, 1, root.Writes())

	// closed layers reject further use
	_, err = grandChild.Put(ctx, runtime.CodecRaw, []byte("late"))
	assert.ErrorIs(t, err, bufstore.ErrClosed)
	assert.ErrorIs(t, child.Merge(), bufstore.ErrClosed)
	assert.Error(t, root.Merge())
}

func TestDiscardLeavesParentUntouched(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	root := bufstore.New(bufstore.NewMemoryBlockstore())
	kept, err := root.Put(ctx, runtime.CodecRaw, []byte("kept"))
	require.NoError(t, err)

	child := root.Child()
	dropped, err := child.Put(ctx, runtime.CodecRaw, []byte("dropped"))
	require.NoError(t, err)
	child.Discard()

	_, err = root.Get(ctx, dropped)
	assert.ErrorIs(t, err, bufstore.ErrNotFound)
	_, err = root.Get(ctx, kept)
	assert.NoError(t, err)
	assert.Equal(t, 1, root.Writes())
}

func TestFlushToDurableStore(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	bs := bufstore.NewMemoryBlockstore()
	cached, err := bufstore.NewCachedBlockstore(bs, 16)
	require.NoError(t, err)

	root := bufstore.New(cached)
	c, err := root.Put(ctx, runtime.CodecRaw, []byte("durable"))
	require.NoError(t, err)

	has, err := bs.Has(ctx, c)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, root.Flush(ctx))
	assert.Equal(t, 0, root.Writes())

	blk, err := bs.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), blk.RawData())

	// still readable through the root layer after the buffer is cleared
	raw, err := root.GetRaw(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), raw)

	assert.Error(t, root.Child().Flush(ctx))
}

func TestSumIsDeterministic(t *testing.T) {
	tf.UnitTest(t)

	c1, err := bufstore.Sum(runtime.CodecRaw, []byte("x"))
	require.NoError(t, err)
	c2, err := bufstore.Sum(runtime.CodecRaw, []byte("x"))
	require.NoError(t, err)
	c3, err := bufstore.Sum(runtime.CodecDagCBOR, []byte("x"))
	require.NoError(t, err)

	assert.True(t, c1.Equals(c2))
	assert.False(t, c1.Equals(c3))
	assert.Equal(t, runtime.CodecRaw, c1.Prefix().Codec)
}

func TestBadgerBatchFlush(t *testing.T) {
	tf.IntegrationTest(t)
	ctx := context.Background()

	dir, err := ioutil.TempDir("", "bufstoretest")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	bs, closer, err := bufstore.NewBadgerBlockstore(dir, false)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, closer.Close())
	}()

	root := bufstore.New(bs)

	// more blocks than a single batch holds
	data := bytes.Repeat([]byte("badger"), 100)
	for i := 0; i < 3000; i++ {
		_, err := root.Put(ctx, runtime.CodecRaw, []byte(fmt.Sprintf("%s%d", data, i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 3000, root.Writes())
	require.NoError(t, root.Flush(ctx))

	c, err := bufstore.Sum(runtime.CodecRaw, []byte(fmt.Sprintf("%s%d", data, 2999)))
	require.NoError(t, err)
	has, err := bs.Has(ctx, c)
	require.NoError(t, err)
	assert.True(t, has)
}
