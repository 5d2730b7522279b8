package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/registry"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

func TestRegistryHandles(t *testing.T) {
	tf.UnitTest(t)

	r := registry.New(0)
	id1, err := r.Put(runtime.CodecDagCBOR, []byte{0x80})
	require.NoError(t, err)
	id2, err := r.Put(runtime.CodecRaw, []byte("hello"))
	require.NoError(t, err)

	assert.NotEqual(t, runtime.NoBlock, id1)
	assert.NotEqual(t, id1, id2)

	st, err := r.Stat(id2)
	require.NoError(t, err)
	assert.Equal(t, runtime.BlockStat{Codec: runtime.CodecRaw, Size: 5}, st)

	blk, err := r.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80}, blk.Data)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryErrors(t *testing.T) {
	tf.UnitTest(t)

	r := registry.New(1)

	_, err := r.Get(runtime.NoBlock)
	assert.Equal(t, runtime.ErrInvalidHandle, runtime.ErrorNumberOf(err))

	_, err = r.Get(42)
	assert.Equal(t, runtime.ErrInvalidHandle, runtime.ErrorNumberOf(err))

	_, err = r.Put(0x1234, nil)
	assert.Equal(t, runtime.ErrIllegalCodec, runtime.ErrorNumberOf(err))

	_, err = r.Put(runtime.CodecRaw, nil)
	require.NoError(t, err)
	_, err = r.Put(runtime.CodecRaw, nil)
	assert.Equal(t, runtime.ErrLimitExceeded, runtime.ErrorNumberOf(err))
}
