package machine

import (
	"context"
	"io/ioutil"
	"os"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/venus-fvm/pkg/config"
	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
)

func TestOpenStoreMemory(t *testing.T) {
	tf.UnitTest(t)

	bs, closer, err := OpenStore(&config.DatastoreConfig{Type: "memory", CacheSize: "16"})
	require.NoError(t, err)
	_, cached := bs.(*bufstore.CachedBlockstore)
	assert.True(t, cached)
	assert.NoError(t, closer.Close())

	bs, _, err = OpenStore(&config.DatastoreConfig{Type: "memory", CacheSize: "0"})
	require.NoError(t, err)
	_, cached = bs.(*bufstore.CachedBlockstore)
	assert.False(t, cached)

	_, _, err = OpenStore(&config.DatastoreConfig{Type: "leveldb", CacheSize: "0"})
	assert.Error(t, err)
}

func TestOpenStoreBadgerSurvivesRestart(t *testing.T) {
	tf.IntegrationTest(t)
	ctx := context.Background()

	dir, err := ioutil.TempDir("", "machinestore")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	cfg := &config.DatastoreConfig{Type: "badger", Path: dir, CacheSize: "1k"}

	bs, closer, err := OpenStore(cfg)
	require.NoError(t, err)
	m, err := New(ctx, nil, bs, cid.Undef, NetworkContext{}, nil, nil, WithCloser(closer))
	require.NoError(t, err)
	root := m.StateRoot()
	require.NoError(t, m.Close())

	bs, closer, err = OpenStore(cfg)
	require.NoError(t, err)
	m, err = New(ctx, nil, bs, root, NetworkContext{}, nil, nil, WithCloser(closer))
	require.NoError(t, err)
	assert.Equal(t, root, m.StateRoot())
	assert.NoError(t, m.Close())
}
