package bufstore

import (
	"io"

	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	badger "github.com/ipfs/go-ds-badger2"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewMemoryBlockstore returns a thread safe in-memory durable store.
func NewMemoryBlockstore() blockstore.Blockstore {
	return blockstore.NewBlockstore(dssync.MutexWrap(ds.NewMapDatastore()))
}

// NewBadgerBlockstore opens (or creates) a badger backed durable store at dir.
// The returned closer releases the underlying datastore.
func NewBadgerBlockstore(dir string, syncWrites bool) (blockstore.Blockstore, io.Closer, error) {
	opts := badger.DefaultOptions
	opts.SyncWrites = syncWrites
	bds, err := badger.NewDatastore(dir, &opts)
	if err != nil {
		return nil, nil, err
	}
	return blockstore.NewBlockstore(bds), bds, nil
}

// NopCloser is returned for stores that own no external resource.
var NopCloser io.Closer = nopCloser{}
