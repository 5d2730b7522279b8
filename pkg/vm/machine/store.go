package machine

import (
	"io"

	blockstore "github.com/ipfs/go-ipfs-blockstore"
	"github.com/pkg/errors"

	"github.com/filecoin-project/venus-fvm/pkg/config"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
)

// OpenStore opens the durable store described by cfg behind a read cache.
// The closer must be handed to the machine (WithCloser) or closed by the caller.
func OpenStore(cfg *config.DatastoreConfig) (blockstore.Blockstore, io.Closer, error) {
	entries, err := cfg.CacheEntries()
	if err != nil {
		return nil, nil, err
	}

	var (
		bs     blockstore.Blockstore
		closer = bufstore.NopCloser
	)
	switch cfg.Type {
	case "memory":
		bs = bufstore.NewMemoryBlockstore()
	case "badger":
		bs, closer, err = bufstore.NewBadgerBlockstore(cfg.Path, cfg.SyncWrites)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening badger datastore at %s", cfg.Path)
		}
	default:
		return nil, nil, errors.Errorf("unknown datastore type %q", cfg.Type)
	}

	if entries <= 0 {
		return bs, closer, nil
	}
	cached, err := bufstore.NewCachedBlockstore(bs, entries)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return cached, closer, nil
}
