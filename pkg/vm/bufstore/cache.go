package bufstore

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
)

// CachedBlockstore keeps recently read and written blocks of a durable store in
// an ARC cache. Blocks are immutable, so the cache never needs invalidation
// except on delete.
type CachedBlockstore struct {
	blockstore.Blockstore
	cache *lru.ARCCache
}

var _ blockstore.Blockstore = (*CachedBlockstore)(nil)

// NewCachedBlockstore wraps bs with a read cache of size blocks.
func NewCachedBlockstore(bs blockstore.Blockstore, size int) (*CachedBlockstore, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &CachedBlockstore{Blockstore: bs, cache: cache}, nil
}

func (c *CachedBlockstore) Get(ctx context.Context, k cid.Cid) (blocks.Block, error) {
	if v, ok := c.cache.Get(k); ok {
		return v.(blocks.Block), nil
	}
	blk, err := c.Blockstore.Get(ctx, k)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, blk)
	return blk, nil
}

func (c *CachedBlockstore) Has(ctx context.Context, k cid.Cid) (bool, error) {
	if c.cache.Contains(k) {
		return true, nil
	}
	return c.Blockstore.Has(ctx, k)
}

func (c *CachedBlockstore) GetSize(ctx context.Context, k cid.Cid) (int, error) {
	if v, ok := c.cache.Get(k); ok {
		return len(v.(blocks.Block).RawData()), nil
	}
	return c.Blockstore.GetSize(ctx, k)
}

func (c *CachedBlockstore) Put(ctx context.Context, blk blocks.Block) error {
	if err := c.Blockstore.Put(ctx, blk); err != nil {
		return err
	}
	c.cache.Add(blk.Cid(), blk)
	return nil
}

func (c *CachedBlockstore) PutMany(ctx context.Context, blks []blocks.Block) error {
	if err := c.Blockstore.PutMany(ctx, blks); err != nil {
		return err
	}
	for _, blk := range blks {
		c.cache.Add(blk.Cid(), blk)
	}
	return nil
}

func (c *CachedBlockstore) DeleteBlock(ctx context.Context, k cid.Cid) error {
	c.cache.Remove(k)
	return c.Blockstore.DeleteBlock(ctx, k)
}
