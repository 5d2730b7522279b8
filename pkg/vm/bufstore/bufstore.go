// Package bufstore implements the copy-on-write block buffers that isolate call
// frames from each other and from the durable blockstore.
package bufstore

import (
	"context"
	"errors"
	"fmt"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	logging "github.com/ipfs/go-log/v2"
	mh "github.com/multiformats/go-multihash"
)

var log = logging.Logger("vm.bufstore")

// ErrNotFound is returned when no layer and not the durable store holds a cid.
var ErrNotFound = errors.New("block not found")

// ErrClosed is returned when a layer is used after Merge or Discard.
var ErrClosed = errors.New("buffer layer already merged or discarded")

// From https://github.com/dgraph-io/badger/issues/441: "a txn should not exceed the size of a single memtable".
// 1024 gives generous room for 64KiB per block under the default table size.
const maxBatchSize = 1024

// Sum computes the content identifier of data under codec (blake2b-256, cid v1).
func Sum(codec uint64, data []byte) (cid.Cid, error) {
	return cid.Prefix{
		Version:  1,
		Codec:    codec,
		MhType:   mh.BLAKE2B_MIN + 31,
		MhLength: -1,
	}.Sum(data)
}

// Layer is one copy-on-write view of the store. Reads fall through to the
// parent chain and finally to the durable store; writes stay local until
// Merge moves them one level up.
type Layer struct {
	parent *Layer
	base   blockstore.Blockstore

	writes map[cid.Cid]blocks.Block
	order  []cid.Cid
	depth  int
	closed bool
}

// New returns the root layer over the durable store bs.
func New(bs blockstore.Blockstore) *Layer {
	return &Layer{
		base:   bs,
		writes: map[cid.Cid]blocks.Block{},
	}
}

// Child creates a new layer on top of l.
func (l *Layer) Child() *Layer {
	return &Layer{
		parent: l,
		base:   l.base,
		writes: map[cid.Cid]blocks.Block{},
		depth:  l.depth + 1,
	}
}

// Depth is 0 for the root layer.
func (l *Layer) Depth() int {
	return l.depth
}

// Writes returns the number of blocks buffered in this layer only.
func (l *Layer) Writes() int {
	return len(l.order)
}

// Get reads a block, looking at the closest layer first.
func (l *Layer) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if l.closed {
		return nil, ErrClosed
	}
	for cur := l; cur != nil; cur = cur.parent {
		if blk, ok := cur.writes[c]; ok {
			return blk, nil
		}
	}
	blk, err := l.base.Get(ctx, c)
	if err != nil {
		if errors.Is(err, blockstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return blk, nil
}

// GetRaw retrieves the raw bytes stored under c.
func (l *Layer) GetRaw(ctx context.Context, c cid.Cid) ([]byte, error) {
	blk, err := l.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	return blk.RawData(), nil
}

// Has reports whether c is visible from this layer.
func (l *Layer) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if l.closed {
		return false, ErrClosed
	}
	for cur := l; cur != nil; cur = cur.parent {
		if _, ok := cur.writes[c]; ok {
			return true, nil
		}
	}
	return l.base.Has(ctx, c)
}

// Put buffers data under codec in this layer and returns its cid.
func (l *Layer) Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error) {
	c, err := Sum(codec, data)
	if err != nil {
		return cid.Undef, err
	}
	blk, err := blocks.NewBlockWithCid(data, c)
	if err != nil {
		return cid.Undef, err
	}
	return c, l.PutBlock(ctx, blk)
}

// PutBlock buffers an already addressed block in this layer.
func (l *Layer) PutBlock(_ context.Context, blk blocks.Block) error {
	if l.closed {
		return ErrClosed
	}
	l.put(blk)
	return nil
}

func (l *Layer) put(blk blocks.Block) {
	if _, ok := l.writes[blk.Cid()]; ok {
		return
	}
	l.writes[blk.Cid()] = blk
	l.order = append(l.order, blk.Cid())
}

// Merge moves every block written in l into its parent and closes l.
func (l *Layer) Merge() error {
	if l.closed {
		return ErrClosed
	}
	if l.parent == nil {
		return fmt.Errorf("cannot merge root layer")
	}
	if l.parent.closed {
		return fmt.Errorf("merge into parent: %w", ErrClosed)
	}
	for _, c := range l.order {
		l.parent.put(l.writes[c])
	}
	log.Debugw("merged layer", "depth", l.depth, "blocks", len(l.order))
	l.close()
	return nil
}

// Discard drops every block written in l and closes it.
func (l *Layer) Discard() {
	if l.closed {
		return
	}
	log.Debugw("discarded layer", "depth", l.depth, "blocks", len(l.order))
	l.close()
}

func (l *Layer) close() {
	l.writes = nil
	l.order = nil
	l.closed = true
}

// Flush writes all the blocks buffered in the root layer down to the durable
// store, in write order and in batches, then clears the buffer.
func (l *Layer) Flush(ctx context.Context) error {
	if l.closed {
		return ErrClosed
	}
	if l.parent != nil {
		return fmt.Errorf("only the root layer can be flushed")
	}

	blks := make([]blocks.Block, 0, len(l.order))
	for _, c := range l.order {
		blks = append(blks, l.writes[c])
	}

	remaining := blks
	for len(remaining) > 0 {
		last := min(len(remaining), maxBatchSize)
		if err := l.base.PutMany(ctx, remaining[:last]); err != nil {
			return fmt.Errorf("flush %d blocks: %w", last, err)
		}
		remaining = remaining[last:]
	}
	log.Debugw("flushed root layer", "blocks", len(blks))

	l.writes = map[cid.Cid]blocks.Block{}
	l.order = nil
	return nil
}

// Reset drops pending root writes without flushing them.
func (l *Layer) Reset() {
	if l.closed {
		return
	}
	l.writes = map[cid.Cid]blocks.Block{}
	l.order = nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
