// Package registry maps small integer handles to (codec, data) blocks so the
// syscall boundary exchanges handles instead of content identifiers and payloads.
package registry

import (
	"math"

	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// DefaultMaxBlocks bounds the number of blocks one frame may hold open.
const DefaultMaxBlocks = 1 << 16

// Block is one registered block.
type Block struct {
	Codec uint64
	Data  []byte
}

// Stat returns the codec and size of the block.
func (b Block) Stat() runtime.BlockStat {
	return runtime.BlockStat{Codec: b.Codec, Size: uint32(len(b.Data))}
}

// Registry is owned by exactly one call frame and dropped with it, which
// invalidates every handle it handed out. Handle 0 is never allocated.
type Registry struct {
	blocks []Block
	max    int
}

// New creates an empty registry holding at most max blocks (DefaultMaxBlocks when max <= 0).
func New(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxBlocks
	}
	return &Registry{max: max}
}

// Put registers a copy-free reference to data and returns its handle.
func (r *Registry) Put(codec uint64, data []byte) (runtime.BlockID, error) {
	if !runtime.ValidCodec(codec) {
		return runtime.NoBlock, runtime.Errorf(runtime.ErrIllegalCodec, "codec %x not allowed", codec)
	}
	if uint64(len(data)) > math.MaxUint32 {
		return runtime.NoBlock, runtime.Errorf(runtime.ErrLimitExceeded, "block of %d bytes too large", len(data))
	}
	if len(r.blocks) >= r.max {
		return runtime.NoBlock, runtime.Errorf(runtime.ErrLimitExceeded, "too many blocks (%d)", len(r.blocks))
	}
	r.blocks = append(r.blocks, Block{Codec: codec, Data: data})
	return runtime.BlockID(len(r.blocks)), nil
}

// Get returns the block behind id.
func (r *Registry) Get(id runtime.BlockID) (Block, error) {
	if id == runtime.NoBlock || int(id) > len(r.blocks) {
		return Block{}, runtime.Errorf(runtime.ErrInvalidHandle, "invalid block handle %d", id)
	}
	return r.blocks[id-1], nil
}

// Stat returns the codec and size of the block behind id.
func (r *Registry) Stat(id runtime.BlockID) (runtime.BlockStat, error) {
	b, err := r.Get(id)
	if err != nil {
		return runtime.BlockStat{}, err
	}
	return b.Stat(), nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	return len(r.blocks)
}
