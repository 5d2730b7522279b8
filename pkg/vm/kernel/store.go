package kernel

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
)

// GasChargeBlockStore charges the frame for every load and store it performs
// on the kernel's behalf.
type GasChargeBlockStore struct {
	inner     *bufstore.Layer
	pricelist gas.Pricelist
	gasTank   *gas.GasTracker
}

func newGasChargeBlockStore(inner *bufstore.Layer, pl gas.Pricelist, tank *gas.GasTracker) *GasChargeBlockStore {
	return &GasChargeBlockStore{inner: inner, pricelist: pl, gasTank: tank}
}

// GetRaw charges OnIpldGet and loads the block's bytes.
func (bs *GasChargeBlockStore) GetRaw(ctx context.Context, c cid.Cid) ([]byte, error) {
	bs.gasTank.Charge(bs.pricelist.OnIpldGet(), "storage get %s", c)
	return bs.inner.GetRaw(ctx, c)
}

// Put charges OnIpldPut for len(data) and buffers the block.
func (bs *GasChargeBlockStore) Put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error) {
	bs.gasTank.Charge(bs.pricelist.OnIpldPut(len(data)), "storage put %d bytes", len(data))
	return bs.inner.Put(ctx, codec, data)
}
