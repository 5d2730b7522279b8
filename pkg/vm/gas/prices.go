package gas

import (
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/network"
)

func verifySignatureCosts() map[crypto.SigType]func(int64) int64 {
	return map[crypto.SigType]func(int64) int64{
		crypto.SigTypeBLS:       func(x int64) int64 { return 16598605 },
		crypto.SigTypeSecp256k1: func(x int64) int64 { return 1637292 },
	}
}

// PricelistGenesis is in effect from network version 0.
func PricelistGenesis() *PricelistV0 {
	return &PricelistV0{
		ComputeGasMulti: 1,
		StorageGasMulti: 1000,

		OnChainMessageComputeBase:    38863,
		OnChainMessageStorageBase:    36,
		OnChainMessageStoragePerByte: 1,
		OnChainReturnValuePerByte:    1,

		SendBase:                29233,
		SendTransferFunds:       27500,
		SendTransferOnlyPremium: 159672,
		SendInvokeMethod:        -5377,

		IpldGetBase:    75242,
		IpldPutBase:    84070,
		IpldPutPerByte: 1,

		BlockOpenBase:    75242,
		BlockLinkBase:    84070,
		BlockLinkPerByte: 1,

		CreateActorCompute: 1108454,
		CreateActorStorage: 36 + 40,

		VerifySignature: verifySignatureCosts(),

		HashingBase:          31355,
		VerifyConsensusFault: 495422,
	}
}

// PricelistCalico is in effect from network version 7.
func PricelistCalico() *PricelistV0 {
	pl := PricelistGenesis()
	pl.StorageGasMulti = 1300
	pl.IpldGetBase = 114617
	pl.IpldPutBase = 353640
	pl.BlockOpenBase = 114617
	pl.BlockLinkBase = 353640
	pl.SyscallBase = 14000
	pl.EmitEventBase = 1750
	pl.EmitEventPerEntry = 45
	pl.EmitEventPerByte = 3
	return pl
}

// DefaultPricesSchedule returns the price lists used when none is configured.
func DefaultPricesSchedule() *PricesSchedule {
	return NewPricesSchedule(map[network.Version]Pricelist{
		network.Version0: PricelistGenesis(),
		network.Version7: PricelistCalico(),
	})
}
