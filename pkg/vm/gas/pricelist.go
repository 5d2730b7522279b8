package gas

import (
	"fmt"
	"sort"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/network"
)

// Pricelist provides prices for every operation a frame can perform. All
// prices are computed before the operation runs.
type Pricelist interface {
	// OnChainMessage returns the gas used for storing a message of a given size in the chain.
	OnChainMessage(msgSize int) GasCharge
	// OnChainReturnValue returns the gas used for storing the response of a message in the chain.
	OnChainReturnValue(dataSize int) GasCharge

	// OnMethodInvocation returns the gas used when invoking a method.
	OnMethodInvocation(value abi.TokenAmount, methodNum abi.MethodNum) GasCharge

	// OnIpldGet returns the gas used for loading an object from the store.
	OnIpldGet() GasCharge
	// OnIpldPut returns the gas used for storing an object.
	OnIpldPut(dataSize int) GasCharge

	OnBlockOpen(dataSize int) GasCharge
	OnBlockRead(dataSize int) GasCharge
	OnBlockCreate(dataSize int) GasCharge
	OnBlockLink(dataSize int) GasCharge
	OnBlockStat() GasCharge
	OnSetRoot() GasCharge

	// OnCreateActor returns the gas used for creating an actor.
	OnCreateActor() GasCharge
	// OnDeleteActor returns the gas used for deleting an actor.
	OnDeleteActor() GasCharge

	OnVerifySignature(sigType crypto.SigType, planTextSize int) (GasCharge, error)
	OnHashing(dataSize int) GasCharge
	OnGetRandomness(entropySize int) GasCharge
	OnVerifyConsensusFault() GasCharge
	OnEmitEvent(entries int, dataSize int) GasCharge
	OnValidateCaller() GasCharge
	OnSyscall() GasCharge
}

// PricelistV0 is a linear price list. The zero value prices everything at
// zero, which tests use to price a single operation in isolation.
type PricelistV0 struct {
	ComputeGasMulti int64
	StorageGasMulti int64

	OnChainMessageComputeBase    int64
	OnChainMessageStorageBase    int64
	OnChainMessageStoragePerByte int64
	OnChainReturnValuePerByte    int64

	SendBase                int64
	SendTransferFunds       int64
	SendTransferOnlyPremium int64
	SendInvokeMethod        int64

	IpldGetBase    int64
	IpldPutBase    int64
	IpldPutPerByte int64

	BlockOpenBase      int64
	BlockOpenPerByte   int64
	BlockReadBase      int64
	BlockCreateBase    int64
	BlockCreatePerByte int64
	BlockLinkBase      int64
	BlockLinkPerByte   int64
	BlockStatBase      int64
	SetRootBase        int64

	CreateActorCompute int64
	CreateActorStorage int64
	DeleteActor        int64

	VerifySignature map[crypto.SigType]func(len int64) int64

	HashingBase          int64
	HashingPerByte       int64
	GetRandomnessBase    int64
	GetRandomnessPerByte int64
	VerifyConsensusFault int64
	EmitEventBase        int64
	EmitEventPerEntry    int64
	EmitEventPerByte     int64
	ValidateCallerBase   int64
	SyscallBase          int64
}

var _ Pricelist = (*PricelistV0)(nil)

func (pl *PricelistV0) OnChainMessage(msgSize int) GasCharge {
	return NewGasCharge("OnChainMessage", pl.OnChainMessageComputeBase,
		(pl.OnChainMessageStorageBase+pl.OnChainMessageStoragePerByte*int64(msgSize))*pl.StorageGasMulti)
}

func (pl *PricelistV0) OnChainReturnValue(dataSize int) GasCharge {
	return NewGasCharge("OnChainReturnValue", 0, int64(dataSize)*pl.OnChainReturnValuePerByte*pl.StorageGasMulti)
}

func (pl *PricelistV0) OnMethodInvocation(value abi.TokenAmount, methodNum abi.MethodNum) GasCharge {
	ret := pl.SendBase
	extra := ""

	if big.Cmp(value, abi.NewTokenAmount(0)) != 0 {
		ret += pl.SendTransferFunds
		if methodNum == 0 {
			// transfer only
			ret += pl.SendTransferOnlyPremium
		}
		extra += "t"
	}

	if methodNum != 0 {
		extra += "i"
		ret += pl.SendInvokeMethod
	}
	return NewGasCharge("OnMethodInvocation", ret, 0).WithExtra(extra)
}

func (pl *PricelistV0) OnIpldGet() GasCharge {
	return NewGasCharge("OnIpldGet", pl.IpldGetBase, 0)
}

func (pl *PricelistV0) OnIpldPut(dataSize int) GasCharge {
	return NewGasCharge("OnIpldPut", pl.IpldPutBase, int64(dataSize)*pl.IpldPutPerByte*pl.StorageGasMulti).
		WithExtra(dataSize)
}

func (pl *PricelistV0) OnBlockOpen(dataSize int) GasCharge {
	return NewGasCharge("OnBlockOpen", pl.BlockOpenBase+int64(dataSize)*pl.BlockOpenPerByte, 0).WithExtra(dataSize)
}

func (pl *PricelistV0) OnBlockRead(dataSize int) GasCharge {
	return NewGasCharge("OnBlockRead", pl.BlockReadBase, 0).WithExtra(dataSize)
}

func (pl *PricelistV0) OnBlockCreate(dataSize int) GasCharge {
	return NewGasCharge("OnBlockCreate", pl.BlockCreateBase+int64(dataSize)*pl.BlockCreatePerByte, 0).WithExtra(dataSize)
}

func (pl *PricelistV0) OnBlockLink(dataSize int) GasCharge {
	return NewGasCharge("OnBlockLink", pl.BlockLinkBase, int64(dataSize)*pl.BlockLinkPerByte*pl.StorageGasMulti).
		WithExtra(dataSize)
}

func (pl *PricelistV0) OnBlockStat() GasCharge {
	return NewGasCharge("OnBlockStat", pl.BlockStatBase, 0)
}

func (pl *PricelistV0) OnSetRoot() GasCharge {
	return NewGasCharge("OnSetRoot", pl.SetRootBase, 0)
}

func (pl *PricelistV0) OnCreateActor() GasCharge {
	return NewGasCharge("OnCreateActor", pl.CreateActorCompute, pl.CreateActorStorage*pl.StorageGasMulti)
}

func (pl *PricelistV0) OnDeleteActor() GasCharge {
	return NewGasCharge("OnDeleteActor", 0, pl.DeleteActor*pl.StorageGasMulti)
}

func (pl *PricelistV0) OnVerifySignature(sigType crypto.SigType, planTextSize int) (GasCharge, error) {
	cost, ok := pl.VerifySignature[sigType]
	if !ok {
		return GasCharge{}, fmt.Errorf("cost function for signature type %d not supported", sigType)
	}
	sigName, _ := sigType.Name()
	return NewGasCharge("OnVerifySignature", cost(int64(planTextSize)), 0).
		WithExtra(map[string]interface{}{
			"type": sigName,
			"size": planTextSize,
		}), nil
}

func (pl *PricelistV0) OnHashing(dataSize int) GasCharge {
	return NewGasCharge("OnHashing", pl.HashingBase+int64(dataSize)*pl.HashingPerByte, 0).WithExtra(dataSize)
}

func (pl *PricelistV0) OnGetRandomness(entropySize int) GasCharge {
	return NewGasCharge("OnGetRandomness", pl.GetRandomnessBase+int64(entropySize)*pl.GetRandomnessPerByte, 0)
}

func (pl *PricelistV0) OnVerifyConsensusFault() GasCharge {
	return NewGasCharge("OnVerifyConsensusFault", pl.VerifyConsensusFault, 0)
}

func (pl *PricelistV0) OnEmitEvent(entries int, dataSize int) GasCharge {
	return NewGasCharge("OnEmitEvent",
		pl.EmitEventBase+int64(entries)*pl.EmitEventPerEntry+int64(dataSize)*pl.EmitEventPerByte, 0)
}

func (pl *PricelistV0) OnValidateCaller() GasCharge {
	return NewGasCharge("OnValidateCaller", pl.ValidateCallerBase, 0)
}

func (pl *PricelistV0) OnSyscall() GasCharge {
	return NewGasCharge("OnSyscall", pl.SyscallBase, 0)
}

// PricesSchedule selects a price list by network version.
type PricesSchedule struct {
	versions   []network.Version
	pricelists map[network.Version]Pricelist
}

// NewPricesSchedule builds a schedule where each price list applies from its
// network version until the next listed one.
func NewPricesSchedule(lists map[network.Version]Pricelist) *PricesSchedule {
	ps := &PricesSchedule{pricelists: map[network.Version]Pricelist{}}
	for nv, pl := range lists {
		ps.versions = append(ps.versions, nv)
		ps.pricelists[nv] = pl
	}
	sort.Slice(ps.versions, func(i, j int) bool { return ps.versions[i] < ps.versions[j] })
	return ps
}

// PricelistByVersion finds the latest prices for the given network version
func (ps *PricesSchedule) PricelistByVersion(nv network.Version) Pricelist {
	for i := len(ps.versions) - 1; i >= 0; i-- {
		if ps.versions[i] <= nv {
			return ps.pricelists[ps.versions[i]]
		}
	}
	if len(ps.versions) == 0 {
		panic("empty prices schedule")
	}
	return ps.pricelists[ps.versions[0]]
}

// NewFixedSchedule applies pl to every network version.
func NewFixedSchedule(pl Pricelist) *PricesSchedule {
	return NewPricesSchedule(map[network.Version]Pricelist{network.Version0: pl})
}
