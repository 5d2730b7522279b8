package gas

import (
	"fmt"
	"os"
	"time"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// EnableDetailedTracing, if true, records every charge in the execution trace.
var EnableDetailedTracing = os.Getenv("VENUS_VM_ENABLE_TRACING") == "1"

// GasTracker maintains the gas usage of a single call frame.
//
// GasUsed only ever grows and never exceeds GasAvailable.
type GasTracker struct { //nolint
	GasAvailable int64
	GasUsed      int64

	Charges []GasTrace

	detailed          bool
	lastGasChargeTime time.Time
}

// NewGasTracker initializes a new empty gas tracker
func NewGasTracker(limit int64) *GasTracker {
	return &GasTracker{
		GasUsed:      0,
		GasAvailable: limit,
		detailed:     EnableDetailedTracing,
	}
}

// WithDetailedTracing turns per-charge recording on or off.
func (t *GasTracker) WithDetailedTracing(on bool) *GasTracker {
	t.detailed = on
	return t
}

// Remaining returns the gas still available to the frame.
func (t *GasTracker) Remaining() int64 {
	return t.GasAvailable - t.GasUsed
}

// Charge will add the gas charge To the current Method gas context.
//
// WARNING: this Method will panic if there is no sufficient gas left.
func (t *GasTracker) Charge(gas GasCharge, msg string, args ...interface{}) {
	if ok := t.TryCharge(gas); !ok {
		fmsg := fmt.Sprintf(msg, args...)
		runtime.Abortf(exitcode.SysErrOutOfGas, "gas limit %d exceeded with charge of %d: %s", t.GasAvailable, gas.Total(), fmsg)
	}
}

// TryCharge charges `amount` or `RemainingGas()``, whichever is smaller.
//
// Returns `True` if the there was enough gas To pay for `amount`.
func (t *GasTracker) TryCharge(gasCharge GasCharge) bool {
	toUse := gasCharge.Total()
	if toUse < 0 {
		toUse = 0
	}
	if t.detailed {
		now := time.Now()
		if n := len(t.Charges); n > 0 {
			t.Charges[n-1].TimeTaken = now.Sub(t.lastGasChargeTime)
		}
		t.Charges = append(t.Charges, GasTrace{
			Name:       gasCharge.Name,
			Extra:      gasCharge.Extra,
			TotalGas:   toUse,
			ComputeGas: gasCharge.ComputeGas,
			StorageGas: gasCharge.StorageGas,
		})
		t.lastGasChargeTime = now
	}

	// overflow safe
	if t.GasUsed > t.GasAvailable-toUse {
		t.GasUsed = t.GasAvailable
		return false
	}
	t.GasUsed += toUse
	return true
}

// SubBudget returns the limit of a nested call: the requested limit clamped to
// what this frame has left. Asking for more than remains is not an error.
func (t *GasTracker) SubBudget(requested int64) int64 {
	remaining := t.Remaining()
	if requested < 0 || requested > remaining {
		return remaining
	}
	return requested
}

// ChargeChild debits the gas a nested call consumed. The child's limit came
// from SubBudget so this can only fail if the caller broke that contract.
func (t *GasTracker) ChargeChild(used int64) bool {
	return t.TryCharge(GasCharge{Name: "OnSubcall", ComputeGas: used})
}
