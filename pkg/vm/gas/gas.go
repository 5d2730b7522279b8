package gas

import (
	"fmt"
	"time"
)

// GasCharge is one priced operation. Total is what a frame pays.
type GasCharge struct { //nolint
	Name  string
	Extra interface{}

	ComputeGas int64
	StorageGas int64
}

// NewGasCharge creates a charge for the named operation.
func NewGasCharge(name string, computeGas int64, storageGas int64) GasCharge {
	return GasCharge{
		Name:       name,
		ComputeGas: computeGas,
		StorageGas: storageGas,
	}
}

// Total returns the amount of gas the charge consumes.
func (g GasCharge) Total() int64 {
	return g.ComputeGas + g.StorageGas
}

// WithExtra attaches diagnostic data shown in detailed traces.
func (g GasCharge) WithExtra(extra interface{}) GasCharge {
	out := g
	out.Extra = extra
	return out
}

// Add sums two charges under g's name.
func (g GasCharge) Add(o GasCharge) GasCharge {
	out := g
	out.ComputeGas += o.ComputeGas
	out.StorageGas += o.StorageGas
	return out
}

func (g GasCharge) String() string {
	return fmt.Sprintf("%s(compute=%d storage=%d)", g.Name, g.ComputeGas, g.StorageGas)
}

// GasTrace is a recorded charge, kept only when detailed tracing is enabled.
type GasTrace struct {
	Name  string
	Extra interface{} `json:",omitempty"`

	TotalGas   int64
	ComputeGas int64
	StorageGas int64

	TimeTaken time.Duration
}
