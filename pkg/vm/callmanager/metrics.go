package callmanager

import "github.com/filecoin-project/venus-fvm/pkg/metrics"

var (
	framesExecuted *metrics.Int64Counter
	framesReverted *metrics.Int64Counter
	outOfGas       *metrics.Int64Counter
)

func init() {
	framesExecuted = metrics.NewInt64Counter("vm/frames_executed", "The number of call frames executed.")
	framesReverted = metrics.NewInt64Counter("vm/frames_reverted", "The number of call frames whose writes were discarded.")
	outOfGas = metrics.NewInt64Counter("vm/out_of_gas", "The number of call frames that ran out of gas.")
}
