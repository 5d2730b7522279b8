package kernel

import (
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// LoggingKernel forwards to an inner kernel and logs sends, events, deletions
// and aborts of its frame.
type LoggingKernel struct {
	runtime.Kernel
	env   *Env
	frame *Frame
}

// WithLogging is a Decorator.
func WithLogging(inner runtime.Kernel, cm CallManager, f *Frame) runtime.Kernel {
	return &LoggingKernel{Kernel: inner, env: cm.Env(), frame: f}
}

func (k *LoggingKernel) Send(to address.Address, method abi.MethodNum, params runtime.BlockID, value abi.TokenAmount, gasLimit int64) (runtime.SendResult, error) {
	start := time.Now()
	res, err := k.Kernel.Send(to, method, params, value, gasLimit)
	log.Debugw("send",
		"depth", k.frame.Depth,
		"from", k.frame.Receiver,
		"to", k.env.FormatAddress(to),
		"method", method,
		"value", value,
		"exitcode", res.ExitCode,
		"gasUsed", res.GasUsed,
		"took", time.Since(start),
		"err", err)
	return res, err
}

func (k *LoggingKernel) EmitEvent(ev runtime.Event) error {
	err := k.Kernel.EmitEvent(ev)
	log.Debugw("event", "emitter", k.frame.Receiver, "entries", len(ev.Entries), "err", err)
	return err
}

func (k *LoggingKernel) SelfDestruct(beneficiary address.Address) error {
	err := k.Kernel.SelfDestruct(beneficiary)
	log.Infow("self destruct", "actor", k.frame.Receiver, "beneficiary", k.env.FormatAddress(beneficiary), "err", err)
	return err
}

func (k *LoggingKernel) Abort(code exitcode.ExitCode, msg string) {
	log.Debugw("abort", "actor", k.frame.Receiver, "depth", k.frame.Depth, "exitcode", code, "msg", msg)
	k.Kernel.Abort(code, msg)
}
