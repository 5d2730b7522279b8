package machine

import (
	"context"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/metrics"
)

var (
	messagesApplied *metrics.Int64Counter
	messagesFailed  *metrics.Int64Counter
	gasUsed         *metrics.Int64Counter
	applyDuration   *metrics.Float64Timer
)

func init() {
	messagesApplied = metrics.NewInt64Counter("vm/messages_applied", "The number of top level messages applied.")
	messagesFailed = metrics.NewInt64Counter("vm/messages_failed", "The number of top level messages with a non-zero exit code.")
	gasUsed = metrics.NewInt64Counter("vm/gas_used", "The gas used by applied messages.")
	applyDuration = metrics.NewTimerMs("vm/apply_duration", "Duration of message application in milliseconds.")
}

// InstrumentedMachine records metrics and logs around another machine.
type InstrumentedMachine struct {
	inner Interface
}

var _ Interface = (*InstrumentedMachine)(nil)

// NewInstrumentedMachine wraps inner.
func NewInstrumentedMachine(inner Interface) *InstrumentedMachine {
	return &InstrumentedMachine{inner: inner}
}

func (im *InstrumentedMachine) ExecuteMessage(ctx context.Context, msg *Message) (*Ret, error) {
	sw := applyDuration.Start(ctx)
	ret, err := im.inner.ExecuteMessage(ctx, msg)
	elapsed := sw.Stop(ctx)
	im.record(ctx, msg, ret, err)
	log.Debugw("ExecuteMessage", "msg", msg.String(), "elapsed", elapsed)
	return ret, err
}

func (im *InstrumentedMachine) ApplyImplicitMessage(ctx context.Context, msg *Message) (*Ret, error) {
	sw := applyDuration.Start(ctx)
	ret, err := im.inner.ApplyImplicitMessage(ctx, msg)
	sw.Stop(ctx)
	im.record(ctx, msg, ret, err)
	return ret, err
}

func (im *InstrumentedMachine) record(ctx context.Context, msg *Message, ret *Ret, err error) {
	if err != nil {
		log.Errorw("message application failed", "msg", msg.String(), "err", err)
		return
	}
	messagesApplied.Inc(ctx, 1)
	gasUsed.Inc(ctx, ret.Receipt.GasUsed)
	if ret.Receipt.ExitCode != exitcode.Ok {
		messagesFailed.Inc(ctx, 1)
		log.Infow("message failed", "msg", msg.String(), "exitcode", ret.Receipt.ExitCode, "gasUsed", ret.Receipt.GasUsed)
	}
}

func (im *InstrumentedMachine) Flush(ctx context.Context) (cid.Cid, error) {
	root, err := im.inner.Flush(ctx)
	if err != nil {
		log.Errorw("flush failed", "err", err)
		return root, err
	}
	log.Infow("flushed state", "root", root)
	return root, nil
}

func (im *InstrumentedMachine) StateRoot() cid.Cid {
	return im.inner.StateRoot()
}
