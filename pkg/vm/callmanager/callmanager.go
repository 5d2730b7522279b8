// Package callmanager runs the frame stack of one top-level message.
package callmanager

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	logging "github.com/ipfs/go-log/v2"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/kernel"
	"github.com/filecoin-project/venus-fvm/pkg/vm/registry"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/state"
	"github.com/filecoin-project/venus-fvm/pkg/vm/trace"
)

var log = logging.Logger("vm.callmanager")

// Option configures a CallManager.
type Option func(*CallManager)

// WithKernelBuilder replaces the kernel built for every frame, typically with
// a kernel.Decorate chain.
func WithKernelBuilder(b kernel.Builder) Option {
	return func(cm *CallManager) {
		cm.build = b
	}
}

// WithTracer records every frame into t.
func WithTracer(t *trace.Tracer) Option {
	return func(cm *CallManager) {
		cm.tracer = t
	}
}

// WithDetailedGas records every gas charge of every frame.
func WithDetailedGas(on bool) Option {
	return func(cm *CallManager) {
		cm.detailedGas = on
	}
}

// CallManager owns the frames of one top-level message. It is not safe for
// concurrent use and must not be reused across messages.
type CallManager struct {
	ctx    context.Context
	env    *kernel.Env
	st     *state.State
	store  *bufstore.Layer
	loader runtime.CodeLoader

	build       kernel.Builder
	tracer      *trace.Tracer
	detailedGas bool

	origin               address.Address
	nonce                uint64
	newActorAddressCount uint64

	frames []*kernel.Frame
	events []runtime.Event
	status State
}

var _ kernel.CallManager = (*CallManager)(nil)

// New creates the call manager for the message sent by origin with nonce.
// store is the layer frame 0 is stacked on.
func New(ctx context.Context, env *kernel.Env, st *state.State, store *bufstore.Layer, loader runtime.CodeLoader, origin address.Address, nonce uint64, opts ...Option) *CallManager {
	cm := &CallManager{
		ctx:         ctx,
		env:         env,
		st:          st,
		store:       store,
		loader:      loader,
		build:       kernel.New,
		detailedGas: gas.EnableDetailedTracing,
		origin:      origin,
		nonce:       nonce,
		status:      Idle,
	}
	for _, o := range opts {
		o(cm)
	}
	return cm
}

func (cm *CallManager) Context() context.Context       { return cm.ctx }
func (cm *CallManager) Env() *kernel.Env               { return cm.env }
func (cm *CallManager) StateTree() *state.State        { return cm.st }
func (cm *CallManager) CodeLoader() runtime.CodeLoader { return cm.loader }
func (cm *CallManager) Origin() address.Address        { return cm.origin }
func (cm *CallManager) Nonce() uint64                  { return cm.nonce }
func (cm *CallManager) Status() State                  { return cm.status }
func (cm *CallManager) Depth() int                     { return len(cm.frames) }
func (cm *CallManager) Tracer() *trace.Tracer          { return cm.tracer }

// Events returns the events of a committed message.
func (cm *CallManager) Events() []runtime.Event {
	return cm.events
}

// NewActorAddress derives a fresh actor address from the origin, its nonce
// and the number of addresses handed out so far for this message.
func (cm *CallManager) NewActorAddress() (address.Address, error) {
	buf := new(bytes.Buffer)
	if err := cm.origin.MarshalCBOR(buf); err != nil {
		return address.Undef, fmt.Errorf("marshaling origin: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, cm.nonce); err != nil {
		return address.Undef, err
	}
	if err := binary.Write(buf, binary.BigEndian, cm.newActorAddressCount); err != nil {
		return address.Undef, err
	}
	addr, err := address.NewActorAddress(buf.Bytes())
	if err != nil {
		return address.Undef, err
	}
	cm.newActorAddressCount++
	return addr, nil
}

// Send runs one frame: the top-level message when no frame is active,
// otherwise a child of the active frame. The returned error is always fatal
// and every frame up the stack discards its writes.
func (cm *CallManager) Send(from abi.ActorID, to address.Address, method abi.MethodNum, params *registry.Block, value abi.TokenAmount, gasLimit int64) (runtime.InvocationResult, error) {
	if value.Int == nil {
		value = big.Zero()
	}

	var parent *kernel.Frame
	parentStore := cm.store
	limit := gasLimit
	if n := len(cm.frames); n > 0 {
		parent = cm.frames[n-1]
		parentStore = parent.Store
		limit = parent.Gas.SubBudget(gasLimit)
	} else if limit < 0 {
		limit = 0
	}

	f := &kernel.Frame{
		Depth:  len(cm.frames),
		Caller: from,
		Method: method,
		Value:  value,
		Gas:    gas.NewGasTracker(limit).WithDetailedTracing(cm.detailedGas),
		Store:  parentStore.Child(),
		Blocks: registry.New(cm.env.MaxBlocks),
	}
	cm.frames = append(cm.frames, f)
	cm.st.Snapshot()
	cm.status = Running

	var raw []byte
	if params != nil {
		raw = params.Data
	}
	fromAddr, _ := address.NewIDAddress(uint64(from))
	cm.tracer.OnCall(f.Depth, fromAddr, to, method, value, raw, limit)
	framesExecuted.Inc(cm.ctx, 1)

	ret, errMsg, aborted, err := cm.invoke(f, to, params)
	// an aborted frame never keeps its writes, whatever its exit code
	merge := err == nil && !aborted && canMerge(ret.ExitCode)
	if merge && f.SelfDestruct != nil {
		code, sdErr := cm.selfDestruct(f)
		if sdErr != nil {
			err = sdErr
			merge = false
		} else if code != exitcode.Ok {
			ret = runtime.InvocationResult{ExitCode: code}
			errMsg = "self destruct failed"
			merge = false
		}
	}

	if merge {
		cm.status = MergingUp
		if mErr := f.Store.Merge(); mErr != nil {
			err = aerrors.Escalate(mErr, "merging frame buffer")
			merge = false
		}
	}
	if merge {
		cm.st.ClearSnapshot()
		if parent != nil {
			parent.Events = append(parent.Events, f.Events...)
		} else {
			cm.events = f.Events
		}
	} else {
		cm.status = Discarding
		f.Store.Discard()
		cm.st.RevertSnapshot()
		framesReverted.Inc(cm.ctx, 1)
		ret.Return = nil
	}

	ret.GasUsed = f.Gas.GasUsed
	cm.frames = cm.frames[:len(cm.frames)-1]
	if parent != nil {
		if !parent.Gas.ChargeChild(ret.GasUsed) && err == nil {
			err = aerrors.Fatalf("child frame used %d gas, more than the %d its parent had left", ret.GasUsed, parent.Gas.Remaining())
		}
	}

	if err != nil {
		errMsg = err.Error()
	}
	cm.tracer.OnReturn(f.Depth, ret.ExitCode, ret.Return, ret.GasUsed, f.Gas.Charges, errMsg)

	switch {
	case parent != nil:
		cm.status = Running
	case merge:
		cm.status = Committed
	default:
		cm.status = Reverted
	}
	return ret, err
}

// canMerge reports whether a frame that returned code keeps its writes.
func canMerge(code exitcode.ExitCode) bool {
	return code == exitcode.Ok || code >= exitcode.FirstActorErrorCode
}

// invoke runs the body of frame f, turning aborts into exit codes. aborted
// reports that the frame trapped instead of returning.
func (cm *CallManager) invoke(f *kernel.Frame, to address.Address, params *registry.Block) (ret runtime.InvocationResult, errMsg string, aborted bool, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		aborted = true
		switch p := r.(type) {
		case runtime.ExecutionPanic:
			ret = runtime.InvocationResult{ExitCode: p.Code()}
			errMsg = p.String()
			if p.Code() == exitcode.SysErrOutOfGas {
				outOfGas.Inc(cm.ctx, 1)
			}
			log.Debugw("frame aborted", "depth", f.Depth, "receiver", f.Receiver, "exitcode", p.Code(), "msg", p.String())
		case aerrors.ActorError:
			if p.IsFatal() {
				err = p
				return
			}
			ret = runtime.InvocationResult{ExitCode: p.RetCode()}
			errMsg = p.Error()
		default:
			// a trap in actor code ends the frame, not the message
			ret = runtime.InvocationResult{ExitCode: exitcode.SysErrorIllegalActor}
			errMsg = fmt.Sprintf("actor panicked: %v", r)
			log.Errorw("actor code panicked", "depth", f.Depth, "receiver", f.Receiver, "method", f.Method, "panic", r)
		}
	}()

	f.Gas.Charge(cm.env.Pricelist.OnMethodInvocation(f.Value, f.Method), "method invocation")

	act, err := cm.resolveTarget(f, to)
	if err != nil {
		return runtime.InvocationResult{}, "", false, err
	}
	f.Receiver = act.ID

	if err := cm.transfer(f.Caller, act.ID, f.Value); err != nil {
		return runtime.InvocationResult{}, "", false, err
	}

	if f.Method == builtin.MethodSend {
		return runtime.InvocationResult{ExitCode: exitcode.Ok}, "", false, nil
	}

	code, ok := cm.loader.LoadCode(act.Code)
	if !ok {
		runtime.Abortf(exitcode.SysErrInvalidReceiver, "no code for actor %d: %s", act.ID, act.Code)
	}

	paramsID := runtime.NoBlock
	if params != nil {
		id, perr := f.Blocks.Put(params.Codec, params.Data)
		if perr != nil {
			runtime.Abortf(exitcode.SysErrorIllegalArgument, "invalid params: %s", perr)
		}
		paramsID = id
	}

	k := cm.build(cm, f)
	retID, exit := code.Invoke(k, f.Method, paramsID)

	if !f.CallerValidated {
		return runtime.InvocationResult{ExitCode: exitcode.SysErrorIllegalActor}, "Caller MUST be validated during method execution", false, nil
	}
	if exit != exitcode.Ok && exit < exitcode.FirstActorErrorCode {
		log.Warnw("actor returned a system exit code", "receiver", f.Receiver, "method", f.Method, "exitcode", exit)
		return runtime.InvocationResult{ExitCode: exitcode.SysErrorIllegalActor}, fmt.Sprintf("actor returned system exit code %d", exit), false, nil
	}

	ret = runtime.InvocationResult{ExitCode: exit}
	if retID != runtime.NoBlock {
		blk, berr := f.Blocks.Get(retID)
		if berr != nil {
			return runtime.InvocationResult{ExitCode: exitcode.SysErrorIllegalActor}, fmt.Sprintf("invalid return handle: %s", berr), false, nil
		}
		ret.Return = blk.Data
		ret.ReturnCodec = blk.Codec
	}
	return ret, "", false, nil
}

// resolveTarget finds the receiving actor, creating an account actor when the
// target is a key address nobody has used yet.
func (cm *CallManager) resolveTarget(f *kernel.Frame, to address.Address) (*state.Actor, error) {
	id, err := cm.st.LookupID(to)
	if err == nil {
		act, found, err := cm.st.GetActorByID(id)
		if err != nil {
			return nil, aerrors.Escalate(err, "loading receiver")
		}
		if !found {
			runtime.Abortf(exitcode.SysErrInvalidReceiver, "actor %s not found", to)
		}
		return act, nil
	}
	if !errors.Is(err, state.ErrActorNotFound) || !builtin.IsPrincipal(to) {
		runtime.Abortf(exitcode.SysErrInvalidReceiver, "actor %s not found", to)
	}

	f.Gas.Charge(cm.env.Pricelist.OnCreateActor(), "create account actor")
	id, err = cm.st.RegisterNewAddress(to)
	if err != nil {
		return nil, aerrors.Escalate(err, "registering account address")
	}

	buf := new(bytes.Buffer)
	if err := (&builtin.AccountState{Address: to}).MarshalCBOR(buf); err != nil {
		return nil, aerrors.Escalate(err, "encoding account state")
	}
	head, err := f.Store.Put(cm.ctx, runtime.CodecDagCBOR, buf.Bytes())
	if err != nil {
		return nil, aerrors.Escalate(err, "storing account state")
	}

	act := state.NewActor(builtin.AccountActorCodeID, head, big.Zero())
	act.ID = id
	act.Address = to
	if err := cm.st.SetActor(cm.ctx, act); err != nil {
		return nil, aerrors.Escalate(err, "storing account actor")
	}
	log.Debugw("created account actor", "id", id, "address", cm.env.FormatAddress(to))
	return act, nil
}

// transfer moves amount between two actors inside the active frame.
func (cm *CallManager) transfer(from, to abi.ActorID, amount abi.TokenAmount) error {
	if amount.LessThan(big.Zero()) {
		runtime.Abortf(exitcode.SysErrForbidden, "attempt to transfer negative value %s from %d to %d", amount, from, to)
	}
	if amount.IsZero() {
		return nil
	}

	fromActor, found, err := cm.st.GetActorByID(from)
	if err != nil {
		return aerrors.Escalate(err, "loading sender")
	}
	if !found {
		return aerrors.Fatalf("unreachable: sender %d not found", from)
	}
	if fromActor.Balance.LessThan(amount) {
		runtime.Abortf(exitcode.SysErrInsufficientFunds, "sender %d insufficient balance %s to transfer %s to %d", from, fromActor.Balance, amount, to)
	}
	if from == to {
		log.Debugw("sending to same actor ID: noop", "actor", from)
		return nil
	}

	toActor, found, err := cm.st.GetActorByID(to)
	if err != nil {
		return aerrors.Escalate(err, "loading receiver")
	}
	if !found {
		return aerrors.Fatalf("unreachable: receiver %d not found", to)
	}

	fromActor.Balance = big.Sub(fromActor.Balance, amount)
	toActor.Balance = big.Add(toActor.Balance, amount)
	if err := cm.st.SetActor(cm.ctx, fromActor); err != nil {
		return aerrors.Escalate(err, "debiting sender")
	}
	if err := cm.st.SetActor(cm.ctx, toActor); err != nil {
		return aerrors.Escalate(err, "crediting receiver")
	}
	return nil
}

// selfDestruct deletes the frame's actor and hands its balance to the
// beneficiary the actor named.
func (cm *CallManager) selfDestruct(f *kernel.Frame) (exitcode.ExitCode, error) {
	act, found, err := cm.st.GetActorByID(f.Receiver)
	if err != nil {
		return 0, aerrors.Escalate(err, "loading deleted actor")
	}
	if !found {
		return exitcode.SysErrorIllegalActor, nil
	}
	beneficiary, found, err := cm.st.GetActorByID(*f.SelfDestruct)
	if err != nil {
		return 0, aerrors.Escalate(err, "loading beneficiary")
	}
	if !found {
		return exitcode.SysErrorIllegalActor, nil
	}

	beneficiary.Balance = big.Add(beneficiary.Balance, act.Balance)
	if err := cm.st.SetActor(cm.ctx, beneficiary); err != nil {
		return 0, aerrors.Escalate(err, "crediting beneficiary")
	}
	if err := cm.st.DeleteActor(cm.ctx, act.IDAddress()); err != nil {
		return 0, aerrors.Escalate(err, "deleting actor")
	}
	log.Debugw("actor deleted", "id", act.ID, "beneficiary", beneficiary.ID, "balance", act.Balance)
	return exitcode.Ok, nil
}
