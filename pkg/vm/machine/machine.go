// Package machine turns top level messages into state root transitions. It
// owns the state tree, the root buffer layer and the environment every call
// manager it creates runs against.
package machine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/hashicorp/go-multierror"
	"github.com/ipfs/go-cid"
	blockstore "github.com/ipfs/go-ipfs-blockstore"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	cbg "github.com/whyrusleeping/cbor-gen"
	octrace "go.opencensus.io/trace"

	"github.com/filecoin-project/venus-fvm/pkg/config"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/callmanager"
	"github.com/filecoin-project/venus-fvm/pkg/vm/externs"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/kernel"
	"github.com/filecoin-project/venus-fvm/pkg/vm/register"
	"github.com/filecoin-project/venus-fvm/pkg/vm/registry"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/state"
	"github.com/filecoin-project/venus-fvm/pkg/vm/syscalls"
	"github.com/filecoin-project/venus-fvm/pkg/vm/trace"
)

var log = logging.Logger("vm.machine")

// ErrInitialization is wrapped by every error New returns.
var ErrInitialization = errors.New("machine initialization failed")

// BlockGasLimit is the gas limit of a block, implicit messages get 10000 times that.
const BlockGasLimit = 10_000_000_000

// Option configures a Machine.
type Option func(*Machine)

// WithCodeLoader replaces the builtin actors with loader.
func WithCodeLoader(loader runtime.CodeLoader) Option {
	return func(m *Machine) {
		m.loader = loader
	}
}

// WithPricesSchedule overrides the gas schedule selected by the config.
func WithPricesSchedule(ps *gas.PricesSchedule) Option {
	return func(m *Machine) {
		m.schedule = ps
	}
}

// WithVerifier replaces the secp256k1 signature verifier.
func WithVerifier(v externs.SignatureVerifier) Option {
	return func(m *Machine) {
		m.verifier = v
	}
}

// WithKernelDecorators wraps the kernel of every frame, innermost first.
func WithKernelDecorators(decorators ...kernel.Decorator) Option {
	return func(m *Machine) {
		m.decorators = append(m.decorators, decorators...)
	}
}

// WithTracing records an execution trace for every message.
func WithTracing(on bool) Option {
	return func(m *Machine) {
		m.tracing = on
	}
}

// WithCloser registers a resource released by Close, usually the durable store.
func WithCloser(c io.Closer) Option {
	return func(m *Machine) {
		m.closers = append(m.closers, c)
	}
}

// Machine executes messages one at a time.
type Machine struct {
	lk sync.Mutex

	ctx context.Context
	cfg *config.Config
	env *kernel.Env

	loader      runtime.CodeLoader
	schedule    *gas.PricesSchedule
	verifier    externs.SignatureVerifier
	decorators  []kernel.Decorator
	tracing     bool
	detailedGas bool

	debugger *VMDebugMsg
	closers  []io.Closer
	syscalls *syscalls.Table

	store *bufstore.Layer
	st    *state.State
	root  cid.Cid
}

var _ Interface = (*Machine)(nil)

// New creates a machine over the state rooted at root in bs. An undefined root
// starts from an empty state tree.
func New(ctx context.Context,
	cfg *config.Config,
	bs blockstore.Blockstore,
	root cid.Cid,
	netCtx NetworkContext,
	rand externs.Rand,
	faults externs.ConsensusFaultChecker,
	opts ...Option,
) (*Machine, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInitialization, "invalid config: %s", err)
	}
	maxBlockSize, err := cfg.Execution.MaxBlockSizeBytes()
	if err != nil {
		return nil, errors.Wrapf(ErrInitialization, "%s", err)
	}

	m := &Machine{
		ctx:         ctx,
		cfg:         cfg,
		loader:      register.GetDefaultActors(),
		schedule:    scheduleByName(cfg.Gas.Schedule),
		verifier:    externs.SecpVerifier{},
		tracing:     cfg.Execution.Tracing,
		detailedGas: cfg.Gas.DetailedTracing || gas.EnableDetailedTracing,
		store:       bufstore.New(bs),
	}
	for _, o := range opts {
		o(m)
	}
	if cfg.Execution.DebugFile != "" {
		m.debugger = NewVMDebugMsg()
		m.tracing = true
	}

	baseFee := netCtx.BaseFee
	if baseFee.Int == nil {
		baseFee = big.Zero()
	}
	circ := netCtx.CircSupply
	if circ.Int == nil {
		circ = big.Zero()
	}
	m.env = &kernel.Env{
		Epoch:          netCtx.Epoch,
		NetworkVersion: netCtx.NetworkVersion,
		BaseFee:        baseFee,
		CircSupply:     circ,
		Network:        cfg.Network.AddressNetwork(),
		MaxBlockSize:   maxBlockSize,
		MaxBlocks:      cfg.Execution.MaxBlocks,
		Pricelist:      m.schedule.PricelistByVersion(netCtx.NetworkVersion),
		Externs: kernel.Externs{
			Rand:     rand,
			Faults:   faults,
			Verifier: m.verifier,
		},
	}

	m.syscalls = syscalls.NewTable(m.env.Pricelist)

	if root == cid.Undef {
		m.st = state.NewState(m.store)
		if m.root, err = m.flush(ctx); err != nil {
			return nil, errors.Wrapf(ErrInitialization, "writing empty state: %s", err)
		}
	} else {
		m.st, err = state.LoadState(ctx, m.store, root)
		if err != nil {
			return nil, errors.Wrapf(ErrInitialization, "loading state root %s: %s", root, err)
		}
		m.root = root
	}

	log.Infow("machine created", "root", m.root, "epoch", netCtx.Epoch, "nv", netCtx.NetworkVersion, "network", cfg.Network.Network)
	return m, nil
}

func scheduleByName(name string) *gas.PricesSchedule {
	switch name {
	case "genesis":
		return gas.NewFixedSchedule(gas.PricelistGenesis())
	case "calico":
		return gas.NewFixedSchedule(gas.PricelistCalico())
	default:
		return gas.DefaultPricesSchedule()
	}
}

// Context returns the context the machine was created with.
func (m *Machine) Context() context.Context {
	return m.ctx
}

// Env returns the environment shared by all frames.
func (m *Machine) Env() *kernel.Env {
	return m.env
}

// Syscalls is the table sandboxed actor code is linked against, priced with
// the machine's pricelist.
func (m *Machine) Syscalls() *syscalls.Table {
	return m.syscalls
}

// StateTree exposes the pending state tree, including nonce increments of
// messages that did not commit yet.
func (m *Machine) StateTree() *state.State {
	return m.st
}

// StateRoot is the root of the last committed state.
func (m *Machine) StateRoot() cid.Cid {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.root
}

// ExecuteMessage applies msg on top of the current state. Failing messages are
// reported through the receipt; a non-nil error means the machine itself is
// broken and must not be used further.
func (m *Machine) ExecuteMessage(ctx context.Context, msg *Message) (*Ret, error) {
	m.lk.Lock()
	defer m.lk.Unlock()

	ctx, span := octrace.StartSpan(ctx, "Machine.ExecuteMessage")
	defer span.End()
	if span.IsRecordingEvents() {
		span.AddAttributes(
			octrace.StringAttribute("from", m.env.FormatAddress(msg.From)),
			octrace.StringAttribute("to", m.env.FormatAddress(msg.To)),
			octrace.Int64Attribute("method", int64(msg.Method)),
			octrace.Int64Attribute("gasLimit", msg.GasLimit),
		)
	}

	return m.applyMessage(ctx, msg, msg.ChainLength())
}

// applyMessage deals with the pre and post processing of a message. The
// dispatch itself happens in the call manager.
func (m *Machine) applyMessage(ctx context.Context, msg *Message, onChainMsgSize int) (*Ret, error) {
	start := time.Now()
	pl := m.env.Pricelist

	// pre-send
	// 1. charge for message existence
	// 2. load sender actor
	// 3. check message seq number
	// 4. increment message seq number
	gasTank := gas.NewGasTracker(msg.GasLimit).WithDetailedTracing(m.detailedGas)

	// 1. charge for bytes used in chain
	if !gasTank.TryCharge(pl.OnChainMessage(onChainMsgSize)) {
		// Invalid message; insufficient gas limit to pay for the on-chain message size.
		return &Ret{
			GasTracker: gasTank,
			Receipt:    Failure(exitcode.SysErrOutOfGas, 0),
			Duration:   time.Since(start),
		}, nil
	}

	// 2. load sender actor and check the sender is an account
	fromActor, found, err := m.st.GetActor(ctx, msg.From)
	if err != nil {
		return nil, errors.Wrapf(err, "loading sender %s", msg.From)
	}
	if !found || !builtin.IsAccountActor(fromActor.Code) {
		// Execution error; sender does not exist or is not an account.
		return &Ret{
			GasTracker: gasTank,
			Receipt:    Failure(exitcode.SysErrSenderInvalid, 0),
			Duration:   time.Since(start),
		}, nil
	}

	// 3. make sure this is the right message order for fromActor
	if msg.Nonce != fromActor.Nonce {
		return &Ret{
			GasTracker: gasTank,
			Receipt:    Failure(exitcode.SysErrSenderStateInvalid, 0),
			Duration:   time.Since(start),
		}, nil
	}

	// 4. increment sender nonce, kept even if the message fails
	fromActor.IncrementSeqNum()
	if err := m.st.SetActor(ctx, fromActor); err != nil {
		return nil, errors.Wrap(err, "incrementing sender nonce")
	}

	ret, err := m.send(ctx, gasTank, fromActor, msg, msg.Nonce)
	if err != nil {
		return nil, err
	}
	ret.Duration = time.Since(start)
	return ret, nil
}

// ApplyImplicitMessage applies a message generated by the system itself. It
// does not consume client gas, skips the nonce check and must not fail.
func (m *Machine) ApplyImplicitMessage(ctx context.Context, msg *Message) (*Ret, error) {
	m.lk.Lock()
	defer m.lk.Unlock()

	ctx, span := octrace.StartSpan(ctx, "Machine.ApplyImplicitMessage")
	defer span.End()
	start := time.Now()

	// implicit messages gas is tracked separately and not paid by anyone
	gasTank := gas.NewGasTracker(BlockGasLimit * 10000).WithDetailedTracing(m.detailedGas)

	fromActor, found, err := m.st.GetActor(ctx, msg.From)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("implicit message `From` field actor not found, addr: %s", msg.From)
	}

	// the implied nonce is that of the actor, which is not incremented
	ret, err := m.send(ctx, gasTank, fromActor, msg, fromActor.Nonce)
	if err != nil {
		return nil, err
	}
	if code := ret.Receipt.ExitCode; code != exitcode.Ok {
		return nil, fmt.Errorf("invalid exit code %d during implicit message execution: from %s, to %s, method %d, value %s, params %x",
			code, msg.From, msg.To, msg.Method, msg.Value, msg.Params)
	}
	ret.Receipt.GasUsed = 0
	ret.Duration = time.Since(start)
	return ret, nil
}

// send runs the message through a fresh call manager and commits the result
// when it succeeds.
func (m *Machine) send(ctx context.Context, gasTank *gas.GasTracker, from *state.Actor, msg *Message, nonce uint64) (*Ret, error) {
	var tracer *trace.Tracer
	if m.tracing {
		tracer = trace.New()
	}

	origin := from.Address
	if origin == address.Undef {
		origin = from.IDAddress()
	}

	msgStore := m.store.Child()
	cm := callmanager.New(ctx, m.env, m.st, msgStore, m.loader, origin, nonce,
		callmanager.WithKernelBuilder(kernel.Decorate(kernel.New, m.decorators...)),
		callmanager.WithTracer(tracer),
		callmanager.WithDetailedGas(m.detailedGas),
	)

	var params *registry.Block
	if len(msg.Params) > 0 {
		params = &registry.Block{Codec: runtime.CodecDagCBOR, Data: msg.Params}
	}

	// Even if the message fails, everything before this snapshot is kept.
	m.st.Snapshot()
	res, err := cm.Send(from.ID, msg.To, msg.Method, params, msg.Value, gasTank.Remaining())
	if err != nil {
		msgStore.Discard()
		m.st.RevertSnapshot()
		log.Errorw("fatal error executing message", "msg", msg.String(), "err", err)
		return nil, fmt.Errorf("fatal error executing %s: %w", msg, err)
	}
	gasTank.ChargeChild(res.GasUsed)

	// post-send
	// 1. charge gas for putting the return value on the chain
	// 2. commit or roll back
	code, retData := res.ExitCode, res.Return
	if !gasTank.TryCharge(m.env.Pricelist.OnChainReturnValue(len(retData))) {
		// Insufficient gas remaining to cover the on-chain return value; proceed as in the case
		// of method execution failure.
		code = exitcode.SysErrOutOfGas
		retData = nil
	}
	if retData == nil {
		retData = []byte{}
	}

	ret := &Ret{
		GasTracker: gasTank,
		Receipt: Receipt{
			ExitCode: code,
			Return:   retData,
			GasUsed:  gasTank.GasUsed,
		},
	}

	if code != exitcode.Ok {
		msgStore.Discard()
		m.st.RevertSnapshot()
	} else {
		m.st.ClearSnapshot()
		if err := msgStore.Merge(); err != nil {
			return nil, errors.Wrap(err, "merging message buffer")
		}

		ret.Events = cm.Events()
		if len(ret.Events) > 0 {
			eventsRoot, err := m.storeEvents(ctx, ret.Events)
			if err != nil {
				return nil, err
			}
			ret.Receipt.EventsRoot = &eventsRoot
		}

		if m.root, err = m.flush(ctx); err != nil {
			return nil, errors.Wrap(err, "committing message")
		}
	}

	if tracer != nil {
		et, err := tracer.Tree()
		if err != nil {
			return nil, errors.Wrap(err, "building execution trace")
		}
		ret.Trace = et
		m.debugTrace(msg, ret)
	}

	log.Debugw("message applied", "msg", msg.String(), "exitcode", code, "gasUsed", ret.Receipt.GasUsed, "root", m.root)
	return ret, nil
}

// storeEvents writes the events of a committed message as one array block.
func (m *Machine) storeEvents(ctx context.Context, events []runtime.Event) (cid.Cid, error) {
	buf := new(bytes.Buffer)
	if err := cbg.WriteMajorTypeHeader(buf, cbg.MajArray, uint64(len(events))); err != nil {
		return cid.Undef, err
	}
	for i := range events {
		if err := events[i].MarshalCBOR(buf); err != nil {
			return cid.Undef, errors.Wrapf(err, "encoding event %d", i)
		}
	}
	return m.store.Put(ctx, runtime.CodecDagCBOR, buf.Bytes())
}

func (m *Machine) debugTrace(msg *Message, ret *Ret) {
	if m.debugger == nil {
		return
	}
	m.debugger.Printfln("message %s exit=%d gasUsed=%d", msg.Cid(), ret.Receipt.ExitCode, ret.Receipt.GasUsed)
	m.debugger.PrintTrace(ret.Trace)
	if err := m.debugger.WriteToFile(m.cfg.Execution.DebugFile); err != nil {
		log.Warnf("writing vm debug file %s: %s", m.cfg.Execution.DebugFile, err)
	}
}

// Flush writes the pending state, including nonces of failed messages, to the
// durable store and returns the new root.
func (m *Machine) Flush(ctx context.Context) (cid.Cid, error) {
	m.lk.Lock()
	defer m.lk.Unlock()

	root, err := m.flush(ctx)
	if err != nil {
		return cid.Undef, err
	}
	m.root = root
	return root, nil
}

func (m *Machine) flush(ctx context.Context) (cid.Cid, error) {
	root, err := m.st.Flush(ctx)
	if err != nil {
		return cid.Undef, fmt.Errorf("flushing state tree: %w", err)
	}
	if err := m.store.Flush(ctx); err != nil {
		return cid.Undef, fmt.Errorf("flushing blocks: %w", err)
	}
	return root, nil
}

// Close releases every resource registered with WithCloser.
func (m *Machine) Close() error {
	m.lk.Lock()
	defer m.lk.Unlock()

	var result *multierror.Error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	m.closers = nil
	return result.ErrorOrNil()
}
