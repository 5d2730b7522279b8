package kernel

import (
	"bytes"
	"context"
	"errors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/filecoin-project/go-state-types/network"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/minio/blake2b-simd"

	"github.com/filecoin-project/venus-fvm/pkg/vm/aerrors"
	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/builtin"
	"github.com/filecoin-project/venus-fvm/pkg/vm/externs"
	"github.com/filecoin-project/venus-fvm/pkg/vm/gas"
	"github.com/filecoin-project/venus-fvm/pkg/vm/registry"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
	"github.com/filecoin-project/venus-fvm/pkg/vm/state"
)

var log = logging.Logger("vm.kernel")

// DefaultKernel is the kernel every frame gets unless decorated.
type DefaultKernel struct {
	cm    CallManager
	frame *Frame
	env   *Env
	pl    gas.Pricelist
	store *GasChargeBlockStore
}

var _ runtime.Kernel = (*DefaultKernel)(nil)

// New is the default Builder.
func New(cm CallManager, f *Frame) runtime.Kernel {
	env := cm.Env()
	return &DefaultKernel{
		cm:    cm,
		frame: f,
		env:   env,
		pl:    env.Pricelist,
		store: newGasChargeBlockStore(f.Store, env.Pricelist, f.Gas),
	}
}

func (k *DefaultKernel) ctx() context.Context {
	return k.cm.Context()
}

func (k *DefaultKernel) charge(gc gas.GasCharge) {
	k.frame.Gas.Charge(gc, "%s", gc.Name)
}

// fatal unwinds every frame of the message.
func fatal(err error, msg string) {
	panic(aerrors.Escalate(err, msg))
}

func (k *DefaultKernel) self() *state.Actor {
	act, found, err := k.cm.StateTree().GetActorByID(k.frame.Receiver)
	if err != nil {
		fatal(err, "loading receiver actor")
	}
	if !found {
		panic(aerrors.Fatalf("receiver actor %d not found", k.frame.Receiver))
	}
	return act
}

func idAddress(id abi.ActorID) address.Address {
	addr, err := address.NewIDAddress(uint64(id))
	if err != nil {
		panic(aerrors.Fatalf("invalid actor id %d: %s", id, err))
	}
	return addr
}

//
// ipld
//

func (k *DefaultKernel) Root() cid.Cid {
	return k.self().Head
}

func (k *DefaultKernel) SetRoot(c cid.Cid) error {
	k.charge(k.pl.OnSetRoot())
	if k.frame.SelfDestruct != nil {
		return runtime.Errorf(runtime.ErrIllegalOperation, "actor %d has been deleted", k.frame.Receiver)
	}
	has, err := k.frame.Store.Has(k.ctx(), c)
	if err != nil {
		fatal(err, "checking new state root")
	}
	if !has {
		return runtime.Errorf(runtime.ErrNotFound, "new root %s is not in the store", c)
	}

	act := k.self()
	act.Head = c
	if err := k.cm.StateTree().SetActor(k.ctx(), act); err != nil {
		fatal(err, "storing new state root")
	}
	return nil
}

func (k *DefaultKernel) BlockOpen(c cid.Cid) (runtime.BlockID, runtime.BlockStat, error) {
	codec := c.Prefix().Codec
	if !runtime.ValidCodec(codec) {
		return runtime.NoBlock, runtime.BlockStat{}, runtime.Errorf(runtime.ErrIllegalCodec, "cannot open block with codec %x", codec)
	}
	// the base price is due before the store is touched, the size dependent
	// part once the size is known
	base := k.pl.OnBlockOpen(0)
	k.charge(base)
	data, err := k.frame.Store.GetRaw(k.ctx(), c)
	if err != nil {
		if errors.Is(err, bufstore.ErrNotFound) {
			return runtime.NoBlock, runtime.BlockStat{}, runtime.Errorf(runtime.ErrNotFound, "block %s not found", c)
		}
		fatal(err, "opening block")
	}
	if perByte := k.pl.OnBlockOpen(len(data)).Total() - base.Total(); perByte > 0 {
		k.charge(gas.NewGasCharge("OnBlockOpenPerByte", perByte, 0))
	}
	id, err := k.frame.Blocks.Put(codec, data)
	if err != nil {
		return runtime.NoBlock, runtime.BlockStat{}, err
	}
	return id, runtime.BlockStat{Codec: codec, Size: uint32(len(data))}, nil
}

func (k *DefaultKernel) BlockCreate(codec uint64, data []byte) (runtime.BlockID, error) {
	k.charge(k.pl.OnBlockCreate(len(data)))
	if k.env.MaxBlockSize > 0 && len(data) > k.env.MaxBlockSize {
		return runtime.NoBlock, runtime.Errorf(runtime.ErrLimitExceeded, "block of %d bytes exceeds the limit of %d", len(data), k.env.MaxBlockSize)
	}
	id, err := k.frame.Blocks.Put(codec, data)
	if err != nil {
		return runtime.NoBlock, err
	}
	if _, err := k.frame.Store.Put(k.ctx(), codec, data); err != nil {
		fatal(err, "buffering block")
	}
	return id, nil
}

func (k *DefaultKernel) BlockRead(id runtime.BlockID, offset uint32, buf []byte) (int, error) {
	k.charge(k.pl.OnBlockRead(len(buf)))
	blk, err := k.frame.Blocks.Get(id)
	if err != nil {
		return 0, err
	}
	if int(offset) > len(blk.Data) {
		return 0, runtime.Errorf(runtime.ErrIllegalArgument, "offset %d is past the end of block %d (%d bytes)", offset, id, len(blk.Data))
	}
	return copy(buf, blk.Data[offset:]), nil
}

func (k *DefaultKernel) BlockStat(id runtime.BlockID) (runtime.BlockStat, error) {
	k.charge(k.pl.OnBlockStat())
	return k.frame.Blocks.Stat(id)
}

func (k *DefaultKernel) BlockLink(id runtime.BlockID) (cid.Cid, error) {
	blk, err := k.frame.Blocks.Get(id)
	if err != nil {
		return cid.Undef, err
	}
	k.charge(k.pl.OnBlockLink(len(blk.Data)))
	c, err := k.frame.Store.Put(k.ctx(), blk.Codec, blk.Data)
	if err != nil {
		fatal(err, "linking block")
	}
	return c, nil
}

//
// send
//

func (k *DefaultKernel) Send(to address.Address, method abi.MethodNum, params runtime.BlockID, value abi.TokenAmount, gasLimit int64) (runtime.SendResult, error) {
	var blk *registry.Block
	if params != runtime.NoBlock {
		b, err := k.frame.Blocks.Get(params)
		if err != nil {
			return runtime.SendResult{}, err
		}
		blk = &b
	}

	res, err := k.cm.Send(k.frame.Receiver, to, method, blk, value, gasLimit)
	if err != nil {
		// fatal errors unwind the whole call stack
		panic(err)
	}

	out := runtime.SendResult{ExitCode: res.ExitCode, GasUsed: res.GasUsed}
	if len(res.Return) > 0 {
		id, err := k.frame.Blocks.Put(res.ReturnCodec, res.Return)
		if err != nil {
			return out, err
		}
		out.Return = id
	}
	return out, nil
}

//
// validation
//

func (k *DefaultKernel) validateOnce() {
	k.charge(k.pl.OnValidateCaller())
	if k.frame.CallerValidated {
		runtime.Abortf(exitcode.SysErrorIllegalActor, "Method must validate caller identity exactly once")
	}
	k.frame.CallerValidated = true
}

func (k *DefaultKernel) ValidateImmediateCallerAcceptAny() {
	k.validateOnce()
}

func (k *DefaultKernel) ValidateImmediateCallerIs(addrs ...address.Address) {
	k.validateOnce()
	for _, addr := range addrs {
		id, err := k.cm.StateTree().LookupID(addr)
		if err != nil {
			continue
		}
		if id == k.frame.Caller {
			return
		}
	}
	runtime.Abortf(exitcode.SysErrForbidden, "caller %s is not one of %s", k.Caller(), addrs)
}

func (k *DefaultKernel) ValidateImmediateCallerType(codes ...cid.Cid) {
	k.validateOnce()
	caller, found, err := k.cm.StateTree().GetActorByID(k.frame.Caller)
	if err != nil {
		fatal(err, "loading caller actor")
	}
	if !found {
		runtime.Abortf(exitcode.SysErrForbidden, "caller %d no longer exists", k.frame.Caller)
	}
	for _, c := range codes {
		if c.Equals(caller.Code) {
			return
		}
	}
	runtime.Abortf(exitcode.SysErrForbidden, "caller %s of type %s is not one of %s", k.Caller(), caller.Code, codes)
}

//
// rand
//

func (k *DefaultKernel) GetRandomnessFromTickets(pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) (abi.Randomness, error) {
	k.charge(k.pl.OnGetRandomness(len(entropy)))
	if round > k.env.Epoch {
		return nil, runtime.Errorf(runtime.ErrIllegalArgument, "randomness requested for future epoch %d (current %d)", round, k.env.Epoch)
	}
	r, err := k.env.Externs.Rand.GetChainRandomness(k.ctx(), pers, round, entropy)
	if err != nil {
		fatal(err, "could not get ticket randomness")
	}
	return r, nil
}

func (k *DefaultKernel) GetRandomnessFromBeacon(pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) (abi.Randomness, error) {
	k.charge(k.pl.OnGetRandomness(len(entropy)))
	if round > k.env.Epoch {
		return nil, runtime.Errorf(runtime.ErrIllegalArgument, "randomness requested for future epoch %d (current %d)", round, k.env.Epoch)
	}
	r, err := k.env.Externs.Rand.GetBeaconRandomness(k.ctx(), pers, round, entropy)
	if err != nil {
		fatal(err, "could not get beacon randomness")
	}
	return r, nil
}

//
// gas
//

func (k *DefaultKernel) ChargeGas(name string, compute int64) error {
	if compute < 0 {
		return runtime.Errorf(runtime.ErrIllegalArgument, "cannot charge negative gas %d", compute)
	}
	k.charge(gas.NewGasCharge(name, compute, 0))
	return nil
}

func (k *DefaultKernel) GasAvailable() int64 {
	return k.frame.Gas.Remaining()
}

func (k *DefaultKernel) GasUsed() int64 {
	return k.frame.Gas.GasUsed
}

//
// self
//

func (k *DefaultKernel) SelfDestruct(beneficiary address.Address) error {
	k.charge(k.pl.OnDeleteActor())
	if k.frame.SelfDestruct != nil {
		return runtime.Errorf(runtime.ErrIllegalOperation, "actor %d already deleted", k.frame.Receiver)
	}
	id, err := k.cm.StateTree().LookupID(beneficiary)
	if err != nil {
		return runtime.Errorf(runtime.ErrIllegalOperation, "beneficiary %s not found", beneficiary)
	}
	if id == k.frame.Receiver {
		return runtime.Errorf(runtime.ErrIllegalOperation, "benefactor cannot be beneficiary")
	}
	if _, found, err := k.cm.StateTree().GetActorByID(id); err != nil {
		fatal(err, "loading beneficiary")
	} else if !found {
		return runtime.Errorf(runtime.ErrIllegalOperation, "beneficiary %s not found", beneficiary)
	}
	k.frame.SelfDestruct = &id
	return nil
}

func (k *DefaultKernel) CurrentBalance() abi.TokenAmount {
	return k.self().Balance
}

//
// event
//

func (k *DefaultKernel) EmitEvent(ev runtime.Event) error {
	k.charge(k.pl.OnEmitEvent(len(ev.Entries), ev.Size()))
	if len(ev.Entries) == 0 {
		return runtime.Errorf(runtime.ErrIllegalArgument, "event has no entries")
	}
	for i, e := range ev.Entries {
		if e.Key == "" {
			return runtime.Errorf(runtime.ErrIllegalArgument, "entry %d has an empty key", i)
		}
		if !runtime.ValidCodec(e.Codec) {
			return runtime.Errorf(runtime.ErrIllegalCodec, "entry %d has codec %x", i, e.Codec)
		}
	}
	ev.Emitter = k.frame.Receiver
	k.frame.Events = append(k.frame.Events, ev)
	return nil
}

//
// network
//

func (k *DefaultKernel) NetworkEpoch() abi.ChainEpoch {
	return k.env.Epoch
}

func (k *DefaultKernel) NetworkVersion() network.Version {
	return k.env.NetworkVersion
}

func (k *DefaultKernel) BaseFee() abi.TokenAmount {
	return k.env.BaseFee
}

func (k *DefaultKernel) TotalFilCircSupply() abi.TokenAmount {
	return k.env.CircSupply
}

//
// message
//

func (k *DefaultKernel) Caller() address.Address {
	return idAddress(k.frame.Caller)
}

func (k *DefaultKernel) Receiver() address.Address {
	return idAddress(k.frame.Receiver)
}

func (k *DefaultKernel) ValueReceived() abi.TokenAmount {
	return k.frame.Value
}

func (k *DefaultKernel) MethodNumber() abi.MethodNum {
	return k.frame.Method
}

func (k *DefaultKernel) Origin() address.Address {
	return k.cm.Origin()
}

func (k *DefaultKernel) Nonce() uint64 {
	return k.cm.Nonce()
}

//
// crypto
//

func (k *DefaultKernel) HashBlake2b(data []byte) [32]byte {
	k.charge(k.pl.OnHashing(len(data)))
	return blake2b.Sum256(data)
}

func (k *DefaultKernel) VerifySignature(sig crypto.Signature, signer address.Address, plaintext []byte) (bool, error) {
	gc, err := k.pl.OnVerifySignature(sig.Type, len(plaintext))
	if err != nil {
		return false, runtime.Errorf(runtime.ErrIllegalArgument, "%s", err)
	}
	k.charge(gc)

	key, err := k.resolveKey(signer)
	if err != nil {
		return false, err
	}
	if err := k.env.Externs.Verifier.VerifySignature(k.ctx(), sig, key, plaintext); err != nil {
		log.Debugw("signature verification failed", "signer", signer, "err", err)
		return false, nil
	}
	return true, nil
}

// resolveKey turns signer into the key address of the account behind it.
func (k *DefaultKernel) resolveKey(signer address.Address) (address.Address, error) {
	if builtin.IsPrincipal(signer) {
		return signer, nil
	}
	id, err := k.cm.StateTree().LookupID(signer)
	if err != nil {
		return address.Undef, runtime.Errorf(runtime.ErrNotFound, "signer %s not found", signer)
	}
	act, found, err := k.cm.StateTree().GetActorByID(id)
	if err != nil {
		fatal(err, "loading signer")
	}
	if !found {
		return address.Undef, runtime.Errorf(runtime.ErrNotFound, "signer %s not found", signer)
	}
	if !builtin.IsAccountActor(act.Code) {
		return address.Undef, runtime.Errorf(runtime.ErrIllegalArgument, "signer %s is not an account", signer)
	}

	raw, err := k.store.GetRaw(k.ctx(), act.Head)
	if err != nil {
		fatal(err, "loading signer state")
	}
	var st builtin.AccountState
	if err := st.UnmarshalCBOR(bytes.NewReader(raw)); err != nil {
		return address.Undef, runtime.Errorf(runtime.ErrSerialization, "decoding signer state: %s", err)
	}
	return st.Address, nil
}

func (k *DefaultKernel) VerifyConsensusFault(h1, h2, extra []byte) (*externs.ConsensusFault, error) {
	k.charge(k.pl.OnVerifyConsensusFault())
	fault, used, err := k.env.Externs.Faults.VerifyConsensusFault(k.ctx(), h1, h2, extra)
	if used > 0 {
		k.charge(gas.NewGasCharge("OnVerifyConsensusFaultExtern", used, 0))
	}
	if err != nil {
		log.Debugw("consensus fault verification failed", "err", err)
		return nil, nil
	}
	return fault, nil
}

//
// actor
//

func (k *DefaultKernel) CreateActor(code cid.Cid, addr address.Address) (abi.ActorID, error) {
	k.charge(k.pl.OnCreateActor())
	if _, ok := k.cm.CodeLoader().LoadCode(code); !ok {
		return 0, runtime.Errorf(runtime.ErrIllegalArgument, "no code for %s", code)
	}
	if addr != address.Undef && addr.Protocol() == address.ID {
		return 0, runtime.Errorf(runtime.ErrIllegalArgument, "cannot create actor at id address %s", addr)
	}

	st := k.cm.StateTree()
	id, err := st.RegisterNewAddress(addr)
	if err != nil {
		return 0, runtime.Errorf(runtime.ErrForbidden, "%s", err)
	}
	head, err := k.store.Put(k.ctx(), runtime.CodecDagCBOR, builtin.EmptyObject)
	if err != nil {
		fatal(err, "storing empty actor state")
	}
	act := state.NewActor(code, head, big.Zero())
	act.ID = id
	act.Address = addr
	if err := st.SetActor(k.ctx(), act); err != nil {
		fatal(err, "storing new actor")
	}
	log.Debugw("created actor", "id", id, "code", code, "address", addr)
	return id, nil
}

func (k *DefaultKernel) NewActorAddress() (address.Address, error) {
	addr, err := k.cm.NewActorAddress()
	if err != nil {
		return address.Undef, runtime.Errorf(runtime.ErrIllegalArgument, "%s", err)
	}
	return addr, nil
}

func (k *DefaultKernel) ResolveAddress(addr address.Address) (abi.ActorID, error) {
	id, err := k.cm.StateTree().LookupID(addr)
	if err != nil {
		return 0, runtime.Errorf(runtime.ErrNotFound, "cannot resolve %s", addr)
	}
	return id, nil
}

func (k *DefaultKernel) GetActorCodeCID(id abi.ActorID) (cid.Cid, error) {
	act, found, err := k.cm.StateTree().GetActorByID(id)
	if err != nil {
		fatal(err, "loading actor")
	}
	if !found {
		return cid.Undef, runtime.Errorf(runtime.ErrNotFound, "actor %d not found", id)
	}
	return act.Code, nil
}

func (k *DefaultKernel) Abort(code exitcode.ExitCode, msg string) {
	runtime.Abort(code, msg)
}
