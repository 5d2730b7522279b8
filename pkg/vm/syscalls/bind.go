package syscalls

import (
	"bytes"
	"math"
	gobig "math/big"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	cbg "github.com/whyrusleeping/cbor-gen"

	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

func bindings() []Syscall {
	return []Syscall{
		// ipld
		{"ipld", "block_open", 2, blockOpen},
		{"ipld", "block_create", 3, blockCreate},
		{"ipld", "block_read", 4, blockRead},
		{"ipld", "block_stat", 1, blockStat},
		{"ipld", "block_link", 3, blockLink},
		{"ipld", "root", 2, root},
		{"ipld", "set_root", 2, setRoot},

		// send
		{"send", "send", 7, send},

		// vm
		{"vm", "validate_immediate_caller_accept_any", 0, validateAcceptAny},
		{"vm", "validate_immediate_caller_is", 2, validateCallerIs},
		{"vm", "validate_immediate_caller_type", 2, validateCallerType},
		{"vm", "abort", 3, abort},

		// rand
		{"rand", "get_chain_randomness", 6, chainRandomness},
		{"rand", "get_beacon_randomness", 6, beaconRandomness},

		// gas
		{"gas", "charge", 3, chargeGas},
		{"gas", "available", 0, gasAvailable},
		{"gas", "used", 0, gasUsed},

		// self
		{"self", "current_balance", 0, currentBalance},
		{"self", "self_destruct", 2, selfDestruct},

		// event
		{"event", "emit_event", 2, emitEvent},

		// network
		{"network", "curr_epoch", 0, currEpoch},
		{"network", "version", 0, networkVersion},
		{"network", "base_fee", 0, baseFee},
		{"network", "total_fil_circ_supply", 0, circSupply},

		// message
		{"message", "caller", 0, caller},
		{"message", "receiver", 0, receiver},
		{"message", "method_number", 0, methodNumber},
		{"message", "value_received", 0, valueReceived},
		{"message", "origin", 0, origin},
		{"message", "nonce", 0, nonce},

		// crypto
		{"crypto", "hash_blake2b", 4, hashBlake2b},
		{"crypto", "verify_signature", 7, verifySignature},
		{"crypto", "verify_consensus_fault", 6, verifyConsensusFault},

		// actor
		{"actor", "resolve_address", 2, resolveAddress},
		{"actor", "get_actor_code_cid", 3, getActorCodeCid},
		{"actor", "new_actor_address", 2, newActorAddress},
		{"actor", "create_actor", 4, createActor},
	}
}

func ok(results ...uint64) ([]uint64, runtime.ErrorNumber) {
	return results, runtime.ErrNone
}

func fail(err error) ([]uint64, runtime.ErrorNumber) {
	return nil, runtime.ErrorNumberOf(err)
}

func errno(n runtime.ErrorNumber) ([]uint64, runtime.ErrorNumber) {
	return nil, n
}

func readCid(mem Memory, off, length uint64) (cid.Cid, runtime.ErrorNumber) {
	data, n := mem.Read(off, length)
	if n != runtime.ErrNone {
		return cid.Undef, n
	}
	c, err := cid.Cast(data)
	if err != nil {
		return cid.Undef, runtime.ErrIllegalCid
	}
	return c, runtime.ErrNone
}

func readAddress(mem Memory, off, length uint64) (address.Address, runtime.ErrorNumber) {
	data, n := mem.Read(off, length)
	if n != runtime.ErrNone {
		return address.Undef, n
	}
	addr, err := address.NewFromBytes(data)
	if err != nil {
		return address.Undef, runtime.ErrIllegalArgument
	}
	return addr, runtime.ErrNone
}

// writeOut writes data at (off, length) and returns its full length.
func writeOut(mem Memory, off, length uint64, data []byte) ([]uint64, runtime.ErrorNumber) {
	if _, n := mem.Write(off, length, data); n != runtime.ErrNone {
		return errno(n)
	}
	return ok(uint64(len(data)))
}

var mask64 = new(gobig.Int).SetUint64(^uint64(0))

// tokenWords splits a non-negative amount into its high and low 64 bits.
func tokenWords(v abi.TokenAmount) ([]uint64, runtime.ErrorNumber) {
	if v.Int == nil {
		return ok(0, 0)
	}
	if v.Sign() < 0 || v.Int.BitLen() > 128 {
		return errno(runtime.ErrAssertionFailed)
	}
	lo := new(gobig.Int).And(v.Int, mask64).Uint64()
	hi := new(gobig.Int).Rsh(v.Int, 64).Uint64()
	return ok(hi, lo)
}

func wordsToken(hi, lo uint64) abi.TokenAmount {
	x := new(gobig.Int).SetUint64(hi)
	x.Lsh(x, 64)
	x.Or(x, new(gobig.Int).SetUint64(lo))
	return big.NewFromGo(x)
}

// handle narrows a block handle argument, rejecting values that would
// alias another handle once truncated.
func handle(arg uint64) (runtime.BlockID, runtime.ErrorNumber) {
	if arg > math.MaxUint32 {
		return runtime.NoBlock, runtime.ErrInvalidHandle
	}
	return runtime.BlockID(arg), runtime.ErrNone
}

func idOf(addr address.Address) ([]uint64, runtime.ErrorNumber) {
	id, err := address.IDFromAddress(addr)
	if err != nil {
		return errno(runtime.ErrAssertionFailed)
	}
	return ok(id)
}

//
// ipld
//

func blockOpen(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	c, n := readCid(mem, args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	id, stat, err := k.BlockOpen(c)
	if err != nil {
		return fail(err)
	}
	return ok(uint64(id), stat.Codec, uint64(stat.Size))
}

func blockCreate(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	codec := args[0]
	if !runtime.ValidCodec(codec) {
		return errno(runtime.ErrIllegalCodec)
	}
	data, n := mem.Read(args[1], args[2])
	if n != runtime.ErrNone {
		return errno(n)
	}
	// the registry keeps the slice, memory may be overwritten later
	id, err := k.BlockCreate(codec, append([]byte(nil), data...))
	if err != nil {
		return fail(err)
	}
	return ok(uint64(id))
}

func blockRead(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	id, n := handle(args[0])
	if n != runtime.ErrNone {
		return errno(n)
	}
	if args[1] > math.MaxUint32 {
		return errno(runtime.ErrIllegalArgument)
	}
	buf, n := mem.Read(args[2], args[3])
	if n != runtime.ErrNone {
		return errno(n)
	}
	read, err := k.BlockRead(id, uint32(args[1]), buf)
	if err != nil {
		return fail(err)
	}
	return ok(uint64(read))
}

func blockStat(k runtime.Kernel, _ Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	id, n := handle(args[0])
	if n != runtime.ErrNone {
		return errno(n)
	}
	stat, err := k.BlockStat(id)
	if err != nil {
		return fail(err)
	}
	return ok(stat.Codec, uint64(stat.Size))
}

func blockLink(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	id, n := handle(args[0])
	if n != runtime.ErrNone {
		return errno(n)
	}
	c, err := k.BlockLink(id)
	if err != nil {
		return fail(err)
	}
	return writeOut(mem, args[1], args[2], c.Bytes())
}

func root(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	return writeOut(mem, args[0], args[1], k.Root().Bytes())
}

func setRoot(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	c, n := readCid(mem, args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	if err := k.SetRoot(c); err != nil {
		return fail(err)
	}
	return ok()
}

//
// send
//

// send takes (to_off, to_len, method, params, value_hi, value_lo, gas_limit)
// and returns (exit_code, return, gas_used).
func send(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	to, n := readAddress(mem, args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	params, n := handle(args[3])
	if n != runtime.ErrNone {
		return errno(n)
	}
	res, err := k.Send(to, abi.MethodNum(args[2]), params, wordsToken(args[4], args[5]), int64(args[6]))
	if err != nil {
		return fail(err)
	}
	return ok(uint64(res.ExitCode), uint64(res.Return), uint64(res.GasUsed))
}

//
// vm
//

func validateAcceptAny(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	k.ValidateImmediateCallerAcceptAny()
	return ok()
}

// validateCallerIs reads a cbor array of addresses.
func validateCallerIs(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	data, n := mem.Read(args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	br := cbg.GetPeeker(bytes.NewReader(data))
	maj, count, err := cbg.CborReadHeader(br)
	if err != nil || maj != cbg.MajArray || count > uint64(len(data)) {
		return errno(runtime.ErrSerialization)
	}
	addrs := make([]address.Address, count)
	for i := range addrs {
		if err := addrs[i].UnmarshalCBOR(br); err != nil {
			return errno(runtime.ErrSerialization)
		}
	}
	k.ValidateImmediateCallerIs(addrs...)
	return ok()
}

// validateCallerType reads a cbor array of code cids.
func validateCallerType(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	data, n := mem.Read(args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	br := cbg.GetPeeker(bytes.NewReader(data))
	maj, count, err := cbg.CborReadHeader(br)
	if err != nil || maj != cbg.MajArray || count > uint64(len(data)) {
		return errno(runtime.ErrSerialization)
	}
	codes := make([]cid.Cid, count)
	for i := range codes {
		if codes[i], err = cbg.ReadCid(br); err != nil {
			return errno(runtime.ErrSerialization)
		}
	}
	k.ValidateImmediateCallerType(codes...)
	return ok()
}

func abort(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	msg, n := mem.Read(args[1], args[2])
	if n != runtime.ErrNone {
		msg = []byte("abort message out of bounds")
	}
	k.Abort(exitcode.ExitCode(args[0]), string(msg))
	return errno(runtime.ErrAssertionFailed)
}

//
// rand
//

type randomnessFunc func(pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) (abi.Randomness, error)

// randomness takes (pers, round, entropy_off, entropy_len, out_off, out_len).
func randomness(get randomnessFunc, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	if args[1] > math.MaxInt64 {
		return errno(runtime.ErrIllegalArgument)
	}
	entropy, n := mem.Read(args[2], args[3])
	if n != runtime.ErrNone {
		return errno(n)
	}
	r, err := get(crypto.DomainSeparationTag(args[0]), abi.ChainEpoch(args[1]), entropy)
	if err != nil {
		return fail(err)
	}
	return writeOut(mem, args[4], args[5], r)
}

func chainRandomness(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	return randomness(k.GetRandomnessFromTickets, mem, args)
}

func beaconRandomness(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	return randomness(k.GetRandomnessFromBeacon, mem, args)
}

//
// gas
//

func chargeGas(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	name, n := mem.Read(args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	if args[2] > uint64(^uint64(0)>>1) {
		return errno(runtime.ErrIllegalArgument)
	}
	if err := k.ChargeGas(string(name), int64(args[2])); err != nil {
		return fail(err)
	}
	return ok()
}

func gasAvailable(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return ok(uint64(k.GasAvailable()))
}

func gasUsed(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return ok(uint64(k.GasUsed()))
}

//
// self
//

func currentBalance(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return tokenWords(k.CurrentBalance())
}

func selfDestruct(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	beneficiary, n := readAddress(mem, args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	if err := k.SelfDestruct(beneficiary); err != nil {
		return fail(err)
	}
	return ok()
}

//
// event
//

func emitEvent(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	data, n := mem.Read(args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	var ev runtime.Event
	if err := ev.UnmarshalCBOR(bytes.NewReader(data)); err != nil {
		return errno(runtime.ErrSerialization)
	}
	if err := k.EmitEvent(ev); err != nil {
		return fail(err)
	}
	return ok()
}

//
// network
//

func currEpoch(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return ok(uint64(k.NetworkEpoch()))
}

func networkVersion(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return ok(uint64(k.NetworkVersion()))
}

func baseFee(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return tokenWords(k.BaseFee())
}

func circSupply(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return tokenWords(k.TotalFilCircSupply())
}

//
// message
//

func caller(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return idOf(k.Caller())
}

func receiver(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return idOf(k.Receiver())
}

func methodNumber(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return ok(uint64(k.MethodNumber()))
}

func valueReceived(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return tokenWords(k.ValueReceived())
}

// origin resolves the origin to its actor id.
func origin(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	id, err := k.ResolveAddress(k.Origin())
	if err != nil {
		return fail(err)
	}
	return ok(uint64(id))
}

func nonce(k runtime.Kernel, _ Memory, _ []uint64) ([]uint64, runtime.ErrorNumber) {
	return ok(k.Nonce())
}

//
// crypto
//

func hashBlake2b(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	data, n := mem.Read(args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	digest := k.HashBlake2b(data)
	return writeOut(mem, args[2], args[3], digest[:])
}

// verifySignature takes (sig_type, sig_off, sig_len, signer_off, signer_len,
// plaintext_off, plaintext_len) and returns 1 for a valid signature.
func verifySignature(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	if args[0] > 0xff {
		return errno(runtime.ErrIllegalArgument)
	}
	sig, n := mem.Read(args[1], args[2])
	if n != runtime.ErrNone {
		return errno(n)
	}
	signer, n := readAddress(mem, args[3], args[4])
	if n != runtime.ErrNone {
		return errno(n)
	}
	plaintext, n := mem.Read(args[5], args[6])
	if n != runtime.ErrNone {
		return errno(n)
	}
	valid, err := k.VerifySignature(crypto.Signature{Type: crypto.SigType(args[0]), Data: sig}, signer, plaintext)
	if err != nil {
		return fail(err)
	}
	if valid {
		return ok(1)
	}
	return ok(0)
}

// verifyConsensusFault returns (fault_type, epoch, target_id), all zero when
// the headers prove no fault.
func verifyConsensusFault(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	var headers [3][]byte
	for i := range headers {
		data, n := mem.Read(args[2*i], args[2*i+1])
		if n != runtime.ErrNone {
			return errno(n)
		}
		headers[i] = data
	}
	fault, err := k.VerifyConsensusFault(headers[0], headers[1], headers[2])
	if err != nil {
		return fail(err)
	}
	if fault == nil {
		return ok(0, 0, 0)
	}
	target, err := k.ResolveAddress(fault.Target)
	if err != nil {
		return fail(err)
	}
	return ok(uint64(fault.Type), uint64(fault.Epoch), uint64(target))
}

//
// actor
//

func resolveAddress(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	addr, n := readAddress(mem, args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	id, err := k.ResolveAddress(addr)
	if err != nil {
		return fail(err)
	}
	return ok(uint64(id))
}

func getActorCodeCid(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	code, err := k.GetActorCodeCID(abi.ActorID(args[0]))
	if err != nil {
		return fail(err)
	}
	return writeOut(mem, args[1], args[2], code.Bytes())
}

func newActorAddress(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	addr, err := k.NewActorAddress()
	if err != nil {
		return fail(err)
	}
	return writeOut(mem, args[0], args[1], addr.Bytes())
}

// createActor takes (code_off, code_len, addr_off, addr_len) and returns the
// new actor id.
func createActor(k runtime.Kernel, mem Memory, args []uint64) ([]uint64, runtime.ErrorNumber) {
	code, n := readCid(mem, args[0], args[1])
	if n != runtime.ErrNone {
		return errno(n)
	}
	addr, n := readAddress(mem, args[2], args[3])
	if n != runtime.ErrNone {
		return errno(n)
	}
	id, err := k.CreateActor(code, addr)
	if err != nil {
		return fail(err)
	}
	return ok(uint64(id))
}
