package state

import (
	"fmt"
	"io"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"
)

var lengthBufActor = []byte{134}

func (t *Actor) MarshalCBOR(w io.Writer) error {
	if t == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}
	if _, err := w.Write(lengthBufActor); err != nil {
		return err
	}

	scratch := make([]byte, 9)

	// t.ID (abi.ActorID) (uint64)
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, uint64(t.ID)); err != nil {
		return err
	}

	// t.Code (cid.Cid) (struct)
	if err := cbg.WriteCidBuf(scratch, w, t.Code); err != nil {
		return xerrors.Errorf("failed to write cid field t.Code: %w", err)
	}

	// t.Head (cid.Cid) (struct)
	if err := cbg.WriteCidBuf(scratch, w, t.Head); err != nil {
		return xerrors.Errorf("failed to write cid field t.Head: %w", err)
	}

	// t.Nonce (uint64) (uint64)
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, t.Nonce); err != nil {
		return err
	}

	// t.Balance (big.Int) (struct)
	if err := t.Balance.MarshalCBOR(w); err != nil {
		return err
	}

	// t.Address (address.Address) (bytes, empty when undefined)
	addrBytes := t.Address.Bytes()
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajByteString, uint64(len(addrBytes))); err != nil {
		return err
	}
	if _, err := w.Write(addrBytes); err != nil {
		return err
	}
	return nil
}

func (t *Actor) UnmarshalCBOR(r io.Reader) (err error) {
	*t = Actor{}

	br := cbg.GetPeeker(r)
	scratch := make([]byte, 8)

	maj, extra, err := cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajArray {
		return fmt.Errorf("cbor input should be of type array")
	}
	if extra != 6 {
		return fmt.Errorf("cbor input had wrong number of fields")
	}

	// t.ID (abi.ActorID) (uint64)
	maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajUnsignedInt {
		return fmt.Errorf("wrong type for uint64 field")
	}
	t.ID = abi.ActorID(extra)

	// t.Code (cid.Cid) (struct)
	c, err := cbg.ReadCid(br)
	if err != nil {
		return xerrors.Errorf("failed to read cid field t.Code: %w", err)
	}
	t.Code = c

	// t.Head (cid.Cid) (struct)
	c, err = cbg.ReadCid(br)
	if err != nil {
		return xerrors.Errorf("failed to read cid field t.Head: %w", err)
	}
	t.Head = c

	// t.Nonce (uint64) (uint64)
	maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajUnsignedInt {
		return fmt.Errorf("wrong type for uint64 field")
	}
	t.Nonce = extra

	// t.Balance (big.Int) (struct)
	if err := t.Balance.UnmarshalCBOR(br); err != nil {
		return xerrors.Errorf("unmarshaling t.Balance: %w", err)
	}

	// t.Address (address.Address) (bytes)
	addrBytes, err := cbg.ReadByteArray(br, 1024)
	if err != nil {
		return err
	}
	if len(addrBytes) > 0 {
		addr, err := address.NewFromBytes(addrBytes)
		if err != nil {
			return xerrors.Errorf("unmarshaling t.Address: %w", err)
		}
		t.Address = addr
	}
	return nil
}

var lengthBufStateRoot = []byte{131}

func (t *stateRoot) MarshalCBOR(w io.Writer) error {
	if t == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}
	if _, err := w.Write(lengthBufStateRoot); err != nil {
		return err
	}

	scratch := make([]byte, 9)

	// t.Version (uint64) (uint64)
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, t.Version); err != nil {
		return err
	}

	// t.NextID (uint64) (uint64)
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, t.NextID); err != nil {
		return err
	}

	// t.Actors ([]*state.Actor) (slice)
	if len(t.Actors) > cbg.MaxLength {
		return xerrors.Errorf("Slice value in field t.Actors was too long")
	}
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajArray, uint64(len(t.Actors))); err != nil {
		return err
	}
	for _, v := range t.Actors {
		if err := v.MarshalCBOR(w); err != nil {
			return err
		}
	}
	return nil
}

func (t *stateRoot) UnmarshalCBOR(r io.Reader) (err error) {
	*t = stateRoot{}

	br := cbg.GetPeeker(r)
	scratch := make([]byte, 8)

	maj, extra, err := cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajArray {
		return fmt.Errorf("cbor input should be of type array")
	}
	if extra != 3 {
		return fmt.Errorf("cbor input had wrong number of fields")
	}

	// t.Version (uint64) (uint64)
	maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajUnsignedInt {
		return fmt.Errorf("wrong type for uint64 field")
	}
	t.Version = extra

	// t.NextID (uint64) (uint64)
	maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if maj != cbg.MajUnsignedInt {
		return fmt.Errorf("wrong type for uint64 field")
	}
	t.NextID = extra

	// t.Actors ([]*state.Actor) (slice)
	maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}
	if extra > cbg.MaxLength {
		return fmt.Errorf("t.Actors: array too large (%d)", extra)
	}
	if maj != cbg.MajArray {
		return fmt.Errorf("expected cbor array")
	}
	if extra > 0 {
		t.Actors = make([]*Actor, extra)
	}
	for i := 0; i < int(extra); i++ {
		var v Actor
		if err := v.UnmarshalCBOR(br); err != nil {
			return err
		}
		t.Actors[i] = &v
	}
	return nil
}
