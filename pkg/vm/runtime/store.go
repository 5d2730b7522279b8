package runtime

import (
	"bytes"
	"context"

	"github.com/filecoin-project/go-state-types/exitcode"
	"github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	cbg "github.com/whyrusleeping/cbor-gen"
)

// ActorStorage is a typed store for actor code, built on the kernel's block
// syscalls so every access is metered and isolated like any other.
//
// Encoding failures abort the frame with ErrSerialization. Any other storage
// failure is a bug in the kernel and aborts with ErrIllegalState.
type ActorStorage struct {
	k Kernel
}

var _ cbor.IpldStore = (*ActorStorage)(nil)

// NewActorStorage wraps k.
func NewActorStorage(k Kernel) *ActorStorage {
	return &ActorStorage{k: k}
}

// Put encodes obj and stores it in the frame's buffer.
func (s *ActorStorage) Put(_ context.Context, obj interface{}) (cid.Cid, error) {
	var data []byte
	if m, ok := obj.(cbg.CBORMarshaler); ok {
		buf := new(bytes.Buffer)
		if err := m.MarshalCBOR(buf); err != nil {
			Abortf(exitcode.ErrSerialization, "failed to marshal %T: %s", obj, err)
		}
		data = buf.Bytes()
	} else {
		raw, err := cbor.DumpObject(obj)
		if err != nil {
			Abortf(exitcode.ErrSerialization, "failed to marshal %T: %s", obj, err)
		}
		data = raw
	}

	id, err := s.k.BlockCreate(CodecDagCBOR, data)
	if err != nil {
		Abortf(exitcode.ErrIllegalState, "failed to create block: %s", err)
	}
	c, err := s.k.BlockLink(id)
	if err != nil {
		Abortf(exitcode.ErrIllegalState, "failed to link block: %s", err)
	}
	return c, nil
}

// Get loads the block c and decodes it into out.
func (s *ActorStorage) Get(_ context.Context, c cid.Cid, out interface{}) error {
	id, stat, err := s.k.BlockOpen(c)
	if err != nil {
		if ErrorNumberOf(err) == ErrNotFound {
			Abortf(exitcode.ErrNotFound, "block %s not found", c)
		}
		Abortf(exitcode.ErrIllegalState, "failed to open block %s: %s", c, err)
	}
	data := make([]byte, stat.Size)
	if _, err := s.k.BlockRead(id, 0, data); err != nil {
		Abortf(exitcode.ErrIllegalState, "failed to read block %s: %s", c, err)
	}

	if u, ok := out.(cbg.CBORUnmarshaler); ok {
		if err := u.UnmarshalCBOR(bytes.NewReader(data)); err != nil {
			Abortf(exitcode.ErrSerialization, "failed to unmarshal %s into %T: %s", c, out, err)
		}
		return nil
	}
	if err := cbor.DecodeInto(data, out); err != nil {
		Abortf(exitcode.ErrSerialization, "failed to unmarshal %s into %T: %s", c, out, err)
	}
	return nil
}

// ReadParams copies the block behind id. NoBlock reads as nil.
func ReadParams(k Kernel, id BlockID) ([]byte, error) {
	if id == NoBlock {
		return nil, nil
	}
	stat, err := k.BlockStat(id)
	if err != nil {
		return nil, err
	}
	data := make([]byte, stat.Size)
	if _, err := k.BlockRead(id, 0, data); err != nil {
		return nil, err
	}
	return data, nil
}

// LoadState decodes the actor's state root into out.
func LoadState(k Kernel, out interface{}) {
	_ = NewActorStorage(k).Get(context.TODO(), k.Root(), out)
}

// SaveState stores obj and makes it the actor's state root.
func SaveState(k Kernel, obj interface{}) {
	c, _ := NewActorStorage(k).Put(context.TODO(), obj)
	if err := k.SetRoot(c); err != nil {
		Abortf(exitcode.ErrIllegalState, "failed to set state root: %s", err)
	}
}
