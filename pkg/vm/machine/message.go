package machine

import (
	"bytes"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/venus-fvm/pkg/vm/bufstore"
	"github.com/filecoin-project/venus-fvm/pkg/vm/runtime"
)

// MessageVersion is the only message encoding version accepted.
const MessageVersion = 0

// Message is a top level message sent by an account actor.
type Message struct {
	Version uint64

	To   address.Address
	From address.Address
	// Nonce must match the sender's nonce for the message to be applied.
	Nonce uint64

	Value abi.TokenAmount

	GasLimit int64

	Method abi.MethodNum
	Params []byte
}

// Serialize returns the DagCBOR encoding of the message.
func (m *Message) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.MarshalCBOR(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ChainLength is the size the message occupies on chain.
func (m *Message) ChainLength() int {
	ser, err := m.Serialize()
	if err != nil {
		panic(err)
	}
	return len(ser)
}

// Cid returns the content identifier of the serialized message.
func (m *Message) Cid() cid.Cid {
	data, err := m.Serialize()
	if err != nil {
		panic(fmt.Sprintf("failed to marshal message: %s", err))
	}
	c, err := bufstore.Sum(runtime.CodecDagCBOR, data)
	if err != nil {
		panic(err)
	}
	return c
}

func (m *Message) String() string {
	return fmt.Sprintf("msg{from=%s to=%s nonce=%d method=%d value=%s gas=%d}", m.From, m.To, m.Nonce, m.Method, m.Value, m.GasLimit)
}
