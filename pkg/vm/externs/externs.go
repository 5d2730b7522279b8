// Package externs declares what the engine needs from the surrounding chain
// client: randomness, consensus fault checks and signature verification.
package externs

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
)

//go:generate go run github.com/golang/mock/mockgen -destination=mocks/mock_externs.go -package=mocks . Rand,ConsensusFaultChecker,SignatureVerifier

// Rand draws randomness from the chain. Implementations must be pure
// functions of their inputs and the chain history.
type Rand interface {
	GetChainRandomness(ctx context.Context, pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) ([]byte, error)
	GetBeaconRandomness(ctx context.Context, pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) ([]byte, error)
}

// ConsensusFaultType classifies a proven fault.
type ConsensusFaultType int64

const (
	ConsensusFaultNone ConsensusFaultType = iota
	ConsensusFaultDoubleForkMining
	ConsensusFaultParentGrinding
	ConsensusFaultTimeOffsetMining
)

// ConsensusFault describes a fault proven by two block headers.
type ConsensusFault struct {
	Target address.Address
	Epoch  abi.ChainEpoch
	Type   ConsensusFaultType
}

// ConsensusFaultChecker verifies consensus fault proofs. It also reports the
// gas its own lookups consumed, which the kernel charges to the caller.
type ConsensusFaultChecker interface {
	VerifyConsensusFault(ctx context.Context, h1, h2, extra []byte) (*ConsensusFault, int64, error)
}

// SignatureVerifier checks that signer produced sig over plaintext.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, sig crypto.Signature, signer address.Address, plaintext []byte) error
}
