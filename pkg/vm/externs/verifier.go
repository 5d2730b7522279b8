package externs

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-address"
	gocrypto "github.com/filecoin-project/go-crypto"
	"github.com/filecoin-project/go-state-types/crypto"
	logging "github.com/ipfs/go-log/v2"
	"github.com/minio/blake2b-simd"
)

var log = logging.Logger("vm.externs")

// SecpVerifier verifies secp256k1 signatures by public key recovery. Other
// signature types are rejected.
type SecpVerifier struct{}

var _ SignatureVerifier = SecpVerifier{}

func (SecpVerifier) VerifySignature(_ context.Context, sig crypto.Signature, signer address.Address, plaintext []byte) error {
	if sig.Type != crypto.SigTypeSecp256k1 {
		return fmt.Errorf("unsupported signature type %d", sig.Type)
	}
	if signer.Protocol() != address.SECP256K1 {
		return fmt.Errorf("signer %s is not a secp256k1 address", signer)
	}
	b2sum := blake2b.Sum256(plaintext)
	pubk, err := gocrypto.EcRecover(b2sum[:], sig.Data)
	if err != nil {
		return err
	}

	maybeaddr, err := address.NewSecp256k1Address(pubk)
	if err != nil {
		return err
	}

	if signer != maybeaddr {
		return fmt.Errorf("signature did not match")
	}
	return nil
}

// NoFaults never reports a fault. Decoding failures are logged and treated
// as "no fault", which is what the built-in actors expect from a checker
// that cannot see the chain.
type NoFaults struct{}

var _ ConsensusFaultChecker = NoFaults{}

func (NoFaults) VerifyConsensusFault(_ context.Context, h1, h2, extra []byte) (*ConsensusFault, int64, error) {
	if len(h1) == 0 || len(h2) == 0 {
		log.Infow("consensus fault check on empty header", "h1", len(h1), "h2", len(h2))
	}
	return nil, 0, nil
}
