package externs

import (
	"context"
	"encoding/binary"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/minio/blake2b-simd"
	"golang.org/x/xerrors"
)

// DrawRandomness derives 32 bytes of randomness from a base value, a domain
// tag, a round and caller supplied entropy.
func DrawRandomness(rbase []byte, pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) ([]byte, error) {
	h := blake2b.New256()
	if err := binary.Write(h, binary.BigEndian, int64(pers)); err != nil {
		return nil, xerrors.Errorf("deriving randomness: %w", err)
	}
	VRFDigest := blake2b.Sum256(rbase)
	_, err := h.Write(VRFDigest[:])
	if err != nil {
		return nil, xerrors.Errorf("hashing VRFDigest: %w", err)
	}
	if err := binary.Write(h, binary.BigEndian, round); err != nil {
		return nil, xerrors.Errorf("deriving randomness: %w", err)
	}
	_, err = h.Write(entropy)
	if err != nil {
		return nil, xerrors.Errorf("hashing entropy: %w", err)
	}

	return h.Sum(nil), nil
}

// SeedRand is a deterministic Rand whose per round base values derive from a
// fixed seed. It stands in for the chain in tests and local tooling.
type SeedRand struct {
	Seed []byte
}

var _ Rand = (*SeedRand)(nil)

func (r *SeedRand) base(kind string, round abi.ChainEpoch) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(round))
	sum := blake2b.Sum256(append(append(append([]byte{}, r.Seed...), kind...), buf[:]...))
	return sum[:]
}

func (r *SeedRand) GetChainRandomness(_ context.Context, pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) ([]byte, error) {
	return DrawRandomness(r.base("ticket", round), pers, round, entropy)
}

func (r *SeedRand) GetBeaconRandomness(_ context.Context, pers crypto.DomainSeparationTag, round abi.ChainEpoch, entropy []byte) ([]byte, error) {
	return DrawRandomness(r.base("beacon", round), pers, round, entropy)
}
