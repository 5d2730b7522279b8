package externs_test

import (
	"context"
	"testing"

	"github.com/filecoin-project/go-address"
	gocrypto "github.com/filecoin-project/go-crypto"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/minio/blake2b-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tf "github.com/filecoin-project/venus-fvm/pkg/testhelpers/testflags"
	"github.com/filecoin-project/venus-fvm/pkg/vm/externs"
)

func TestDrawRandomnessDeterministic(t *testing.T) {
	tf.UnitTest(t)

	r1, err := externs.DrawRandomness([]byte("base"), crypto.DomainSeparationTag_TicketProduction, 10, []byte("entropy"))
	require.NoError(t, err)
	r2, err := externs.DrawRandomness([]byte("base"), crypto.DomainSeparationTag_TicketProduction, 10, []byte("entropy"))
	require.NoError(t, err)
	r3, err := externs.DrawRandomness([]byte("base"), crypto.DomainSeparationTag_TicketProduction, 11, []byte("entropy"))
	require.NoError(t, err)

	assert.Len(t, r1, 32)
	assert.Equal(t, r1, r2)
	assert.NotEqual(t, r1, r3)
}

func TestSeedRandSeparatesChainAndBeacon(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	rnd := &externs.SeedRand{Seed: []byte("seed")}
	chain, err := rnd.GetChainRandomness(ctx, crypto.DomainSeparationTag_SealRandomness, 5, nil)
	require.NoError(t, err)
	beacon, err := rnd.GetBeaconRandomness(ctx, crypto.DomainSeparationTag_SealRandomness, 5, nil)
	require.NoError(t, err)
	again, err := (&externs.SeedRand{Seed: []byte("seed")}).GetChainRandomness(ctx, crypto.DomainSeparationTag_SealRandomness, 5, nil)
	require.NoError(t, err)

	assert.NotEqual(t, chain, beacon)
	assert.Equal(t, chain, again)
}

func TestSecpVerifier(t *testing.T) {
	tf.UnitTest(t)
	ctx := context.Background()

	sk, err := gocrypto.GenerateKey()
	require.NoError(t, err)
	signer, err := address.NewSecp256k1Address(gocrypto.PublicKey(sk))
	require.NoError(t, err)

	msg := []byte("hello actors")
	digest := blake2b.Sum256(msg)
	sigData, err := gocrypto.Sign(sk, digest[:])
	require.NoError(t, err)
	sig := crypto.Signature{Type: crypto.SigTypeSecp256k1, Data: sigData}

	v := externs.SecpVerifier{}
	assert.NoError(t, v.VerifySignature(ctx, sig, signer, msg))
	assert.Error(t, v.VerifySignature(ctx, sig, signer, []byte("tampered")))
	assert.Error(t, v.VerifySignature(ctx, crypto.Signature{Type: crypto.SigTypeBLS, Data: sigData}, signer, msg))
}

func TestNoFaults(t *testing.T) {
	tf.UnitTest(t)

	fault, gasUsed, err := externs.NoFaults{}.VerifyConsensusFault(context.Background(), nil, []byte{1}, nil)
	assert.NoError(t, err)
	assert.Nil(t, fault)
	assert.Zero(t, gasUsed)
}
