package pumpswap

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverDeterminism(t *testing.T) {
	r := NewResolver()

	a1, err := r.GlobalConfig()
	require.NoError(t, err)
	a2, err := r.GlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	user := key(42)
	u1, err := r.UserVolumeAccumulator(user)
	require.NoError(t, err)
	u2, err := r.UserVolumeAccumulator(user)
	require.NoError(t, err)
	assert.Equal(t, u1, u2)

	other, err := r.UserVolumeAccumulator(key(43))
	require.NoError(t, err)
	assert.NotEqual(t, u1, other, "distinct users must derive distinct accumulators")
}

func TestResolverDistinctSeeds(t *testing.T) {
	r := NewResolver()
	gc, err := r.GlobalConfig()
	require.NoError(t, err)
	gv, err := r.GlobalVolumeAccumulator()
	require.NoError(t, err)
	ea, err := r.EventAuthority()
	require.NoError(t, err)
	fc, err := r.FeeConfig()
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, pk := range []string{gc.String(), gv.String(), ea.String(), fc.String()} {
		assert.False(t, seen[pk], "derived addresses must not collide")
		seen[pk] = true
	}
}

func TestAssociatedTokenAddress(t *testing.T) {
	owner := key(1)
	mint := key(2)
	a1, err := AssociatedTokenAddress(owner, mint, solana.TokenProgramID)
	require.NoError(t, err)
	a2, err := AssociatedTokenAddress(owner, mint, solana.TokenProgramID)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	b, err := AssociatedTokenAddress(owner, key(3), solana.TokenProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, a1, b)
}
