package pumpswap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePool(t *testing.T) {
	want := &Pool{
		PoolBump:              251,
		Index:                 3,
		Creator:               key(1),
		BaseMint:              key(2),
		QuoteMint:             WSOLMint,
		LPMint:                key(3),
		PoolBaseTokenAccount:  key(4),
		PoolQuoteTokenAccount: key(5),
		LPSupply:              987654321,
		CoinCreator:           key(6),
	}
	got, err := DecodePool(encodePool(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodePoolTooShort(t *testing.T) {
	_, err := DecodePool(make([]byte, poolAccountLen-1))
	require.Error(t, err)
}

func TestDecodeGlobalConfig(t *testing.T) {
	want := &GlobalConfig{
		Admin:                  key(7),
		LPFeeBasisPoints:       20,
		ProtocolFeeBasisPoints: 5,
		DisableFlags:           0,
		CoinCreatorFeeBasisPoints: 5,
	}
	for i := range want.ProtocolFeeRecipients {
		want.ProtocolFeeRecipients[i] = key(byte(20 + i))
	}
	got, err := DecodeGlobalConfig(encodeGlobalConfig(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want.ProtocolFeeRecipients[0], got.FeeRecipient())
}
