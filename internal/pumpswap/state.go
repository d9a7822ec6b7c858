package pumpswap

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// On-chain account sizes, including the 8-byte Anchor discriminator.
const (
	poolAccountLen         = 8 + 1 + 2 + 32*6 + 8 + 32 // 243
	globalConfigAccountLen = 8 + 32 + 8 + 8 + 1 + 32*8 + 8 + 32
)

// Pool is the decoded Pump AMM pool record.
type Pool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
	CoinCreator           solana.PublicKey
}

// GlobalConfig is the decoded program-wide configuration record. Only the
// fields the builder needs are surfaced; recipient slot 0 is canonical.
type GlobalConfig struct {
	Admin                    solana.PublicKey
	LPFeeBasisPoints         uint64
	ProtocolFeeBasisPoints   uint64
	DisableFlags             uint8
	ProtocolFeeRecipients    [8]solana.PublicKey
	CoinCreatorFeeBasisPoints uint64
}

func readKey(data []byte, off int) solana.PublicKey {
	return solana.PublicKeyFromBytes(data[off : off+32])
}

// DecodePool parses a raw pool account. The layout is fixed by the program;
// any size mismatch means we fetched the wrong account.
func DecodePool(data []byte) (*Pool, error) {
	if len(data) < poolAccountLen {
		return nil, fmt.Errorf("pumpswap: pool account too short: %d bytes", len(data))
	}
	p := &Pool{
		PoolBump: data[8],
		Index:    binary.LittleEndian.Uint16(data[9:11]),
	}
	off := 11
	for _, dst := range []*solana.PublicKey{
		&p.Creator, &p.BaseMint, &p.QuoteMint, &p.LPMint,
		&p.PoolBaseTokenAccount, &p.PoolQuoteTokenAccount,
	} {
		*dst = readKey(data, off)
		off += 32
	}
	p.LPSupply = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	p.CoinCreator = readKey(data, off)
	return p, nil
}

// DecodeGlobalConfig parses the raw global_config account.
func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < globalConfigAccountLen {
		return nil, fmt.Errorf("pumpswap: global config account too short: %d bytes", len(data))
	}
	g := &GlobalConfig{
		Admin:                  readKey(data, 8),
		LPFeeBasisPoints:       binary.LittleEndian.Uint64(data[40:48]),
		ProtocolFeeBasisPoints: binary.LittleEndian.Uint64(data[48:56]),
		DisableFlags:           data[56],
	}
	off := 57
	for i := range g.ProtocolFeeRecipients {
		g.ProtocolFeeRecipients[i] = readKey(data, off)
		off += 32
	}
	g.CoinCreatorFeeBasisPoints = binary.LittleEndian.Uint64(data[off : off+8])
	return g, nil
}

// FeeRecipient returns the canonical protocol fee recipient (slot 0).
func (g *GlobalConfig) FeeRecipient() solana.PublicKey {
	return g.ProtocolFeeRecipients[0]
}
