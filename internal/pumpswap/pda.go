// Package pumpswap reproduces the Pump AMM program's account derivation and
// instruction encoding. Account ordering and the payload byte layout are a
// hard external contract: the on-chain program indexes accounts positionally.
package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// AMMProgramID is the Pump AMM swap program.
	AMMProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	// FeeProgramID owns the fee_config PDA.
	FeeProgramID = solana.MustPublicKeyFromBase58("pfeeUxB6jkeY1Hxd7CsFCAjcbHA9rWtchMGdZ6VojVZ")
	// WSOLMint is the canonical quote mint for sniped pools.
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// feeConfigSalt is the constant seed the fee program's IDL specifies for the
// fee_config account of the Pump AMM.
var feeConfigSalt = []byte{
	12, 20, 222, 252, 130, 94, 198, 118, 148, 37, 8, 24, 187, 101, 64, 101,
	244, 41, 141, 49, 86, 213, 113, 180, 212, 248, 9, 12, 24, 233, 168, 99,
}

// Resolver derives every program-owned address the swap instructions need.
// It is pure: same inputs always produce the same addresses.
type Resolver struct {
	AMMProgram solana.PublicKey
	FeeProgram solana.PublicKey
}

func NewResolver() *Resolver {
	return &Resolver{AMMProgram: AMMProgramID, FeeProgram: FeeProgramID}
}

func (r *Resolver) find(program solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		// Exhausting the bump space never happens for well-known seeds; if it
		// does the deployment is misconfigured and trading must not start.
		return solana.PublicKey{}, fmt.Errorf("pda derivation failed for program %s: %w", program, err)
	}
	return addr, nil
}

func (r *Resolver) GlobalConfig() (solana.PublicKey, error) {
	return r.find(r.AMMProgram, []byte("global_config"))
}

func (r *Resolver) GlobalVolumeAccumulator() (solana.PublicKey, error) {
	return r.find(r.AMMProgram, []byte("global_volume_accumulator"))
}

func (r *Resolver) UserVolumeAccumulator(user solana.PublicKey) (solana.PublicKey, error) {
	return r.find(r.AMMProgram, []byte("user_volume_accumulator"), user.Bytes())
}

func (r *Resolver) EventAuthority() (solana.PublicKey, error) {
	return r.find(r.AMMProgram, []byte("__event_authority"))
}

func (r *Resolver) FeeConfig() (solana.PublicKey, error) {
	return r.find(r.FeeProgram, []byte("fee_config"), feeConfigSalt)
}

// CreatorVaultAuthority derives the authority for the coin creator's fee
// vault: seeds = ["creator_vault", coin_creator].
func (r *Resolver) CreatorVaultAuthority(coinCreator solana.PublicKey) (solana.PublicKey, error) {
	return r.find(r.AMMProgram, []byte("creator_vault"), coinCreator.Bytes())
}

// AssociatedTokenAddress derives the token-holding address for
// owner × mint × token-program. Off-curve owners (PDAs) are allowed.
func AssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("ata derivation failed for owner %s mint %s: %w", owner, mint, err)
	}
	return addr, nil
}
