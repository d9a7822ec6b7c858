package pumpswap

import (
	"context"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// PriorityFee configures optional compute-budget instructions prepended to a
// swap so validators pick it up faster during a launch.
type PriorityFee struct {
	MicroLamports uint64
	UnitLimit     uint32
}

// BuyInstruction builds the complete, submittable buy instruction:
// program id, 23 ordered accounts and the encoded payload.
func (b *Builder) BuyInstruction(ctx context.Context, pool, user, baseMint, quoteMint solana.PublicKey, amountIn uint64, slippageBps uint16) (solana.Instruction, *Pool, error) {
	accounts, state, err := b.BuildBuyAccounts(ctx, pool, user, baseMint, quoteMint)
	if err != nil {
		return nil, nil, err
	}
	data, err := Encode(TagBuy, amountIn, slippageBps)
	if err != nil {
		return nil, nil, err
	}
	return solana.NewInstruction(b.resolver.AMMProgram, accounts, data), state, nil
}

// SellInstruction is the sell-leg counterpart of BuyInstruction.
func (b *Builder) SellInstruction(ctx context.Context, pool, user, baseMint, quoteMint solana.PublicKey, amountIn uint64, slippageBps uint16) (solana.Instruction, *Pool, error) {
	accounts, state, err := b.BuildSellAccounts(ctx, pool, user, baseMint, quoteMint)
	if err != nil {
		return nil, nil, err
	}
	data, err := Encode(TagSell, amountIn, slippageBps)
	if err != nil {
		return nil, nil, err
	}
	return solana.NewInstruction(b.resolver.AMMProgram, accounts, data), state, nil
}

// PriorityInstructions returns the compute-budget prefix for a prioritized
// swap, or nil when fee is zero.
func PriorityInstructions(fee PriorityFee) []solana.Instruction {
	if fee.MicroLamports == 0 {
		return nil
	}
	return []solana.Instruction{
		computebudget.NewSetComputeUnitPriceInstruction(fee.MicroLamports).Build(),
		computebudget.NewSetComputeUnitLimitInstruction(fee.UnitLimit).Build(),
	}
}
