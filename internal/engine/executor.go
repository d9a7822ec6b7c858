package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"solsniper/internal/chain"
	"solsniper/internal/config"
	"solsniper/internal/logger"
	"solsniper/internal/pumpswap"
	"solsniper/internal/wallet"
)

// Fill is the verified on-chain effect of a swap: what moved and at what
// price. Deltas are signed from the trader's point of view.
type Fill struct {
	Signature  solana.Signature
	BaseDelta  int64 // token raw units, positive on a buy
	QuoteDelta int64 // lamports, negative on a buy
	Price      decimal.Decimal
	FilledAt   time.Time
}

// Executor assembles, signs, submits and verifies swap transactions.
// Both legs share the retry and verification path; only the instruction
// differs.
type Executor struct {
	chain   chain.Client
	wallet  *wallet.Wallet
	builder *pumpswap.Builder
	cfg     config.TradeConfig
}

func NewExecutor(c chain.Client, w *wallet.Wallet, b *pumpswap.Builder, cfg config.TradeConfig) *Executor {
	return &Executor{chain: c, wallet: w, builder: b, cfg: cfg}
}

// Buy spends amountLamports of quote for base tokens on the pool.
func (e *Executor) Buy(ctx context.Context, pool, baseMint, quoteMint solana.PublicKey, amountLamports uint64) (*Fill, error) {
	build := func(ctx context.Context) (solana.Instruction, error) {
		ix, _, err := e.builder.BuyInstruction(ctx, pool, e.wallet.PublicKey(), baseMint, quoteMint, amountLamports, e.cfg.SlippageBps)
		return ix, err
	}
	return e.execute(ctx, build, baseMint)
}

// Sell swaps amountTokens of base back into quote on the pool.
func (e *Executor) Sell(ctx context.Context, pool, baseMint, quoteMint solana.PublicKey, amountTokens uint64) (*Fill, error) {
	build := func(ctx context.Context) (solana.Instruction, error) {
		ix, _, err := e.builder.SellInstruction(ctx, pool, e.wallet.PublicKey(), baseMint, quoteMint, amountTokens, e.cfg.SlippageBps)
		return ix, err
	}
	return e.execute(ctx, build, baseMint)
}

// execute runs the submit loop. Each attempt rebuilds the transaction with
// a fresh blockhash so a retry never reuses an expired recency token.
func (e *Executor) execute(ctx context.Context, build func(context.Context) (solana.Instruction, error), baseMint solana.PublicKey) (*Fill, error) {
	retries := e.cfg.SubmitRetries
	if retries <= 0 {
		retries = 1
	}
	var sig solana.Signature
	var lastErr error
	submitted := false
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}
		swap, err := build(ctx)
		if err != nil {
			lastErr = err
			break
		}
		instructions := append(e.priority(), swap)
		blockhash, err := e.chain.LatestBlockhash(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(e.wallet.PublicKey()))
		if err != nil {
			lastErr = err
			break
		}
		if err := e.wallet.Sign(tx); err != nil {
			lastErr = err
			break
		}
		sig, err = e.chain.SubmitTransaction(ctx, tx, e.cfg.SkipPreflight)
		if err != nil {
			lastErr = err
			logger.Warnf("[ENGINE] submit attempt %d/%d failed: %v", attempt, retries, err)
			continue
		}
		submitted = true
		break
	}
	if !submitted {
		return nil, &SubmissionError{Attempts: retries, Err: lastErr}
	}

	if err := e.chain.ConfirmTransaction(ctx, sig); err != nil {
		return nil, &VerificationError{Signature: sig.String(), Detail: err.Error()}
	}
	return e.verify(ctx, sig, baseMint)
}

// verify reads the transaction's token balance changes. The fill price is
// derived from the observed deltas, never from the quoted price.
func (e *Executor) verify(ctx context.Context, sig solana.Signature, baseMint solana.PublicKey) (*Fill, error) {
	owner := e.wallet.PublicKey()
	baseDelta, err := e.chain.TokenBalanceDelta(ctx, sig, owner, baseMint)
	if err != nil {
		return nil, &VerificationError{Signature: sig.String(), Detail: fmt.Sprintf("base delta: %v", err)}
	}
	quoteDelta, err := e.chain.TokenBalanceDelta(ctx, sig, owner, pumpswap.WSOLMint)
	if err != nil {
		return nil, &VerificationError{Signature: sig.String(), Detail: fmt.Sprintf("quote delta: %v", err)}
	}
	if baseDelta == 0 {
		return nil, &VerificationError{Signature: sig.String(), Detail: "no token movement"}
	}
	price := decimal.NewFromInt(quoteDelta).Abs().Div(decimal.NewFromInt(baseDelta).Abs())
	return &Fill{
		Signature:  sig,
		BaseDelta:  baseDelta,
		QuoteDelta: quoteDelta,
		Price:      price,
		FilledAt:   time.Now(),
	}, nil
}

func (e *Executor) priority() []solana.Instruction {
	if !e.cfg.Prioritize {
		return nil
	}
	return pumpswap.PriorityInstructions(pumpswap.PriorityFee{
		MicroLamports: e.cfg.PriorityMicroLam,
		UnitLimit:     e.cfg.PriorityUnitLimit,
	})
}
