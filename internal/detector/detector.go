// Package detector watches chain logs for pool creations and buys on the
// AMM program, assembles trade candidates and feeds the buyer counter.
package detector

import (
	"bytes"
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/shopspring/decimal"

	"solsniper/internal/buyers"
	"solsniper/internal/chain"
	"solsniper/internal/logger"
	"solsniper/internal/pumpswap"
	"solsniper/internal/risk"
)

// Anchor instruction discriminators emitted by the AMM program.
var (
	createPoolDiscriminator = []byte{233, 146, 209, 142, 207, 104, 64, 188}
	buyDiscriminator        = []byte{102, 6, 61, 18, 1, 218, 235, 234}
)

const lamportsPerSOL = 1_000_000_000

// Inspector resolves a signature into its decoded transaction.
type Inspector interface {
	InspectTransaction(ctx context.Context, sig solana.Signature) (*chain.TxDetail, error)
}

// AccountReader reads raw account data.
type AccountReader interface {
	GetAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// PriceSource returns the current quote for an asset pair.
type PriceSource func(asset string) (decimal.Decimal, bool)

// Sink receives assembled candidates.
type Sink func(risk.Candidate)

type Detector struct {
	wsURL        string
	amm          solana.PublicKey
	inspector    Inspector
	reader       AccountReader
	counter      *buyers.Counter
	solPrice     PriceSource
	sink         Sink
	minPoolAgeMs int64
	buyerWindow  time.Duration

	// Launch-stage pools quote in something other than wrapped SOL and
	// carry different account layouts. They are skipped until those
	// layouts are modeled.
	watchLaunchStage bool
}

func New(wsURL string, amm solana.PublicKey, inspector Inspector, reader AccountReader, counter *buyers.Counter, solPrice PriceSource, sink Sink, minPoolAgeMs int64, buyerWindow time.Duration) *Detector {
	return &Detector{
		wsURL:        wsURL,
		amm:          amm,
		inspector:    inspector,
		reader:       reader,
		counter:      counter,
		solPrice:     solPrice,
		sink:         sink,
		minPoolAgeMs: minPoolAgeMs,
		buyerWindow:  buyerWindow,
	}
}

// Run holds the logs subscription open until the context ends, redialing
// after transient failures.
func (d *Detector) Run(ctx context.Context) error {
	for {
		if err := d.watch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warnf("[DETECT] watch ended: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

func (d *Detector) watch(ctx context.Context) error {
	client, err := ws.Connect(ctx, d.wsURL)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.LogsSubscribeMentions(d.amm, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	logger.Infof("[DETECT] watching program=%s", d.amm)

	for {
		got, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if got == nil || got.Value.Err != nil {
			continue
		}
		go d.classify(ctx, got.Value.Signature)
	}
}

// classify fetches the transaction and routes creations and buys.
func (d *Detector) classify(ctx context.Context, sig solana.Signature) {
	detail, err := d.inspector.InspectTransaction(ctx, sig)
	if err != nil {
		logger.Debugf("[DETECT] inspect %s: %v", sig, err)
		return
	}
	if detail.Failed {
		return
	}
	for _, ix := range detail.Instructions {
		if !ix.Program.Equals(d.amm) || len(ix.Data) < 8 {
			continue
		}
		switch {
		case bytes.Equal(ix.Data[:8], createPoolDiscriminator):
			if len(ix.Accounts) > 0 {
				d.onPoolCreated(ctx, ix.Accounts[0], detail.BlockTime)
			}
		case bytes.Equal(ix.Data[:8], buyDiscriminator):
			// buy accounts: [pool, user, global_config, base_mint, ...]
			if len(ix.Accounts) > 3 {
				d.counter.Record(ix.Accounts[3].String(), detail.Signer.String())
			}
		}
	}
}

// onPoolCreated decodes the new pool, waits out the minimum age so early
// buys can be observed, then emits the candidate.
func (d *Detector) onPoolCreated(ctx context.Context, pool solana.PublicKey, createdAt time.Time) {
	raw, err := d.reader.GetAccount(ctx, pool)
	if err != nil {
		logger.Debugf("[DETECT] pool account %s: %v", pool, err)
		return
	}
	state, err := pumpswap.DecodePool(raw)
	if err != nil {
		logger.Debugf("[DETECT] pool decode %s: %v", pool, err)
		return
	}
	if !d.watchLaunchStage && !state.QuoteMint.Equals(pumpswap.WSOLMint) {
		logger.Debugf("[DETECT] skipping launch-stage pool %s quote=%s", pool, state.QuoteMint)
		return
	}
	logger.Infof("[DETECT] new pool=%s base=%s creator=%s", pool, state.BaseMint, state.CoinCreator)

	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if wait := time.Duration(d.minPoolAgeMs)*time.Millisecond - time.Since(createdAt); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	c := risk.Candidate{
		Mint:           state.BaseMint.String(),
		Pool:           pool.String(),
		Creator:        state.CoinCreator.String(),
		PoolAgeMs:      time.Since(createdAt).Milliseconds(),
		DistinctBuyers: d.counter.Count(state.BaseMint.String(), d.buyerWindow),
	}
	c.LiquidityUSD = d.liquidityUSD(ctx, state)
	c.Decimals = d.decimals(ctx, state.BaseMint)
	d.sink(c)
}

// liquidityUSD values both sides of the pool from the quote leg.
func (d *Detector) liquidityUSD(ctx context.Context, state *pumpswap.Pool) float64 {
	raw, err := d.reader.GetAccount(ctx, state.PoolQuoteTokenAccount)
	if err != nil {
		logger.Debugf("[DETECT] quote vault %s: %v", state.PoolQuoteTokenAccount, err)
		return 0
	}
	lamports, err := tokenAccountAmount(raw)
	if err != nil {
		return 0
	}
	solUSD, ok := decimal.Zero, false
	if d.solPrice != nil {
		solUSD, ok = d.solPrice("SOL/USD")
	}
	if !ok {
		return 0
	}
	quoteSOL := decimal.NewFromUint64(lamports).Div(decimal.NewFromInt(lamportsPerSOL))
	usd, _ := quoteSOL.Mul(solUSD).Mul(decimal.NewFromInt(2)).Float64()
	return usd
}

func (d *Detector) decimals(ctx context.Context, mint solana.PublicKey) int {
	raw, err := d.reader.GetAccount(ctx, mint)
	if err != nil {
		return -1
	}
	dec, err := mintDecimals(raw)
	if err != nil {
		return -1
	}
	return dec
}
