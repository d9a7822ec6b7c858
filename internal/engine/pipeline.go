package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"solsniper/internal/agent"
	"solsniper/internal/config"
	"solsniper/internal/logger"
	"solsniper/internal/pumpswap"
	"solsniper/internal/risk"
)

// Pipeline stages, recorded with every audit event so a candidate's path
// through the funnel can be reconstructed afterwards.
const (
	StageCandidate       = "CANDIDATE"
	StageRiskChecked     = "RISK_CHECKED"
	StageDecisionChecked = "DECISION_CHECKED"
	StageSubmitted       = "SUBMITTED"
	StageVerified        = "VERIFIED"
)

// Auditor records pipeline events to durable storage.
type Auditor interface {
	Record(ctx context.Context, traceID, stage, mint string, detail map[string]any) error
}

// OpenRequest carries a verified entry to the position layer.
type OpenRequest struct {
	TraceID       string
	Mint          string
	Pool          solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	Fill          *Fill
	TakeProfitPct float64
	StopLossPct   float64
}

// Opener receives verified fills and takes over the position lifecycle.
type Opener interface {
	Open(ctx context.Context, req OpenRequest) error
}

// Screener produces a trade decision for a candidate. Satisfied by the
// chat-model client; tests plug in a stub.
type Screener interface {
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Pipeline drives one candidate from detection to an open position:
// risk gate, model screening, buy execution, fill verification.
type Pipeline struct {
	gate     *risk.Gate
	screener Screener
	exec     *Executor
	opener   Opener
	audit    Auditor
	trade    config.TradeConfig
}

func NewPipeline(gate *risk.Gate, screener Screener, exec *Executor, opener Opener, audit Auditor, trade config.TradeConfig) *Pipeline {
	return &Pipeline{gate: gate, screener: screener, exec: exec, opener: opener, audit: audit, trade: trade}
}

// Process runs the full funnel for one candidate. Rejections return typed
// errors so callers can separate "filtered out" from "broken".
func (p *Pipeline) Process(ctx context.Context, c risk.Candidate) error {
	traceID := uuid.NewString()
	p.record(ctx, traceID, StageCandidate, c.Mint, map[string]any{
		"pool": c.Pool, "creator": c.Creator, "liquidity_usd": c.LiquidityUSD,
		"pool_age_ms": c.PoolAgeMs, "buyers": c.DistinctBuyers,
	})

	verdict := p.gate.Check(c)
	if !verdict.Passed {
		p.record(ctx, traceID, StageRiskChecked, c.Mint, map[string]any{"passed": false, "reasons": verdict.Reasons})
		return &RiskRejectionError{Reasons: verdict.Reasons}
	}
	p.record(ctx, traceID, StageRiskChecked, c.Mint, map[string]any{"passed": true})

	reply, err := p.screener.Call(ctx, agent.SystemPrompt(), agent.CandidatePrompt(c, p.trade.MaxAmountLamports))
	if err != nil {
		return fmt.Errorf("screener call: %w", err)
	}
	decision, err := agent.ParseDecision(reply, p.trade.MaxAmountLamports)
	if err != nil {
		// Malformed output is treated like a skip, not an infrastructure
		// failure.
		p.record(ctx, traceID, StageDecisionChecked, c.Mint, map[string]any{"action": "skip", "reason": err.Error()})
		return &DecisionRejectedError{Reason: fmt.Sprintf("unparseable reply: %v", err)}
	}
	if decision.Action != "buy" {
		p.record(ctx, traceID, StageDecisionChecked, c.Mint, map[string]any{"action": decision.Action, "reason": decision.Reason})
		return &DecisionRejectedError{Reason: decision.Reason}
	}
	p.record(ctx, traceID, StageDecisionChecked, c.Mint, map[string]any{
		"action": "buy", "amount": decision.AmountLamports,
		"tp_pct": decision.TakeProfitPct, "sl_pct": decision.StopLossPct,
		"confidence": decision.Confidence,
	})

	pool, err := solana.PublicKeyFromBase58(c.Pool)
	if err != nil {
		return fmt.Errorf("pool address: %w", err)
	}
	baseMint, err := solana.PublicKeyFromBase58(c.Mint)
	if err != nil {
		return fmt.Errorf("mint address: %w", err)
	}
	quoteMint := pumpswap.WSOLMint

	fill, err := p.exec.Buy(ctx, pool, baseMint, quoteMint, decision.AmountLamports)
	if err != nil {
		p.record(ctx, traceID, StageSubmitted, c.Mint, map[string]any{"ok": false, "error": err.Error()})
		return err
	}
	p.record(ctx, traceID, StageVerified, c.Mint, map[string]any{
		"signature": fill.Signature.String(),
		"base":      fill.BaseDelta, "quote": fill.QuoteDelta,
		"price": fill.Price.String(),
	})
	logger.Infof("[ENGINE] bought mint=%s tokens=%d spent=%d price=%s sig=%s",
		c.Mint, fill.BaseDelta, -fill.QuoteDelta, fill.Price, fill.Signature)

	return p.opener.Open(ctx, OpenRequest{
		TraceID:       traceID,
		Mint:          c.Mint,
		Pool:          pool,
		BaseMint:      baseMint,
		QuoteMint:     quoteMint,
		Fill:          fill,
		TakeProfitPct: decision.TakeProfitPct,
		StopLossPct:   decision.StopLossPct,
	})
}

func (p *Pipeline) record(ctx context.Context, traceID, stage, mint string, detail map[string]any) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Record(ctx, traceID, stage, mint, detail); err != nil {
		logger.Warnf("[ENGINE] audit record failed stage=%s: %v", stage, err)
	}
}
