package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solsniper/internal/config"
	"solsniper/internal/pumpswap"
	"solsniper/internal/risk"
)

type stubScreener struct {
	reply string
	err   error
}

func (s *stubScreener) Call(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

type stubOpener struct {
	mu   sync.Mutex
	reqs []OpenRequest
}

func (s *stubOpener) Open(_ context.Context, req OpenRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return nil
}

type memAuditor struct {
	mu     sync.Mutex
	stages []string
}

func (m *memAuditor) Record(_ context.Context, _, stage, _ string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
	return nil
}

func passingCandidate(pool, mint string) risk.Candidate {
	return risk.Candidate{
		Mint:           mint,
		Pool:           pool,
		Creator:        "creator",
		LiquidityUSD:   500,
		Decimals:       9,
		PoolAgeMs:      1000,
		DistinctBuyers: 3,
	}
}

func testPipeline(t *testing.T, screener Screener) (*Pipeline, *stubOpener, *memAuditor, risk.Candidate) {
	t.Helper()
	fc := &fakeChain{}
	trade := config.TradeConfig{MaxAmountLamports: 100_000_000, SlippageBps: 300, SubmitRetries: 1}
	exec, pool, baseMint := testExecutor(t, fc, trade)
	fc.deltas = map[solana.PublicKey]int64{
		baseMint:          1_000_000,
		pumpswap.WSOLMint: -50_000_000,
	}
	gate := risk.NewGate(config.RiskConfig{MinLiquidityUSD: 300, MinBuyers: 1, MinPoolAgeMs: 150, MaxPoolAgeMs: 5000}, nil)
	opener := &stubOpener{}
	auditor := &memAuditor{}
	p := NewPipeline(gate, screener, exec, opener, auditor, trade)
	return p, opener, auditor, passingCandidate(pool.String(), baseMint.String())
}

func TestPipelineFullFunnel(t *testing.T) {
	screener := &stubScreener{reply: `{"action":"buy","amount_lamports":50000000,"take_profit_pct":200,"stop_loss_pct":50,"confidence":0.9}`}
	p, opener, auditor, candidate := testPipeline(t, screener)

	require.NoError(t, p.Process(context.Background(), candidate))

	require.Len(t, opener.reqs, 1)
	req := opener.reqs[0]
	assert.Equal(t, candidate.Mint, req.Mint)
	assert.Equal(t, 200.0, req.TakeProfitPct)
	assert.Equal(t, int64(1_000_000), req.Fill.BaseDelta)
	assert.NotEmpty(t, req.TraceID)

	assert.Equal(t, []string{
		StageCandidate, StageRiskChecked, StageDecisionChecked, StageVerified,
	}, auditor.stages)
}

func TestPipelineRiskRejection(t *testing.T) {
	screener := &stubScreener{reply: `{"action":"buy","amount_lamports":1,"take_profit_pct":100,"stop_loss_pct":30}`}
	p, opener, auditor, candidate := testPipeline(t, screener)
	candidate.LiquidityUSD = 200 // below the 300 floor

	err := p.Process(context.Background(), candidate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRiskRejected)

	var rej *RiskRejectionError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reasons, risk.ReasonLowLiquidity)

	assert.Empty(t, opener.reqs, "rejected candidates never reach execution")
	assert.Equal(t, []string{StageCandidate, StageRiskChecked}, auditor.stages)
}

func TestPipelineDecisionSkip(t *testing.T) {
	screener := &stubScreener{reply: `{"action":"skip","reason":"looks like a honeypot"}`}
	p, opener, _, candidate := testPipeline(t, screener)

	err := p.Process(context.Background(), candidate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecisionRejected)
	assert.Empty(t, opener.reqs)
}

func TestPipelineMalformedDecision(t *testing.T) {
	screener := &stubScreener{reply: `sure, buying now!`}
	p, opener, _, candidate := testPipeline(t, screener)

	err := p.Process(context.Background(), candidate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecisionRejected, "garbage output counts as a skip")
	var rejected *DecisionRejectedError
	assert.ErrorAs(t, err, &rejected)
	assert.Empty(t, opener.reqs)
}
