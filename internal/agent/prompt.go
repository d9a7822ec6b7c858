package agent

import (
	"encoding/json"

	"solsniper/internal/risk"
)

const systemPrompt = `You are a strict trade screener for newly created Solana AMM pools.
Reply with a single JSON object and nothing else:
{"action":"buy"|"skip","amount_lamports":number,"take_profit_pct":number,"stop_loss_pct":number,"confidence":number,"reason":string}
Skip anything that looks like a honeypot, a rug or thin liquidity.`

// SystemPrompt returns the fixed instruction block for the screener model.
func SystemPrompt() string { return systemPrompt }

// CandidatePrompt renders the candidate facts as the user message.
func CandidatePrompt(c risk.Candidate, maxAmountLamports uint64) string {
	b, _ := json.Marshal(map[string]any{
		"mint":            c.Mint,
		"pool":            c.Pool,
		"creator":         c.Creator,
		"liquidity_usd":   c.LiquidityUSD,
		"pool_age_ms":     c.PoolAgeMs,
		"distinct_buyers": c.DistinctBuyers,
		"max_spend":       maxAmountLamports,
	})
	return string(b)
}
