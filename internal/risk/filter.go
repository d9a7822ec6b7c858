package risk

import (
	"solsniper/internal/config"
	"solsniper/internal/logger"
)

// Reject reasons, stable identifiers carried into the audit log.
const (
	ReasonLowLiquidity     = "LOW_LIQUIDITY"
	ReasonBlacklistCreator = "BLACKLIST_CREATOR"
	ReasonNoBuyerSupport   = "NO_BUYER_SUPPORT"
	ReasonTooEarly         = "TOO_EARLY"
	ReasonTooLate          = "TOO_LATE"
	ReasonInvalidDecimals  = "INVALID_DECIMALS"
)

const requiredDecimals = 9

// Candidate is a freshly detected pool under consideration for entry.
type Candidate struct {
	Mint          string
	Pool          string
	Creator       string
	LiquidityUSD  float64
	Decimals      int
	PoolAgeMs     int64
	DistinctBuyers int
}

// Verdict is the outcome of the gate. An empty Reasons slice means pass.
type Verdict struct {
	Passed  bool
	Reasons []string
}

// Gate applies the configured pre-trade checks to each candidate.
// All checks run so a rejection records every failing reason at once.
type Gate struct {
	cfg      config.RiskConfig
	denylist *Denylist
}

func NewGate(cfg config.RiskConfig, denylist *Denylist) *Gate {
	return &Gate{cfg: cfg, denylist: denylist}
}

func (g *Gate) Check(c Candidate) Verdict {
	var reasons []string
	if c.LiquidityUSD < g.cfg.MinLiquidityUSD {
		reasons = append(reasons, ReasonLowLiquidity)
	}
	if g.denylist != nil && g.denylist.Contains(c.Creator) {
		reasons = append(reasons, ReasonBlacklistCreator)
	}
	if c.DistinctBuyers < g.cfg.MinBuyers {
		reasons = append(reasons, ReasonNoBuyerSupport)
	}
	if c.PoolAgeMs < g.cfg.MinPoolAgeMs {
		reasons = append(reasons, ReasonTooEarly)
	}
	if c.PoolAgeMs > g.cfg.MaxPoolAgeMs {
		reasons = append(reasons, ReasonTooLate)
	}
	if c.Decimals != requiredDecimals {
		reasons = append(reasons, ReasonInvalidDecimals)
	}
	if len(reasons) > 0 {
		logger.Debugf("[RISK] rejected mint=%s reasons=%v", c.Mint, reasons)
		return Verdict{Passed: false, Reasons: reasons}
	}
	return Verdict{Passed: true}
}
