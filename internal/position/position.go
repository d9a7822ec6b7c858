package position

import (
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Lifecycle states. A position moves OPEN -> CLOSING -> CLOSED; a failed
// exit moves it back from CLOSING to OPEN so triggers can fire again.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Exit reasons recorded with a close.
const (
	ExitTakeProfit   = "TAKE_PROFIT"
	ExitStopLoss     = "STOP_LOSS"
	ExitMomentumFade = "MOMENTUM_FADE"
	ExitManual       = "MANUAL"
)

// Position is one live holding with its exit levels precomputed as
// absolute prices. ID is derived from the pool and the entry timestamp;
// TraceID links back to the pipeline audit trail.
type Position struct {
	ID            string
	TraceID       string
	Mint          string
	Pool          solana.PublicKey
	BaseMint      solana.PublicKey
	QuoteMint     solana.PublicKey
	SizeTokens    uint64
	SpentLamports uint64
	EntryPrice    decimal.Decimal
	TakeProfit    decimal.Decimal
	StopLoss      decimal.Decimal
	OpenedAt      time.Time

	state atomic.Int32
}

func (p *Position) State() State { return State(p.state.Load()) }

// claim atomically moves OPEN to CLOSING. Exactly one trigger wins when
// several fire on the same tick.
func (p *Position) claim() bool {
	return p.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
}

// release reverts a failed exit so the position stays live.
func (p *Position) release() {
	p.state.CompareAndSwap(int32(StateClosing), int32(StateOpen))
}

func (p *Position) close() {
	p.state.Store(int32(StateClosed))
}

// shouldTakeProfit reports whether price has reached the take-profit
// level. The boundary itself triggers.
func (p *Position) shouldTakeProfit(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(p.TakeProfit)
}

func (p *Position) shouldStopLoss(price decimal.Decimal) bool {
	return price.LessThanOrEqual(p.StopLoss)
}
