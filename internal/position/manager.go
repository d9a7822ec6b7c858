package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"solsniper/internal/config"
	"solsniper/internal/engine"
	"solsniper/internal/logger"
	"solsniper/internal/scheduler"
)

// Seller executes the exit leg. Satisfied by the engine executor.
type Seller interface {
	Sell(ctx context.Context, pool, baseMint, quoteMint solana.PublicKey, amountTokens uint64) (*engine.Fill, error)
}

// Recorder persists lifecycle transitions.
type Recorder interface {
	RecordOpen(ctx context.Context, p *Position) error
	RecordClose(ctx context.Context, p *Position, reason string, fill *engine.Fill) error
}

// Notifier pushes human-readable trade events.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// BuyerCounter reports how many distinct wallets bought an asset within
// the trailing window and drops an asset's state once it is no longer
// tracked.
type BuyerCounter interface {
	Count(mint string, window time.Duration) int
	Forget(mint string)
}

const exitTimeout = 90 * time.Second

// Manager owns every open position: it reacts to price ticks with
// take-profit and stop-loss checks, polls buyer momentum on an adaptive
// cadence, and runs the exits.
type Manager struct {
	cfg      config.MomentumConfig
	seller   Seller
	recorder Recorder
	notifier Notifier
	buyers   BuyerCounter
	cadence  *scheduler.Adaptive
	onClose  func(mint string)

	mu        sync.RWMutex
	positions map[string]*Position // keyed by mint

	// Watchers and exits stop on separate signals: Stop cancels the
	// watchers and drains, Abort force-cancels in-flight exits.
	watchCtx  context.Context
	stopWatch context.CancelFunc
	exitCtx   context.Context
	killExits context.CancelFunc
	wg        sync.WaitGroup
}

func NewManager(cfg config.MomentumConfig, seller Seller, recorder Recorder, notifier Notifier, buyers BuyerCounter, vol scheduler.VolatilityFunc) *Manager {
	watchCtx, stopWatch := context.WithCancel(context.Background())
	exitCtx, killExits := context.WithCancel(context.Background())
	return &Manager{
		cfg:       cfg,
		seller:    seller,
		recorder:  recorder,
		notifier:  notifier,
		buyers:    buyers,
		cadence:   scheduler.New(time.Duration(cfg.PollMinMs)*time.Millisecond, time.Duration(cfg.PollMaxMs)*time.Millisecond, vol),
		positions: map[string]*Position{},
		watchCtx:  watchCtx,
		stopWatch: stopWatch,
		exitCtx:   exitCtx,
		killExits: killExits,
	}
}

// SetCloseHook installs a callback run after a position closes, used to
// drop the mint's feed subscription.
func (m *Manager) SetCloseHook(fn func(mint string)) {
	m.onClose = fn
}

// Open registers a verified fill as a live position and starts its
// momentum watcher. Implements the pipeline's Opener.
func (m *Manager) Open(ctx context.Context, req engine.OpenRequest) error {
	if req.Fill == nil || req.Fill.BaseDelta <= 0 {
		return fmt.Errorf("open %s: fill has no tokens", req.Mint)
	}
	entry := req.Fill.Price
	openedAt := req.Fill.FilledAt
	if openedAt.IsZero() {
		openedAt = time.Now()
	}
	hundred := decimal.NewFromInt(100)
	p := &Position{
		ID:            fmt.Sprintf("%s-%d", req.Pool, openedAt.UnixNano()),
		TraceID:       req.TraceID,
		Mint:          req.Mint,
		Pool:          req.Pool,
		BaseMint:      req.BaseMint,
		QuoteMint:     req.QuoteMint,
		SizeTokens:    uint64(req.Fill.BaseDelta),
		SpentLamports: uint64(-req.Fill.QuoteDelta),
		EntryPrice:    entry,
		TakeProfit:    entry.Mul(decimal.NewFromFloat(req.TakeProfitPct).Div(hundred).Add(decimal.NewFromInt(1))),
		StopLoss:      entry.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(req.StopLossPct).Div(hundred))),
		OpenedAt:      openedAt,
	}

	m.mu.Lock()
	if _, exists := m.positions[p.Mint]; exists {
		m.mu.Unlock()
		return fmt.Errorf("open %s: position already exists", p.Mint)
	}
	m.positions[p.Mint] = p
	m.mu.Unlock()

	if err := m.recorder.RecordOpen(ctx, p); err != nil {
		logger.Errorf("[POS] record open %s: %v", p.Mint, err)
	}
	m.notify(fmt.Sprintf("opened %s size=%d entry=%s tp=%s sl=%s",
		p.Mint, p.SizeTokens, p.EntryPrice, p.TakeProfit, p.StopLoss))

	m.wg.Add(1)
	go m.momentumLoop(p)
	return nil
}

// OnPriceUpdate is the feed callback. Both boundaries are inclusive; when
// a tick satisfies both levels at once only one exit runs, decided by the
// claim on the position.
func (m *Manager) OnPriceUpdate(mint string, price decimal.Decimal) {
	m.mu.RLock()
	p, ok := m.positions[mint]
	m.mu.RUnlock()
	if !ok || p.State() != StateOpen {
		return
	}
	switch {
	case p.shouldTakeProfit(price):
		m.exit(p, ExitTakeProfit, price)
	case p.shouldStopLoss(price):
		m.exit(p, ExitStopLoss, price)
	}
}

// momentumLoop polls distinct-buyer support on the adaptive cadence and
// exits the position when support fades.
func (m *Manager) momentumLoop(p *Position) {
	defer m.wg.Done()
	window := time.Duration(m.cfg.WindowSeconds) * time.Second
	for {
		wait := m.cadence.Next(p.Mint)
		select {
		case <-m.watchCtx.Done():
			return
		case <-time.After(wait):
		}
		if p.State() == StateClosed {
			return
		}
		if p.State() != StateOpen {
			continue
		}
		if m.buyers == nil {
			continue
		}
		// No momentum judgement until the position has lived a full
		// window, otherwise a fresh entry always looks faded.
		if time.Since(p.OpenedAt) < window {
			continue
		}
		if n := m.buyers.Count(p.Mint, window); n < m.cfg.MinBuyers {
			logger.Infof("[POS] momentum fade %s buyers=%d min=%d", p.Mint, n, m.cfg.MinBuyers)
			m.exit(p, ExitMomentumFade, decimal.Zero)
		}
	}
}

// exit claims the position and runs the sell leg in its own goroutine. A
// failed sell releases the claim so the position remains live.
func (m *Manager) exit(p *Position, reason string, trigger decimal.Decimal) {
	if !p.claim() {
		return
	}
	logger.Infof("[POS] closing %s reason=%s trigger=%s", p.Mint, reason, trigger)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.exitCtx, exitTimeout)
		defer cancel()
		fill, err := m.seller.Sell(ctx, p.Pool, p.BaseMint, p.QuoteMint, p.SizeTokens)
		if err != nil {
			p.release()
			logger.Errorf("[POS] sell %s failed, position stays open: %v", p.Mint, err)
			m.notify(fmt.Sprintf("exit %s (%s) FAILED: %v", p.Mint, reason, err))
			return
		}
		p.close()
		m.mu.Lock()
		delete(m.positions, p.Mint)
		m.mu.Unlock()
		if m.buyers != nil {
			m.buyers.Forget(p.Mint)
		}
		if m.onClose != nil {
			m.onClose(p.Mint)
		}
		if err := m.recorder.RecordClose(ctx, p, reason, fill); err != nil {
			logger.Errorf("[POS] record close %s: %v", p.Mint, err)
		}
		pnl := fill.QuoteDelta - int64(p.SpentLamports)
		m.notify(fmt.Sprintf("closed %s reason=%s received=%d spent=%d pnl=%d",
			p.Mint, reason, fill.QuoteDelta, p.SpentLamports, pnl))
		logger.Infof("[POS] closed %s reason=%s sig=%s pnl=%d lamports",
			p.Mint, reason, fill.Signature, pnl)
	}()
}

// CloseAll drains every open position, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	open := make([]*Position, 0, len(m.positions))
	for _, p := range m.positions {
		open = append(open, p)
	}
	m.mu.RUnlock()
	for _, p := range open {
		m.exit(p, ExitManual, decimal.Zero)
	}
}

// Snapshot returns a copy of the live positions for read-only consumers.
func (m *Manager) Snapshot() []*Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// Stop halts the momentum watchers and waits for in-flight exits to
// finish. Exits run on their own context so the drain cannot cancel
// them; Abort cuts a drain short when it must.
func (m *Manager) Stop() {
	m.stopWatch()
	m.wg.Wait()
	m.killExits()
}

// Abort force-cancels in-flight exit attempts, unblocking a drain that
// is stuck on slow sells. Cancelled exits release their positions back
// to OPEN.
func (m *Manager) Abort() {
	m.killExits()
}

func (m *Manager) notify(text string) {
	if m.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.notifier.Notify(ctx, text); err != nil {
		logger.Warnf("[POS] notify failed: %v", err)
	}
}
