package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solsniper/internal/config"
	"solsniper/internal/engine"
)

type fakeSeller struct {
	mu    sync.Mutex
	calls int32
	fail  bool
	fill  *engine.Fill
}

func (f *fakeSeller) Sell(_ context.Context, _, _, _ solana.PublicKey, amount uint64) (*engine.Fill, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("rpc unavailable")
	}
	if f.fill != nil {
		return f.fill, nil
	}
	return &engine.Fill{
		BaseDelta:  -int64(amount),
		QuoteDelta: 150_000_000,
		Price:      decimal.NewFromFloat(1.5),
		FilledAt:   time.Now(),
	}, nil
}

func (f *fakeSeller) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

type fakeRecorder struct {
	mu      sync.Mutex
	opens   []string
	reasons []string
}

func (f *fakeRecorder) RecordOpen(_ context.Context, p *Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, p.Mint)
	return nil
}

func (f *fakeRecorder) RecordClose(_ context.Context, _ *Position, reason string, _ *engine.Fill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
	return nil
}

func (f *fakeRecorder) closeReasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reasons...)
}

type fakeBuyers struct {
	n         atomic.Int32
	mu        sync.Mutex
	forgotten []string
}

func (f *fakeBuyers) Count(string, time.Duration) int { return int(f.n.Load()) }

func (f *fakeBuyers) Forget(mint string) {
	f.mu.Lock()
	f.forgotten = append(f.forgotten, mint)
	f.mu.Unlock()
}

func (f *fakeBuyers) forgot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.forgotten...)
}

// slowSeller holds the sell leg open until its delay elapses or the
// context is cancelled.
type slowSeller struct {
	delay     time.Duration
	completed atomic.Int32
	cancelled atomic.Int32
	started   chan struct{}
	once      sync.Once
}

func (s *slowSeller) Sell(ctx context.Context, _, _, _ solana.PublicKey, amount uint64) (*engine.Fill, error) {
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	select {
	case <-time.After(s.delay):
		s.completed.Add(1)
		return &engine.Fill{
			BaseDelta:  -int64(amount),
			QuoteDelta: 150_000_000,
			Price:      decimal.NewFromFloat(1.5),
			FilledAt:   time.Now(),
		}, nil
	case <-ctx.Done():
		s.cancelled.Add(1)
		return nil, ctx.Err()
	}
}

func quietMomentum() config.MomentumConfig {
	// Polling far slower than any test runs, so momentum never interferes
	// unless a test configures it to.
	return config.MomentumConfig{WindowSeconds: 3600, MinBuyers: 0, PollMinMs: 60_000, PollMaxMs: 60_000}
}

func newTestManager(t *testing.T, cfg config.MomentumConfig, seller Seller, buyers BuyerCounter) (*Manager, *fakeRecorder) {
	t.Helper()
	rec := &fakeRecorder{}
	m := NewManager(cfg, seller, rec, nil, buyers, nil)
	t.Cleanup(m.Stop)
	return m, rec
}

func openRequest(mint string) engine.OpenRequest {
	return engine.OpenRequest{
		TraceID: "trace-" + mint,
		Mint:    mint,
		Fill: &engine.Fill{
			BaseDelta:  1_000_000,
			QuoteDelta: -100_000_000,
			Price:      decimal.NewFromInt(1),
			FilledAt:   time.Now(),
		},
		TakeProfitPct: 200,
		StopLossPct:   50,
	}
}

func TestOpenRegistersPosition(t *testing.T) {
	m, rec := newTestManager(t, quietMomentum(), &fakeSeller{}, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	p := snap[0]
	assert.Equal(t, "mintA", p.Mint)
	assert.True(t, p.TakeProfit.Equal(decimal.NewFromInt(3)), "tp level %s", p.TakeProfit)
	assert.True(t, p.StopLoss.Equal(decimal.NewFromFloat(0.5)), "sl level %s", p.StopLoss)
	assert.Equal(t, StateOpen, p.State())
	assert.Equal(t, []string{"mintA"}, rec.opens)

	assert.Error(t, m.Open(context.Background(), openRequest("mintA")), "duplicate mint must be rejected")
}

func TestTakeProfitBoundary(t *testing.T) {
	seller := &fakeSeller{}
	m, rec := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	m.OnPriceUpdate("mintA", decimal.NewFromFloat(2.99))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&seller.calls), "below the level nothing fires")

	m.OnPriceUpdate("mintA", decimal.NewFromInt(3))
	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&seller.calls))
	assert.Equal(t, []string{ExitTakeProfit}, rec.closeReasons())
}

func TestStopLossBoundary(t *testing.T) {
	seller := &fakeSeller{}
	m, rec := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	m.OnPriceUpdate("mintA", decimal.NewFromFloat(0.51))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&seller.calls))

	m.OnPriceUpdate("mintA", decimal.NewFromFloat(0.5))
	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{ExitStopLoss}, rec.closeReasons())
}

func TestConcurrentTriggersSellOnce(t *testing.T) {
	seller := &fakeSeller{}
	m, _ := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.OnPriceUpdate("mintA", decimal.NewFromInt(3))
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&seller.calls), "exactly one exit leg")
}

func TestFailedSellReopensPosition(t *testing.T) {
	seller := &fakeSeller{fail: true}
	m, rec := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	m.OnPriceUpdate("mintA", decimal.NewFromInt(3))
	assert.Eventually(t, func() bool {
		snap := m.Snapshot()
		return len(snap) == 1 && snap[0].State() == StateOpen
	}, 2*time.Second, 10*time.Millisecond, "failed exit must revert to OPEN")
	assert.Empty(t, rec.closeReasons())

	// the next trigger retries and succeeds
	seller.setFail(false)
	m.OnPriceUpdate("mintA", decimal.NewFromInt(3))
	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{ExitTakeProfit}, rec.closeReasons())
}

func TestStopWaitsForInFlightExits(t *testing.T) {
	seller := &slowSeller{delay: 200 * time.Millisecond}
	m, rec := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	m.CloseAll()
	m.Stop()

	assert.Equal(t, int32(1), seller.completed.Load(), "drain must let the sell finish")
	assert.Equal(t, int32(0), seller.cancelled.Load(), "drain must not cancel its own exits")
	assert.Empty(t, m.Snapshot())
	assert.Equal(t, []string{ExitManual}, rec.closeReasons())
}

func TestAbortCancelsStuckExit(t *testing.T) {
	seller := &slowSeller{delay: time.Hour, started: make(chan struct{})}
	m, rec := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	m.CloseAll()
	<-seller.started

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	m.Abort()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after Abort")
	}
	assert.Equal(t, int32(1), seller.cancelled.Load())
	snap := m.Snapshot()
	require.Len(t, snap, 1, "aborted exit releases the position")
	assert.Equal(t, StateOpen, snap[0].State())
	assert.Empty(t, rec.closeReasons())
}

func TestCloseForgetsMintState(t *testing.T) {
	buyers := &fakeBuyers{}
	buyers.n.Store(100)
	seller := &fakeSeller{}
	m, _ := newTestManager(t, quietMomentum(), seller, buyers)

	var mu sync.Mutex
	var unsubscribed []string
	m.SetCloseHook(func(mint string) {
		mu.Lock()
		unsubscribed = append(unsubscribed, mint)
		mu.Unlock()
	})
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	m.OnPriceUpdate("mintA", decimal.NewFromInt(3))
	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(unsubscribed) == 1 && unsubscribed[0] == "mintA"
	}, 2*time.Second, 10*time.Millisecond, "feed subscription must be dropped")
	assert.Equal(t, []string{"mintA"}, buyers.forgot())
}

func TestPositionIDFromPoolAndTime(t *testing.T) {
	m, _ := newTestManager(t, quietMomentum(), &fakeSeller{}, nil)
	req := openRequest("mintA")
	req.Pool = solana.NewWallet().PublicKey()
	require.NoError(t, m.Open(context.Background(), req))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	p := snap[0]
	assert.Equal(t, fmt.Sprintf("%s-%d", req.Pool, req.Fill.FilledAt.UnixNano()), p.ID)
	assert.Equal(t, "trace-mintA", p.TraceID)
}

func TestMomentumFadeExit(t *testing.T) {
	cfg := config.MomentumConfig{WindowSeconds: 0, MinBuyers: 5, PollMinMs: 20, PollMaxMs: 20}
	buyers := &fakeBuyers{}
	buyers.n.Store(1)
	seller := &fakeSeller{}
	m, rec := newTestManager(t, cfg, seller, buyers)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{ExitMomentumFade}, rec.closeReasons())
}

func TestMomentumHoldsWithSupport(t *testing.T) {
	cfg := config.MomentumConfig{WindowSeconds: 0, MinBuyers: 2, PollMinMs: 20, PollMaxMs: 20}
	buyers := &fakeBuyers{}
	buyers.n.Store(5)
	seller := &fakeSeller{}
	m, _ := newTestManager(t, cfg, seller, buyers)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))

	time.Sleep(200 * time.Millisecond)
	assert.Len(t, m.Snapshot(), 1, "supported position stays open")
	assert.Equal(t, int32(0), atomic.LoadInt32(&seller.calls))
}

func TestCloseAll(t *testing.T) {
	seller := &fakeSeller{}
	m, rec := newTestManager(t, quietMomentum(), seller, nil)
	require.NoError(t, m.Open(context.Background(), openRequest("mintA")))
	require.NoError(t, m.Open(context.Background(), openRequest("mintB")))

	m.CloseAll()
	assert.Eventually(t, func() bool {
		return len(m.Snapshot()) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{ExitManual, ExitManual}, rec.closeReasons())
}
