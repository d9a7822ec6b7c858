package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solsniper/internal/engine"
	"solsniper/internal/position"
	"solsniper/internal/store/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "positions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPosition(id, mint string, spent uint64) *position.Position {
	return &position.Position{
		ID:            id,
		TraceID:       "trace-" + id,
		Mint:          mint,
		SizeTokens:    1_000_000,
		SpentLamports: spent,
		EntryPrice:    decimal.NewFromInt(1),
		TakeProfit:    decimal.NewFromInt(3),
		StopLoss:      decimal.NewFromFloat(0.5),
		OpenedAt:      time.Now(),
	}
}

func closeFill(received int64) *engine.Fill {
	return &engine.Fill{
		BaseDelta:  -1_000_000,
		QuoteDelta: received,
		Price:      decimal.NewFromFloat(1.5),
		FilledAt:   time.Now(),
	}
}

func TestRecordOpenAndClose(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := testPosition("t1", "mintA", 100)

	require.NoError(t, s.RecordOpen(ctx, p))
	require.NoError(t, s.RecordClose(ctx, p, position.ExitTakeProfit, closeFill(150)))

	rows, err := s.Closed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "t1", row.PositionID)
	assert.Equal(t, "trace-t1", row.TraceID)
	assert.Equal(t, "mintA", row.Mint)
	assert.Equal(t, model.PositionStatusClosed, row.Status)
	assert.Equal(t, position.ExitTakeProfit, row.ExitReason)
	assert.Equal(t, int64(50), row.RealizedPnL)
	assert.NotEmpty(t, row.CloseDetail)
}

func TestSumRealizedPnL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p1 := testPosition("t1", "mintA", 100)
	require.NoError(t, s.RecordOpen(ctx, p1))
	require.NoError(t, s.RecordClose(ctx, p1, position.ExitTakeProfit, closeFill(180)))

	p2 := testPosition("t2", "mintB", 100)
	require.NoError(t, s.RecordOpen(ctx, p2))
	require.NoError(t, s.RecordClose(ctx, p2, position.ExitStopLoss, closeFill(60)))

	p3 := testPosition("t3", "mintC", 100)
	require.NoError(t, s.RecordOpen(ctx, p3)) // still open, excluded

	total, n, err := s.SumRealizedPnL(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(80-40), total)
	assert.Equal(t, int64(2), n)
}

func TestEquityCurveAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, received := range []int64{150, 60} {
		p := testPosition(string(rune('a'+i)), "mint", 100)
		require.NoError(t, s.RecordOpen(ctx, p))
		require.NoError(t, s.RecordClose(ctx, p, position.ExitManual, closeFill(received)))
	}

	_, equity, err := s.EquityCurve(ctx)
	require.NoError(t, err)
	require.Len(t, equity, 2)
	assert.Equal(t, int64(50), equity[0])
	assert.Equal(t, int64(10), equity[1], "curve is cumulative")
}
