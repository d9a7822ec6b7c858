// Package store persists position history in a local SQLite database.
// One writer, occasional readers from the HTTP surface.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"solsniper/internal/engine"
	"solsniper/internal/position"
	"solsniper/internal/store/model"
)

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewFromDB(db)
}

func NewFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db is nil")
	}
	if err := db.AutoMigrate(&model.PositionModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

// RecordOpen writes the entry row for a new position.
func (s *Store) RecordOpen(ctx context.Context, p *position.Position) error {
	now := time.Now().Unix()
	m := &model.PositionModel{
		PositionID:    p.ID,
		TraceID:       p.TraceID,
		Mint:          p.Mint,
		Pool:          p.Pool.String(),
		SizeTokens:    p.SizeTokens,
		SpentLamports: p.SpentLamports,
		EntryPrice:    p.EntryPrice.String(),
		TakeProfit:    p.TakeProfit.String(),
		StopLoss:      p.StopLoss.String(),
		Status:        model.PositionStatusOpen,
		OpenedAtUnix:  p.OpenedAt.Unix(),
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// RecordClose marks the position closed and stores the exit fill detail.
func (s *Store) RecordClose(ctx context.Context, p *position.Position, reason string, fill *engine.Fill) error {
	detail, _ := json.Marshal(map[string]any{
		"signature":   fill.Signature.String(),
		"exit_price":  fill.Price.String(),
		"base_delta":  fill.BaseDelta,
		"quote_delta": fill.QuoteDelta,
	})
	now := time.Now().Unix()
	updates := map[string]any{
		"status":            model.PositionStatusClosed,
		"exit_reason":       reason,
		"received_lamports": fill.QuoteDelta,
		"realized_pnl":      fill.QuoteDelta - int64(p.SpentLamports),
		"close_detail":      detail,
		"closed_at":         now,
		"updated_at":        now,
	}
	return s.db.WithContext(ctx).
		Model(&model.PositionModel{}).
		Where("position_id = ?", p.ID).
		Updates(updates).Error
}

// Closed returns closed positions, newest first.
func (s *Store) Closed(ctx context.Context, limit int) ([]model.PositionModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.PositionModel
	err := s.db.WithContext(ctx).
		Where("status = ?", model.PositionStatusClosed).
		Order("closed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SumRealizedPnL returns total realized profit in lamports and the number
// of closed positions.
func (s *Store) SumRealizedPnL(ctx context.Context) (int64, int64, error) {
	var out struct {
		Total int64
		N     int64
	}
	err := s.db.WithContext(ctx).
		Model(&model.PositionModel{}).
		Where("status = ?", model.PositionStatusClosed).
		Select("COALESCE(SUM(realized_pnl),0) AS total, COUNT(*) AS n").
		Scan(&out).Error
	return out.Total, out.N, err
}

// EquityCurve returns cumulative realized pnl per close, oldest first.
func (s *Store) EquityCurve(ctx context.Context) (times []int64, equity []int64, err error) {
	var rows []model.PositionModel
	if err = s.db.WithContext(ctx).
		Where("status = ?", model.PositionStatusClosed).
		Order("closed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	var running int64
	for _, r := range rows {
		running += r.RealizedPnL
		times = append(times, r.ClosedAtUnix)
		equity = append(equity, running)
	}
	return times, equity, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
