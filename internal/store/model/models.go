package model

import (
	"gorm.io/datatypes"
)

type PositionStatus int

const (
	PositionStatusUnknown PositionStatus = 0
	PositionStatusOpen    PositionStatus = 1
	PositionStatusClosing PositionStatus = 2
	PositionStatusClosed  PositionStatus = 3
)

type PositionModel struct {
	ID               int64          `gorm:"column:id;primaryKey"`
	PositionID       string         `gorm:"column:position_id;uniqueIndex"`
	TraceID          string         `gorm:"column:trace_id;index"`
	Mint             string         `gorm:"column:mint;index"`
	Pool             string         `gorm:"column:pool"`
	SizeTokens       uint64         `gorm:"column:size_tokens"`
	SpentLamports    uint64         `gorm:"column:spent_lamports"`
	EntryPrice       string         `gorm:"column:entry_price"`
	TakeProfit       string         `gorm:"column:take_profit"`
	StopLoss         string         `gorm:"column:stop_loss"`
	Status           PositionStatus `gorm:"column:status;index"`
	ExitReason       string         `gorm:"column:exit_reason"`
	ReceivedLamports int64          `gorm:"column:received_lamports"`
	RealizedPnL      int64          `gorm:"column:realized_pnl"`
	CloseDetail      datatypes.JSON `gorm:"column:close_detail"`
	OpenedAtUnix     int64          `gorm:"column:opened_at"`
	ClosedAtUnix     int64          `gorm:"column:closed_at"`
	CreatedAtUnix    int64          `gorm:"column:created_at"`
	UpdatedAtUnix    int64          `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }
