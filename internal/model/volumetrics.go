package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome 对应 outcomes 表：按 (market_id, outcome) 维护的成交聚合。
// 不变量：任一已提交时点，volume 等于当前在库 trades 行的 amount 之和。
type Outcome struct {
	ID          uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	MarketID    string          `gorm:"column:market_id;type:varchar(66);uniqueIndex:uk_outcome;not null"`
	Outcome     int             `gorm:"column:outcome;type:int;uniqueIndex:uk_outcome;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(30,18);default:0"`
	Volume      decimal.Decimal `gorm:"column:volume;type:numeric(30,18);default:0"`
	ShareVolume decimal.Decimal `gorm:"column:share_volume;type:numeric(30,18);default:0"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Outcome) TableName() string { return "outcomes" }

// OutcomeLiquidity 按价差档位归集的流动性代币量（outcomes_liquidity 表）
type OutcomeLiquidity struct {
	ID              uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	MarketID        string          `gorm:"column:market_id;type:varchar(66);uniqueIndex:uk_outcome_liquidity;not null"`
	Outcome         int             `gorm:"column:outcome;type:int;uniqueIndex:uk_outcome_liquidity;not null"`
	SpreadPercent   int             `gorm:"column:spread_percent;type:int;uniqueIndex:uk_outcome_liquidity;not null"`
	LiquidityTokens decimal.Decimal `gorm:"column:liquidity_tokens;type:numeric(30,18);default:0"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (OutcomeLiquidity) TableName() string { return "outcomes_liquidity" }

// SyncCheckpoint 单行表：最近一条已提交日志的 (block_number, log_index)
type SyncCheckpoint struct {
	ID                 int       `gorm:"column:id;primaryKey;default:1"`
	HighestBlockNumber uint64    `gorm:"column:highest_block_number;default:0"`
	HighestLogIndex    uint64    `gorm:"column:highest_log_index;default:0"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (SyncCheckpoint) TableName() string { return "sync_checkpoints" }
