package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position 对应 positions 表，键为 (market_id, account, outcome)。
// num_shares 由权威刷新用链上余额整行覆盖，本引擎不做增量调整；
// 盈亏列归盈亏计算流程所有，刷新时不碰。
type Position struct {
	ID                              uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	MarketID                        string          `gorm:"column:market_id;type:varchar(66);uniqueIndex:uk_position;not null"`
	Account                         string          `gorm:"column:account;type:varchar(66);uniqueIndex:uk_position;not null"`
	Outcome                         int             `gorm:"column:outcome;type:int;uniqueIndex:uk_position;not null"`
	NumShares                       decimal.Decimal `gorm:"column:num_shares;type:numeric(30,18);default:0"`
	NumSharesAdjustedForUserIntention decimal.Decimal `gorm:"column:num_shares_adjusted_for_user_intention;type:numeric(30,18);default:0"`
	RealizedProfitLoss              decimal.Decimal `gorm:"column:realized_profit_loss;type:numeric(30,18);default:0"`
	UnrealizedProfitLoss            decimal.Decimal `gorm:"column:unrealized_profit_loss;type:numeric(30,18);default:0"`
	UpdatedAt                       time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Position) TableName() string { return "positions" }
