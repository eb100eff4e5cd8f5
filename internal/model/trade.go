package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade 对应 trades 表：每条 OrderFilled 日志一行。
// 自然键 (market_id, outcome, order_id, block_number, log_index) 全局唯一，
// 回滚按该键做精确匹配删除，保证删到且只删到当初插入的那一行。
type Trade struct {
	ID                uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	MarketID          string          `gorm:"column:market_id;type:varchar(66);uniqueIndex:uk_trade;not null"`
	Outcome           int             `gorm:"column:outcome;type:int;uniqueIndex:uk_trade;not null"`
	OrderID           string          `gorm:"column:order_id;type:varchar(66);uniqueIndex:uk_trade;not null"`
	BlockNumber       uint64          `gorm:"column:block_number;uniqueIndex:uk_trade;not null"`
	LogIndex          uint64          `gorm:"column:log_index;uniqueIndex:uk_trade;not null"`
	TransactionHash   string          `gorm:"column:transaction_hash;type:varchar(66);not null"`
	ShareToken        string          `gorm:"column:share_token;type:varchar(66);not null"`
	OrderType         OrderType       `gorm:"column:order_type;type:varchar(8);not null"`
	Creator           string          `gorm:"column:creator;type:varchar(66);index;not null"`
	Filler            string          `gorm:"column:filler;type:varchar(66);index;not null"`
	NumCreatorTokens  decimal.Decimal `gorm:"column:num_creator_tokens;type:numeric(30,18);not null"`
	NumCreatorShares  decimal.Decimal `gorm:"column:num_creator_shares;type:numeric(30,18);not null"`
	NumFillerTokens   decimal.Decimal `gorm:"column:num_filler_tokens;type:numeric(30,18);not null"`
	NumFillerShares   decimal.Decimal `gorm:"column:num_filler_shares;type:numeric(30,18);not null"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(30,18);not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(30,18);not null"`
	MarketCreatorFees decimal.Decimal `gorm:"column:market_creator_fees;type:numeric(30,18);default:0"`
	ReporterFees      decimal.Decimal `gorm:"column:reporter_fees;type:numeric(30,18);default:0"`
	TradeGroupID      *string         `gorm:"column:trade_group_id;type:varchar(66)"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Trade) TableName() string { return "trades" }

// TradeKey 回滚删除用的自然键
type TradeKey struct {
	MarketID    string
	Outcome     int
	OrderID     string
	BlockNumber uint64
	LogIndex    uint64
}
