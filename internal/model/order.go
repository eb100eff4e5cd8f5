package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType 订单方向
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// OrderState 订单状态机：OPEN -> FILLED / CANCELED
type OrderState string

const (
	OrderStateOpen     OrderState = "OPEN"
	OrderStateFilled   OrderState = "FILLED"
	OrderStateCanceled OrderState = "CANCELED"
)

// Order 对应 orders 表。
// amount / full_precision_amount 是权威刷新目标：每次刷新用链上当前剩余量整行覆盖，
// 绝不做增减；original_* 列保留下单时刻的值。
type Order struct {
	OrderID                     string          `gorm:"column:order_id;primaryKey;type:varchar(66)"`
	BlockNumber                 uint64          `gorm:"column:block_number;not null"`
	LogIndex                    uint64          `gorm:"column:log_index;not null"`
	TransactionHash             string          `gorm:"column:transaction_hash;type:varchar(66);not null"`
	MarketID                    string          `gorm:"column:market_id;type:varchar(66);index;not null"`
	Outcome                     int             `gorm:"column:outcome;type:int;not null"`
	ShareToken                  string          `gorm:"column:share_token;type:varchar(66);not null"`
	OrderType                   OrderType       `gorm:"column:order_type;type:varchar(8);not null"`
	OrderCreator                string          `gorm:"column:order_creator;type:varchar(66);index;not null"`
	OrderState                  OrderState      `gorm:"column:order_state;type:varchar(16);default:'OPEN'"`
	Price                       decimal.Decimal `gorm:"column:price;type:numeric(30,18);not null"`
	Amount                      decimal.Decimal `gorm:"column:amount;type:numeric(30,18);not null"`
	OriginalAmount              decimal.Decimal `gorm:"column:original_amount;type:numeric(30,18);not null"`
	FullPrecisionPrice          decimal.Decimal `gorm:"column:full_precision_price;type:numeric(30,18);not null"`
	FullPrecisionAmount         decimal.Decimal `gorm:"column:full_precision_amount;type:numeric(30,18);not null"`
	OriginalFullPrecisionAmount decimal.Decimal `gorm:"column:original_full_precision_amount;type:numeric(30,18);not null"`
	TokensEscrowed              decimal.Decimal `gorm:"column:tokens_escrowed;type:numeric(30,18);default:0"`
	SharesEscrowed              decimal.Decimal `gorm:"column:shares_escrowed;type:numeric(30,18);default:0"`
	OriginalTokensEscrowed      decimal.Decimal `gorm:"column:original_tokens_escrowed;type:numeric(30,18);default:0"`
	OriginalSharesEscrowed      decimal.Decimal `gorm:"column:original_shares_escrowed;type:numeric(30,18);default:0"`
	TradeGroupID                *string         `gorm:"column:trade_group_id;type:varchar(66)"`
	Orphaned                    bool            `gorm:"column:orphaned;type:boolean;default:false"`
	CanceledBlockNumber         *uint64         `gorm:"column:canceled_block_number"`
	CanceledTransactionHash     *string         `gorm:"column:canceled_transaction_hash;type:varchar(66)"`
	CreatedAt                   time.Time       `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt                   time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }

// PendingOrphanCheck 新订单落库后插入的待检查桶，由外部孤儿订单扫描进程消费
type PendingOrphanCheck struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	MarketID  string    `gorm:"column:market_id;type:varchar(66);uniqueIndex:uk_orphan_bucket;not null"`
	Outcome   int       `gorm:"column:outcome;type:int;uniqueIndex:uk_orphan_bucket;not null"`
	OrderType OrderType `gorm:"column:order_type;type:varchar(8);uniqueIndex:uk_orphan_bucket;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (PendingOrphanCheck) TableName() string { return "pending_orphan_checks" }
