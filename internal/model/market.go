package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market 对应 markets 表，由市场创建日志处理流程写入（本引擎只读其定价字段）。
// volume / open_interest / shares_outstanding 为本引擎维护的增量聚合列。
type Market struct {
	MarketID            string          `gorm:"column:market_id;primaryKey;type:varchar(66)"`
	Universe            string          `gorm:"column:universe;type:varchar(66)"`
	MarketType          string          `gorm:"column:market_type;type:varchar(16);default:'categorical'"`
	Category            string          `gorm:"column:category;type:varchar(64);index;not null"`
	MarketCreator       string          `gorm:"column:market_creator;type:varchar(66)"`
	NumOutcomes         int             `gorm:"column:num_outcomes;type:int;not null"`
	MinPrice            decimal.Decimal `gorm:"column:min_price;type:numeric(30,18);not null"`
	MaxPrice            decimal.Decimal `gorm:"column:max_price;type:numeric(30,18);not null"`
	NumTicks            decimal.Decimal `gorm:"column:num_ticks;type:numeric(30,0);not null"`
	Volume              decimal.Decimal `gorm:"column:volume;type:numeric(30,18);default:0"`
	OpenInterest        decimal.Decimal `gorm:"column:open_interest;type:numeric(30,18);default:0"`
	SharesOutstanding   decimal.Decimal `gorm:"column:shares_outstanding;type:numeric(30,18);default:0"`
	CreationBlockNumber uint64          `gorm:"column:creation_block_number"`
	CreatedAt           time.Time       `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Market) TableName() string { return "markets" }

// Token 份额代币合约地址 -> (market_id, outcome) 的只读映射表
type Token struct {
	ContractAddress string    `gorm:"column:contract_address;primaryKey;type:varchar(66)"`
	Symbol          string    `gorm:"column:symbol;type:varchar(32)"`
	MarketID        string    `gorm:"column:market_id;type:varchar(66);index;not null"`
	Outcome         int       `gorm:"column:outcome;type:int;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Token) TableName() string { return "tokens" }

// Category 按类目汇总的聚合列，与 markets 同一事务内做 ± 增量
type Category struct {
	Category     string          `gorm:"column:category;primaryKey;type:varchar(64)"`
	Volume       decimal.Decimal `gorm:"column:volume;type:numeric(30,18);default:0"`
	OpenInterest decimal.Decimal `gorm:"column:open_interest;type:numeric(30,18);default:0"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (Category) TableName() string { return "categories" }
