package repository

import (
	"context"

	"MirrorSync/internal/model"

	"gorm.io/gorm"
)

// TradeRepository 成交台账仓储：add 方向只追加，remove 方向按自然键精确删除
type TradeRepository interface {
	Create(ctx context.Context, trade *model.Trade) error
	DeleteByKey(ctx context.Context, key model.TradeKey) (int64, error)
	CountByOrder(ctx context.Context, orderID string) (int64, error)
	GetByKey(ctx context.Context, key model.TradeKey) (*model.Trade, error)
}

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建 TradeRepository（db 可以是事务句柄）
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// DeleteByKey 精确匹配删除，返回影响行数；调用方负责校验恰好一行
func (r *tradeRepository) DeleteByKey(ctx context.Context, key model.TradeKey) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ? AND order_id = ? AND block_number = ? AND log_index = ?",
			key.MarketID, key.Outcome, key.OrderID, key.BlockNumber, key.LogIndex).
		Delete(&model.Trade{})
	return res.RowsAffected, res.Error
}

// CountByOrder 订单名下在库成交行数，用于「先回滚成交、后删订单」的依赖保护
func (r *tradeRepository) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Trade{}).
		Where("order_id = ?", orderID).Count(&n).Error
	return n, err
}

func (r *tradeRepository) GetByKey(ctx context.Context, key model.TradeKey) (*model.Trade, error) {
	var t model.Trade
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ? AND order_id = ? AND block_number = ? AND log_index = ?",
			key.MarketID, key.Outcome, key.OrderID, key.BlockNumber, key.LogIndex).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
