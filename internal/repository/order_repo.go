package repository

import (
	"context"
	"time"

	"MirrorSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderRepository 订单仓储。剩余量列只能整行覆盖（权威刷新），不提供增量接口。
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, orderID string) (*model.Order, error)
	Delete(ctx context.Context, orderID string) (int64, error)
	OverwriteRemainingAmount(ctx context.Context, orderID string, fullPrecisionAmount, amount decimal.Decimal, markFilled bool) error
	MarkCanceled(ctx context.Context, orderID string, blockNumber uint64, transactionHash string) error
	UnmarkCanceled(ctx context.Context, orderID string) error
	EnsurePendingOrphanCheck(ctx context.Context, marketID string, outcome int, orderType model.OrderType) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建 OrderRepository（db 可以是事务句柄）
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Delete(ctx context.Context, orderID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&model.Order{})
	return res.RowsAffected, res.Error
}

// OverwriteRemainingAmount 权威刷新：用链上当前剩余量覆盖。
// 剩余为零时 OPEN -> FILLED；剩余恢复为正时 FILLED -> OPEN（回滚场景）。
// CANCELED 状态归撤单日志所有，刷新不碰。
func (r *orderRepository) OverwriteRemainingAmount(ctx context.Context, orderID string, fullPrecisionAmount, amount decimal.Decimal, markFilled bool) error {
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"full_precision_amount": fullPrecisionAmount,
			"amount":                amount,
			"updated_at":            time.Now(),
		}).Error; err != nil {
		return err
	}
	if markFilled {
		return r.db.WithContext(ctx).Model(&model.Order{}).
			Where("order_id = ? AND order_state = ?", orderID, model.OrderStateOpen).
			UpdateColumn("order_state", model.OrderStateFilled).Error
	}
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ? AND order_state = ?", orderID, model.OrderStateFilled).
		UpdateColumn("order_state", model.OrderStateOpen).Error
}

func (r *orderRepository) MarkCanceled(ctx context.Context, orderID string, blockNumber uint64, transactionHash string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"order_state":               model.OrderStateCanceled,
			"canceled_block_number":     blockNumber,
			"canceled_transaction_hash": transactionHash,
			"updated_at":                time.Now(),
		}).Error
}

// UnmarkCanceled 回滚撤单日志：状态回到 OPEN，清空撤单信息
func (r *orderRepository) UnmarkCanceled(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"order_state":               model.OrderStateOpen,
			"canceled_block_number":     nil,
			"canceled_transaction_hash": nil,
			"updated_at":                time.Now(),
		}).Error
}

// EnsurePendingOrphanCheck 幂等插入待检查桶（同桶重复下单只留一行）
func (r *orderRepository) EnsurePendingOrphanCheck(ctx context.Context, marketID string, outcome int, orderType model.OrderType) error {
	check := &model.PendingOrphanCheck{MarketID: marketID, Outcome: outcome, OrderType: orderType}
	return r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ? AND order_type = ?", marketID, outcome, orderType).
		FirstOrCreate(check).Error
}
