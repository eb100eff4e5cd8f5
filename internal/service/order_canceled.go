package service

import (
	"context"
	"errors"

	"MirrorSync/internal/model"
	"MirrorSync/internal/repository"

	"gorm.io/gorm"
)

// processOrderCanceledAdd 应用撤单日志：订单状态推进到 CANCELED 并记录撤单位置
func (e *Engine) processOrderCanceledAdd(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error) {
	orderRepo := repository.NewOrderRepository(tx)
	order, err := orderRepo.GetByID(ctx, log.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "order", Key: log.OrderID}
		}
		return nil, &model.TransactionError{Op: "getOrder", Err: err}
	}
	if err := orderRepo.MarkCanceled(ctx, log.OrderID, log.BlockNumber, log.TransactionHash); err != nil {
		return nil, &model.TransactionError{Op: "markCanceled", Err: err}
	}
	return map[string]interface{}{
		"orderId":      order.OrderID,
		"orderCreator": order.OrderCreator,
		"marketId":     order.MarketID,
		"outcome":      order.Outcome,
	}, nil
}

// processOrderCanceledRemove 回滚撤单日志：订单回到 OPEN，清空撤单位置
func (e *Engine) processOrderCanceledRemove(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error) {
	orderRepo := repository.NewOrderRepository(tx)
	order, err := orderRepo.GetByID(ctx, log.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "order", Key: log.OrderID}
		}
		return nil, &model.TransactionError{Op: "getOrder", Err: err}
	}
	if err := orderRepo.UnmarkCanceled(ctx, log.OrderID); err != nil {
		return nil, &model.TransactionError{Op: "unmarkCanceled", Err: err}
	}
	return map[string]interface{}{
		"orderId":      order.OrderID,
		"orderCreator": order.OrderCreator,
		"marketId":     order.MarketID,
		"outcome":      order.Outcome,
	}, nil
}
