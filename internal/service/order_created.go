package service

import (
	"context"
	"errors"
	"fmt"

	"MirrorSync/internal/model"
	"MirrorSync/internal/pricing"
	"MirrorSync/internal/repository"

	"gorm.io/gorm"
)

// errDependentTrades 订单名下还有在库成交行时拒绝回滚删除。
// 重组回放必须先 remove 成交日志、再 remove 下单日志。
var errDependentTrades = errors.New("order still has trade rows, revert trades first")

// processOrderCreatedAdd 应用一条下单日志：换算定点字段、落订单行、
// 落待孤儿检查桶。
func (e *Engine) processOrderCreatedAdd(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error) {
	tc, err := e.resolveContext(ctx, tx, log, false)
	if err != nil {
		return nil, err
	}

	var orderType model.OrderType
	switch log.OrderType {
	case "0":
		orderType = model.OrderTypeBuy
	case "1":
		orderType = model.OrderTypeSell
	default:
		return nil, &model.ConversionError{Field: "orderType", Err: fmt.Errorf("unknown value %q", log.OrderType)}
	}

	priceRaw, err := pricing.ParseOnChainInt(log.Price)
	if err != nil {
		return nil, &model.ConversionError{Field: "price", Err: err}
	}
	amountRaw, err := pricing.ParseOnChainInt(log.Amount)
	if err != nil {
		return nil, &model.ConversionError{Field: "amount", Err: err}
	}
	moneyRaw, err := pricing.ParseOnChainInt(log.MoneyEscrowed)
	if err != nil {
		return nil, &model.ConversionError{Field: "moneyEscrowed", Err: err}
	}
	sharesRaw, err := pricing.ParseOnChainInt(log.SharesEscrowed)
	if err != nil {
		return nil, &model.ConversionError{Field: "sharesEscrowed", Err: err}
	}

	fullPrecisionPrice := e.pctx.OnChainPriceToDisplay(priceRaw, tc.TickSize, tc.Market.MinPrice)
	fullPrecisionAmount, err := e.pctx.OnChainSharesToDisplay(amountRaw, tc.TickSize)
	if err != nil {
		return nil, &model.ConversionError{Field: "amount", Err: err}
	}
	tokensEscrowed, err := e.pctx.FixedPointToDecimal(moneyRaw)
	if err != nil {
		return nil, &model.ConversionError{Field: "moneyEscrowed", Err: err}
	}
	sharesEscrowed, err := e.pctx.OnChainSharesToDisplay(sharesRaw, tc.TickSize)
	if err != nil {
		return nil, &model.ConversionError{Field: "sharesEscrowed", Err: err}
	}

	order := &model.Order{
		OrderID:                     log.OrderID,
		BlockNumber:                 log.BlockNumber,
		LogIndex:                    log.LogIndex,
		TransactionHash:             log.TransactionHash,
		MarketID:                    tc.Market.MarketID,
		Outcome:                     tc.Token.Outcome,
		ShareToken:                  log.ShareToken,
		OrderType:                   orderType,
		OrderCreator:                log.Creator,
		OrderState:                  model.OrderStateOpen,
		Price:                       e.pctx.RoundDisplay(fullPrecisionPrice),
		Amount:                      e.pctx.RoundDisplay(fullPrecisionAmount),
		OriginalAmount:              e.pctx.RoundDisplay(fullPrecisionAmount),
		FullPrecisionPrice:          fullPrecisionPrice,
		FullPrecisionAmount:         fullPrecisionAmount,
		OriginalFullPrecisionAmount: fullPrecisionAmount,
		TokensEscrowed:              tokensEscrowed,
		SharesEscrowed:              sharesEscrowed,
		OriginalTokensEscrowed:      tokensEscrowed,
		OriginalSharesEscrowed:      sharesEscrowed,
	}
	if log.TradeGroupID != "" {
		tradeGroupID := log.TradeGroupID
		order.TradeGroupID = &tradeGroupID
	}

	orderRepo := repository.NewOrderRepository(tx)
	if err := orderRepo.Create(ctx, order); err != nil {
		return nil, &model.TransactionError{Op: "createOrder", Err: err}
	}
	if err := orderRepo.EnsurePendingOrphanCheck(ctx, tc.Market.MarketID, tc.Token.Outcome, orderType); err != nil {
		return nil, &model.TransactionError{Op: "ensurePendingOrphanCheck", Err: err}
	}
	return order, nil
}

// processOrderCreatedRemove 回滚一条下单日志：整行删除订单。
// 订单名下尚存成交行说明回放顺序有误，报可重试错误等待上游先回滚成交。
func (e *Engine) processOrderCreatedRemove(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error) {
	orderRepo := repository.NewOrderRepository(tx)
	order, err := orderRepo.GetByID(ctx, log.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "order", Key: log.OrderID}
		}
		return nil, &model.TransactionError{Op: "getOrder", Err: err}
	}

	n, err := repository.NewTradeRepository(tx).CountByOrder(ctx, log.OrderID)
	if err != nil {
		return nil, &model.TransactionError{Op: "countTrades", Err: err}
	}
	if n > 0 {
		return nil, &model.TransactionError{Op: "deleteOrder", Err: errDependentTrades}
	}

	affected, err := orderRepo.Delete(ctx, log.OrderID)
	if err != nil {
		return nil, &model.TransactionError{Op: "deleteOrder", Err: err}
	}
	if affected != 1 {
		return nil, &model.TransactionError{Op: "deleteOrder",
			Err: fmt.Errorf("expected to delete exactly 1 row, got %d", affected)}
	}
	return map[string]interface{}{
		"orderId":      order.OrderID,
		"orderCreator": order.OrderCreator,
		"marketId":     order.MarketID,
		"outcome":      order.Outcome,
	}, nil
}
