package service

import (
	"context"
	"errors"

	"MirrorSync/internal/model"
	"MirrorSync/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// tradeContext 一条日志的处理上下文：份额代币 -> (market, outcome)，
// 市场定价参数，以及可选的关联订单行。
type tradeContext struct {
	Market   *model.Market
	Token    *model.Token
	TickSize decimal.Decimal
	Order    *model.Order
}

// resolveContext 解析日志的市场上下文。查不到引用行即 NotFoundError，
// 这类错误对该条日志致命：说明依赖的市场创建/下单日志缺失或失序。
func (e *Engine) resolveContext(ctx context.Context, tx *gorm.DB, log *model.EventLog, needOrder bool) (*tradeContext, error) {
	marketRepo := repository.NewMarketRepository(tx)

	token, err := marketRepo.GetToken(ctx, log.ShareToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "token", Key: log.ShareToken}
		}
		return nil, &model.TransactionError{Op: "getToken", Err: err}
	}

	market, err := marketRepo.GetMarket(ctx, token.MarketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "market", Key: token.MarketID}
		}
		return nil, &model.TransactionError{Op: "getMarket", Err: err}
	}

	tickSize, err := e.pctx.TickSize(market.MinPrice, market.MaxPrice, market.NumTicks)
	if err != nil {
		return nil, &model.ConversionError{Field: "tickSize", Err: err}
	}

	tc := &tradeContext{Market: market, Token: token, TickSize: tickSize}
	if needOrder {
		order, err := repository.NewOrderRepository(tx).GetByID(ctx, log.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &model.NotFoundError{Entity: "order", Key: log.OrderID}
			}
			return nil, &model.TransactionError{Op: "getOrder", Err: err}
		}
		tc.Order = order
	}
	return tc, nil
}
