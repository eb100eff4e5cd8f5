package service

import (
	"context"
	"errors"
	"fmt"

	"MirrorSync/internal/model"
	"MirrorSync/internal/pricing"
	"MirrorSync/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// processOrderFilledAdd 应用一条成交日志：
// 换算双方投入 -> 算成交份额与未平仓增量 -> 插台账行 -> 聚合 +增量 ->
// 并发刷新订单剩余量与双方持仓。全部动作在同一事务内。
func (e *Engine) processOrderFilledAdd(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error) {
	tc, err := e.resolveContext(ctx, tx, log, true)
	if err != nil {
		return nil, err
	}
	order := tc.Order

	conv, err := e.convertFillAmounts(log, tc)
	if err != nil {
		return nil, err
	}

	fillPrice, err := pricing.FillPrice(order.FullPrecisionPrice, tc.Market.MinPrice, tc.Market.MaxPrice, order.OrderType)
	if err != nil {
		return nil, &model.ConversionError{Field: "fillPrice", Err: err}
	}
	amount, err := e.pctx.SharesTraded(conv.creatorShares, conv.creatorTokens, fillPrice)
	if err != nil {
		return nil, &model.ConversionError{Field: "amount", Err: err}
	}

	trade := &model.Trade{
		MarketID:          tc.Market.MarketID,
		Outcome:           tc.Token.Outcome,
		OrderID:           order.OrderID,
		BlockNumber:       log.BlockNumber,
		LogIndex:          log.LogIndex,
		TransactionHash:   log.TransactionHash,
		ShareToken:        log.ShareToken,
		OrderType:         order.OrderType,
		Creator:           order.OrderCreator,
		Filler:            log.Filler,
		NumCreatorTokens:  conv.creatorTokens,
		NumCreatorShares:  conv.creatorShares,
		NumFillerTokens:   conv.fillerTokens,
		NumFillerShares:   conv.fillerShares,
		Price:             order.FullPrecisionPrice,
		Amount:            amount,
		MarketCreatorFees: conv.marketCreatorFees,
		ReporterFees:      conv.reporterFees,
		TradeGroupID:      order.TradeGroupID,
	}
	if err := repository.NewTradeRepository(tx).Create(ctx, trade); err != nil {
		return nil, &model.TransactionError{Op: "createTrade", Err: err}
	}

	delta, err := e.fillDelta(trade, tc)
	if err != nil {
		return nil, err
	}
	if err := e.adjustVolumetrics(ctx, tx, tc.Market, tc.Token.Outcome, delta, 1, true); err != nil {
		return nil, err
	}

	if err := e.refresher.RefreshAfterFill(ctx, tx, tc.Market.MarketID, order.OrderID,
		order.OrderCreator, log.Filler, tc.TickSize); err != nil {
		return nil, err
	}
	return trade, nil
}

// processOrderFilledRemove 回滚一条成交日志：从在库成交行反推当初的增量做
// −对冲，再按自然键精确删除该行，最后同一组权威刷新把订单与持仓拉回链上真值。
func (e *Engine) processOrderFilledRemove(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error) {
	tc, err := e.resolveContext(ctx, tx, log, true)
	if err != nil {
		return nil, err
	}
	order := tc.Order

	key := model.TradeKey{
		MarketID:    tc.Market.MarketID,
		Outcome:     tc.Token.Outcome,
		OrderID:     order.OrderID,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.LogIndex,
	}
	tradeRepo := repository.NewTradeRepository(tx)
	trade, err := tradeRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &model.NotFoundError{Entity: "trade",
				Key: fmt.Sprintf("%s/%d/%s/%d/%d", key.MarketID, key.Outcome, key.OrderID, key.BlockNumber, key.LogIndex)}
		}
		return nil, &model.TransactionError{Op: "getTrade", Err: err}
	}

	delta, err := e.fillDelta(trade, tc)
	if err != nil {
		return nil, err
	}
	if err := e.adjustVolumetrics(ctx, tx, tc.Market, tc.Token.Outcome, delta, -1, false); err != nil {
		return nil, err
	}

	affected, err := tradeRepo.DeleteByKey(ctx, key)
	if err != nil {
		return nil, &model.TransactionError{Op: "deleteTrade", Err: err}
	}
	if affected != 1 {
		return nil, &model.TransactionError{Op: "deleteTrade",
			Err: fmt.Errorf("expected to delete exactly 1 row, got %d", affected)}
	}

	if err := e.refresher.RefreshAfterFill(ctx, tx, tc.Market.MarketID, order.OrderID,
		order.OrderCreator, trade.Filler, tc.TickSize); err != nil {
		return nil, err
	}
	return trade, nil
}

type fillAmounts struct {
	creatorTokens     decimal.Decimal
	creatorShares     decimal.Decimal
	fillerTokens      decimal.Decimal
	fillerShares      decimal.Decimal
	marketCreatorFees decimal.Decimal
	reporterFees      decimal.Decimal
}

// convertFillAmounts 换算成交日志里的六个定点字段。
// tokens 类字段按固定 1e18，shares 类字段按市场 tickSize。
func (e *Engine) convertFillAmounts(log *model.EventLog, tc *tradeContext) (*fillAmounts, error) {
	out := &fillAmounts{}
	type field struct {
		name   string
		raw    string
		shares bool
		dst    *decimal.Decimal
	}
	fields := []field{
		{"numCreatorTokens", log.NumCreatorTokens, false, &out.creatorTokens},
		{"numCreatorShares", log.NumCreatorShares, true, &out.creatorShares},
		{"numFillerTokens", log.NumFillerTokens, false, &out.fillerTokens},
		{"numFillerShares", log.NumFillerShares, true, &out.fillerShares},
		{"marketCreatorFees", log.MarketCreatorFees, false, &out.marketCreatorFees},
		{"reporterFees", log.ReporterFees, false, &out.reporterFees},
	}
	for _, f := range fields {
		raw, err := pricing.ParseOnChainInt(f.raw)
		if err != nil {
			return nil, &model.ConversionError{Field: f.name, Err: err}
		}
		var v decimal.Decimal
		if f.shares {
			v, err = e.pctx.OnChainSharesToDisplay(raw, tc.TickSize)
		} else {
			v, err = e.pctx.FixedPointToDecimal(raw)
		}
		if err != nil {
			return nil, &model.ConversionError{Field: f.name, Err: err}
		}
		*f.dst = v
	}
	return out, nil
}

// fillDelta 由成交行推导各聚合列的贡献。add 与 remove 用同一个函数、
// 同一份输入（在库成交行），保证 ± 对称。
func (e *Engine) fillDelta(trade *model.Trade, tc *tradeContext) (volumetricDelta, error) {
	oiDelta, err := e.pctx.OpenInterestDelta(
		trade.NumCreatorShares, trade.NumCreatorTokens,
		trade.NumFillerShares, trade.NumFillerTokens,
		trade.Price, tc.Market.MinPrice, tc.Market.MaxPrice, trade.OrderType)
	if err != nil {
		return volumetricDelta{}, &model.ConversionError{Field: "openInterest", Err: err}
	}
	spread, err := e.pctx.SpreadBucket(trade.Price, tc.Market.MinPrice, tc.Market.MaxPrice)
	if err != nil {
		return volumetricDelta{}, &model.ConversionError{Field: "spreadPercent", Err: err}
	}
	return volumetricDelta{
		Volume:          trade.Amount,
		ShareVolume:     trade.NumCreatorShares.Add(trade.NumFillerShares),
		OpenInterest:    oiDelta,
		LiquidityTokens: trade.NumCreatorTokens.Add(trade.NumFillerTokens),
		SpreadPercent:   spread,
		Price:           trade.Price,
	}, nil
}
