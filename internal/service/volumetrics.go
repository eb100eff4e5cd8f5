package service

import (
	"context"

	"MirrorSync/internal/model"
	"MirrorSync/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// volumetricDelta 一次成交对各聚合列的贡献（恒为非负，方向由 sign 决定）
type volumetricDelta struct {
	Volume          decimal.Decimal
	ShareVolume     decimal.Decimal
	OpenInterest    decimal.Decimal
	LiquidityTokens decimal.Decimal
	SpreadPercent   int
	Price           decimal.Decimal
}

// adjustVolumetrics 在成交事务内对 outcome / market / category / 流动性档位
// 做 ± 增量。sign 是 add 与 remove 两条路径唯一的差异，其余逻辑完全共用，
// 保证同一成交先加后减严格归零。最新成交价只在 add 方向写入。
func (e *Engine) adjustVolumetrics(ctx context.Context, tx *gorm.DB, market *model.Market, outcome int, d volumetricDelta, sign int64, setPrice bool) error {
	s := decimal.NewFromInt(sign)
	volRepo := repository.NewVolumetricsRepository(tx)
	marketRepo := repository.NewMarketRepository(tx)

	if err := volRepo.AddOutcomeVolume(ctx, market.MarketID, outcome,
		d.Volume.Mul(s), d.ShareVolume.Mul(s)); err != nil {
		return &model.TransactionError{Op: "addOutcomeVolume", Err: err}
	}
	if setPrice {
		if err := volRepo.SetOutcomePrice(ctx, market.MarketID, outcome, d.Price); err != nil {
			return &model.TransactionError{Op: "setOutcomePrice", Err: err}
		}
	}
	if err := marketRepo.AddMarketVolumetrics(ctx, market.MarketID,
		d.Volume.Mul(s), d.OpenInterest.Mul(s)); err != nil {
		return &model.TransactionError{Op: "addMarketVolumetrics", Err: err}
	}
	if err := marketRepo.AddCategoryVolumetrics(ctx, market.Category,
		d.Volume.Mul(s), d.OpenInterest.Mul(s)); err != nil {
		return &model.TransactionError{Op: "addCategoryVolumetrics", Err: err}
	}
	if err := volRepo.AddLiquidity(ctx, market.MarketID, outcome, d.SpreadPercent,
		d.LiquidityTokens.Mul(s)); err != nil {
		return &model.TransactionError{Op: "addLiquidity", Err: err}
	}
	return nil
}
