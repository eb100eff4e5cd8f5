package repository

import (
	"context"
	"time"

	"MirrorSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarketRepository 市场与份额代币映射仓储。
// markets / tokens 对本引擎是先写一次、此后只读；volume 等聚合列由
// AddMarketVolumetrics 在成交事务内做 ± 增量。
type MarketRepository interface {
	GetMarket(ctx context.Context, marketID string) (*model.Market, error)
	GetToken(ctx context.Context, contractAddress string) (*model.Token, error)
	ListTokensByMarket(ctx context.Context, marketID string) ([]*model.Token, error)
	CreateMarket(ctx context.Context, m *model.Market) error
	CreateToken(ctx context.Context, t *model.Token) error
	AddMarketVolumetrics(ctx context.Context, marketID string, volumeDelta, oiDelta decimal.Decimal) error
	AddCategoryVolumetrics(ctx context.Context, category string, volumeDelta, oiDelta decimal.Decimal) error
}

type marketRepository struct {
	db *gorm.DB
}

// NewMarketRepository 创建 MarketRepository（db 可以是事务句柄）
func NewMarketRepository(db *gorm.DB) MarketRepository {
	return &marketRepository{db: db}
}

func (r *marketRepository) GetMarket(ctx context.Context, marketID string) (*model.Market, error) {
	var m model.Market
	if err := r.db.WithContext(ctx).Where("market_id = ?", marketID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *marketRepository) GetToken(ctx context.Context, contractAddress string) (*model.Token, error) {
	var t model.Token
	if err := r.db.WithContext(ctx).Where("contract_address = ?", contractAddress).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *marketRepository) ListTokensByMarket(ctx context.Context, marketID string) ([]*model.Token, error) {
	var tokens []*model.Token
	if err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("outcome ASC").
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *marketRepository) CreateMarket(ctx context.Context, m *model.Market) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *marketRepository) CreateToken(ctx context.Context, t *model.Token) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *marketRepository) AddMarketVolumetrics(ctx context.Context, marketID string, volumeDelta, oiDelta decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Market{}).
		Where("market_id = ?", marketID).
		UpdateColumns(map[string]interface{}{
			"volume":             gorm.Expr("volume + ?", volumeDelta),
			"open_interest":      gorm.Expr("open_interest + ?", oiDelta),
			"shares_outstanding": gorm.Expr("shares_outstanding + ?", oiDelta),
			"updated_at":         time.Now(),
		}).Error
}

func (r *marketRepository) AddCategoryVolumetrics(ctx context.Context, category string, volumeDelta, oiDelta decimal.Decimal) error {
	// 类目行不存在则先建零值行再增量，保证 ± 对称可回滚
	cat := &model.Category{Category: category}
	if err := r.db.WithContext(ctx).Where("category = ?", category).FirstOrCreate(cat).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.Category{}).
		Where("category = ?", category).
		UpdateColumns(map[string]interface{}{
			"volume":        gorm.Expr("volume + ?", volumeDelta),
			"open_interest": gorm.Expr("open_interest + ?", oiDelta),
			"updated_at":    time.Now(),
		}).Error
}
