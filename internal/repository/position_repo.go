package repository

import (
	"context"
	"time"

	"MirrorSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PositionRepository 持仓仓储：num_shares 只能整行覆盖（权威刷新语义）
type PositionRepository interface {
	OverwriteNumShares(ctx context.Context, marketID, account string, outcome int, numShares decimal.Decimal) error
	Get(ctx context.Context, marketID, account string, outcome int) (*model.Position, error)
	ListByMarketAccount(ctx context.Context, marketID, account string) ([]*model.Position, error)
}

type positionRepository struct {
	db *gorm.DB
}

// NewPositionRepository 创建 PositionRepository（db 可以是事务句柄）
func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

// OverwriteNumShares 不存在则插入，存在则覆盖；不做加减
func (r *positionRepository) OverwriteNumShares(ctx context.Context, marketID, account string, outcome int, numShares decimal.Decimal) error {
	pos := &model.Position{
		MarketID:                          marketID,
		Account:                           account,
		Outcome:                           outcome,
		NumShares:                         numShares,
		NumSharesAdjustedForUserIntention: numShares,
		UpdatedAt:                         time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}, {Name: "account"}, {Name: "outcome"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"num_shares", "num_shares_adjusted_for_user_intention", "updated_at",
		}),
	}).Create(pos).Error
}

func (r *positionRepository) Get(ctx context.Context, marketID, account string, outcome int) (*model.Position, error) {
	var p model.Position
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND account = ? AND outcome = ?", marketID, account, outcome).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *positionRepository) ListByMarketAccount(ctx context.Context, marketID, account string) ([]*model.Position, error) {
	var list []*model.Position
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND account = ?", marketID, account).
		Order("outcome ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
