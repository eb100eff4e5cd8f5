package repository

import (
	"context"
	"time"

	"MirrorSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VolumetricsRepository 按 (market_id, outcome) 维度的聚合仓储。
// 所有写入都是增量表达式，行不存在先补零值行，保证 add/remove 两个方向
// 除符号外走完全相同的路径。
type VolumetricsRepository interface {
	AddOutcomeVolume(ctx context.Context, marketID string, outcome int, volumeDelta, shareVolumeDelta decimal.Decimal) error
	SetOutcomePrice(ctx context.Context, marketID string, outcome int, price decimal.Decimal) error
	AddLiquidity(ctx context.Context, marketID string, outcome, spreadPercent int, delta decimal.Decimal) error
	GetOutcome(ctx context.Context, marketID string, outcome int) (*model.Outcome, error)
	GetLiquidity(ctx context.Context, marketID string, outcome, spreadPercent int) (*model.OutcomeLiquidity, error)
	SaveCheckpoint(ctx context.Context, blockNumber, logIndex uint64) error
	GetCheckpoint(ctx context.Context) (*model.SyncCheckpoint, error)
}

type volumetricsRepository struct {
	db *gorm.DB
}

// NewVolumetricsRepository 创建 VolumetricsRepository（db 可以是事务句柄）
func NewVolumetricsRepository(db *gorm.DB) VolumetricsRepository {
	return &volumetricsRepository{db: db}
}

func (r *volumetricsRepository) AddOutcomeVolume(ctx context.Context, marketID string, outcome int, volumeDelta, shareVolumeDelta decimal.Decimal) error {
	row := &model.Outcome{MarketID: marketID, Outcome: outcome}
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ?", marketID, outcome).
		FirstOrCreate(row).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.Outcome{}).
		Where("market_id = ? AND outcome = ?", marketID, outcome).
		UpdateColumns(map[string]interface{}{
			"volume":       gorm.Expr("volume + ?", volumeDelta),
			"share_volume": gorm.Expr("share_volume + ?", shareVolumeDelta),
			"updated_at":   time.Now(),
		}).Error
}

func (r *volumetricsRepository) SetOutcomePrice(ctx context.Context, marketID string, outcome int, price decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Outcome{}).
		Where("market_id = ? AND outcome = ?", marketID, outcome).
		UpdateColumns(map[string]interface{}{
			"price":      price,
			"updated_at": time.Now(),
		}).Error
}

func (r *volumetricsRepository) AddLiquidity(ctx context.Context, marketID string, outcome, spreadPercent int, delta decimal.Decimal) error {
	row := &model.OutcomeLiquidity{MarketID: marketID, Outcome: outcome, SpreadPercent: spreadPercent}
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ? AND spread_percent = ?", marketID, outcome, spreadPercent).
		FirstOrCreate(row).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.OutcomeLiquidity{}).
		Where("market_id = ? AND outcome = ? AND spread_percent = ?", marketID, outcome, spreadPercent).
		UpdateColumns(map[string]interface{}{
			"liquidity_tokens": gorm.Expr("liquidity_tokens + ?", delta),
			"updated_at":       time.Now(),
		}).Error
}

func (r *volumetricsRepository) GetOutcome(ctx context.Context, marketID string, outcome int) (*model.Outcome, error) {
	var o model.Outcome
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ?", marketID, outcome).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *volumetricsRepository) GetLiquidity(ctx context.Context, marketID string, outcome, spreadPercent int) (*model.OutcomeLiquidity, error) {
	var l model.OutcomeLiquidity
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND outcome = ? AND spread_percent = ?", marketID, outcome, spreadPercent).
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveCheckpoint 记录最近一条已提交日志的排序键（单行表，id 恒为 1）
func (r *volumetricsRepository) SaveCheckpoint(ctx context.Context, blockNumber, logIndex uint64) error {
	cp := &model.SyncCheckpoint{
		ID:                 1,
		HighestBlockNumber: blockNumber,
		HighestLogIndex:    logIndex,
		UpdatedAt:          time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"highest_block_number", "highest_log_index", "updated_at",
		}),
	}).Create(cp).Error
}

func (r *volumetricsRepository) GetCheckpoint(ctx context.Context) (*model.SyncCheckpoint, error) {
	var cp model.SyncCheckpoint
	if err := r.db.WithContext(ctx).Where("id = ?", 1).First(&cp).Error; err != nil {
		return nil, err
	}
	return &cp, nil
}
