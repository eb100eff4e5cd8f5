package service

import (
	"context"
	"fmt"

	"MirrorSync/internal/model"
	"MirrorSync/internal/pricing"
	"MirrorSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 单条日志的处理状态机：
// RECEIVED -> CONTEXT_RESOLVED -> CONVERTED -> PERSISTED -> NOTIFIED，
// 任一步出错进入终态 FAILED。中间两步在各 processor 内完成，
// 这里只在事务边界上打点。
const (
	stateReceived  = "RECEIVED"
	statePersisted = "PERSISTED"
	stateNotified  = "NOTIFIED"
	stateFailed    = "FAILED"
)

type processorFunc func(ctx context.Context, tx *gorm.DB, log *model.EventLog) (interface{}, error)

// Engine 日志调度编排器：每条日志一个数据库事务，事务内完成
// 上下文解析、定点换算、台账与聚合写入、权威刷新；提交成功后才发通知。
type Engine struct {
	db        *gorm.DB
	pctx      *pricing.Context
	refresher *Refresher
	emitter   *Emitter
	locks     *keyedLocks
	logger    *logrus.Logger

	processors map[string]map[model.Direction]processorFunc
}

// NewEngine 创建 Engine
func NewEngine(db *gorm.DB, accessor ChainAccessor, emitter *Emitter, logger *logrus.Logger) *Engine {
	pctx := pricing.NewContext()
	e := &Engine{
		db:        db,
		pctx:      pctx,
		refresher: NewRefresher(accessor, pctx, logger),
		emitter:   emitter,
		locks:     newKeyedLocks(),
		logger:    logger,
	}
	e.processors = map[string]map[model.Direction]processorFunc{
		model.EventOrderCreated: {
			model.DirectionAdd:    e.processOrderCreatedAdd,
			model.DirectionRemove: e.processOrderCreatedRemove,
		},
		model.EventOrderFilled: {
			model.DirectionAdd:    e.processOrderFilledAdd,
			model.DirectionRemove: e.processOrderFilledRemove,
		},
		model.EventOrderCanceled: {
			model.DirectionAdd:    e.processOrderCanceledAdd,
			model.DirectionRemove: e.processOrderCanceledRemove,
		},
	}
	return e
}

// ProcessLog 处理一条日志。错误分类决定上游动作：
// IsRetryable 为真可用同一条日志原样重试，为假必须停住人工介入。
func (e *Engine) ProcessLog(ctx context.Context, log *model.EventLog) error {
	if log == nil {
		return fmt.Errorf("nil event log")
	}
	entry := e.logger.WithFields(logrus.Fields{
		"event_type":   log.EventType,
		"direction":    log.Direction,
		"block_number": log.BlockNumber,
		"log_index":    log.LogIndex,
		"order_id":     log.OrderID,
	})

	byDirection, ok := e.processors[log.EventType]
	if !ok {
		entry.Warn("unknown event type, skipped")
		return fmt.Errorf("unknown event type %q", log.EventType)
	}
	processor, ok := byDirection[log.Direction]
	if !ok {
		return fmt.Errorf("unknown direction %q", log.Direction)
	}
	entry.Debug(stateReceived)

	// 同一订单、同一 (份额代币, 账户) 的日志串行化。订单挂单方的持仓刷新
	// 经由订单键传递串行，不需要单独的键。
	unlock := e.locks.Lock(lockKeysFor(log)...)
	defer unlock()

	var payload interface{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := processor(ctx, tx, log)
		if err != nil {
			return err
		}
		payload = p
		if err := repository.NewVolumetricsRepository(tx).
			SaveCheckpoint(ctx, log.BlockNumber, log.LogIndex); err != nil {
			return &model.TransactionError{Op: "saveCheckpoint", Err: err}
		}
		return nil
	})
	if err != nil {
		entry.WithError(err).
			WithField("retryable", model.IsRetryable(err)).
			Error(stateFailed)
		return err
	}
	entry.Debug(statePersisted)

	e.emitter.Emit(Notification{
		Name:        log.EventType,
		Removed:     log.Direction == model.DirectionRemove,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.LogIndex,
		Payload:     payload,
	})
	entry.Info(stateNotified)
	return nil
}

func lockKeysFor(log *model.EventLog) []string {
	keys := []string{"order:" + log.OrderID}
	if log.Creator != "" {
		keys = append(keys, "acct:"+log.ShareToken+":"+log.Creator)
	}
	if log.Filler != "" {
		keys = append(keys, "acct:"+log.ShareToken+":"+log.Filler)
	}
	return keys
}
