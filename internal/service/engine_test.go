package service

import (
	"context"
	"testing"
	"time"

	"MirrorSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 未知事件类型直接拒绝
func TestProcessLogUnknownEventType(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, newFakeAccessor())

	err := engine.ProcessLog(context.Background(), &model.EventLog{
		EventType: "MarketResolved",
		Direction: model.DirectionAdd,
	})
	require.Error(t, err)
	assert.False(t, model.IsRetryable(err))

	err = engine.ProcessLog(context.Background(), &model.EventLog{
		EventType: model.EventOrderCreated,
		Direction: model.Direction("upsert"),
	})
	require.Error(t, err)
}

// 引用的份额代币不在映射表里：NotFound 致命
func TestProcessLogUnknownToken(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, newFakeAccessor())

	err := engine.ProcessLog(context.Background(), orderCreatedLog(model.DirectionAdd))
	require.Error(t, err)
	assert.False(t, model.IsRetryable(err))
	var notFound *model.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "token", notFound.Entity)
}

// 提交成功后才发通知，通知 ID 非空且带方向标记
func TestProcessLogEmitsAfterCommit(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	emitter := NewEmitter(log)
	engine := NewEngine(db, newFakeAccessor(), emitter, log)
	ch := emitter.Subscribe(4)
	ctx := context.Background()

	// 失败的日志不产生通知
	bad := orderCreatedLog(model.DirectionAdd)
	bad.ShareToken = "0x00000000000000000000000000000000000000ff"
	require.Error(t, engine.ProcessLog(ctx, bad))
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %+v", n)
	default:
	}

	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionAdd)))
	select {
	case n := <-ch:
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, model.EventOrderCreated, n.Name)
		assert.False(t, n.Removed)
		assert.Equal(t, testOrderBlock, n.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("notification not emitted")
	}

	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionRemove)))
	select {
	case n := <-ch:
		assert.True(t, n.Removed)
	case <-time.After(time.Second):
		t.Fatal("removal notification not emitted")
	}
}

// 每条日志成功后推进检查点
func TestProcessLogAdvancesCheckpoint(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	engine := newTestEngine(t, db, newFakeAccessor())
	ctx := context.Background()

	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionAdd)))

	var cp model.SyncCheckpoint
	require.NoError(t, db.Where("id = ?", 1).First(&cp).Error)
	assert.Equal(t, testOrderBlock, cp.HighestBlockNumber)
	assert.EqualValues(t, 1, cp.HighestLogIndex)
}

// 撤单应用与回滚
func TestOrderCanceledAddRemove(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	engine := newTestEngine(t, db, newFakeAccessor())
	ctx := context.Background()

	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionAdd)))

	cancel := &model.EventLog{
		EventType:       model.EventOrderCanceled,
		Direction:       model.DirectionAdd,
		BlockNumber:     testOrderBlock + 20,
		LogIndex:        3,
		TransactionHash: "0xaa04",
		OrderID:         testOrderID,
		ShareToken:      testToken0,
		Creator:         testCreator,
	}
	require.NoError(t, engine.ProcessLog(ctx, cancel))

	var order model.Order
	require.NoError(t, db.Where("order_id = ?", testOrderID).First(&order).Error)
	assert.Equal(t, model.OrderStateCanceled, order.OrderState)
	require.NotNil(t, order.CanceledBlockNumber)
	assert.Equal(t, testOrderBlock+20, *order.CanceledBlockNumber)

	cancel.Direction = model.DirectionRemove
	require.NoError(t, engine.ProcessLog(ctx, cancel))
	require.NoError(t, db.Where("order_id = ?", testOrderID).First(&order).Error)
	assert.Equal(t, model.OrderStateOpen, order.OrderState)
	assert.Nil(t, order.CanceledBlockNumber)
	assert.Nil(t, order.CanceledTransactionHash)
}

// 键锁：交叉键集合按序获取，不死锁
func TestKeyedLocks(t *testing.T) {
	locks := newKeyedLocks()
	done := make(chan struct{})
	unlock := locks.Lock("b", "a")
	go func() {
		u := locks.Lock("a", "c")
		u()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("lock on held key should block")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}
	// 全部释放后 map 应回收为空
	locks.mu.Lock()
	assert.Empty(t, locks.held)
	locks.mu.Unlock()
}
