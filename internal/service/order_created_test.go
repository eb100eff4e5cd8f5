package service

import (
	"context"
	"testing"

	"MirrorSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 下单日志应用：定点字段换算成显示域，落订单行与待孤儿检查桶
func TestOrderCreatedAdd(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	engine := newTestEngine(t, db, newFakeAccessor())

	require.NoError(t, engine.ProcessLog(context.Background(), orderCreatedLog(model.DirectionAdd)))

	var order model.Order
	require.NoError(t, db.Where("order_id = ?", testOrderID).First(&order).Error)
	assert.Equal(t, testMarketID, order.MarketID)
	assert.Equal(t, 0, order.Outcome)
	assert.Equal(t, model.OrderTypeBuy, order.OrderType)
	assert.Equal(t, model.OrderStateOpen, order.OrderState)
	assert.Equal(t, testCreator, order.OrderCreator)
	assert.True(t, order.FullPrecisionPrice.Equal(d("0.75")), "price %s", order.FullPrecisionPrice)
	assert.True(t, order.FullPrecisionAmount.Equal(d("3")), "amount %s", order.FullPrecisionAmount)
	assert.True(t, order.OriginalFullPrecisionAmount.Equal(d("3")))
	assert.True(t, order.TokensEscrowed.Equal(d("2.25")), "escrowed %s", order.TokensEscrowed)
	assert.True(t, order.SharesEscrowed.IsZero())
	assert.False(t, order.Orphaned)

	var check model.PendingOrphanCheck
	require.NoError(t, db.Where("market_id = ? AND outcome = ? AND order_type = ?",
		testMarketID, 0, model.OrderTypeBuy).First(&check).Error)

	// 同桶重复下单不产生第二行
	second := orderCreatedLog(model.DirectionAdd)
	second.OrderID = "0x1000000000000000000000000000000000000000000000000000000000000002"
	second.LogIndex = 5
	require.NoError(t, engine.ProcessLog(context.Background(), second))
	var n int64
	require.NoError(t, db.Model(&model.PendingOrphanCheck{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

// 回滚下单日志：订单整行消失
func TestOrderCreatedRemove(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	engine := newTestEngine(t, db, newFakeAccessor())
	ctx := context.Background()

	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionAdd)))
	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionRemove)))

	var n int64
	require.NoError(t, db.Model(&model.Order{}).Where("order_id = ?", testOrderID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

// 订单名下还有成交行时拒绝回滚删除：必须先回滚成交日志
func TestOrderCreatedRemoveWithDependentTrades(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	fake := newFakeAccessor()
	engine := newTestEngine(t, db, fake)
	ctx := context.Background()

	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionAdd)))
	require.NoError(t, engine.ProcessLog(ctx, orderFilledLog(model.DirectionAdd)))

	err := engine.ProcessLog(ctx, orderCreatedLog(model.DirectionRemove))
	require.Error(t, err)
	assert.True(t, model.IsRetryable(err))
	assert.ErrorIs(t, err, errDependentTrades)

	// 订单行原封不动
	var n int64
	require.NoError(t, db.Model(&model.Order{}).Where("order_id = ?", testOrderID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// 先回滚成交再回滚下单即可
	require.NoError(t, engine.ProcessLog(ctx, orderFilledLog(model.DirectionRemove)))
	require.NoError(t, engine.ProcessLog(ctx, orderCreatedLog(model.DirectionRemove)))
}

// 回滚不存在的订单：NotFound 致命
func TestOrderCreatedRemoveMissing(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	engine := newTestEngine(t, db, newFakeAccessor())

	err := engine.ProcessLog(context.Background(), orderCreatedLog(model.DirectionRemove))
	require.Error(t, err)
	assert.False(t, model.IsRetryable(err))
	var notFound *model.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

// 非法 orderType 枚举：ConversionError 致命，事务回滚无残留
func TestOrderCreatedBadOrderType(t *testing.T) {
	db := newTestDB(t)
	seedMarket(t, db)
	engine := newTestEngine(t, db, newFakeAccessor())

	log := orderCreatedLog(model.DirectionAdd)
	log.OrderType = "2"
	err := engine.ProcessLog(context.Background(), log)
	require.Error(t, err)
	assert.False(t, model.IsRetryable(err))
	var conv *model.ConversionError
	assert.ErrorAs(t, err, &conv)

	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
	require.NoError(t, db.Model(&model.PendingOrphanCheck{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}
