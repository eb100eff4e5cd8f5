package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"MirrorSync/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testMarketID   = "0x0000000000000000000000000000000000000001"
	testToken0     = "0x00000000000000000000000000000000000000f0"
	testToken1     = "0x00000000000000000000000000000000000000f1"
	testCategory   = "sports"
	testCreator    = "0x000000000000000000000000000000000000b0b1"
	testFiller     = "0x000000000000000000000000000000000000d00d"
	testOrderID    = "0x1000000000000000000000000000000000000000000000000000000000000001"
	testOrderBlock = uint64(1400000)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// 每个测试独立的内存库，cache=shared 让事务内外连接看到同一份数据
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Market{},
		&model.Token{},
		&model.Category{},
		&model.Order{},
		&model.PendingOrphanCheck{},
		&model.Trade{},
		&model.Position{},
		&model.Outcome{},
		&model.OutcomeLiquidity{},
		&model.SyncCheckpoint{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// seedMarket 铺一个 tickSize=0.0001 的二元市场及其两个份额代币
func seedMarket(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&model.Market{
		MarketID:    testMarketID,
		Category:    testCategory,
		NumOutcomes: 2,
		MinPrice:    d("0"),
		MaxPrice:    d("1"),
		NumTicks:    d("10000"),
	}).Error)
	require.NoError(t, db.Create(&model.Token{
		ContractAddress: testToken0, MarketID: testMarketID, Outcome: 0,
	}).Error)
	require.NoError(t, db.Create(&model.Token{
		ContractAddress: testToken1, MarketID: testMarketID, Outcome: 1,
	}).Error)
}

// fakeAccessor 可编程的链上状态。按订单号/账户返回预置值，记录调用次数。
type fakeAccessor struct {
	mu        sync.Mutex
	remaining map[string]*big.Int
	balances  map[string][]*big.Int // account -> 按 outcome 序的余额
	failOrder bool
	calls     int
}

func newFakeAccessor() *fakeAccessor {
	return &fakeAccessor{
		remaining: make(map[string]*big.Int),
		balances:  make(map[string][]*big.Int),
	}
}

func (f *fakeAccessor) GetOrderRemainingAmount(_ context.Context, orderID string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOrder {
		return nil, fmt.Errorf("rpc timeout")
	}
	if v, ok := f.remaining[orderID]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeAccessor) GetPositionInMarket(_ context.Context, _, account string, shareTokens []string) ([]*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if v, ok := f.balances[account]; ok {
		return v, nil
	}
	out := make([]*big.Int, len(shareTokens))
	for i := range out {
		out[i] = big.NewInt(0)
	}
	return out, nil
}

func newTestEngine(t *testing.T, db *gorm.DB, accessor ChainAccessor) *Engine {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(db, accessor, NewEmitter(log), log)
}

// orderCreatedLog 造一条与 seedMarket 匹配的下单日志：
// 买单、价格档 7500（显示价 0.75）、3 份额、托管 2.25 代币
func orderCreatedLog(direction model.Direction) *model.EventLog {
	return &model.EventLog{
		EventType:       model.EventOrderCreated,
		Direction:       direction,
		BlockNumber:     testOrderBlock,
		LogIndex:        1,
		TransactionHash: "0xaa01",
		OrderID:         testOrderID,
		ShareToken:      testToken0,
		Creator:         testCreator,
		OrderType:       "0",
		Price:           "7500",
		Amount:          "30000000000000000000000",
		MoneyEscrowed:   "2250000000000000000",
		SharesEscrowed:  "0",
	}
}

// orderFilledLog 吃掉上面订单 1 个份额：挂单方出 0.75 代币，吃单方出 0.25 代币
func orderFilledLog(direction model.Direction) *model.EventLog {
	return &model.EventLog{
		EventType:         model.EventOrderFilled,
		Direction:         direction,
		BlockNumber:       testOrderBlock + 10,
		LogIndex:          2,
		TransactionHash:   "0xaa02",
		OrderID:           testOrderID,
		ShareToken:        testToken0,
		Filler:            testFiller,
		NumCreatorTokens:  "750000000000000000",
		NumCreatorShares:  "0",
		NumFillerTokens:   "250000000000000000",
		NumFillerShares:   "0",
		MarketCreatorFees: "0",
		ReporterFees:      "0",
	}
}
