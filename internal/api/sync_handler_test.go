package api

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"MirrorSync/internal/model"
	"MirrorSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubAccessor struct{}

func (stubAccessor) GetOrderRemainingAmount(context.Context, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (stubAccessor) GetPositionInMarket(_ context.Context, _, _ string, shareTokens []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(shareTokens))
	for i := range out {
		out[i] = big.NewInt(0)
	}
	return out, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Market{}, &model.Token{}, &model.Category{},
		&model.Order{}, &model.PendingOrphanCheck{}, &model.Trade{},
		&model.Position{}, &model.Outcome{}, &model.OutcomeLiquidity{},
		&model.SyncCheckpoint{},
	))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	engine := service.NewEngine(db, stubAccessor{}, service.NewEmitter(log), log)
	h := NewSyncHandler(db, engine, log)

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/sync/status", h.SyncStatus)
	r.POST("/api/sync/logs", h.InjectLog)
	return r, db
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncStatusEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"synced":false`)
}

func TestInjectLog(t *testing.T) {
	r, db := newTestRouter(t)
	require.NoError(t, db.Create(&model.Market{
		MarketID:    "0x0000000000000000000000000000000000000001",
		Category:    "sports",
		NumOutcomes: 2,
		MinPrice:    decimal.Zero,
		MaxPrice:    decimal.NewFromInt(1),
		NumTicks:    decimal.NewFromInt(10000),
	}).Error)
	require.NoError(t, db.Create(&model.Token{
		ContractAddress: "0x00000000000000000000000000000000000000f0",
		MarketID:        "0x0000000000000000000000000000000000000001",
		Outcome:         0,
	}).Error)

	body := `{
		"eventType": "OrderCreated",
		"direction": "add",
		"blockNumber": 1400000,
		"logIndex": 1,
		"transactionHash": "0xaa01",
		"orderId": "0x1000000000000000000000000000000000000000000000000000000000000001",
		"shareToken": "0x00000000000000000000000000000000000000f0",
		"creator": "0x000000000000000000000000000000000000b0b1",
		"orderType": "0",
		"price": "7500",
		"amount": "30000000000000000000000",
		"moneyEscrowed": "2250000000000000000",
		"sharesEscrowed": "0"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync/logs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	// 注入后同步进度可见
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	assert.Contains(t, w.Body.String(), `"highest_block_number":1400000`)

	// 致命错误（引用缺失）返回 retryable=false
	bad := strings.Replace(body, "00000000000000000000000000000000000000f0", "00000000000000000000000000000000000000ff", 1)
	bad = strings.Replace(bad, "0x1000000000000000000000000000000000000000000000000000000000000001",
		"0x1000000000000000000000000000000000000000000000000000000000000002", 1)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/sync/logs", strings.NewReader(bad))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":false`)
}
