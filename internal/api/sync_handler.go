package api

import (
	"errors"
	"net/http"

	"MirrorSync/internal/model"
	"MirrorSync/internal/repository"
	"MirrorSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type SyncHandler struct {
	db     *gorm.DB
	engine *service.Engine
	logger *logrus.Logger
}

func NewSyncHandler(db *gorm.DB, engine *service.Engine, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{db: db, engine: engine, logger: logger}
}

// Healthz 存活探针
// @Summary 健康检查
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *SyncHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SyncStatus 返回最近一条已提交日志的排序键
// @Summary 同步进度
// @Success 200 {object} map[string]interface{}
// @Router /api/sync/status [get]
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	cp, err := repository.NewVolumetricsRepository(h.db).GetCheckpoint(c.Request.Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"highest_block_number": 0,
				"highest_log_index":    0,
				"synced":               false,
			})
			return
		}
		h.logger.Errorf("查询同步进度失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var orders, trades int64
	if err := h.db.WithContext(c.Request.Context()).Model(&model.Order{}).Count(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(&model.Trade{}).Count(&trades).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"highest_block_number": cp.HighestBlockNumber,
		"highest_log_index":    cp.HighestLogIndex,
		"synced":               true,
		"orders":               orders,
		"trades":               trades,
	})
}

// InjectLog 手工注入一条日志（补数据、回放测试用）
// @Summary 注入事件日志
// @Param log body model.EventLog true "已解码的事件日志"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]interface{}
// @Router /api/sync/logs [post]
func (h *SyncHandler) InjectLog(c *gin.Context) {
	var eventLog model.EventLog
	if err := c.ShouldBindJSON(&eventLog); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.ProcessLog(c.Request.Context(), &eventLog); err != nil {
		h.logger.Errorf("注入日志处理失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     err.Error(),
			"retryable": model.IsRetryable(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "日志已应用"})
}
