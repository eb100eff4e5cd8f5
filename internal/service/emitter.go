package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notification 事务提交后对外发布的变更通知。
// Removed=true 表示这是一次链重组回滚产生的通知。
type Notification struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Removed     bool        `json:"removed"`
	BlockNumber uint64      `json:"blockNumber"`
	LogIndex    uint64      `json:"logIndex"`
	Payload     interface{} `json:"payload"`
}

// Emitter 进程内发布订阅。只允许在事务提交成功之后调用 Emit，
// 事务内部绝不触发通知（回滚时下游不应看到任何东西）。
type Emitter struct {
	mu     sync.RWMutex
	subs   []chan Notification
	logger *logrus.Logger
}

// NewEmitter 创建 Emitter
func NewEmitter(logger *logrus.Logger) *Emitter {
	return &Emitter{logger: logger}
}

// Subscribe 注册一个订阅通道，buffer 为通道缓冲大小
func (e *Emitter) Subscribe(buffer int) <-chan Notification {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Notification, buffer)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

// Emit 广播一条通知。订阅方消费太慢导致通道满时丢弃并告警，不阻塞同步主流程。
func (e *Emitter) Emit(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.subs {
		select {
		case ch <- n:
		default:
			e.logger.WithFields(logrus.Fields{
				"name":         n.Name,
				"block_number": n.BlockNumber,
				"log_index":    n.LogIndex,
			}).Warn("notification subscriber is full, dropping")
		}
	}
}
