package model

import (
	"gorm.io/datatypes"
)

// Direction 日志方向：add 为正常应用，remove 为链重组回滚
type Direction string

const (
	DirectionAdd    Direction = "add"
	DirectionRemove Direction = "remove"
)

// 本引擎处理的事件类型
const (
	EventOrderCreated  = "OrderCreated"
	EventOrderFilled   = "OrderFilled"
	EventOrderCanceled = "OrderCanceled"
)

// EventLog 一条已解码的链上事件日志（引擎输入，只读）。
// 上游按 (block_number, log_index) 排好序、同一分支不交叉地投递；
// 定点数字段保持原始十进制字符串，解析失败在转换阶段报 ConversionError。
type EventLog struct {
	EventType       string    `json:"eventType"`
	Direction       Direction `json:"direction"`
	BlockNumber     uint64    `json:"blockNumber"`
	LogIndex        uint64    `json:"logIndex"`
	TransactionHash string    `json:"transactionHash"`

	OrderID    string `json:"orderId,omitempty"`
	ShareToken string `json:"shareToken,omitempty"`
	Creator    string `json:"creator,omitempty"`
	Filler     string `json:"filler,omitempty"`

	// OrderCreated 专属：orderType 为链上原始枚举（"0"=buy / "1"=sell）
	OrderType      string `json:"orderType,omitempty"`
	Price          string `json:"price,omitempty"`
	Amount         string `json:"amount,omitempty"`
	MoneyEscrowed  string `json:"moneyEscrowed,omitempty"`
	SharesEscrowed string `json:"sharesEscrowed,omitempty"`

	// OrderFilled 专属
	NumCreatorTokens  string `json:"numCreatorTokens,omitempty"`
	NumCreatorShares  string `json:"numCreatorShares,omitempty"`
	NumFillerTokens   string `json:"numFillerTokens,omitempty"`
	NumFillerShares   string `json:"numFillerShares,omitempty"`
	MarketCreatorFees string `json:"marketCreatorFees,omitempty"`
	ReporterFees      string `json:"reporterFees,omitempty"`

	TradeGroupID string `json:"tradeGroupId,omitempty"`

	// Raw 原始日志 JSON，透传给通知方便排查问题
	Raw datatypes.JSON `json:"raw,omitempty"`
}

// OrderingKey 日志排序键
func (l *EventLog) OrderingKey() (uint64, uint64) { return l.BlockNumber, l.LogIndex }
