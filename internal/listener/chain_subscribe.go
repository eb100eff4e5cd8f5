package listener

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"MirrorSync/internal/config"
	"MirrorSync/internal/model"
	"MirrorSync/internal/service"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

var (
	// OrderCreated(bytes32 indexed orderId, address indexed shareToken, uint8 orderType,
	//   uint256 price, uint256 amount, uint256 moneyEscrowed, uint256 sharesEscrowed,
	//   address creator, bytes32 tradeGroupId)
	sigOrderCreated = crypto.Keccak256Hash([]byte("OrderCreated(bytes32,address,uint8,uint256,uint256,uint256,uint256,address,bytes32)"))
	// OrderFilled(bytes32 indexed orderId, address indexed shareToken, address filler,
	//   uint256 numCreatorTokens, uint256 numCreatorShares, uint256 numFillerTokens,
	//   uint256 numFillerShares, uint256 marketCreatorFees, uint256 reporterFees,
	//   bytes32 tradeGroupId)
	sigOrderFilled = crypto.Keccak256Hash([]byte("OrderFilled(bytes32,address,address,uint256,uint256,uint256,uint256,uint256,uint256,bytes32)"))
	// OrderCanceled(bytes32 indexed orderId, address indexed shareToken, address sender)
	sigOrderCanceled = crypto.Keccak256Hash([]byte("OrderCanceled(bytes32,address,address)"))
)

// ChainSubscriber 使用 go-ethereum 订阅撮合合约日志，解码成 EventLog 后
// 逐条喂给引擎。节点对同一分支保证 (blockNumber, logIndex) 有序推送，
// 重组回滚的日志带 Removed 标记，这里映射为 remove 方向。
type ChainSubscriber struct {
	cfg    *config.ChainConfig
	client *ethclient.Client
	engine *service.Engine
	logger *logrus.Logger
}

// NewChainSubscriber 创建链上订阅器（需传入已连接的 ethclient，便于测试）
func NewChainSubscriber(cfg *config.ChainConfig, client *ethclient.Client, engine *service.Engine, logger *logrus.Logger) *ChainSubscriber {
	return &ChainSubscriber{cfg: cfg, client: client, engine: engine, logger: logger}
}

// Run 在后台订阅三类订单事件。日志必须串行处理：上游有序性是引擎的前提。
func (s *ChainSubscriber) Run(ctx context.Context) error {
	if s.cfg.TradeAddress == "" {
		s.logger.Info("ChainSubscriber: trade_address 未配置，跳过订阅")
		<-ctx.Done()
		return nil
	}
	tradeAddr := common.HexToAddress(s.cfg.TradeAddress)

	query := ethereum.FilterQuery{
		Addresses: []common.Address{tradeAddr},
		Topics:    [][]common.Hash{{sigOrderCreated, sigOrderFilled, sigOrderCanceled}},
	}
	if s.cfg.StartBlock > 0 {
		query.FromBlock = new(big.Int).SetUint64(s.cfg.StartBlock)
	}
	ch := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, ch)
	if err != nil {
		return fmt.Errorf("SubscribeFilterLogs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			s.logger.WithError(err).Error("ChainSubscriber subscription error")
			return err
		case vLog := <-ch:
			eventLog, err := DecodeLog(vLog)
			if err != nil {
				s.logger.WithError(err).WithField("tx_hash", vLog.TxHash.Hex()).Warn("decode log failed")
				continue
			}
			if err := s.engine.ProcessLog(ctx, eventLog); err != nil {
				if model.IsRetryable(err) {
					s.logger.WithError(err).Warn("process log failed, retryable")
					continue
				}
				// 致命错误说明镜像已与链脱节，停住订阅等待人工介入
				s.logger.WithError(err).Error("process log failed, fatal, stopping")
				return err
			}
		}
	}
}

// DecodeLog 把原始日志解码成引擎输入。定点字段保留十进制字符串，
// 换算推迟到引擎的转换阶段统一做。
func DecodeLog(vLog types.Log) (*model.EventLog, error) {
	if len(vLog.Topics) < 3 {
		return nil, fmt.Errorf("log missing indexed topics")
	}
	direction := model.DirectionAdd
	if vLog.Removed {
		direction = model.DirectionRemove
	}
	out := &model.EventLog{
		Direction:       direction,
		BlockNumber:     vLog.BlockNumber,
		LogIndex:        uint64(vLog.Index),
		TransactionHash: vLog.TxHash.Hex(),
		OrderID:         "0x" + hex.EncodeToString(vLog.Topics[1].Bytes()),
		ShareToken:      common.BytesToAddress(vLog.Topics[2].Bytes()).Hex(),
	}
	if raw, err := json.Marshal(vLog); err == nil {
		out.Raw = datatypes.JSON(raw)
	}

	switch vLog.Topics[0] {
	case sigOrderCreated:
		if len(vLog.Data) < 7*32 {
			return nil, fmt.Errorf("OrderCreated data too short: %d bytes", len(vLog.Data))
		}
		out.EventType = model.EventOrderCreated
		out.OrderType = dataWord(vLog.Data, 0).String()
		out.Price = dataWord(vLog.Data, 1).String()
		out.Amount = dataWord(vLog.Data, 2).String()
		out.MoneyEscrowed = dataWord(vLog.Data, 3).String()
		out.SharesEscrowed = dataWord(vLog.Data, 4).String()
		out.Creator = common.BytesToAddress(vLog.Data[5*32+12 : 6*32]).Hex()
		out.TradeGroupID = hexIfNonZero(vLog.Data[6*32 : 7*32])
	case sigOrderFilled:
		if len(vLog.Data) < 8*32 {
			return nil, fmt.Errorf("OrderFilled data too short: %d bytes", len(vLog.Data))
		}
		out.EventType = model.EventOrderFilled
		out.Filler = common.BytesToAddress(vLog.Data[12:32]).Hex()
		out.NumCreatorTokens = dataWord(vLog.Data, 1).String()
		out.NumCreatorShares = dataWord(vLog.Data, 2).String()
		out.NumFillerTokens = dataWord(vLog.Data, 3).String()
		out.NumFillerShares = dataWord(vLog.Data, 4).String()
		out.MarketCreatorFees = dataWord(vLog.Data, 5).String()
		out.ReporterFees = dataWord(vLog.Data, 6).String()
		out.TradeGroupID = hexIfNonZero(vLog.Data[7*32 : 8*32])
	case sigOrderCanceled:
		if len(vLog.Data) < 32 {
			return nil, fmt.Errorf("OrderCanceled data too short: %d bytes", len(vLog.Data))
		}
		out.EventType = model.EventOrderCanceled
		out.Creator = common.BytesToAddress(vLog.Data[12:32]).Hex()
	default:
		return nil, fmt.Errorf("unknown event signature %s", vLog.Topics[0].Hex())
	}
	return out, nil
}

func dataWord(data []byte, i int) *big.Int {
	return new(big.Int).SetBytes(data[i*32 : (i+1)*32])
}

// hexIfNonZero 全零的 tradeGroupId 视为未填
func hexIfNonZero(word []byte) string {
	for _, b := range word {
		if b != 0 {
			return "0x" + hex.EncodeToString(word)
		}
	}
	return ""
}
