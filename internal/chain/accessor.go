package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Orders getAmount 最小 ABI
const ordersGetAmountABI = `[
	{"name":"getAmount","type":"function","stateMutability":"view","inputs":[
		{"name":"_orderId","type":"bytes32"}
	],"outputs":[{"name":"","type":"uint256"}]}
]`

// 份额代币 balanceOf 最小 ABI
const shareTokenBalanceOfABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[
		{"name":"_owner","type":"address"}
	],"outputs":[{"name":"","type":"uint256"}]}
]`

const callTimeout = 10 * time.Second

// Accessor 链上权威状态只读访问器。读的永远是当前规范链头的状态，
// 不指定历史区块号，刷新语义依赖这一点。
type Accessor struct {
	client     *ethclient.Client
	ordersAddr common.Address
	ordersABI  abi.ABI
	erc20ABI   abi.ABI
}

// NewAccessor 连接 RPC 并解析最小 ABI。ordersAddr 为撮合订单簿合约地址。
func NewAccessor(ctx context.Context, rpcURL, ordersAddr string) (*Accessor, error) {
	if rpcURL == "" || ordersAddr == "" {
		return nil, fmt.Errorf("rpc_url, orders_address 必填")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	ordersABI, err := abi.JSON(strings.NewReader(ordersGetAmountABI))
	if err != nil {
		return nil, err
	}
	erc20ABI, err := abi.JSON(strings.NewReader(shareTokenBalanceOfABI))
	if err != nil {
		return nil, err
	}
	return &Accessor{
		client:     client,
		ordersAddr: common.HexToAddress(ordersAddr),
		ordersABI:  ordersABI,
		erc20ABI:   erc20ABI,
	}, nil
}

// Close 关闭底层 RPC 连接
func (a *Accessor) Close() { a.client.Close() }

// GetOrderRemainingAmount 读订单在链上的当前剩余量（原始定点整数）。
// 订单已成交完或已撤销时合约返回 0，不报错。
func (a *Accessor) GetOrderRemainingAmount(ctx context.Context, orderID string) (*big.Int, error) {
	orderIDBytes, err := orderIDToBytes32(orderID)
	if err != nil {
		return nil, err
	}
	data, err := a.ordersABI.Pack("getAmount", orderIDBytes)
	if err != nil {
		return nil, fmt.Errorf("pack getAmount: %w", err)
	}
	out, err := a.call(ctx, a.ordersAddr, data)
	if err != nil {
		return nil, fmt.Errorf("call getAmount: %w", err)
	}
	results, err := a.ordersABI.Unpack("getAmount", out)
	if err != nil {
		return nil, fmt.Errorf("unpack getAmount: %w", err)
	}
	amount, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getAmount returned unexpected type %T", results[0])
	}
	return amount, nil
}

// GetPositionInMarket 逐个份额代币读账户余额，返回顺序与 shareTokens 一致
func (a *Accessor) GetPositionInMarket(ctx context.Context, marketID, account string, shareTokens []string) ([]*big.Int, error) {
	owner := common.HexToAddress(account)
	data, err := a.erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	balances := make([]*big.Int, len(shareTokens))
	for i, tokenAddr := range shareTokens {
		out, err := a.call(ctx, common.HexToAddress(tokenAddr), data)
		if err != nil {
			return nil, fmt.Errorf("call balanceOf %s: %w", tokenAddr, err)
		}
		results, err := a.erc20ABI.Unpack("balanceOf", out)
		if err != nil {
			return nil, fmt.Errorf("unpack balanceOf: %w", err)
		}
		balance, ok := results[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("balanceOf returned unexpected type %T", results[0])
		}
		balances[i] = balance
	}
	return balances, nil
}

func (a *Accessor) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return a.client.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// orderIDToBytes32 订单号十六进制（可带 0x 前缀）-> bytes32，须为完整 64 位
func orderIDToBytes32(orderID string) ([32]byte, error) {
	var out [32]byte
	hexStr := strings.TrimPrefix(strings.TrimSpace(orderID), "0x")
	if len(hexStr) != 64 {
		return out, fmt.Errorf("order id must be 64 hex chars, got %d", len(hexStr))
	}
	buf, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, fmt.Errorf("decode order id hex: %w", err)
	}
	copy(out[:], buf)
	return out, nil
}
