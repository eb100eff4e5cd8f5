package listener

import (
	"math/big"
	"testing"

	"MirrorSync/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOrderIDTopic = common.HexToHash("0x1000000000000000000000000000000000000000000000000000000000000001")
	testShareToken   = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testCreatorAddr  = common.HexToAddress("0x000000000000000000000000000000000000b0b1")
	testFillerAddr   = common.HexToAddress("0x000000000000000000000000000000000000d00d")
)

func uintWord(s string) []byte {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad literal " + s)
	}
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

func addrWord(a common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], a.Bytes())
	return out
}

func TestDecodeOrderCreated(t *testing.T) {
	data := append([]byte{}, uintWord("0")...) // orderType = buy
	data = append(data, uintWord("7500")...)
	data = append(data, uintWord("30000000000000000000000")...)
	data = append(data, uintWord("2250000000000000000")...)
	data = append(data, uintWord("0")...)
	data = append(data, addrWord(testCreatorAddr)...)
	data = append(data, make([]byte, 32)...) // tradeGroupId

	out, err := DecodeLog(types.Log{
		Topics:      []common.Hash{sigOrderCreated, testOrderIDTopic, common.BytesToHash(testShareToken.Bytes())},
		Data:        data,
		BlockNumber: 1400000,
		Index:       1,
		TxHash:      common.HexToHash("0xaa01"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventOrderCreated, out.EventType)
	assert.Equal(t, model.DirectionAdd, out.Direction)
	assert.Equal(t, testOrderIDTopic.Hex(), out.OrderID)
	assert.Equal(t, testShareToken.Hex(), out.ShareToken)
	assert.Equal(t, "0", out.OrderType)
	assert.Equal(t, "7500", out.Price)
	assert.Equal(t, "30000000000000000000000", out.Amount)
	assert.Equal(t, "2250000000000000000", out.MoneyEscrowed)
	assert.Equal(t, "0", out.SharesEscrowed)
	assert.Equal(t, testCreatorAddr.Hex(), out.Creator)
	assert.EqualValues(t, 1400000, out.BlockNumber)
	assert.EqualValues(t, 1, out.LogIndex)
}

func TestDecodeOrderFilled(t *testing.T) {
	data := append([]byte{}, addrWord(testFillerAddr)...)
	data = append(data, uintWord("750000000000000000")...)
	data = append(data, uintWord("0")...)
	data = append(data, uintWord("250000000000000000")...)
	data = append(data, uintWord("0")...)
	data = append(data, uintWord("0")...)
	data = append(data, uintWord("0")...)
	data = append(data, make([]byte, 32)...)

	out, err := DecodeLog(types.Log{
		Topics: []common.Hash{sigOrderFilled, testOrderIDTopic, common.BytesToHash(testShareToken.Bytes())},
		Data:   data,
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventOrderFilled, out.EventType)
	assert.Equal(t, testFillerAddr.Hex(), out.Filler)
	assert.Equal(t, "750000000000000000", out.NumCreatorTokens)
	assert.Equal(t, "0", out.NumCreatorShares)
	assert.Equal(t, "250000000000000000", out.NumFillerTokens)
	assert.Equal(t, "0", out.MarketCreatorFees)
}

// 节点回滚推送的日志映射为 remove 方向
func TestDecodeRemovedLog(t *testing.T) {
	out, err := DecodeLog(types.Log{
		Topics:  []common.Hash{sigOrderCanceled, testOrderIDTopic, common.BytesToHash(testShareToken.Bytes())},
		Data:    addrWord(testCreatorAddr),
		Removed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.EventOrderCanceled, out.EventType)
	assert.Equal(t, model.DirectionRemove, out.Direction)
	assert.Equal(t, testCreatorAddr.Hex(), out.Creator)
}

func TestDecodeUnknownSignature(t *testing.T) {
	_, err := DecodeLog(types.Log{
		Topics: []common.Hash{common.HexToHash("0xdead"), testOrderIDTopic, common.BytesToHash(testShareToken.Bytes())},
	})
	assert.Error(t, err)

	_, err = DecodeLog(types.Log{Topics: []common.Hash{sigOrderCreated}})
	assert.Error(t, err)
}
