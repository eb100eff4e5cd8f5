package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"MirrorSync/internal/model"
)

// FillPrice 撮合合约的买卖互补价：买单挂单方按 price - minPrice 托管代币，
// 卖单挂单方按 maxPrice - price 托管。SharesTraded 用它把代币量换回份额，
// 两个方向必须用同一条规则，否则份额除不尽。
func FillPrice(price, minPrice, maxPrice decimal.Decimal, orderType model.OrderType) (decimal.Decimal, error) {
	switch orderType {
	case model.OrderTypeBuy:
		return price.Sub(minPrice), nil
	case model.OrderTypeSell:
		return maxPrice.Sub(price), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unknown order type %q", orderType)
	}
}

// SharesTraded 本次成交实际换手的份额数：
// 挂单方托管的份额直接计入，托管的代币按 fillPrice 换算成份额。
func (c *Context) SharesTraded(creatorShares, creatorTokens, fillPrice decimal.Decimal) (decimal.Decimal, error) {
	if creatorTokens.IsZero() {
		return creatorShares, nil
	}
	fromTokens, err := c.Quo(creatorTokens, fillPrice)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return creatorShares.Add(fromTokens), nil
}

// OpenInterestDelta 本次成交对未平仓量的净影响：
// 双方都出代币的部分铸造新份额组（+），双方都出份额的部分对冲销毁（−）。
func (c *Context) OpenInterestDelta(creatorShares, creatorTokens, fillerShares, fillerTokens,
	price, minPrice, maxPrice decimal.Decimal, orderType model.OrderType) (decimal.Decimal, error) {

	creatorRate, err := FillPrice(price, minPrice, maxPrice, orderType)
	if err != nil {
		return decimal.Decimal{}, err
	}
	fillerRate := maxPrice.Sub(minPrice).Sub(creatorRate)

	created := decimal.Zero
	if creatorTokens.Sign() > 0 && fillerTokens.Sign() > 0 {
		a, err := c.Quo(creatorTokens, creatorRate)
		if err != nil {
			return decimal.Decimal{}, err
		}
		b, err := c.Quo(fillerTokens, fillerRate)
		if err != nil {
			return decimal.Decimal{}, err
		}
		created = decimal.Min(a, b)
	}
	destroyed := decimal.Min(creatorShares, fillerShares)
	return created.Sub(destroyed), nil
}

// 流动性档位：相对价差向上归入最近的档（百分比）
var spreadBuckets = []int{10, 15, 20, 100}

// SpreadBucket 订单价格偏离市场中点的相对价差所属档位
func (c *Context) SpreadBucket(price, minPrice, maxPrice decimal.Decimal) (int, error) {
	priceRange := maxPrice.Sub(minPrice)
	if priceRange.Sign() <= 0 {
		return 0, ErrInvalidPricing
	}
	mid := minPrice.Add(maxPrice).Div(decimal.NewFromInt(2))
	rel, err := c.Quo(price.Sub(mid).Abs().Mul(decimal.NewFromInt(200)), priceRange)
	if err != nil {
		return 0, err
	}
	for _, b := range spreadBuckets {
		if rel.LessThanOrEqual(decimal.NewFromInt(int64(b))) {
			return b, nil
		}
	}
	return spreadBuckets[len(spreadBuckets)-1], nil
}
