package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// weiPerEther 代币定点刻度：1e18
var weiPerEther = decimal.New(1, 18)

// TickSize = (maxPrice - minPrice) / numTicks。
// 要求 numTicks > 0 且 maxPrice > minPrice。
func (c *Context) TickSize(minPrice, maxPrice, numTicks decimal.Decimal) (decimal.Decimal, error) {
	if numTicks.Sign() <= 0 || !maxPrice.GreaterThan(minPrice) {
		return decimal.Decimal{}, fmt.Errorf("%w: min=%s max=%s numTicks=%s",
			ErrInvalidPricing, minPrice, maxPrice, numTicks)
	}
	return c.Quo(maxPrice.Sub(minPrice), numTicks)
}

// FixedPointToDecimal wei 刻度定点整数 -> 代币数量（固定 1e18，与市场无关）
func (c *Context) FixedPointToDecimal(raw decimal.Decimal) (decimal.Decimal, error) {
	return c.Quo(raw, weiPerEther)
}

// OnChainSharesToDisplay 链上份额整数 -> 展示份额。
// 链上份额单位是 1/tickSize，所以换算依赖市场：raw * tickSize / 1e18。
func (c *Context) OnChainSharesToDisplay(raw, tickSize decimal.Decimal) (decimal.Decimal, error) {
	return c.Quo(raw.Mul(tickSize), weiPerEther)
}

// OnChainPriceToDisplay 链上价格整数 -> 展示价格：raw * tickSize + minPrice
func (c *Context) OnChainPriceToDisplay(raw, tickSize, minPrice decimal.Decimal) decimal.Decimal {
	return raw.Mul(tickSize).Add(minPrice)
}
