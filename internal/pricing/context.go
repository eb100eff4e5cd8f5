package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/shopspring/decimal"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidPricing = errors.New("invalid market pricing")
)

var half = decimal.RequireFromString("0.5")

// Context 显式算术上下文：所有除法 round-half-down，取模用欧几里得符号约定。
// 每个转换函数都经由同一个上下文，保证重放结果逐位一致；不依赖任何全局配置。
type Context struct {
	apd              *apd.Context
	displayPrecision int32
}

// NewContext 创建默认算术上下文（38 位有效数字，展示精度 4 位小数）
func NewContext() *Context {
	ctx := apd.BaseContext.WithPrecision(38)
	ctx.Rounding = apd.RoundHalfDown
	return &Context{apd: ctx, displayPrecision: 4}
}

// Quo 上下文内除法（round-half-down）
func (c *Context) Quo(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Decimal{}, ErrDivisionByZero
	}
	x, err := apdFrom(a)
	if err != nil {
		return decimal.Decimal{}, err
	}
	y, err := apdFrom(b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var q apd.Decimal
	if _, err := c.apd.Quo(&q, x, y); err != nil {
		return decimal.Decimal{}, fmt.Errorf("quo: %w", err)
	}
	return apdTo(&q)
}

// Mod 欧几里得取模：余数恒为非负，与被除数符号无关
func (c *Context) Mod(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Decimal{}, ErrDivisionByZero
	}
	r := a.Mod(b)
	if r.IsNegative() {
		r = r.Add(b.Abs())
	}
	return r, nil
}

// RoundHalfDown 四舍六入、恰好一半时舍向零
func (c *Context) RoundHalfDown(d decimal.Decimal, places int32) decimal.Decimal {
	shifted := d.Abs().Shift(places)
	floor := shifted.Floor()
	if shifted.Sub(floor).GreaterThan(half) {
		floor = floor.Add(decimal.NewFromInt(1))
	}
	out := floor.Shift(-places)
	if d.Sign() < 0 {
		out = out.Neg()
	}
	return out
}

// RoundDisplay 按展示精度舍入（订单簿列表用的 amount / price 列）
func (c *Context) RoundDisplay(d decimal.Decimal) decimal.Decimal {
	return c.RoundHalfDown(d, c.displayPrecision)
}

// ParseOnChainInt 解析链上原始定点整数（十进制字符串，不允许小数点或空串）
func ParseOnChainInt(s string) (decimal.Decimal, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("malformed fixed-point integer %q", s)
	}
	return decimal.NewFromBigInt(i, 0), nil
}

func apdFrom(d decimal.Decimal) (*apd.Decimal, error) {
	var x apd.Decimal
	if _, _, err := x.SetString(d.String()); err != nil {
		return nil, err
	}
	return &x, nil
}

func apdTo(x *apd.Decimal) (decimal.Decimal, error) {
	return decimal.NewFromString(x.Text('f'))
}
