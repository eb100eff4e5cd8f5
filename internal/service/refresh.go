package service

import (
	"context"
	"math/big"

	"MirrorSync/internal/model"
	"MirrorSync/internal/pricing"
	"MirrorSync/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ChainAccessor 链上当前状态访问器。返回值必须反映调用时刻的规范链状态，
// 超时与重试策略由实现方负责，失败以普通错误的形式回给引擎。
type ChainAccessor interface {
	GetOrderRemainingAmount(ctx context.Context, orderID string) (*big.Int, error)
	GetPositionInMarket(ctx context.Context, marketID, account string, shareTokens []string) ([]*big.Int, error)
}

// Refresher 权威状态刷新器：订单剩余量与账户持仓不走增量，
// 每次直接读链上当前值整行覆盖。add、remove 以及任意次数的重放
// 都收敛到同一存储值，这是回滚正确性的基石。
type Refresher struct {
	accessor ChainAccessor
	pctx     *pricing.Context
	logger   *logrus.Logger
}

// NewRefresher 创建 Refresher
func NewRefresher(accessor ChainAccessor, pctx *pricing.Context, logger *logrus.Logger) *Refresher {
	return &Refresher{accessor: accessor, pctx: pctx, logger: logger}
}

// RefreshOrderRemainingAmount 读链上剩余量并覆盖订单的 amount 列；
// 剩余为零时把状态推进到 FILLED。
func (r *Refresher) RefreshOrderRemainingAmount(ctx context.Context, tx *gorm.DB, orderID string, tickSize decimal.Decimal) error {
	raw, err := r.accessor.GetOrderRemainingAmount(ctx, orderID)
	if err != nil {
		return &model.ChainAccessorError{Op: "getOrderRemainingAmount", Err: err}
	}
	return r.writeOrderRemainingAmount(ctx, tx, orderID, raw, tickSize)
}

func (r *Refresher) writeOrderRemainingAmount(ctx context.Context, tx *gorm.DB, orderID string, raw *big.Int, tickSize decimal.Decimal) error {
	full, err := r.pctx.OnChainSharesToDisplay(decimal.NewFromBigInt(raw, 0), tickSize)
	if err != nil {
		return &model.ConversionError{Field: "remainingAmount", Err: err}
	}
	display := r.pctx.RoundDisplay(full)
	return repository.NewOrderRepository(tx).
		OverwriteRemainingAmount(ctx, orderID, full, display, full.IsZero())
}

// RefreshPositionInMarket 读该账户在市场各结果上的链上余额并覆盖 positions 行
func (r *Refresher) RefreshPositionInMarket(ctx context.Context, tx *gorm.DB, marketID, account string, tickSize decimal.Decimal) error {
	tokens, err := repository.NewMarketRepository(tx).ListTokensByMarket(ctx, marketID)
	if err != nil {
		return &model.TransactionError{Op: "listTokensByMarket", Err: err}
	}
	balances, err := r.fetchPosition(ctx, marketID, account, tokens)
	if err != nil {
		return err
	}
	return r.writePosition(ctx, tx, marketID, account, tokens, balances, tickSize)
}

func (r *Refresher) fetchPosition(ctx context.Context, marketID, account string, tokens []*model.Token) ([]*big.Int, error) {
	addrs := make([]string, len(tokens))
	for i, t := range tokens {
		addrs[i] = t.ContractAddress
	}
	balances, err := r.accessor.GetPositionInMarket(ctx, marketID, account, addrs)
	if err != nil {
		return nil, &model.ChainAccessorError{Op: "getPositionInMarket", Err: err}
	}
	return balances, nil
}

func (r *Refresher) writePosition(ctx context.Context, tx *gorm.DB, marketID, account string, tokens []*model.Token, balances []*big.Int, tickSize decimal.Decimal) error {
	posRepo := repository.NewPositionRepository(tx)
	for i, t := range tokens {
		if i >= len(balances) || balances[i] == nil {
			return &model.ChainAccessorError{Op: "getPositionInMarket", Err: errMissingBalance(t.Outcome)}
		}
		numShares, err := r.pctx.OnChainSharesToDisplay(decimal.NewFromBigInt(balances[i], 0), tickSize)
		if err != nil {
			return &model.ConversionError{Field: "numShares", Err: err}
		}
		if err := posRepo.OverwriteNumShares(ctx, marketID, account, t.Outcome, numShares); err != nil {
			return &model.TransactionError{Op: "overwritePosition", Err: err}
		}
	}
	return nil
}

// RefreshAfterFill 成交后的三路刷新：剩余量、挂单方持仓、吃单方持仓。
// 三个链上读取并发扇出、全部成功后再串行落库（gorm 事务句柄不能跨协程共用），
// 任一失败整个事务回滚。
func (r *Refresher) RefreshAfterFill(ctx context.Context, tx *gorm.DB, marketID, orderID, creator, filler string, tickSize decimal.Decimal) error {
	tokens, err := repository.NewMarketRepository(tx).ListTokensByMarket(ctx, marketID)
	if err != nil {
		return &model.TransactionError{Op: "listTokensByMarket", Err: err}
	}

	var (
		remaining  *big.Int
		creatorBal []*big.Int
		fillerBal  []*big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := r.accessor.GetOrderRemainingAmount(gctx, orderID)
		if err != nil {
			return &model.ChainAccessorError{Op: "getOrderRemainingAmount", Err: err}
		}
		remaining = raw
		return nil
	})
	g.Go(func() error {
		bal, err := r.fetchPosition(gctx, marketID, creator, tokens)
		if err != nil {
			return err
		}
		creatorBal = bal
		return nil
	})
	if filler != creator {
		g.Go(func() error {
			bal, err := r.fetchPosition(gctx, marketID, filler, tokens)
			if err != nil {
				return err
			}
			fillerBal = bal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := r.writeOrderRemainingAmount(ctx, tx, orderID, remaining, tickSize); err != nil {
		return err
	}
	if err := r.writePosition(ctx, tx, marketID, creator, tokens, creatorBal, tickSize); err != nil {
		return err
	}
	if filler != creator {
		if err := r.writePosition(ctx, tx, marketID, filler, tokens, fillerBal, tickSize); err != nil {
			return err
		}
	}
	return nil
}

type errMissingBalance int

func (e errMissingBalance) Error() string {
	return "missing balance for outcome"
}
