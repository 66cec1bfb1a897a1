// Package rewards computes the weekly reward distribution.
package rewards

import (
	"github.com/shopspring/decimal"

	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/domain/model"
)

// Distribution constants.
const (
	// PodiumSize is the number of individually weighted ranks.
	PodiumSize = 3
	// Eligible is the number of top ranks sharing the pool.
	Eligible = 100
)

var (
	poolRate     = decimal.RequireFromString("0.02")
	podiumShares = [PodiumSize]decimal.Decimal{
		decimal.RequireFromString("0.20"),
		decimal.RequireFromString("0.15"),
		decimal.RequireFromString("0.10"),
	}
	restShare = decimal.RequireFromString("0.55")
)

// Reward is the amount granted to one ranked participant.
type Reward struct {
	ID     string
	Rank   int
	Amount float64
}

// Plan is the outcome of one settlement computation.
type Plan struct {
	TotalEarnings float64
	Pool          float64
	// Payouts is the sum of all granted rewards.
	Payouts float64
	Rewards []Reward
	// Updates holds one balance increment per participant, in rank order.
	Updates []model.EarningsUpdate
}

// Compute derives the reward plan. all is every ranked participant in rank
// order; top is the first Eligible of them. The pool is 2% of total
// earnings: ranks 1-3 get 20/15/10% and ranks 4..len(top) split 55% evenly.
func Compute(all, top []ranking.Entry) Plan {
	if len(top) > Eligible {
		top = top[:Eligible]
	}

	total := decimal.Zero
	for _, e := range all {
		total = total.Add(decimal.NewFromFloat(e.Score))
	}
	pool := total.Mul(poolRate)

	granted := make(map[string]decimal.Decimal, len(top))
	rewards := make([]Reward, 0, len(top))
	payouts := decimal.Zero
	grant := func(i int, amount decimal.Decimal) {
		id := top[i].ID
		granted[id] = granted[id].Add(amount)
		payouts = payouts.Add(amount)
		rewards = append(rewards, Reward{ID: id, Rank: i + 1, Amount: amount.InexactFloat64()})
	}

	for i := 0; i < len(top) && i < PodiumSize; i++ {
		grant(i, pool.Mul(podiumShares[i]))
	}
	if rest := len(top) - PodiumSize; rest > 0 {
		each := pool.Mul(restShare).Div(decimal.NewFromInt(int64(rest)))
		for i := PodiumSize; i < len(top); i++ {
			grant(i, each)
		}
	}

	updates := make([]model.EarningsUpdate, 0, len(all))
	for _, e := range all {
		delta := decimal.NewFromFloat(e.Score).Add(granted[e.ID])
		updates = append(updates, model.EarningsUpdate{ID: e.ID, Delta: delta.InexactFloat64()})
	}

	return Plan{
		TotalEarnings: total.InexactFloat64(),
		Pool:          pool.InexactFloat64(),
		Payouts:       payouts.InexactFloat64(),
		Rewards:       rewards,
		Updates:       updates,
	}
}
