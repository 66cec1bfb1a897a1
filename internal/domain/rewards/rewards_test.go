package rewards

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/ranking"
)

func entries(scores ...float64) []ranking.Entry {
	out := make([]ranking.Entry, len(scores))
	for i, s := range scores {
		out[i] = ranking.Entry{ID: fmt.Sprintf("p%d", i+1), Score: s, Rank: i}
	}
	return out
}

func top(all []ranking.Entry) []ranking.Entry {
	if len(all) > Eligible {
		return all[:Eligible]
	}
	return all
}

func TestCompute(t *testing.T) {
	Convey("Given three ranked participants with 30, 20 and 10", t, func() {
		all := entries(30, 20, 10)
		plan := Compute(all, top(all))

		Convey("The pool is 2% of total earnings", func() {
			So(plan.TotalEarnings, ShouldAlmostEqual, 60, 1e-9)
			So(plan.Pool, ShouldAlmostEqual, 1.2, 1e-9)
		})

		Convey("The podium gets 20/15/10 percent of the pool", func() {
			So(plan.Rewards, ShouldHaveLength, 3)
			So(plan.Rewards[0].Amount, ShouldAlmostEqual, 0.24, 1e-9)
			So(plan.Rewards[1].Amount, ShouldAlmostEqual, 0.18, 1e-9)
			So(plan.Rewards[2].Amount, ShouldAlmostEqual, 0.12, 1e-9)
		})

		Convey("Each update carries score plus reward in rank order", func() {
			So(plan.Updates, ShouldHaveLength, 3)
			So(plan.Updates[0].ID, ShouldEqual, "p1")
			So(plan.Updates[0].Delta, ShouldAlmostEqual, 30.24, 1e-9)
			So(plan.Updates[1].Delta, ShouldAlmostEqual, 20.18, 1e-9)
			So(plan.Updates[2].Delta, ShouldAlmostEqual, 10.12, 1e-9)
		})

		Convey("Without a rest tier only 45% is paid out", func() {
			So(plan.Payouts, ShouldAlmostEqual, 0.54, 1e-9)
		})
	})

	Convey("Given at least four participants", t, func() {
		all := entries(50, 40, 30, 20, 10, 5)
		plan := Compute(all, top(all))

		Convey("The whole pool is distributed", func() {
			So(plan.Payouts, ShouldAlmostEqual, plan.Pool, 1e-9)
		})

		Convey("Ranks four and below split 55% evenly", func() {
			each := plan.Pool * 0.55 / 3
			for _, r := range plan.Rewards[3:] {
				So(r.Amount, ShouldAlmostEqual, each, 1e-9)
			}
		})
	})

	Convey("Given more than one hundred participants", t, func() {
		scores := make([]float64, 150)
		for i := range scores {
			scores[i] = float64(150 - i)
		}
		all := entries(scores...)
		plan := Compute(all, all)

		Convey("Only the top hundred are rewarded", func() {
			So(plan.Rewards, ShouldHaveLength, Eligible)
			So(plan.Payouts, ShouldAlmostEqual, plan.Pool, 1e-6)
		})

		Convey("Everybody still gets their earnings folded in", func() {
			So(plan.Updates, ShouldHaveLength, 150)
			So(plan.Updates[149].Delta, ShouldAlmostEqual, 1, 1e-9)
		})
	})

	Convey("Given a single participant", t, func() {
		all := entries(10)
		plan := Compute(all, all)

		Convey("The rest tier is skipped without dividing by zero", func() {
			So(plan.Rewards, ShouldHaveLength, 1)
			So(plan.Rewards[0].Amount, ShouldAlmostEqual, 0.04, 1e-9)
		})
	})

	Convey("Given no participants", t, func() {
		plan := Compute(nil, nil)
		So(plan.Pool, ShouldEqual, 0)
		So(plan.Updates, ShouldBeEmpty)
		So(plan.Rewards, ShouldBeEmpty)
	})

	Convey("Given negative scores after a reset", t, func() {
		all := entries(0, -0.00001, -0.00002)
		plan := Compute(all, all)
		So(plan.Pool, ShouldBeLessThanOrEqualTo, 0)
		So(plan.Updates[2].Delta, ShouldBeLessThan, 0)
	})
}
