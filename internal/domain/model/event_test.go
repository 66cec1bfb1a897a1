package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	model "github.com/okian/podium/internal/domain/model"
)

func TestScoreEvent_Validate(t *testing.T) {
	convey.Convey("Given a ScoreEvent", t, func() {
		convey.Convey("When it has a player and finite earnings", func() {
			e := model.ScoreEvent{PlayerID: "p1", Earnings: -3.5}

			convey.Convey("Then it is valid even without an event id", func() {
				convey.So(e.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the player id is blank", func() {
			e := model.ScoreEvent{PlayerID: "  ", Earnings: 1}

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(e.Validate(), model.ErrInvalidEvent), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When earnings are not finite", func() {
			for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				e := model.ScoreEvent{PlayerID: "p1", Earnings: v}
				convey.So(errors.Is(e.Validate(), model.ErrInvalidEvent), convey.ShouldBeTrue)
			}
		})
	})
}

func TestRankedParticipant_JSON(t *testing.T) {
	convey.Convey("A ranked participant serializes with the public field names", t, func() {
		b, err := json.Marshal(model.RankedParticipant{ID: "p1", Name: "Ann", Country: "NL", TotalBalance: 12.5, Rank: 1})
		convey.So(err, convey.ShouldBeNil)
		convey.So(string(b), convey.ShouldEqual, `{"playerId":"p1","name":"Ann","country":"NL","money":12.5,"rank":1}`)
	})
}
