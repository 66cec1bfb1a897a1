package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/model"
)

const dataset = `[
  {"playerId": "p1", "name": "Ann", "country": "NL", "money": 10, "earnings": 30},
  {"playerId": "p2", "name": "Bob", "country": "DE", "money": 0, "earnings": 20},
  {"playerId": "p3", "name": "Cid", "country": "NL", "money": 5, "earnings": 10}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "players.json")
	if err := os.WriteFile(path, []byte(dataset), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	cfg := config.New(context.Background())
	cfg.WorkerCount = 2
	cfg.EventQueueSize = 64
	cfg.SettlementEnabled = false
	cfg.SeedSource = path
	cfg.SeedOnStart = true
	return cfg
}

func waitProcessed(svc *service.Service, n int64) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Stats(context.Background()).Processed >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService(t *testing.T) {
	Convey("Given a started in-memory service with a seeded dataset", t, func() {
		ctx := context.Background()
		svc, err := service.New(ctx, testConfig(t))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("The dataset is ranked", func() {
			top, err := svc.ListTop(ctx, 10)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].Name, ShouldEqual, "Ann")
			So(top[0].TotalBalance, ShouldEqual, 40)
			So(top[0].Rank, ShouldEqual, 1)
		})

		Convey("Submitted events move players up", func() {
			ack, err := svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "e1", PlayerID: "p3", Earnings: 50})
			So(err, ShouldBeNil)
			So(ack.Duplicate, ShouldBeFalse)
			So(waitProcessed(svc, 1), ShouldBeTrue)

			top, err := svc.ListTop(ctx, 1)
			So(err, ShouldBeNil)
			So(top[0].ID, ShouldEqual, "p3")

			Convey("And a replayed event id is acknowledged as a duplicate", func() {
				ack, err := svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "e1", PlayerID: "p3", Earnings: 50})
				So(err, ShouldBeNil)
				So(ack.Duplicate, ShouldBeTrue)
			})
		})

		Convey("Events without an id get one", func() {
			ack, err := svc.SubmitEvent(ctx, model.ScoreEvent{PlayerID: "p2", Earnings: 1})
			So(err, ShouldBeNil)
			So(ack.EventID, ShouldNotBeEmpty)
		})

		Convey("Invalid events are rejected", func() {
			_, err := svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "e2", Earnings: 1})
			So(errors.Is(err, model.ErrInvalidEvent), ShouldBeTrue)
		})

		Convey("Neighborhood and autocomplete read through the query service", func() {
			around, err := svc.Neighborhood(ctx, "Cid")
			So(err, ShouldBeNil)
			So(around, ShouldHaveLength, 3)

			names, err := svc.Autocomplete(ctx, "b")
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"Bob"})

			groups, err := svc.ListTopByCountry(ctx, 10)
			So(err, ShouldBeNil)
			So(groups, ShouldHaveLength, 2)
		})

		Convey("A settlement pays out and resets the epoch", func() {
			rep, err := svc.RunSettlement(ctx)
			So(err, ShouldBeNil)
			So(rep.Participants, ShouldEqual, 3)
			So(rep.TotalEarnings, ShouldEqual, 60)

			top, err := svc.ListTop(ctx, 1)
			So(err, ShouldBeNil)
			So(top[0].Name, ShouldEqual, "Ann")
			So(top[0].TotalBalance, ShouldAlmostEqual, 40+0.24, 1e-4)

			st := svc.Stats(ctx)
			So(st.LastSettlement, ShouldNotBeNil)
			So(st.LastSettlement.RunID, ShouldEqual, rep.RunID)
			So(st.SettlementState, ShouldEqual, "idle")
		})

		Convey("Stats reflect the running components", func() {
			st := svc.Stats(ctx)
			So(st.Started, ShouldBeTrue)
			So(st.Workers, ShouldEqual, 2)
			So(st.QueueCapacity, ShouldEqual, 64)
			So(st.RankedPlayers, ShouldEqual, 3)
		})

		Convey("After Stop, intake is refused", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			_, err := svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "late", PlayerID: "p1", Earnings: 1})
			So(errors.Is(err, service.ErrStopped), ShouldBeTrue)
			So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
		})
	})

	Convey("Given a service whose workers are not running", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.EventQueueSize = 1
		svc, err := service.New(ctx, cfg)
		So(err, ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		_, err = svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "a", PlayerID: "p1", Earnings: 1})
		So(err, ShouldBeNil)

		Convey("A full queue reports backpressure and forgets the event id", func() {
			_, err := svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "b", PlayerID: "p1", Earnings: 1})
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)

			_, err = svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "b", PlayerID: "p1", Earnings: 1})
			So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
		})
	})

	Convey("Given no seed source", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.SettlementEnabled = false
		svc, err := service.New(ctx, cfg)
		So(err, ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		_, err = svc.Seed(ctx)
		So(errors.Is(err, service.ErrNoSeedSource), ShouldBeTrue)
	})

	Convey("Given an unreachable database", t, func() {
		cfg := config.New(context.Background())
		cfg.StoreDriver = "oracle"
		cfg.DatabaseDSN = "x"
		_, err := service.New(context.Background(), cfg)
		So(errors.Is(err, service.ErrInit), ShouldBeTrue)
	})
}

func TestService_Redis(t *testing.T) {
	Convey("Given a service on the redis index", t, func() {
		mr := miniredis.RunT(t)
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.IndexDriver = config.IndexRedis
		cfg.RedisAddr = mr.Addr()
		cfg.RedisKey = "lb-test"

		svc, err := service.New(ctx, cfg)
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("The dataset lands in the sorted set", func() {
			members, err := mr.ZMembers("lb-test")
			So(err, ShouldBeNil)
			So(members, ShouldHaveLength, 3)
		})

		Convey("Event ids are remembered in redis", func() {
			_, err := svc.SubmitEvent(ctx, model.ScoreEvent{EventID: "r1", PlayerID: "p2", Earnings: 15})
			So(err, ShouldBeNil)
			So(mr.Exists("podium:event:r1"), ShouldBeTrue)
			So(waitProcessed(svc, 1), ShouldBeTrue)

			score, err := mr.ZScore("lb-test", "p2")
			So(err, ShouldBeNil)
			So(score, ShouldEqual, 35)
		})
	})
}
