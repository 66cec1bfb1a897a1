package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given no overrides", t, func() {
		t.Setenv("PODIUM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
		convey.So(cfg.RedisKey, convey.ShouldEqual, "leaderboard")
	})

	convey.Convey("Given environment variables", t, func() {
		t.Setenv("PODIUM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("PODIUM_ADDR", ":8080")
		t.Setenv("PODIUM_QUEUE_SIZE", "500")
		t.Setenv("PODIUM_INDEX_DRIVER", "redis")
		t.Setenv("PODIUM_REDIS_DB", "3")
		t.Setenv("PODIUM_SETTLEMENT_PERIOD", "1h30m")
		t.Setenv("PODIUM_SEED_ON_START", "true")
		t.Setenv("PODIUM_SEED_SOURCE", "s3://bucket/players.json")

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
		convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
		convey.So(cfg.IndexDriver, convey.ShouldEqual, "redis")
		convey.So(cfg.RedisDB, convey.ShouldEqual, 3)
		convey.So(cfg.SettlementPeriod, convey.ShouldEqual, 90*time.Minute)
		convey.So(cfg.SeedOnStart, convey.ShouldBeTrue)
	})

	convey.Convey("Given a YAML file and an env override", t, func() {
		t.Setenv("PODIUM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		path := writeFile(t, "podium.yaml", `
addr: ":9090"
worker_count: 3
store_driver: sqlite
database_dsn: /tmp/podium.db
collation: fr
`)
		t.Setenv("PODIUM_CONFIG", path)
		t.Setenv("PODIUM_WORKER_COUNT", "7")

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 7)
		convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
		convey.So(cfg.Collation, convey.ShouldEqual, "fr")
	})

	convey.Convey("Given a .env file", t, func() {
		path := writeFile(t, "test.env", "PODIUM_CLIENT_ORIGIN=http://localhost:3000\n")
		t.Setenv("PODIUM_ENV_FILE", path)
		t.Setenv("PODIUM_CLIENT_ORIGIN", "")
		_ = os.Unsetenv("PODIUM_CLIENT_ORIGIN")

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.ClientOrigin, convey.ShouldEqual, "http://localhost:3000")
		_ = os.Unsetenv("PODIUM_CLIENT_ORIGIN")
	})

	convey.Convey("Given an invalid setting", t, func() {
		t.Setenv("PODIUM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("PODIUM_STORE_DRIVER", "postgres")
		_, err := config.Load(ctx)
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})

	convey.Convey("Given a missing config file", t, func() {
		t.Setenv("PODIUM_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("PODIUM_CONFIG", "/nonexistent/podium.yaml")
		_, err := config.Load(ctx)
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}
