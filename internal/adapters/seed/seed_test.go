package seed_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/adapters/records"
	"github.com/okian/podium/internal/adapters/seed"
	"github.com/okian/podium/internal/domain/model"
)

const dataset = `[
  {"playerId": "p1", "name": "Ann", "country": "US", "money": 100, "earnings": 30},
  {"playerId": "p2", "name": "Bob", "country": "FR", "money": 0, "earnings": 20},
  {"name": "Cid", "country": "DE", "money": 5, "earnings": 10}
]`

type fakeS3 struct {
	body   string
	bucket string
	key    string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *in.Bucket, *in.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func writeDataset(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "players.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestSeeder(t *testing.T) {
	Convey("Given a dataset file", t, func() {
		ctx := context.Background()
		path := writeDataset(t, dataset)
		store := records.NewMemoryStore()
		index := ranking.NewTreapIndex()
		seeder := seed.NewSeeder(seed.FileSource{Path: path}, store, index)

		Convey("Run inserts every player and sets their earnings", func() {
			stats, err := seeder.Run(ctx)
			So(err, ShouldBeNil)
			So(stats, ShouldResemble, seed.Stats{Players: 3, Inserted: 3})

			p, err := store.GetByID(ctx, "p1")
			So(err, ShouldBeNil)
			So(p.Balance, ShouldEqual, 100)

			id, err := store.IDByName(ctx, "Cid")
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)

			top, err := index.RangeByRankDesc(ctx, 0, 10)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 3)
			So(top[0].ID, ShouldEqual, "p1")
			So(top[0].Score, ShouldEqual, 30)
		})

		Convey("A second run keeps existing records and overwrites scores", func() {
			_, err := seeder.Run(ctx)
			So(err, ShouldBeNil)
			So(store.ApplyEarnings(ctx, []model.EarningsUpdate{{ID: "p1", Delta: 1}}), ShouldBeNil)
			So(index.UpsertAdd(ctx, "p1", 5), ShouldBeNil)

			stats, err := seeder.Run(ctx)
			So(err, ShouldBeNil)
			So(stats.Inserted, ShouldEqual, 0)

			score, _ := index.ScoreOf(ctx, "p1")
			So(score, ShouldEqual, 30)
			n, _ := index.Count(ctx)
			So(n, ShouldEqual, 3)
			p, _ := store.GetByID(ctx, "p1")
			So(p.Balance, ShouldEqual, 101)
		})
	})

	Convey("Given a player already in the store", t, func() {
		ctx := context.Background()
		store := records.NewMemoryStore()
		So(store.Insert(ctx, model.Participant{ID: "p1", Name: "Ann", Balance: 7}), ShouldBeNil)
		index := ranking.NewTreapIndex()
		seeder := seed.NewSeeder(seed.FileSource{Path: writeDataset(t, dataset)}, store, index)

		stats, err := seeder.Run(ctx)
		So(err, ShouldBeNil)
		So(stats.Inserted, ShouldEqual, 2)
		p, _ := store.GetByID(ctx, "p1")
		So(p.Balance, ShouldEqual, 7)
	})

	Convey("Given a dataset name already held by another id", t, func() {
		ctx := context.Background()
		store := records.NewMemoryStore()
		So(store.Insert(ctx, model.Participant{ID: "x9", Name: "Bob"}), ShouldBeNil)
		index := ranking.NewTreapIndex()
		seeder := seed.NewSeeder(seed.FileSource{Path: writeDataset(t, dataset)}, store, index)

		stats, err := seeder.Run(ctx)
		So(err, ShouldBeNil)
		So(stats, ShouldResemble, seed.Stats{Players: 3, Inserted: 2, Failed: 1})

		Convey("The colliding row gets no index score", func() {
			_, err := index.ScoreOf(ctx, "p2")
			So(err, ShouldEqual, ranking.ErrNotFound)
			_, err = index.ScoreOf(ctx, "x9")
			So(err, ShouldEqual, ranking.ErrNotFound)
			n, _ := index.Count(ctx)
			So(n, ShouldEqual, 2)
		})
	})

	Convey("Given a malformed dataset", t, func() {
		seeder := seed.NewSeeder(seed.FileSource{Path: writeDataset(t, "{not json")},
			records.NewMemoryStore(), ranking.NewTreapIndex())
		err := seeder.Seed(context.Background())
		So(errors.Is(err, seed.ErrDecode), ShouldBeTrue)
	})

	Convey("Given a missing file", t, func() {
		seeder := seed.NewSeeder(seed.FileSource{Path: "/nonexistent/players.json"},
			records.NewMemoryStore(), ranking.NewTreapIndex())
		So(seeder.Seed(context.Background()), ShouldNotBeNil)
	})

	Convey("Given an S3 object", t, func() {
		fake := &fakeS3{body: dataset}
		src := seed.NewS3Source(fake, "bucket", "data/players.json")
		index := ranking.NewTreapIndex()
		seeder := seed.NewSeeder(src, records.NewMemoryStore(), index)

		So(seeder.Seed(context.Background()), ShouldBeNil)
		So(fake.bucket, ShouldEqual, "bucket")
		So(fake.key, ShouldEqual, "data/players.json")
		n, _ := index.Count(context.Background())
		So(n, ShouldEqual, 3)
		So(src.String(), ShouldEqual, "s3://bucket/data/players.json")
	})
}

func TestReadPlayers(t *testing.T) {
	Convey("ReadPlayers decodes the dataset without touching any store", t, func() {
		players, err := seed.ReadPlayers(context.Background(), seed.FileSource{Path: writeDataset(t, dataset)})
		So(err, ShouldBeNil)
		So(players, ShouldHaveLength, 3)
		So(players[0].PlayerID, ShouldEqual, "p1")
		So(players[2].PlayerID, ShouldBeEmpty)
		So(players[2].Name, ShouldEqual, "Cid")
	})
}

func TestOpen(t *testing.T) {
	Convey("Given seed locations", t, func() {
		ctx := context.Background()

		Convey("A bare path is a file source", func() {
			src, err := seed.Open(ctx, "./data/players.json", seed.S3Options{})
			So(err, ShouldBeNil)
			So(src, ShouldResemble, seed.FileSource{Path: "./data/players.json"})
		})

		Convey("A file URL is a file source", func() {
			src, err := seed.Open(ctx, "file:///tmp/players.json", seed.S3Options{})
			So(err, ShouldBeNil)
			So(src, ShouldResemble, seed.FileSource{Path: "/tmp/players.json"})
		})

		Convey("An s3 URL is an S3 source", func() {
			src, err := seed.Open(ctx, "s3://bucket/key.json", seed.S3Options{Region: "us-east-1", Endpoint: "http://localhost:9000"})
			So(err, ShouldBeNil)
			s3src, ok := src.(*seed.S3Source)
			So(ok, ShouldBeTrue)
			So(s3src.Bucket, ShouldEqual, "bucket")
			So(s3src.Key, ShouldEqual, "key.json")
		})

		Convey("An s3 URL without a key is rejected", func() {
			_, err := seed.Open(ctx, "s3://bucket", seed.S3Options{})
			So(errors.Is(err, seed.ErrUnsupportedSource), ShouldBeTrue)
		})

		Convey("Unknown schemes are rejected", func() {
			_, err := seed.Open(ctx, "ftp://host/file", seed.S3Options{})
			So(errors.Is(err, seed.ErrUnsupportedSource), ShouldBeTrue)
		})

		Convey("An empty location is rejected", func() {
			_, err := seed.Open(ctx, "", seed.S3Options{})
			So(errors.Is(err, seed.ErrUnsupportedSource), ShouldBeTrue)
		})
	})
}
