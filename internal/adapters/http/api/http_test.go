package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/podium/internal/adapters/http/api"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
)

type mockDeps struct {
	mu sync.Mutex

	top       []model.RankedParticipant
	topErr    error
	lastLimit int
	around    []model.RankedParticipant
	names     []string
	submitErr error
	seen      map[string]bool
	submitted []model.ScoreEvent
}

func (m *mockDeps) ListTop(_ context.Context, n int) ([]model.RankedParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = n
	if m.topErr != nil {
		return nil, m.topErr
	}
	if n < len(m.top) {
		return m.top[:n], nil
	}
	return m.top, nil
}

func (m *mockDeps) ListTopByCountry(ctx context.Context, n int) ([][]model.RankedParticipant, error) {
	top, err := m.ListTop(ctx, n)
	if err != nil {
		return nil, err
	}
	return [][]model.RankedParticipant{top}, nil
}

func (m *mockDeps) Neighborhood(_ context.Context, name string) ([]model.RankedParticipant, error) {
	if name == "nobody" {
		return []model.RankedParticipant{}, nil
	}
	return m.around, nil
}

func (m *mockDeps) Autocomplete(_ context.Context, partial string) ([]string, error) {
	if partial == "" {
		return []string{}, nil
	}
	return m.names, nil
}

func (m *mockDeps) SubmitEvent(_ context.Context, e model.ScoreEvent) (service.Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return service.Ack{}, m.submitErr
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[e.EventID] {
		return service.Ack{EventID: e.EventID, Duplicate: true}, nil
	}
	m.seen[e.EventID] = true
	m.submitted = append(m.submitted, e)
	return service.Ack{EventID: e.EventID}, nil
}

func (m *mockDeps) Stats(context.Context) service.Stats {
	return service.Stats{Started: true, Workers: 4, QueueCapacity: 10}
}

func newDeps() *mockDeps {
	return &mockDeps{
		top: []model.RankedParticipant{
			{ID: "p1", Name: "Ann", Country: "NL", TotalBalance: 40, Rank: 1},
			{ID: "p2", Name: "Bob", Country: "DE", TotalBalance: 20, Rank: 2},
			{ID: "p3", Name: "Cid", Country: "NL", TotalBalance: 15, Rank: 3},
		},
		around: []model.RankedParticipant{
			{ID: "p2", Name: "Bob", Country: "DE", TotalBalance: 20, Rank: 2},
		},
		names: []string{"Bob", "Bobby"},
	}
}

func do(t *testing.T, s *api.Server, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server over mock dependencies", t, func() {
		deps := newDeps()
		s := api.NewServer(deps, api.WithMaxLimit(2))

		Convey("The root reports liveness", func() {
			code, body := do(t, s, http.MethodGet, "/", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldEqual, "Server is up and running")
		})

		Convey("GET /api/ranked defaults to the max limit", func() {
			code, body := do(t, s, http.MethodGet, "/api/ranked", "")
			So(code, ShouldEqual, http.StatusOK)
			var list []map[string]any
			So(json.Unmarshal(body, &list), ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0]["playerId"], ShouldEqual, "p1")
			So(list[0]["money"], ShouldEqual, 40.0)
			So(list[0]["rank"], ShouldEqual, 1.0)
		})

		Convey("A limit above the max is capped", func() {
			code, _ := do(t, s, http.MethodGet, "/api/ranked?limit=50", "")
			So(code, ShouldEqual, http.StatusOK)
			So(deps.lastLimit, ShouldEqual, 2)
		})

		Convey("An invalid limit is rejected", func() {
			for _, q := range []string{"0", "-1", "abc"} {
				code, body := do(t, s, http.MethodGet, "/api/ranked?limit="+q, "")
				So(code, ShouldEqual, http.StatusBadRequest)
				So(string(body), ShouldContainSubstring, `"code":"bad_request"`)
			}
		})

		Convey("Store failures become 500 without leaking the cause", func() {
			deps.topErr = errors.New("connection refused")
			code, body := do(t, s, http.MethodGet, "/api/rankedByCountry?limit=1", "")
			So(code, ShouldEqual, http.StatusInternalServerError)
			So(string(body), ShouldContainSubstring, `"code":"internal_error"`)
			So(string(body), ShouldNotContainSubstring, "connection refused")
		})

		Convey("GET /api/rankedByCountry returns groups", func() {
			code, body := do(t, s, http.MethodGet, "/api/rankedByCountry?limit=1", "")
			So(code, ShouldEqual, http.StatusOK)
			var groups [][]model.RankedParticipant
			So(json.Unmarshal(body, &groups), ShouldBeNil)
			So(groups, ShouldHaveLength, 1)
		})

		Convey("GET /api/player returns the neighborhood", func() {
			code, body := do(t, s, http.MethodGet, "/api/player?name=Bob", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, `"name":"Bob"`)

			code, body = do(t, s, http.MethodGet, "/api/player?name=nobody", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldEqual, "[]")

			code, _ = do(t, s, http.MethodGet, "/api/player", "")
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET /api/autocomplete returns names", func() {
			code, body := do(t, s, http.MethodGet, "/api/autocomplete?name=bo", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldEqual, `["Bob","Bobby"]`)
		})

		Convey("POST /api/events accepts, then deduplicates", func() {
			payload := `{"event_id":"e1","player_id":"p1","earnings":12.5}`
			code, body := do(t, s, http.MethodPost, "/api/events", payload)
			So(code, ShouldEqual, http.StatusAccepted)
			So(string(body), ShouldContainSubstring, `"status":"accepted"`)
			So(deps.submitted, ShouldHaveLength, 1)
			So(deps.submitted[0].Earnings, ShouldEqual, 12.5)

			code, body = do(t, s, http.MethodPost, "/api/events", payload)
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, `"duplicate":true`)
		})

		Convey("POST /api/events validates the body", func() {
			for _, payload := range []string{
				`{bad json`,
				`{"event_id":"e1","earnings":1}`,
				`{"event_id":"e1","player_id":"p1"}`,
				`{"event_id":"e1","player_id":"p1","earnings":1,"ts":"yesterday"}`,
			} {
				code, _ := do(t, s, http.MethodPost, "/api/events", payload)
				So(code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("POST /api/events maps intake failures", func() {
			cases := map[error]int{
				fmt.Errorf("%w: full", service.ErrBackpressure): http.StatusTooManyRequests,
				fmt.Errorf("%w: closed", service.ErrStopped):    http.StatusServiceUnavailable,
				fmt.Errorf("%w: nan", model.ErrInvalidEvent):    http.StatusBadRequest,
				errors.New("redis: connection reset by peer"):   http.StatusInternalServerError,
			}
			for cause, want := range cases {
				deps.submitErr = cause
				code, _ := do(t, s, http.MethodPost, "/api/events", `{"player_id":"p1","earnings":1}`)
				So(code, ShouldEqual, want)
			}
		})

		Convey("GET /stats returns service stats", func() {
			code, body := do(t, s, http.MethodGet, "/stats", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, `"workers":4`)
		})

		Convey("GET /healthz serves prometheus metrics", func() {
			_, _ = do(t, s, http.MethodGet, "/api/ranked", "")
			code, body := do(t, s, http.MethodGet, "/healthz", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, "podium_leaderboard_http_requests_total")
		})

		Convey("The OpenAPI document is served", func() {
			code, body := do(t, s, http.MethodGet, "/openapi.yaml", "")
			So(code, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, "openapi: 3.0.3")
		})

		Convey("Unknown routes are 404 with an error body", func() {
			code, body := do(t, s, http.MethodGet, "/nope", "")
			So(code, ShouldEqual, http.StatusNotFound)
			So(string(body), ShouldContainSubstring, `"code":"not_found"`)
		})
	})
}

func TestServer_CORS(t *testing.T) {
	Convey("Given a configured client origin", t, func() {
		s := api.NewServer(newDeps(), api.WithClientOrigin("http://localhost:3000"))
		req := httptest.NewRequest(http.MethodGet, "/api/ranked", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err := s.App().Test(req, -1)
		So(err, ShouldBeNil)
		defer resp.Body.Close()
		So(resp.Header.Get("Access-Control-Allow-Origin"), ShouldEqual, "http://localhost:3000")
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Kinds and causes are both visible to errors.Is", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "op: bad request: boom")

		So(errors.Is(api.Wrap("op", cause), api.ErrInternal), ShouldBeTrue)
		So(api.NewKind("op", api.ErrBackpressure).Error(), ShouldEqual, "op: backpressure")
	})
}
