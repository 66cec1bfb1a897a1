package loadgen

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// event mirrors the body of POST /api/events.
type event struct {
	EventID  string  `json:"event_id"`
	PlayerID string  `json:"player_id"`
	Earnings float64 `json:"earnings"`
}

// earnings bands: most players earn modestly, a few earn a lot.
var bands = []struct{ min, span float64 }{
	{3, 4},     // average
	{7, 2},     // high
	{0.1, 2.9}, // low
	{9, 1},     // elite
	{0.1, 0.9}, // very low
	{6, 2},     // mid-high
	{2, 2},     // mid-low
	{0.1, 9.9}, // anything
}

func generateEvents(n int, players []Player, rng *rand.Rand) []event {
	events := make([]event, n)
	for i := range events {
		b := bands[rng.IntN(len(bands))]
		events[i] = event{
			EventID:  uuid.NewString(),
			PlayerID: players[rng.IntN(len(players))].ID,
			Earnings: b.min + rng.Float64()*b.span,
		}
	}
	return events
}
