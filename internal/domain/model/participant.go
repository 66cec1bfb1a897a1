package model

// Participant is the durable identity and balance of a player.
type Participant struct {
	ID      string
	Name    string
	Country string
	Balance float64
}

// RankedParticipant is the query-time view of a participant: durable balance
// plus the current epoch score, with a 1-based rank.
type RankedParticipant struct {
	ID           string  `json:"playerId"`
	Name         string  `json:"name"`
	Country      string  `json:"country"`
	TotalBalance float64 `json:"money"`
	Rank         int     `json:"rank"`
}

// EarningsUpdate is a balance increment applied at settlement.
type EarningsUpdate struct {
	ID    string
	Delta float64
}
