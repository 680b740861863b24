package models

type BetStatus string

const (
	BetStatusStarted   BetStatus = "started"
	BetStatusCompleted BetStatus = "completed"
)

// PendingBet is an admitted wager waiting on its outcome. Entries live in
// the game table only between admission and result delivery.
type PendingBet struct {
	ID       string    `json:"id"`
	Username string    `json:"player"`
	Choice   BetChoice `json:"choice"`
	Bet      float64   `json:"bet"`
	Status   BetStatus `json:"status"`
	PlacedAt int64     `json:"placed_at"`

	// Outcome fields, attached when the bet transitions to completed.
	PlayerScore int  `json:"player_score,omitempty"`
	BankerScore int  `json:"banker_score,omitempty"`
	IsWin       bool `json:"is_win,omitempty"`
}
