package models

// User is a registered identity with persisted balance and statistics.
// Balance and the win/loss/profit counters are only ever mutated through
// the ledger's atomic settlement.
type User struct {
	ID       int64  `json:"id" redis:"id"`
	Username string `json:"username" redis:"username"`

	// PasswordHash is a bcrypt hash. It stays inside the ledger record;
	// outbound payloads are built field by field and never include it.
	PasswordHash string `json:"password_hash,omitempty" redis:"password_hash"`

	Balance float64 `json:"balance" redis:"balance"`
	Wins    int64   `json:"wins" redis:"wins"`
	Losses  int64   `json:"losses" redis:"losses"`
	Profit  float64 `json:"profit" redis:"profit"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
}

// GamesPlayed returns the total number of settled bets.
func (u *User) GamesPlayed() int64 {
	return u.Wins + u.Losses
}

// WinRate returns the win percentage rounded to one decimal, or 0 when no
// games have been played.
func (u *User) WinRate() float64 {
	games := u.GamesPlayed()
	if games == 0 {
		return 0
	}
	rate := float64(u.Wins) * 100 / float64(games)
	return float64(int64(rate*10+0.5)) / 10
}
