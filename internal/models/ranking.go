package models

// RankingRow is one line of the leaderboard snapshot, ordered by profit
// descending. WinRate is a percentage with one decimal.
type RankingRow struct {
	Username string  `json:"username"`
	Profit   float64 `json:"profit"`
	Games    int64   `json:"games"`
	WinRate  float64 `json:"winRate"`
}
