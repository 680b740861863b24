package models

import (
	"fmt"
	"time"
)

// HistoryEntry records one resolved bet for a user. The ledger keeps the
// 50 most recent entries per user, newest first.
type HistoryEntry struct {
	Result      BetChoice `json:"result"`
	Amount      float64   `json:"amount"`
	WinLose     string    `json:"win_lose"` // "win" or "lose"
	PlayerScore int       `json:"player_score"`
	BankerScore int       `json:"banker_score"`
	Time        int64     `json:"time"` // unix seconds
}

// Line renders the entry as the history string shown to clients,
// e.g. "[14:02:51] WIN +$800.00 (P8:B8)".
func (h HistoryEntry) Line() string {
	ts := time.Unix(h.Time, 0).Format("15:04:05")
	if h.WinLose == "win" {
		return fmt.Sprintf("[%s] WIN +$%.2f (P%d:B%d)", ts, h.Amount, h.PlayerScore, h.BankerScore)
	}
	return fmt.Sprintf("[%s] LOSE -$%.2f (P%d:B%d)", ts, h.Amount, h.PlayerScore, h.BankerScore)
}
