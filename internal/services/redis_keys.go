package services

const (
	KeyUser        = "user:%s"         // username -> user record JSON
	KeyUserHistory = "user:%s:history" // username -> list of history entry JSON, newest first
	KeyNextUserID  = "user:next_id"
	KeyProfitRank  = "rank:profit" // zset username -> cumulative profit

	// HistoryLimit is how many resolved bets the ledger retains per user.
	HistoryLimit = 50

	// RankingLimit caps the leaderboard snapshot.
	RankingLimit = 50
)
