// Package baccarat implements the outcome generator for the betting room:
// hand dealing with the simplified third-card rule, win determination and
// the payout table.
package baccarat

import "baccarat-live-backend/internal/models"

// Payout multipliers per winning choice. A banker win pays slightly under
// even money; a tie pays 8:1.
const (
	playerPayout = 1.0
	bankerPayout = 0.95
	tiePayout    = 8.0
)

// Result is one resolved hand relative to a bet.
type Result struct {
	PlayerCards []Card  `json:"playerCards"`
	BankerCards []Card  `json:"bankerCards"`
	PlayerScore int     `json:"playerScore"`
	BankerScore int     `json:"bankerScore"`
	IsWin       bool    `json:"isWin"`
	WinAmount   float64 `json:"winAmount"`
}

// HandValue returns the baccarat value of a hand: the card points summed
// modulo 10, always in [0,9].
func HandValue(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Points()
	}
	return total % 10
}

// Play deals both hands and resolves the bet. Each side starts with two
// cards and draws exactly one more iff its two-card value is 5 or less;
// the two sides decide independently. Payout arithmetic is deterministic
// for a fixed deal.
func Play(d Dealer, choice models.BetChoice, amount float64) Result {
	playerCards := []Card{d.Draw(), d.Draw()}
	bankerCards := []Card{d.Draw(), d.Draw()}

	playerScore := HandValue(playerCards)
	bankerScore := HandValue(bankerCards)

	if playerScore <= 5 {
		playerCards = append(playerCards, d.Draw())
		playerScore = HandValue(playerCards)
	}

	if bankerScore <= 5 {
		bankerCards = append(bankerCards, d.Draw())
		bankerScore = HandValue(bankerCards)
	}

	res := Result{
		PlayerCards: playerCards,
		BankerCards: bankerCards,
		PlayerScore: playerScore,
		BankerScore: bankerScore,
	}

	if (playerScore > bankerScore && choice == models.ChoicePlayer) ||
		(bankerScore > playerScore && choice == models.ChoiceBanker) ||
		(playerScore == bankerScore && choice == models.ChoiceTie) {
		res.IsWin = true
		res.WinAmount = Payout(choice, amount)
	}

	return res
}

// Payout returns the win amount for a stake on the given choice.
func Payout(choice models.BetChoice, amount float64) float64 {
	switch choice {
	case models.ChoicePlayer:
		return amount * playerPayout
	case models.ChoiceBanker:
		return amount * bankerPayout
	case models.ChoiceTie:
		return amount * tiePayout
	}
	return 0
}
