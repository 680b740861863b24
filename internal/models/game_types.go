package models

type BetChoice string

const (
	ChoicePlayer BetChoice = "player"
	ChoiceBanker BetChoice = "banker"
	ChoiceTie    BetChoice = "tie"
)

type BetRequest struct {
	Choice BetChoice `json:"choice" binding:"required"`
	Amount float64   `json:"amount" binding:"required"`
}
