package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NewGameID returns a unique id for a pending bet. A uuid is used rather
// than username+timestamp so rapid repeated bets by one user cannot collide.
func NewGameID() string {
	return fmt.Sprintf("game_%s", uuid.NewString())
}

func (br *BetRequest) Validate() error {
	switch br.Choice {
	case ChoicePlayer, ChoiceBanker, ChoiceTie:
	default:
		return fmt.Errorf("invalid bet choice: %s", br.Choice)
	}

	if br.Amount <= 0 {
		return fmt.Errorf("bet amount must be positive")
	}

	return nil
}
