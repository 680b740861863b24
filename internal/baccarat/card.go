package baccarat

import "math/rand/v2"

type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}

var ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

type Card struct {
	Value string `json:"value"`
	Suit  Suit   `json:"suit"`
}

// Points returns the baccarat value of the card: face cards count 0,
// ace counts 1, numerals count at face value.
func (c Card) Points() int {
	switch c.Value {
	case "J", "Q", "K":
		return 0
	case "A":
		return 1
	case "10":
		return 10
	default:
		return int(c.Value[0] - '0')
	}
}

// Dealer produces cards. Draws are independent over the full 52-card
// domain with replacement; there is no finite shoe.
type Dealer interface {
	Draw() Card
}

type randomDealer struct{}

// NewDealer returns a dealer drawing uniformly from 13 ranks x 4 suits.
func NewDealer() Dealer {
	return randomDealer{}
}

func (randomDealer) Draw() Card {
	return Card{
		Value: ranks[rand.IntN(len(ranks))],
		Suit:  suits[rand.IntN(len(suits))],
	}
}
