package entity

import (
	"math/rand"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
)

// Rank is a card value from One to Seven.
type Rank int

const (
	RankOne Rank = iota + 1
	RankTwo
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
)

var rankNames = map[Rank]string{
	RankOne:   "One",
	RankTwo:   "Two",
	RankThree: "Three",
	RankFour:  "Four",
	RankFive:  "Five",
	RankSix:   "Six",
	RankSeven: "Seven",
}

func (that Rank) String() string {
	return rankNames[that]
}

// Value - numeric value used for scoring.
func (that Rank) Value() int {
	return int(that)
}

// Suit is one of the five card colors.
type Suit string

const (
	SuitBlue   Suit = "Blue"
	SuitBrown  Suit = "Brown"
	SuitGreen  Suit = "Green"
	SuitPurple Suit = "Purple"
	SuitRed    Suit = "Red"
)

var Suits = []Suit{SuitBlue, SuitBrown, SuitGreen, SuitPurple, SuitRed}

var suitColors = map[Suit]string{
	SuitBlue:   "#4169e1",
	SuitBrown:  "#8b4513",
	SuitGreen:  "#228b22",
	SuitPurple: "#800080",
	SuitRed:    "#dc143c",
}

// Color - CSS color used by the client to tint a grid cell.
func (that Suit) Color() string {
	return suitColors[that]
}

// Card is immutable once created.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// String - legacy display format, e.g. "Two of Green".
func (that Card) String() string {
	return that.Rank.String() + " of " + string(that.Suit)
}

// Deck is the ordered sequence of remaining cards. Cards are drawn from
// the top (end of the slice) and only ever returned there by an undo.
type Deck []Card

// NewDeck - builds the full 35-card deck, one card per rank and suit.
func NewDeck() Deck {
	deck := make(Deck, 0, len(Suits)*int(RankSeven))

	for _, suit := range Suits {
		for rank := RankOne; rank <= RankSeven; rank++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}

	return deck
}

// Shuffle - shuffles the deck in place.
func (that Deck) Shuffle() {
	rand.Shuffle(len(that), func(i, j int) { //nolint: gosec // card shuffling needs no crypto rand
		that[i], that[j] = that[j], that[i]
	})
}

// Draw - removes and returns the top card.
func (that *Deck) Draw() (Card, error) {
	if len(*that) == 0 {
		return Card{}, apperror.ErrDeckEmpty
	}

	card := (*that)[len(*that)-1]
	*that = (*that)[:len(*that)-1]

	return card, nil
}

// PushTop - returns a card to the top of the deck, reversing a draw.
func (that *Deck) PushTop(card Card) {
	*that = append(*that, card)
}

func (that Deck) Size() int {
	return len(that)
}
