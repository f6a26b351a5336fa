package entity

// EmptyCellName is what the legacy client expects in the card field of an
// unoccupied cell.
const EmptyCellName = "Empty"

// CellView is the broadcast form of one grid cell.
type CellView struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Card  string `json:"card"`
	Suit  string `json:"suit,omitempty"`
	Color string `json:"color,omitempty"`
}

// Snapshot is an immutable copy of everything clients may be shown. It is
// built while the session is exclusively owned by an action, so transports
// can read it after the action's lock is released. Hands are included for
// both slots; the transport masks them per recipient.
type Snapshot struct {
	SessionID     string
	Status        string
	GameOver      bool
	Winner        string
	CurrentPlayer string
	Names         [MaxPlayers]string
	Scores        [MaxPlayers]int
	Hands         [MaxPlayers][]string
	HandSizes     [MaxPlayers]int
	Grid          []CellView
	DeckSize      int
}

func (that *Session) Snapshot() *Snapshot {
	snap := &Snapshot{
		SessionID:     that.ID,
		Status:        that.Status,
		GameOver:      that.IsFinished(),
		Winner:        that.Winner,
		CurrentPlayer: that.CurrentPlayerName(),
		Grid:          make([]CellView, 0, GridCells),
		DeckSize:      that.Deck.Size(),
	}

	snap.Scores[0], snap.Scores[1] = that.Scores()

	for i, slot := range that.Players {
		if slot == nil {
			continue
		}

		snap.Names[i] = slot.Name
		snap.HandSizes[i] = len(slot.Hand)

		hand := make([]string, 0, len(slot.Hand))
		for _, card := range slot.Hand {
			hand = append(hand, card.String())
		}

		snap.Hands[i] = hand
	}

	for i := range that.Grid {
		cell := &that.Grid[i]

		view := CellView{X: cell.X, Y: cell.Y, Card: EmptyCellName}
		if !cell.IsEmpty() {
			view.Card = cell.Card.String()
			view.Suit = string(cell.Card.Suit)
			view.Color = cell.Card.Suit.Color()
		}

		snap.Grid = append(snap.Grid, view)
	}

	return snap
}
