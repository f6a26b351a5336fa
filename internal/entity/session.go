package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"

	// WinnerTie marks a finished match with equal scores.
	WinnerTie = "-"

	MaxPlayers      = 2
	InitialHandSize = 3
)

// Move kinds double as the broadcast action names the legacy client expects.
const (
	MoveDraw  = "drawCard"
	MovePlace = "placeCard"
)

// PlayerSlot is a player's fixed seat within a session. The slot index
// (1 or 2) is stable for the session's lifetime and determines turn order.
type PlayerSlot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hand []Card `json:"hand"`
}

// Move is one applied history entry. It records everything needed to
// reverse the action exactly: the card, where it sat in the hand, which
// cell it went to and whose turn it was before the action.
type Move struct {
	Slot       int
	Kind       string
	Card       Card
	CellIndex  int // -1 for a draw
	HandIndex  int
	TurnBefore int
}

// Session holds the authoritative state of one match. It carries no lock
// of its own: callers serialize access through the usecase layer, one
// action at a time per session.
type Session struct {
	ID      string
	Players [MaxPlayers]*PlayerSlot
	Deck    Deck
	Grid    Grid
	Turn    int // slot number whose turn it is, 0 outside ongoing
	Status  string
	Winner  string // winner's display name, WinnerTie on equal scores

	History   []Move
	RedoStack []Move

	Connected    [MaxPlayers]bool
	LastActivity time.Time
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Deck:         NewDeck(),
		Grid:         NewGrid(),
		Status:       StatusWaiting,
		LastActivity: now,
	}
}

// AddPlayer - fills the first free slot and returns its number.
func (that *Session) AddPlayer(playerID, name string) (int, error) {
	if that.IsFinished() {
		return 0, apperror.ErrSessionFinished
	}

	for i, slot := range that.Players {
		if slot != nil {
			continue
		}

		that.Players[i] = &PlayerSlot{ID: playerID, Name: name}

		return i + 1, nil
	}

	return 0, apperror.ErrSessionFull
}

// Start - shuffles the deck, deals the initial hands and hands the first
// turn to slot 1. Requires both slots to be filled.
func (that *Session) Start() error {
	if that.Players[0] == nil || that.Players[1] == nil {
		return apperror.ErrGameIsNotStarted
	}

	that.Deck.Shuffle()

	for i := 0; i < InitialHandSize; i++ {
		for _, player := range that.Players {
			card, err := that.Deck.Draw()
			if err != nil {
				return fmt.Errorf("failed to deal initial hand: %w", err)
			}

			player.Hand = append(player.Hand, card)
		}
	}

	that.Turn = 1
	that.Status = StatusOngoing

	return nil
}

// SlotOf - resolves a playerID to its slot number.
func (that *Session) SlotOf(playerID string) (int, error) {
	for i, slot := range that.Players {
		if slot != nil && slot.ID == playerID {
			return i + 1, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", apperror.ErrUnknownPlayer, playerID)
}

func (that *Session) PlayerCount() int {
	count := 0
	for _, slot := range that.Players {
		if slot != nil {
			count++
		}
	}

	return count
}

func (that *Session) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Session) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Session) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Session) ConfirmOngoingState() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	default:
		return nil
	}
}

// Draw - moves the top deck card into the acting slot's hand and advances
// the turn to the other slot.
func (that *Session) Draw(slot int) (*Move, error) {
	if err := that.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	if that.Turn != slot {
		return nil, apperror.ErrNotYourTurn
	}

	card, err := that.Deck.Draw()
	if err != nil {
		return nil, err
	}

	player := that.Players[slot-1]
	player.Hand = append(player.Hand, card)

	move := Move{
		Slot:       slot,
		Kind:       MoveDraw,
		Card:       card,
		CellIndex:  -1,
		HandIndex:  len(player.Hand) - 1,
		TurnBefore: slot,
	}

	that.pushMove(move)
	that.Turn = opponentOf(slot)

	return &move, nil
}

// Place - moves a card from the acting slot's hand onto an empty grid
// cell, advances the turn and finishes the match once the grid is full.
func (that *Session) Place(slot, cardIndex, x, y int) (*Move, error) {
	if err := that.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	if that.Turn != slot {
		return nil, apperror.ErrNotYourTurn
	}

	cell, err := that.Grid.At(x, y)
	if err != nil {
		return nil, err
	}

	player := that.Players[slot-1]
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return nil, fmt.Errorf("%w: %d", apperror.ErrInvalidCardIndex, cardIndex)
	}

	if !cell.IsEmpty() {
		return nil, fmt.Errorf("%w: (%d, %d)", apperror.ErrCellOccupied, x, y)
	}

	card := player.Hand[cardIndex]
	player.Hand = append(player.Hand[:cardIndex], player.Hand[cardIndex+1:]...)

	cell.Card = &card
	cell.PlacedBy = slot

	move := Move{
		Slot:       slot,
		Kind:       MovePlace,
		Card:       card,
		CellIndex:  y*GridWidth + x,
		HandIndex:  cardIndex,
		TurnBefore: slot,
	}

	that.pushMove(move)
	that.Turn = opponentOf(slot)

	if that.Grid.IsFull() {
		that.finish()
	}

	return &move, nil
}

// Undo - reverses the most recent action. Only the slot that made it may
// undo it, and the turn pointer returns to what it was before the action.
func (that *Session) Undo(slot int) (*Move, error) {
	if err := that.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	if len(that.History) == 0 {
		return nil, apperror.ErrNothingToUndo
	}

	move := that.History[len(that.History)-1]
	if move.Slot != slot {
		return nil, fmt.Errorf("%w: last action was not yours", apperror.ErrNothingToUndo)
	}

	player := that.Players[slot-1]

	switch move.Kind {
	case MoveDraw:
		player.Hand = player.Hand[:len(player.Hand)-1]
		that.Deck.PushTop(move.Card)
	case MovePlace:
		cell := &that.Grid[move.CellIndex]
		cell.Card = nil
		cell.PlacedBy = 0

		player.Hand = insertCard(player.Hand, move.HandIndex, move.Card)
	}

	that.Turn = move.TurnBefore
	that.History = that.History[:len(that.History)-1]
	that.RedoStack = append(that.RedoStack, move)

	return &move, nil
}

// Redo - reapplies the most recently undone action. Invalidated by any
// forward action.
func (that *Session) Redo(slot int) (*Move, error) {
	if err := that.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	if len(that.RedoStack) == 0 {
		return nil, apperror.ErrNothingToRedo
	}

	move := that.RedoStack[len(that.RedoStack)-1]
	if move.Slot != slot {
		return nil, fmt.Errorf("%w: undone action was not yours", apperror.ErrNothingToRedo)
	}

	player := that.Players[slot-1]

	switch move.Kind {
	case MoveDraw:
		card, err := that.Deck.Draw()
		if err != nil {
			return nil, fmt.Errorf("failed to redo draw: %w", err)
		}

		player.Hand = append(player.Hand, card)
	case MovePlace:
		player.Hand = append(player.Hand[:move.HandIndex], player.Hand[move.HandIndex+1:]...)

		card := move.Card
		cell := &that.Grid[move.CellIndex]
		cell.Card = &card
		cell.PlacedBy = slot
	}

	that.RedoStack = that.RedoStack[:len(that.RedoStack)-1]
	that.History = append(that.History, move)
	that.Turn = opponentOf(move.Slot)

	if that.Grid.IsFull() {
		that.finish()
	}

	return &move, nil
}

// Scores - per-player sums of the ranks each slot has placed on the grid.
func (that *Session) Scores() (int, int) {
	var p1, p2 int

	for i := range that.Grid {
		cell := &that.Grid[i]
		if cell.IsEmpty() {
			continue
		}

		switch cell.PlacedBy {
		case 1:
			p1 += cell.Card.Rank.Value()
		case 2:
			p2 += cell.Card.Rank.Value()
		}
	}

	return p1, p2
}

// CurrentPlayerName - display name of the slot whose turn it is.
func (that *Session) CurrentPlayerName() string {
	if that.Turn < 1 || that.Turn > MaxPlayers {
		return ""
	}

	slot := that.Players[that.Turn-1]
	if slot == nil {
		return ""
	}

	return slot.Name
}

// Touch - records activity for the reaper.
func (that *Session) Touch(now time.Time) {
	that.LastActivity = now
}

func (that *Session) SetConnected(slot int, connected bool) {
	if slot >= 1 && slot <= MaxPlayers {
		that.Connected[slot-1] = connected
	}
}

func (that *Session) BothConnected() bool {
	return that.Connected[0] && that.Connected[1]
}

func (that *Session) BothDisconnected() bool {
	return !that.Connected[0] && !that.Connected[1]
}

// Expired - reports whether the reaper should remove this session.
func (that *Session) Expired(now time.Time, waitingTimeout, abandonedGrace, finishedRetention time.Duration) bool {
	idle := now.Sub(that.LastActivity)

	switch that.Status {
	case StatusWaiting:
		return idle > waitingTimeout
	case StatusFinished:
		return idle > finishedRetention
	case StatusOngoing:
		return that.BothDisconnected() && idle > abandonedGrace
	default:
		return false
	}
}

func (that *Session) finish() {
	p1, p2 := that.Scores()

	that.Status = StatusFinished
	that.Turn = 0

	switch {
	case p1 > p2:
		that.Winner = that.Players[0].Name
	case p2 > p1:
		that.Winner = that.Players[1].Name
	default:
		that.Winner = WinnerTie
	}
}

func (that *Session) pushMove(move Move) {
	that.History = append(that.History, move)
	that.RedoStack = nil
}

func opponentOf(slot int) int {
	if slot == 1 {
		return 2
	}

	return 1
}

func insertCard(hand []Card, index int, card Card) []Card {
	hand = append(hand, Card{})
	copy(hand[index+1:], hand[index:])
	hand[index] = card

	return hand
}
