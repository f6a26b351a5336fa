package entity

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedSession(t *testing.T) *Session {
	t.Helper()

	session := NewSession("TESTROOM", time.Now())

	_, err := session.AddPlayer("p1", "Alice")
	require.NoError(t, err)

	_, err = session.AddPlayer("p2", "Bob")
	require.NoError(t, err)

	require.NoError(t, session.Start())

	return session
}

// sessionState captures everything that undo/redo must restore exactly.
type sessionState struct {
	Deck   Deck
	Hand1  []Card
	Hand2  []Card
	Grid   Grid
	Turn   int
	Status string
}

func captureState(session *Session) sessionState {
	return sessionState{
		Deck:   append(Deck{}, session.Deck...),
		Hand1:  append([]Card{}, session.Players[0].Hand...),
		Hand2:  append([]Card{}, session.Players[1].Hand...),
		Grid:   session.Grid,
		Turn:   session.Turn,
		Status: session.Status,
	}
}

func totalCards(session *Session) int {
	total := session.Deck.Size()

	for _, slot := range session.Players {
		if slot != nil {
			total += len(slot.Hand)
		}
	}

	for i := range session.Grid {
		if !session.Grid[i].IsEmpty() {
			total++
		}
	}

	return total
}

func TestSession_AddPlayer(t *testing.T) {
	t.Run("Fills slots in order", func(t *testing.T) {
		// Given: a fresh session
		session := NewSession("TESTROOM", time.Now())

		// When: two players join
		slot1, err := session.AddPlayer("p1", "Alice")
		require.NoError(t, err)

		slot2, err := session.AddPlayer("p2", "Bob")
		require.NoError(t, err)

		// Then: they get slots 1 and 2
		assert.Equal(t, 1, slot1)
		assert.Equal(t, 2, slot2)
	})

	t.Run("Fails with ErrSessionFull on a third player", func(t *testing.T) {
		// Given: a session with both slots taken
		session := startedSession(t)

		// When: a third player tries to join
		_, err := session.AddPlayer("p3", "Mallory")

		// Then: it should return ErrSessionFull and keep two slots
		assert.ErrorIs(t, err, apperror.ErrSessionFull)
		assert.Equal(t, 2, session.PlayerCount())
	})

	t.Run("Fails with ErrSessionFinished on a finished session", func(t *testing.T) {
		// Given: a finished session
		session := NewSession("TESTROOM", time.Now())
		session.Status = StatusFinished

		// When: a player tries to join
		_, err := session.AddPlayer("p1", "Alice")

		// Then: it should return ErrSessionFinished
		assert.ErrorIs(t, err, apperror.ErrSessionFinished)
	})
}

func TestSession_Start(t *testing.T) {
	t.Run("Deals initial hands and gives slot 1 the first turn", func(t *testing.T) {
		// Given: a started session
		session := startedSession(t)

		// Then: both hands hold the initial deal, slot 1 is up, cards total 35
		assert.Equal(t, StatusOngoing, session.Status)
		assert.Equal(t, 1, session.Turn)
		assert.Len(t, session.Players[0].Hand, InitialHandSize)
		assert.Len(t, session.Players[1].Hand, InitialHandSize)
		assert.Equal(t, 35, totalCards(session))
	})

	t.Run("Fails before both slots are filled", func(t *testing.T) {
		// Given: a session with one player
		session := NewSession("TESTROOM", time.Now())
		_, err := session.AddPlayer("p1", "Alice")
		require.NoError(t, err)

		// When: starting
		err = session.Start()

		// Then: it should return ErrGameIsNotStarted
		assert.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})
}

func TestSession_Draw(t *testing.T) {
	t.Run("Moves a card from deck to hand and advances the turn", func(t *testing.T) {
		// Given: a started session with slot 1 up
		session := startedSession(t)
		deckBefore := session.Deck.Size()

		// When: slot 1 draws
		move, err := session.Draw(1)

		// Then: the hand grows, the deck shrinks, slot 2 is up
		require.NoError(t, err)
		assert.Equal(t, MoveDraw, move.Kind)
		assert.Len(t, session.Players[0].Hand, InitialHandSize+1)
		assert.Equal(t, deckBefore-1, session.Deck.Size())
		assert.Equal(t, 2, session.Turn)
		assert.Equal(t, 35, totalCards(session))
	})

	t.Run("Fails with ErrNotYourTurn for the idle slot", func(t *testing.T) {
		// Given: a started session with slot 1 up
		session := startedSession(t)

		// When: slot 2 draws out of turn
		_, err := session.Draw(2)

		// Then: it should return ErrNotYourTurn without mutating state
		assert.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, 1, session.Turn)
		assert.Len(t, session.Players[1].Hand, InitialHandSize)
	})

	t.Run("Fails with ErrDeckEmpty when no cards remain", func(t *testing.T) {
		// Given: a started session with an exhausted deck
		session := startedSession(t)
		session.Deck = Deck{}

		// When: slot 1 draws
		_, err := session.Draw(1)

		// Then: it should return ErrDeckEmpty and keep the turn
		assert.ErrorIs(t, err, apperror.ErrDeckEmpty)
		assert.Equal(t, 1, session.Turn)
	})

	t.Run("Fails with ErrGameIsNotStarted while waiting for players", func(t *testing.T) {
		// Given: a session still waiting for the second player
		session := NewSession("TESTROOM", time.Now())
		_, err := session.AddPlayer("p1", "Alice")
		require.NoError(t, err)

		// When: slot 1 draws
		_, err = session.Draw(1)

		// Then: it should return ErrGameIsNotStarted
		assert.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})
}

func TestSession_Place(t *testing.T) {
	t.Run("Moves a card from hand to an empty cell and advances the turn", func(t *testing.T) {
		// Given: a started session with slot 1 up
		session := startedSession(t)
		card := session.Players[0].Hand[0]

		// When: slot 1 places its first card at (1, 1)
		move, err := session.Place(1, 0, 1, 1)

		// Then: the cell holds the card, the hand shrank, slot 2 is up
		require.NoError(t, err)
		assert.Equal(t, MovePlace, move.Kind)

		cell, err := session.Grid.At(1, 1)
		require.NoError(t, err)
		require.NotNil(t, cell.Card)
		assert.Equal(t, card, *cell.Card)
		assert.Equal(t, 1, cell.PlacedBy)

		assert.Len(t, session.Players[0].Hand, InitialHandSize-1)
		assert.Equal(t, 2, session.Turn)
		assert.Equal(t, 35, totalCards(session))
	})

	t.Run("Fails with ErrCellOccupied and leaves the grid unchanged", func(t *testing.T) {
		// Given: a session where slot 1 already placed at (1, 1)
		session := startedSession(t)
		_, err := session.Place(1, 0, 1, 1)
		require.NoError(t, err)

		occupant := *session.Grid[4].Card

		// When: slot 2 places onto the same cell
		_, err = session.Place(2, 0, 1, 1)

		// Then: it should return ErrCellOccupied, grid and hand untouched
		assert.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, occupant, *session.Grid[4].Card)
		assert.Equal(t, 1, session.Grid[4].PlacedBy)
		assert.Len(t, session.Players[1].Hand, InitialHandSize)
		assert.Equal(t, 2, session.Turn)
	})

	t.Run("Fails with ErrCellOutOfBounds outside the grid", func(t *testing.T) {
		// Given: a started session
		session := startedSession(t)

		// When: slot 1 places outside the 3x3 grid
		_, err := session.Place(1, 0, 3, 0)

		// Then: it should return ErrCellOutOfBounds
		assert.ErrorIs(t, err, apperror.ErrCellOutOfBounds)
	})

	t.Run("Fails with ErrInvalidCardIndex beyond the hand", func(t *testing.T) {
		// Given: a started session
		session := startedSession(t)

		// When: slot 1 places a card index it does not hold
		_, err := session.Place(1, InitialHandSize, 0, 0)

		// Then: it should return ErrInvalidCardIndex
		assert.ErrorIs(t, err, apperror.ErrInvalidCardIndex)
	})
}

func TestSession_UndoRedo(t *testing.T) {
	t.Run("Undo of a draw returns the card to the deck and the turn to the actor", func(t *testing.T) {
		// Given: slot 1 drew a card
		session := startedSession(t)
		before := captureState(session)

		_, err := session.Draw(1)
		require.NoError(t, err)

		// When: slot 1 undoes
		_, err = session.Undo(1)

		// Then: deck, hand and turn are back to the pre-draw state
		require.NoError(t, err)
		assert.Equal(t, before, captureState(session))
		assert.Len(t, session.RedoStack, 1)
	})

	t.Run("Undo then redo restores the exact post-action state", func(t *testing.T) {
		// Given: slot 1 placed a card
		session := startedSession(t)
		_, err := session.Place(1, 1, 0, 2)
		require.NoError(t, err)

		afterPlace := captureState(session)

		// When: slot 1 undoes and redoes
		_, err = session.Undo(1)
		require.NoError(t, err)

		_, err = session.Redo(1)
		require.NoError(t, err)

		// Then: the state matches the post-place state exactly
		assert.Equal(t, afterPlace, captureState(session))
		assert.Empty(t, session.RedoStack)
	})

	t.Run("Undo of a place restores the card to its hand position", func(t *testing.T) {
		// Given: slot 1 placed its middle card
		session := startedSession(t)
		handBefore := append([]Card{}, session.Players[0].Hand...)

		_, err := session.Place(1, 1, 0, 0)
		require.NoError(t, err)

		// When: slot 1 undoes
		_, err = session.Undo(1)

		// Then: the hand is back in its original order and the cell is empty
		require.NoError(t, err)
		assert.Equal(t, handBefore, session.Players[0].Hand)
		assert.True(t, session.Grid[0].IsEmpty())
		assert.Equal(t, 0, session.Grid[0].PlacedBy)
	})

	t.Run("Only the slot that acted may undo", func(t *testing.T) {
		// Given: slot 1 drew a card
		session := startedSession(t)
		_, err := session.Draw(1)
		require.NoError(t, err)

		// When: slot 2 tries to undo it
		_, err = session.Undo(2)

		// Then: it should return ErrNothingToUndo
		assert.ErrorIs(t, err, apperror.ErrNothingToUndo)
	})

	t.Run("Fails with ErrNothingToUndo on empty history", func(t *testing.T) {
		// Given: a started session with no actions
		session := startedSession(t)

		// When: slot 1 undoes
		_, err := session.Undo(1)

		// Then: it should return ErrNothingToUndo
		assert.ErrorIs(t, err, apperror.ErrNothingToUndo)
	})

	t.Run("A forward action invalidates the redo buffer", func(t *testing.T) {
		// Given: slot 1 drew, undid, then drew again
		session := startedSession(t)

		_, err := session.Draw(1)
		require.NoError(t, err)

		_, err = session.Undo(1)
		require.NoError(t, err)

		_, err = session.Draw(1)
		require.NoError(t, err)

		// When: slot 1 redoes
		_, err = session.Redo(1)

		// Then: it should return ErrNothingToRedo
		assert.ErrorIs(t, err, apperror.ErrNothingToRedo)
	})
}

func TestSession_CardCountInvariant(t *testing.T) {
	t.Run("Total card count stays at 35 across legal sequences", func(t *testing.T) {
		// Given: a started session
		session := startedSession(t)

		// When/Then: every accepted action keeps the total at 35
		steps := []func() (*Move, error){
			func() (*Move, error) { return session.Draw(1) },
			func() (*Move, error) { return session.Draw(2) },
			func() (*Move, error) { return session.Place(1, 0, 0, 0) },
			func() (*Move, error) { return session.Place(2, 2, 2, 2) },
			func() (*Move, error) { return session.Undo(2) },
			func() (*Move, error) { return session.Redo(2) },
			func() (*Move, error) { return session.Draw(1) },
		}

		for i, step := range steps {
			_, err := step()
			require.NoError(t, err, "step %d", i)
			assert.Equal(t, 35, totalCards(session), "step %d", i)
		}
	})
}

func TestSession_WinDetection(t *testing.T) {
	fillGrid := func(t *testing.T, session *Session) {
		t.Helper()

		for i := 0; i < GridCells; i++ {
			slot := i%2 + 1
			_, err := session.Place(slot, 0, i%GridWidth, i/GridWidth)
			require.NoError(t, err, "cell %d", i)
		}
	}

	t.Run("Filling the grid finishes the match with the higher sum winning", func(t *testing.T) {
		// Given: an ongoing session with known hands, slot 1 holding the high ranks
		session := NewSession("TESTROOM", time.Now())
		_, err := session.AddPlayer("p1", "Alice")
		require.NoError(t, err)
		_, err = session.AddPlayer("p2", "Bob")
		require.NoError(t, err)

		session.Status = StatusOngoing
		session.Turn = 1
		session.Deck = Deck{}
		session.Players[0].Hand = []Card{
			{Rank: RankSeven, Suit: SuitRed},
			{Rank: RankSix, Suit: SuitRed},
			{Rank: RankFive, Suit: SuitRed},
			{Rank: RankFour, Suit: SuitRed},
			{Rank: RankThree, Suit: SuitRed},
		}
		session.Players[1].Hand = []Card{
			{Rank: RankOne, Suit: SuitBlue},
			{Rank: RankTwo, Suit: SuitBlue},
			{Rank: RankThree, Suit: SuitBlue},
			{Rank: RankFour, Suit: SuitBlue},
		}

		// When: the players alternate placements until the grid is full
		fillGrid(t, session)

		// Then: the match is finished and the higher sum wins
		assert.Equal(t, StatusFinished, session.Status)
		assert.Equal(t, "Alice", session.Winner)

		p1, p2 := session.Scores()
		assert.Equal(t, 25, p1)
		assert.Equal(t, 10, p2)
		assert.Equal(t, 0, session.Turn)
	})

	t.Run("Equal sums finish as a tie", func(t *testing.T) {
		// Given: an ongoing session where both players will place 15 points
		session := NewSession("TESTROOM", time.Now())
		_, err := session.AddPlayer("p1", "Alice")
		require.NoError(t, err)
		_, err = session.AddPlayer("p2", "Bob")
		require.NoError(t, err)

		session.Status = StatusOngoing
		session.Turn = 1
		session.Deck = Deck{}
		session.Players[0].Hand = []Card{
			{Rank: RankOne, Suit: SuitRed},
			{Rank: RankTwo, Suit: SuitRed},
			{Rank: RankThree, Suit: SuitRed},
			{Rank: RankFour, Suit: SuitRed},
			{Rank: RankFive, Suit: SuitRed},
		}
		session.Players[1].Hand = []Card{
			{Rank: RankTwo, Suit: SuitBlue},
			{Rank: RankThree, Suit: SuitBlue},
			{Rank: RankFour, Suit: SuitBlue},
			{Rank: RankSix, Suit: SuitBlue},
		}

		// When: the grid fills up
		fillGrid(t, session)

		// Then: the match finishes as a tie
		assert.Equal(t, StatusFinished, session.Status)
		assert.Equal(t, WinnerTie, session.Winner)
	})

	t.Run("Actions after the finish fail with ErrGameFinished", func(t *testing.T) {
		// Given: a finished session
		session := startedSession(t)
		session.Status = StatusFinished

		// When: slot 1 draws
		_, err := session.Draw(1)

		// Then: it should return ErrGameFinished
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestSession_Expired(t *testing.T) {
	const (
		waitingTimeout    = 10 * time.Minute
		abandonedGrace    = 2 * time.Minute
		finishedRetention = time.Minute
	)

	now := time.Now()

	t.Run("Waiting session expires after the waiting timeout", func(t *testing.T) {
		// Given: a waiting session idle past the timeout
		session := NewSession("TESTROOM", now.Add(-waitingTimeout-time.Second))

		// Then: it is expired
		assert.True(t, session.Expired(now, waitingTimeout, abandonedGrace, finishedRetention))
	})

	t.Run("Ongoing session with a live connection never expires", func(t *testing.T) {
		// Given: an idle ongoing session with one player connected
		session := startedSession(t)
		session.Touch(now.Add(-time.Hour))
		session.SetConnected(1, true)

		// Then: it is not expired
		assert.False(t, session.Expired(now, waitingTimeout, abandonedGrace, finishedRetention))
	})

	t.Run("Ongoing session expires once both players stay gone", func(t *testing.T) {
		// Given: an ongoing session with both players disconnected past the grace period
		session := startedSession(t)
		session.Touch(now.Add(-abandonedGrace - time.Second))

		// Then: it is expired
		assert.True(t, session.Expired(now, waitingTimeout, abandonedGrace, finishedRetention))
	})

	t.Run("Finished session is retained briefly", func(t *testing.T) {
		// Given: a session finished moments ago
		session := startedSession(t)
		session.Status = StatusFinished
		session.Touch(now.Add(-finishedRetention / 2))

		// Then: it is not expired yet
		assert.False(t, session.Expired(now, waitingTimeout, abandonedGrace, finishedRetention))
	})
}
