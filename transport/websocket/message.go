package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
)

const writeTimeout = 10 * time.Second

// Message is an inbound client request with an action discriminator.
// Optional fields are pointers so missing values can be told apart from
// zero values.
type Message struct {
	Action     string `json:"action"`
	PlayerName string `json:"playerName,omitempty"`
	CardIndex  *int   `json:"cardIndex,omitempty"`
	X          *int   `json:"x,omitempty"`
	Y          *int   `json:"y,omitempty"`
}

// controlMessage covers the connection lifecycle notifications the legacy
// client matches on its "type" field.
type controlMessage struct {
	Type         string `json:"type"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
	PlayerID     string `json:"playerId,omitempty"`
}

const (
	controlPlayerAssigned = "playerAssigned"
	controlPlayerJoined   = "player-joined"
	controlPlayerLeft     = "player-left"
)

type coords struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// stateMessage is a per-recipient state broadcast. Hand always belongs to
// the recipient; the opponent's hand is never sent, only its size.
type stateMessage struct {
	Action           string            `json:"action"`
	State            []any             `json:"state,omitempty"`
	Grid             []entity.CellView `json:"grid,omitempty"`
	Hand             []string          `json:"hand,omitempty"`
	OpponentHandSize int               `json:"opponentHandSize"`
	PlacedAt         *coords           `json:"placedAt,omitempty"`
	PlacedByPlayer   int               `json:"placedByPlayer,omitempty"`
	GameOver         bool              `json:"gameOver,omitempty"`
	Winner           string            `json:"winner,omitempty"`
}

type errorMessage struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// actionResync is pushed to a reconnecting player to recover from missed
// broadcasts.
const actionResync = "resync"

// buildStateMessage - assembles the broadcast payload for one recipient.
func buildStateMessage(action string, snap *entity.Snapshot, move *entity.Move, recipientSlot int) stateMessage {
	opponent := recipientSlot % entity.MaxPlayers // slot 1 -> index 1, slot 2 -> index 0

	msg := stateMessage{
		Action:           action,
		State:            []any{snap.CurrentPlayer, snap.Scores[0], snap.Scores[1]},
		Grid:             snap.Grid,
		Hand:             snap.Hands[recipientSlot-1],
		OpponentHandSize: snap.HandSizes[opponent],
		GameOver:         snap.GameOver,
		Winner:           snap.Winner,
	}

	if move != nil && move.Kind == entity.MovePlace {
		msg.PlacedAt = &coords{X: move.CellIndex % entity.GridWidth, Y: move.CellIndex / entity.GridWidth}
		msg.PlacedByPlayer = move.Slot
	}

	return msg
}

// connection wraps a gorilla connection with a write lock: broadcasts and
// the read loop's replies may write concurrently, and gorilla allows only
// one writer at a time.
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (that *connection) send(v any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return that.conn.WriteJSON(v)
}

func (that *connection) close() {
	if that.conn != nil {
		_ = that.conn.Close()
	}
}
