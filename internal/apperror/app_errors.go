package apperror

import "errors"

// State errors: rejected to the acting player only, no state mutation.
var (
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrCellOutOfBounds  = errors.New("cell is out of bounds")
	ErrInvalidCardIndex = errors.New("invalid card index")
	ErrDeckEmpty        = errors.New("deck is empty")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrGameFinished     = errors.New("game is already finished")
)

// Session errors: returned at create/join/connect time.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionFull          = errors.New("session is full")
	ErrSessionFinished      = errors.New("session is already finished")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrUnknownPlayer        = errors.New("unknown player")
	ErrResultNotFound       = errors.New("result not found")
)

// Protocol errors: rejected to the sender, connection stays open.
var ErrUnknownAction = errors.New("unknown action")
