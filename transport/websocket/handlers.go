package websocket

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
	"github.com/rocketscienceinc/kittycard-backend/internal/usecase"
)

// stateErrors are rejected to the sender with the error text; anything
// else is an internal failure and gets a generic reply.
var stateErrors = []error{
	apperror.ErrNotYourTurn,
	apperror.ErrCellOccupied,
	apperror.ErrCellOutOfBounds,
	apperror.ErrInvalidCardIndex,
	apperror.ErrDeckEmpty,
	apperror.ErrNothingToUndo,
	apperror.ErrNothingToRedo,
	apperror.ErrGameIsNotStarted,
	apperror.ErrGameFinished,
	apperror.ErrUnknownAction,
}

func (that *Server) handlePlayerInfo(ctx context.Context, cl *client, msg *Message) error {
	log := that.logger.With("method", "handlePlayerInfo", "sessionID", cl.sessionID)

	if msg.PlayerName == "" {
		that.sendError(cl, msg.Action, "playerName is required")
		return nil
	}

	if err := that.uGame.SetPlayerName(ctx, cl.sessionID, cl.playerID, msg.PlayerName); err != nil {
		log.Error("failed to set player name", "error", err)
		that.sendError(cl, msg.Action, "failed to set player name")

		return nil
	}

	return nil
}

func (that *Server) handleDraw(ctx context.Context, cl *client, msg *Message) error {
	return that.doAction(ctx, cl, msg.Action, usecase.Action{Kind: usecase.ActionDraw})
}

func (that *Server) handlePlace(ctx context.Context, cl *client, msg *Message) error {
	if msg.CardIndex == nil || msg.X == nil || msg.Y == nil {
		that.sendError(cl, msg.Action, "cardIndex, x and y are required")
		return nil
	}

	return that.doAction(ctx, cl, msg.Action, usecase.Action{
		Kind:      usecase.ActionPlace,
		CardIndex: *msg.CardIndex,
		X:         *msg.X,
		Y:         *msg.Y,
	})
}

func (that *Server) handleUndo(ctx context.Context, cl *client, msg *Message) error {
	return that.doAction(ctx, cl, msg.Action, usecase.Action{Kind: usecase.ActionUndo})
}

func (that *Server) handleRedo(ctx context.Context, cl *client, msg *Message) error {
	return that.doAction(ctx, cl, msg.Action, usecase.Action{Kind: usecase.ActionRedo})
}

// doAction - runs one action through the serializer. A rejection goes to
// the sender only; an accepted action is broadcast to both slots with
// per-recipient hand masking.
func (that *Server) doAction(ctx context.Context, cl *client, action string, act usecase.Action) error {
	log := that.logger.With("method", "doAction", "sessionID", cl.sessionID, "slot", cl.slot, "action", action)

	result, err := that.uGame.Do(ctx, cl.sessionID, cl.playerID, act)
	if err != nil {
		if isStateError(err) {
			that.sendError(cl, action, err.Error())
			return nil
		}

		log.Error("failed to apply action", "error", err)
		that.sendError(cl, action, "failed to process action")

		return nil
	}

	that.broadcast(cl.sessionID, result)

	if result.Snapshot.GameOver {
		log.Info("match finished", "winner", result.Snapshot.Winner)
	}

	return nil
}

// broadcast - sends the action result to both bound connections. Each
// recipient sees its own hand and only the size of the opponent's.
func (that *Server) broadcast(sessionID string, result *usecase.ActionResult) {
	log := that.logger.With("method", "broadcast", "sessionID", sessionID)

	for slot := 1; slot <= entity.MaxPlayers; slot++ {
		conn := that.slotConn(sessionID, slot)
		if conn == nil {
			continue
		}

		msg := buildStateMessage(result.Action, result.Snapshot, result.Move, slot)
		if err := conn.send(msg); err != nil {
			log.Error("failed to send state update", "slot", slot, "error", err)
		}
	}
}

func (that *Server) sendError(cl *client, action, message string) {
	if err := cl.conn.send(errorMessage{Action: action, Error: message}); err != nil {
		that.logger.Error("failed to send error response", "sessionID", cl.sessionID, "error", err)
	}
}

func isStateError(err error) bool {
	for _, sentinel := range stateErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}
