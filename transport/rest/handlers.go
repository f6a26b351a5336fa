package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
)

const (
	statusOK    = "OK"
	statusError = "error"
)

type createGameRequest struct {
	PlayerName string `json:"playerName"`
}

type joinGameRequest struct {
	SessionID  string `json:"sessionId"`
	PlayerName string `json:"playerName"`
}

type sessionResponse struct {
	Status       string `json:"status"`
	SessionID    string `json:"sessionId,omitempty"`
	PlayerID     string `json:"playerId,omitempty"`
	PlayerNumber int    `json:"playerNumber,omitempty"`
	Message      string `json:"message,omitempty"`
}

type resultResponse struct {
	Status  string `json:"status"`
	Winner  string `json:"winner,omitempty"`
	Player1 string `json:"player1,omitempty"`
	Player2 string `json:"player2,omitempty"`
	P1Score int    `json:"p1Score"`
	P2Score int    `json:"p2Score"`
	Message string `json:"message,omitempty"`
}

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleCreateGame")

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Status: statusError, Message: "invalid request body"})
		return
	}

	if req.PlayerName == "" {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Status: statusError, Message: "playerName is required"})
		return
	}

	ticket, err := that.sessions.CreateSession(r.Context(), req.PlayerName)
	if err != nil {
		log.Error("failed to create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, sessionResponse{Status: statusError, Message: "failed to create game"})

		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Status:       statusOK,
		SessionID:    ticket.SessionID,
		PlayerID:     ticket.PlayerID,
		PlayerNumber: ticket.PlayerNumber,
	})
}

func (that *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleJoinGame")

	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Status: statusError, Message: "invalid request body"})
		return
	}

	if req.SessionID == "" || req.PlayerName == "" {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Status: statusError, Message: "sessionId and playerName are required"})
		return
	}

	ticket, err := that.sessions.JoinSession(r.Context(), req.SessionID, req.PlayerName)
	if err != nil {
		status, message := joinFailure(err)
		if status == http.StatusInternalServerError {
			log.Error("failed to join session", "sessionID", req.SessionID, "error", err)
		}

		writeJSON(w, status, sessionResponse{Status: statusError, Message: message})

		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Status:       statusOK,
		SessionID:    ticket.SessionID,
		PlayerID:     ticket.PlayerID,
		PlayerNumber: ticket.PlayerNumber,
	})
}

func (that *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleResult")

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, resultResponse{Status: statusError, Message: "sessionId is required"})
		return
	}

	result, err := that.sessions.GetResult(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) || errors.Is(err, apperror.ErrResultNotFound) {
			writeJSON(w, http.StatusNotFound, resultResponse{Status: statusError, Message: "result not found"})
			return
		}

		log.Error("failed to get result", "sessionID", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, resultResponse{Status: statusError, Message: "failed to get result"})

		return
	}

	writeJSON(w, http.StatusOK, resultResponse{
		Status:  statusOK,
		Winner:  result.Winner,
		Player1: result.Player1,
		Player2: result.Player2,
		P1Score: result.P1Score,
		P2Score: result.P2Score,
	})
}

func joinFailure(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		return http.StatusNotFound, "game not found, please check the game ID"
	case errors.Is(err, apperror.ErrSessionFull):
		return http.StatusConflict, "game already has two players"
	case errors.Is(err, apperror.ErrSessionFinished):
		return http.StatusGone, "game is already finished"
	default:
		return http.StatusInternalServerError, "failed to join game"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
