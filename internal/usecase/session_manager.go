package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
	"github.com/rocketscienceinc/kittycard-backend/internal/pkg"
)

const maxSessionIDAttempts = 5

// Action kinds accepted from clients.
const (
	ActionDraw  = "draw"
	ActionPlace = "place"
	ActionUndo  = "undo"
	ActionRedo  = "redo"
)

type sessionRepo interface {
	Create(session *entity.Session) error
	GetByID(id string) (*entity.Session, error)
	DeleteByID(id string)
	List() []*entity.Session
}

type resultRepo interface {
	Save(ctx context.Context, result *entity.MatchResult) error
	GetBySessionID(ctx context.Context, sessionID string) (*entity.MatchResult, error)
}

// Action is a validated game request from one connection.
type Action struct {
	Kind      string
	CardIndex int
	X         int
	Y         int
}

// ActionResult carries everything the transport needs to broadcast an
// accepted action. The snapshot is taken while the session is still
// exclusively owned, so it is safe to read afterwards.
type ActionResult struct {
	Action   string
	Move     *entity.Move
	Snapshot *entity.Snapshot
}

// SessionTicket identifies a player's seat, returned by create and join.
type SessionTicket struct {
	SessionID    string
	PlayerID     string
	PlayerNumber int
}

// ConnectInfo is the binding result for a fresh or reconnecting connection.
type ConnectInfo struct {
	Slot          int
	Snapshot      *entity.Snapshot
	BothConnected bool
}

// ReapPolicy bounds how long idle sessions survive, per status.
type ReapPolicy struct {
	WaitingTimeout    time.Duration
	AbandonedGrace    time.Duration
	FinishedRetention time.Duration
}

// SessionManager owns the session registry and serializes every
// state-changing operation through a per-session execution lock.
type SessionManager struct {
	logger     *slog.Logger
	sessions   sessionRepo
	results    resultRepo
	serializer *serializer
}

func NewSessionManager(logger *slog.Logger, sessions sessionRepo, results resultRepo) *SessionManager {
	return &SessionManager{
		logger:     logger,
		sessions:   sessions,
		results:    results,
		serializer: newSerializer(),
	}
}

// CreateSession - allocates a fresh waiting session with the caller in
// slot 1. Token collisions against the registry trigger a regenerate.
func (that *SessionManager) CreateSession(_ context.Context, playerName string) (*SessionTicket, error) {
	log := that.logger.With("method", "CreateSession")

	for attempt := 0; attempt < maxSessionIDAttempts; attempt++ {
		sessionID, err := pkg.GenerateSessionID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}

		session := entity.NewSession(sessionID, time.Now())

		playerID := pkg.GenerateNewPlayerID()
		if _, err = session.AddPlayer(playerID, playerName); err != nil {
			return nil, fmt.Errorf("failed to fill first slot: %w", err)
		}

		if err = that.sessions.Create(session); err != nil {
			if errors.Is(err, apperror.ErrSessionAlreadyExists) {
				continue
			}

			return nil, fmt.Errorf("failed to register session: %w", err)
		}

		log.Info("session created", "sessionID", sessionID, "player", playerName)

		return &SessionTicket{SessionID: sessionID, PlayerID: playerID, PlayerNumber: 1}, nil
	}

	return nil, fmt.Errorf("failed to allocate a unique session id: %w", apperror.ErrSessionAlreadyExists)
}

// JoinSession - fills slot 2 and starts the match: the deck is shuffled,
// initial hands are dealt and slot 1 gets the first turn.
func (that *SessionManager) JoinSession(_ context.Context, sessionID, playerName string) (*SessionTicket, error) {
	log := that.logger.With("method", "JoinSession", "sessionID", sessionID)

	session, err := that.sessions.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	release := that.serializer.Acquire(sessionID)
	defer release()

	if session.IsFinished() {
		return nil, apperror.ErrSessionFinished
	}

	if session.PlayerCount() >= entity.MaxPlayers {
		return nil, apperror.ErrSessionFull
	}

	playerID := pkg.GenerateNewPlayerID()

	slot, err := session.AddPlayer(playerID, playerName)
	if err != nil {
		return nil, fmt.Errorf("failed to fill slot: %w", err)
	}

	if err = session.Start(); err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}

	session.Touch(time.Now())

	log.Info("player joined, match started", "player", playerName, "slot", slot)

	return &SessionTicket{SessionID: sessionID, PlayerID: playerID, PlayerNumber: slot}, nil
}

// Do - the action serializer entry point: resolves the session, takes its
// exclusive lock, validates the caller's slot and applies exactly one
// action. Rejections mutate nothing.
func (that *SessionManager) Do(ctx context.Context, sessionID, playerID string, action Action) (*ActionResult, error) {
	session, err := that.sessions.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	release := that.serializer.Acquire(sessionID)
	defer release()

	slot, err := session.SlotOf(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slot: %w", err)
	}

	var move *entity.Move

	switch action.Kind {
	case ActionDraw:
		move, err = session.Draw(slot)
	case ActionPlace:
		move, err = session.Place(slot, action.CardIndex, action.X, action.Y)
	case ActionUndo:
		move, err = session.Undo(slot)
	case ActionRedo:
		move, err = session.Redo(slot)
	default:
		return nil, fmt.Errorf("%w: %s", apperror.ErrUnknownAction, action.Kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", action.Kind, err)
	}

	session.Touch(time.Now())

	result := &ActionResult{
		Action:   broadcastAction(action.Kind, move),
		Move:     move,
		Snapshot: session.Snapshot(),
	}

	if session.IsFinished() {
		that.persistResult(ctx, session)
	}

	return result, nil
}

// ValidatePlayer - read-only check that the pair names a live seat.
// Transports reject on this before committing any connection state.
func (that *SessionManager) ValidatePlayer(_ context.Context, sessionID, playerID string) error {
	session, err := that.sessions.GetByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	release := that.serializer.Acquire(sessionID)
	defer release()

	if _, err = session.SlotOf(playerID); err != nil {
		return fmt.Errorf("failed to resolve slot: %w", err)
	}

	return nil
}

// Connect - binds a live connection to its slot. A reconnect lands here
// too: the returned snapshot is the full resync state.
func (that *SessionManager) Connect(_ context.Context, sessionID, playerID string) (*ConnectInfo, error) {
	session, err := that.sessions.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	release := that.serializer.Acquire(sessionID)
	defer release()

	slot, err := session.SlotOf(playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slot: %w", err)
	}

	session.SetConnected(slot, true)
	session.Touch(time.Now())

	return &ConnectInfo{
		Slot:          slot,
		Snapshot:      session.Snapshot(),
		BothConnected: session.BothConnected(),
	}, nil
}

// Disconnect - clears the slot's connection mark. The slot stays reserved
// for the same playerId; the match is not ended.
func (that *SessionManager) Disconnect(_ context.Context, sessionID, playerID string) error {
	session, err := that.sessions.GetByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	release := that.serializer.Acquire(sessionID)
	defer release()

	slot, err := session.SlotOf(playerID)
	if err != nil {
		return fmt.Errorf("failed to resolve slot: %w", err)
	}

	session.SetConnected(slot, false)
	session.Touch(time.Now())

	return nil
}

// SetPlayerName - updates a slot's display name from a playerInfo message.
func (that *SessionManager) SetPlayerName(_ context.Context, sessionID, playerID, name string) error {
	if name == "" {
		return nil
	}

	session, err := that.sessions.GetByID(sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	release := that.serializer.Acquire(sessionID)
	defer release()

	slot, err := session.SlotOf(playerID)
	if err != nil {
		return fmt.Errorf("failed to resolve slot: %w", err)
	}

	session.Players[slot-1].Name = name
	session.Touch(time.Now())

	return nil
}

// GetResult - result of a finished match, from the live session or from
// the archive after teardown.
func (that *SessionManager) GetResult(ctx context.Context, sessionID string) (*entity.MatchResult, error) {
	session, err := that.sessions.GetByID(sessionID)
	if err == nil {
		release := that.serializer.Acquire(sessionID)
		defer release()

		if result := session.Result(time.Now()); result != nil {
			return result, nil
		}

		return nil, fmt.Errorf("%w: match not finished", apperror.ErrResultNotFound)
	}

	result, err := that.results.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get archived result: %w", err)
	}

	return result, nil
}

// RunReaper - periodically removes expired sessions until ctx is done.
func (that *SessionManager) RunReaper(ctx context.Context, interval time.Duration, policy ReapPolicy) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			that.reapExpired(now, policy)
		}
	}
}

func (that *SessionManager) reapExpired(now time.Time, policy ReapPolicy) {
	log := that.logger.With("method", "reapExpired")

	for _, session := range that.sessions.List() {
		release := that.serializer.Acquire(session.ID)

		expired := session.Expired(now, policy.WaitingTimeout, policy.AbandonedGrace, policy.FinishedRetention)
		if expired {
			// removed under the session lock so no action slips in between
			// the expiry check and the delete
			that.sessions.DeleteByID(session.ID)
		}

		status := session.Status
		release()

		if expired {
			log.Info("session reaped", "sessionID", session.ID, "status", status)
		}
	}
}

func (that *SessionManager) persistResult(ctx context.Context, session *entity.Session) {
	log := that.logger.With("method", "persistResult", "sessionID", session.ID)

	result := session.Result(time.Now())
	if result == nil {
		return
	}

	if err := that.results.Save(ctx, result); err != nil {
		log.Error("failed to persist match result", "error", err)
		return
	}

	log.Info("match result persisted", "winner", result.Winner)
}

func broadcastAction(kind string, move *entity.Move) string {
	switch kind {
	case ActionUndo, ActionRedo:
		return kind
	default:
		return move.Kind
	}
}
