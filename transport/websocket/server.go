package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/kittycard-backend/internal/apperror"
	"github.com/rocketscienceinc/kittycard-backend/internal/entity"
	"github.com/rocketscienceinc/kittycard-backend/internal/usecase"
)

type gameUseCase interface {
	ValidatePlayer(ctx context.Context, sessionID, playerID string) error
	Connect(ctx context.Context, sessionID, playerID string) (*usecase.ConnectInfo, error)
	Disconnect(ctx context.Context, sessionID, playerID string) error
	SetPlayerName(ctx context.Context, sessionID, playerID, name string) error
	Do(ctx context.Context, sessionID, playerID string, action usecase.Action) (*usecase.ActionResult, error)
}

// client is one live connection bound to a session slot.
type client struct {
	sessionID string
	playerID  string
	slot      int
	conn      *connection
}

// sessionBinding holds the live connections of one session, indexed by
// slot. A nil entry means the slot's player is currently disconnected.
// announced tracks whether the current pairing was already greeted with
// player-joined; it resets once a slot drops.
type sessionBinding struct {
	conns     [entity.MaxPlayers]*connection
	announced bool
}

type Server struct {
	logger *slog.Logger
	uGame  gameUseCase

	upgrader websocket.Upgrader

	bindingsMutex sync.RWMutex
	bindings      map[string]*sessionBinding

	handlers map[string]func(ctx context.Context, cl *client, msg *Message) error
}

func New(logger *slog.Logger, uGame gameUseCase) *Server {
	server := &Server{
		logger: logger,
		uGame:  uGame,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},

		bindings: make(map[string]*sessionBinding),
		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers["playerInfo"] = server.handlePlayerInfo
	server.handlers["draw"] = server.handleDraw
	server.handlers["place"] = server.handlePlace
	server.handlers["undo"] = server.handleUndo
	server.handlers["redo"] = server.handleRedo

	return server
}

// Start - starts the WebSocket server and shuts it down when ctx is
// canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{sessionId}/{playerId}", func(w http.ResponseWriter, r *http.Request) {
		that.handleConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleConnection - validates the (sessionId, playerId) pair, upgrades
// the connection and binds it to the player's slot. Invalid identifiers
// are the only rejection delivered at the transport level.
func (that *Server) handleConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "handleConnection")

	sessionID := r.PathValue("sessionId")
	playerID := r.PathValue("playerId")

	// rejected before the upgrade: a failed handshake must leave no trace
	// on the session
	if err := that.uGame.ValidatePlayer(ctx, sessionID, playerID); err != nil {
		switch {
		case errors.Is(err, apperror.ErrSessionNotFound):
			http.Error(w, "unknown session", http.StatusNotFound)
		case errors.Is(err, apperror.ErrUnknownPlayer):
			http.Error(w, "unknown player", http.StatusNotFound)
		default:
			log.Error("failed to validate connection", "sessionID", sessionID, "error", err)
			http.Error(w, "failed to connect", http.StatusInternalServerError)
		}

		return
	}

	wsConn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	// the slot is marked connected only once a live socket exists
	info, err := that.uGame.Connect(ctx, sessionID, playerID)
	if err != nil {
		log.Error("failed to bind connection", "sessionID", sessionID, "error", err)
		_ = wsConn.Close()

		return
	}

	cl := &client{
		sessionID: sessionID,
		playerID:  playerID,
		slot:      info.Slot,
		conn:      &connection{conn: wsConn},
	}

	firstJoined := that.bind(cl)
	defer that.teardown(cl)

	log = log.With("sessionID", sessionID, "slot", cl.slot)
	log.Info("player connected")

	if err = cl.conn.send(controlMessage{Type: controlPlayerAssigned, PlayerNumber: cl.slot}); err != nil {
		log.Error("failed to send player assignment", "error", err)
		return
	}

	if firstJoined {
		that.notifyPeer(cl, controlMessage{Type: controlPlayerJoined, PlayerID: playerID})
	}

	// A player connecting to a running match missed broadcasts: push the
	// full state, own hand included.
	if info.Snapshot.Status != entity.StatusWaiting {
		if err = cl.conn.send(buildStateMessage(actionResync, info.Snapshot, nil, cl.slot)); err != nil {
			log.Error("failed to send resync", "error", err)
			return
		}
	}

	that.readLoop(ctx, cl)
}

// readLoop - processes messages from the client until it disconnects.
func (that *Server) readLoop(ctx context.Context, cl *client) {
	log := that.logger.With("method", "readLoop", "sessionID", cl.sessionID, "slot", cl.slot)

	for {
		_, data, err := cl.conn.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err = json.Unmarshal(data, &msg); err != nil {
			that.sendError(cl, "", "malformed message")
			continue
		}

		handler, ok := that.handlers[msg.Action]
		if !ok {
			that.sendError(cl, msg.Action, fmt.Sprintf("%v: %s", apperror.ErrUnknownAction, msg.Action))
			continue
		}

		if err = handler(ctx, cl, &msg); err != nil {
			log.Error("failed to process message", "action", msg.Action, "error", err)
		}
	}
}

// bind - stores the connection in its session slot, replacing any stale
// one left by a broken link. Reports whether this bind completed the pair
// for the first time, so player-joined goes out once per pairing rather
// than on every rebind.
func (that *Server) bind(cl *client) bool {
	that.bindingsMutex.Lock()
	defer that.bindingsMutex.Unlock()

	binding, ok := that.bindings[cl.sessionID]
	if !ok {
		binding = &sessionBinding{}
		that.bindings[cl.sessionID] = binding
	}

	if old := binding.conns[cl.slot-1]; old != nil && old != cl.conn {
		old.close()
	}

	binding.conns[cl.slot-1] = cl.conn

	if binding.conns[0] == nil || binding.conns[1] == nil || binding.announced {
		return false
	}

	binding.announced = true

	return true
}

// unbind - clears the slot only if it still holds this connection, so a
// reconnect that already re-bound the slot is not torn down.
func (that *Server) unbind(cl *client) bool {
	that.bindingsMutex.Lock()
	defer that.bindingsMutex.Unlock()

	binding, ok := that.bindings[cl.sessionID]
	if !ok || binding.conns[cl.slot-1] != cl.conn {
		return false
	}

	binding.conns[cl.slot-1] = nil
	binding.announced = false

	if binding.conns[0] == nil && binding.conns[1] == nil {
		delete(that.bindings, cl.sessionID)
	}

	return true
}

func (that *Server) slotConn(sessionID string, slot int) *connection {
	that.bindingsMutex.RLock()
	defer that.bindingsMutex.RUnlock()

	binding, ok := that.bindings[sessionID]
	if !ok {
		return nil
	}

	return binding.conns[slot-1]
}

func (that *Server) teardown(cl *client) {
	log := that.logger.With("method", "teardown", "sessionID", cl.sessionID, "slot", cl.slot)

	if !that.unbind(cl) {
		cl.conn.close()
		return
	}

	cl.conn.close()

	if err := that.uGame.Disconnect(context.Background(), cl.sessionID, cl.playerID); err != nil {
		log.Error("failed to mark player disconnected", "error", err)
	}

	that.notifyPeer(cl, controlMessage{Type: controlPlayerLeft})

	log.Info("player disconnected")
}

func (that *Server) notifyPeer(cl *client, msg controlMessage) {
	peer := that.slotConn(cl.sessionID, opponentOf(cl.slot))
	if peer == nil {
		return
	}

	if err := peer.send(msg); err != nil {
		that.logger.Error("failed to notify peer", "sessionID", cl.sessionID, "type", msg.Type, "error", err)
	}
}

func opponentOf(slot int) int {
	if slot == 1 {
		return 2
	}

	return 1
}
