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

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type gameManager interface {
	NewGame(mode string) (*entity.Game, error)
	MakeTurn(game *entity.Game, cell int) error
	Restart(game *entity.Game)
	SetMode(game *entity.Game, mode string) error
}

type trainer interface {
	Start(ctx context.Context) bool
	Stop()
	Progress() usecase.Progress
}

type handlerFunc func(ctx context.Context, session *session, message *Message) error

type Server struct {
	logger   *slog.Logger
	games    gameManager
	trainer  trainer
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

// session is the state of one client connection. Each connection owns one game.
type session struct {
	conn *websocket.Conn
	game *entity.Game

	writeMu sync.Mutex
}

func New(logger *slog.Logger, games gameManager, trainer trainer) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		games:   games,
		trainer: trainer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameRestart] = server.handleRestart
	server.handlers[actionTrainingStart] = server.handleTrainingStart
	server.handlers[actionTrainingStop] = server.handleTrainingStop
	server.handlers[actionTrainingProgress] = server.handleTrainingProgress

	return server
}

// Handler serves /ws. Connections and training started from them live as long as ctx.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(ctx),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) upgradeToWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	defer conn.Close()

	// hijacked connections are not closed by Shutdown
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	log.Info("WebSocket connection established", "remote", r.RemoteAddr)

	if err = that.handleMessages(ctx, &session{conn: conn}); err != nil {
		log.Error("error handling messages", "error", err)
	}
}

// handleMessages - processes messages from the client until it disconnects.
func (that *Server) handleMessages(ctx context.Context, session *session) error {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				log.Info("WebSocket connection closed")
				return nil
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			if err = that.sendError(session, "", "malformed message"); err != nil {
				return err
			}
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			if err = that.sendError(session, message.Action, "unknown action"); err != nil {
				return err
			}
			continue
		}

		if err = handler(ctx, session, &message); err != nil {
			return fmt.Errorf("failed to handle %s: %w", message.Action, err)
		}
	}
}

func (that *Server) sendMessage(session *session, action string, payload ResponsePayload) error {
	data, err := json.Marshal(Message{Action: action, Payload: mustMarshal(payload)})
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	session.writeMu.Lock()
	defer session.writeMu.Unlock()

	if err = session.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *Server) sendError(session *session, action, message string) error {
	return that.sendMessage(session, action, ResponsePayload{Error: message})
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
