package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-agent/internal/agent"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/internal/neural"
	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
)

type mockTrainer struct {
	mock.Mock
}

func (m *mockTrainer) Start(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *mockTrainer) Stop() {
	m.Called()
}

func (m *mockTrainer) Progress() usecase.Progress {
	args := m.Called()
	return args.Get(0).(usecase.Progress) //nolint: forcetypeassert // test mock
}

func dial(t *testing.T, trainer *mockTrainer) *websocket.Conn {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	model := agent.NewGuard()
	model.Set(neural.NewNetwork(neural.Config{
		Inputs:       entity.BoardSize,
		Outputs:      entity.BoardSize,
		Hidden:       []int{8},
		LearningRate: 0.01,
		Seed:         1,
	}))

	games := usecase.NewGameManager(logger, model)
	server := httptest.NewServer(New(logger, games, trainer).Handler(context.Background()))
	t.Cleanup(server.Close)

	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, action string, payload any) ResponsePayload {
	t.Helper()

	message := Message{Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		message.Payload = raw
	}

	require.NoError(t, conn.WriteJSON(message))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var response Message
	require.NoError(t, conn.ReadJSON(&response))
	assert.Equal(t, action, response.Action)

	var body ResponsePayload
	require.NoError(t, json.Unmarshal(response.Payload, &body))

	return body
}

func TestServer_Game(t *testing.T) {
	t.Run("Player vs player", func(t *testing.T) {
		conn := dial(t, &mockTrainer{})

		// Given: a new pvp game
		body := exchange(t, conn, actionGameNew, RequestPayload{Mode: "pvp"})
		require.NotNil(t, body.Game)
		assert.Equal(t, entity.ModePVP, body.Game.Mode)
		assert.Equal(t, "X", body.Game.Turn)

		// When: X takes the top row while O plays the middle row
		for _, cell := range []int{0, 3, 1, 4, 2} {
			body = exchange(t, conn, actionGameTurn, map[string]int{"cell": cell})
			require.Empty(t, body.Error)
		}

		// Then: X wins with the first line
		require.NotNil(t, body.Game)
		assert.Equal(t, entity.StatusFinished, body.Game.Status)
		assert.Equal(t, "X", body.Game.Winner)
		require.NotNil(t, body.Game.Strike)
		assert.Equal(t, "vertical-1", body.Game.Strike.Strike)

		// And: further moves are rejected
		body = exchange(t, conn, actionGameTurn, map[string]int{"cell": 8})
		assert.NotEmpty(t, body.Error)

		body = exchange(t, conn, actionGameRestart, nil)
		require.NotNil(t, body.Game)
		assert.Equal(t, entity.StatusOngoing, body.Game.Status)
		assert.Equal(t, [entity.BoardSize]string{}, body.Game.Board)
	})

	t.Run("Agent replies in pve", func(t *testing.T) {
		conn := dial(t, &mockTrainer{})
		exchange(t, conn, actionGameNew, RequestPayload{Mode: "pve"})

		body := exchange(t, conn, actionGameTurn, map[string]int{"cell": 4})

		require.NotNil(t, body.Game)
		assert.Equal(t, "X", body.Game.Board[4])
		assert.Equal(t, "X", body.Game.Turn)

		marks := 0
		for _, mark := range body.Game.Board {
			if mark == "O" {
				marks++
			}
		}
		assert.Equal(t, 1, marks)
	})

	t.Run("Errors", func(t *testing.T) {
		conn := dial(t, &mockTrainer{})

		body := exchange(t, conn, actionGameTurn, map[string]int{"cell": 0})
		assert.Equal(t, "game is not started", body.Error)

		body = exchange(t, conn, actionGameNew, RequestPayload{Mode: "online"})
		assert.NotEmpty(t, body.Error)

		exchange(t, conn, actionGameNew, RequestPayload{Mode: "pvp"})
		exchange(t, conn, actionGameTurn, map[string]int{"cell": 0})

		body = exchange(t, conn, actionGameTurn, map[string]int{"cell": 0})
		assert.Contains(t, body.Error, "occupied")

		body = exchange(t, conn, actionGameTurn, nil)
		assert.Equal(t, "cell is required", body.Error)

		body = exchange(t, conn, "game:join", nil)
		assert.Equal(t, "unknown action", body.Error)
	})
}

func TestServer_Training(t *testing.T) {
	trainer := &mockTrainer{}
	trainer.On("Start", mock.Anything).Return(true).Once()
	trainer.On("Stop").Return().Once()
	trainer.On("Progress").Return(usecase.Progress{State: usecase.StateTraining, Completed: 3, Total: 10})
	conn := dial(t, trainer)

	body := exchange(t, conn, actionTrainingStart, nil)
	require.NotNil(t, body.Started)
	assert.True(t, *body.Started)
	require.NotNil(t, body.Training)
	assert.Equal(t, usecase.StateTraining, body.Training.State)

	body = exchange(t, conn, actionTrainingProgress, nil)
	require.NotNil(t, body.Training)
	assert.Equal(t, 3, body.Training.Completed)

	body = exchange(t, conn, actionTrainingStop, nil)
	require.NotNil(t, body.Training)

	trainer.AssertExpectations(t)
}
