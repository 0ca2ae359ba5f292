package usecase

import (
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-agent/internal/agent"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

// agentMark is the side the agent plays in pve games.
const agentMark = entity.Player2

type valueModel interface {
	Ready() bool
	Read(fn func(vf agent.ValueFunction) error) error
}

type GameManager struct {
	logger *slog.Logger
	model  valueModel
}

func NewGameManager(logger *slog.Logger, model valueModel) *GameManager {
	return &GameManager{
		logger: logger.With("component", "gameManager"),
		model:  model,
	}
}

func (that *GameManager) NewGame(mode string) (*entity.Game, error) {
	gameMode, err := entity.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	return entity.NewGame(gameMode), nil
}

// MakeTurn applies the human move and, in pve, the agent reply.
// The game is left untouched when any part of the turn fails.
func (that *GameManager) MakeTurn(game *entity.Game, cell int) error {
	log := that.logger.With("method", "MakeTurn", "cell", cell)

	if game.IsWithAgent() && !that.model.Ready() {
		return agent.ErrNotReady
	}

	snapshot := *game

	if err := game.MakeTurn(game.Turn, cell); err != nil {
		return fmt.Errorf("failed to make turn: %w", err)
	}

	if !game.IsWithAgent() || game.IsFinished() {
		return nil
	}

	if err := that.agentTurn(game); err != nil {
		*game = snapshot
		log.Error("agent failed to reply", "error", err)

		return fmt.Errorf("agent turn: %w", err)
	}

	return nil
}

func (that *GameManager) Restart(game *entity.Game) {
	game.Restart()
}

// SetMode switches the game mode and starts over.
func (that *GameManager) SetMode(game *entity.Game, mode string) error {
	gameMode, err := entity.ParseMode(mode)
	if err != nil {
		return err
	}

	game.Mode = gameMode
	game.Restart()

	return nil
}

func (that *GameManager) agentTurn(game *entity.Game) error {
	return that.model.Read(func(vf agent.ValueFunction) error {
		action, err := agent.Greedy(vf, game.Board)
		if err != nil {
			return err
		}

		that.logger.Debug("agent move", "cell", action)

		return game.MakeTurn(agentMark, action)
	})
}
