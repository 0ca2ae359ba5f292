package agent

import (
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

// PlayEpisode plays one self-play game from the empty board, both sides using the same policy.
func PlayEpisode(vf ValueFunction, epsilon float64, rng *rand.Rand) (entity.Trajectory, error) {
	var board entity.Board
	player := entity.Player1
	trajectory := make(entity.Trajectory, 0, entity.BoardSize)

	for len(entity.LegalMoves(board)) > 0 {
		state := board

		action, err := SelectAction(vf, board, epsilon, rng)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", len(trajectory), err)
		}

		board, err = board.Play(action, player)
		if err != nil {
			return nil, fmt.Errorf("ply %d: %w", len(trajectory), err)
		}

		trajectory = append(trajectory, entity.Transition{
			State:  state,
			Action: action,
			Player: player,
		})

		if outcome := entity.Winner(board); outcome.IsTerminal() {
			trajectory.Finalize(outcome)
			break
		}

		player = player.Opponent()
	}

	return trajectory, nil
}
