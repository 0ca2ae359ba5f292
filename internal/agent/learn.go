package agent

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

// Learn applies one fit per transition, newest first. Every non-terminal target
// bootstraps from the following state, which has already been updated in this pass.
func Learn(vf ValueFunction, trajectory entity.Trajectory, gamma, alpha float64) error {
	last := len(trajectory) - 1

	for k := last; k >= 0; k-- {
		transition := trajectory[k]
		reward := transition.Outcome.Reward(transition.Player)

		if k != last {
			next, err := maxLegal(vf, trajectory[k+1].State)
			if err != nil {
				return fmt.Errorf("bootstrap ply %d: %w", k, err)
			}
			reward += gamma * next
		}

		if transition.Action < 0 || transition.Action >= entity.BoardSize {
			return fmt.Errorf("%w: ply %d has action %d", apperror.ErrInvalidState, k, transition.Action)
		}

		current, err := predict(vf, transition.State)
		if err != nil {
			return fmt.Errorf("ply %d: %w", k, err)
		}

		target := make([]float64, len(current))
		copy(target, current)
		target[transition.Action] = (1-alpha)*current[transition.Action] + alpha*reward

		if err = vf.Fit(transition.State.Encode(), target); err != nil {
			return fmt.Errorf("%w: fit ply %d: %w", apperror.ErrNumericOp, k, err)
		}
	}

	return nil
}
