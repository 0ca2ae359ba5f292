package agent

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

// SelectAction picks a legal cell: a uniformly random one with probability epsilon,
// otherwise the best scored one.
func SelectAction(vf ValueFunction, board entity.Board, epsilon float64, rng *rand.Rand) (int, error) {
	legal := entity.LegalMoves(board)
	if len(legal) == 0 {
		return 0, apperror.ErrInvalidState
	}

	if epsilon > 0 && rng.Float64() < epsilon {
		return legal[rng.Intn(len(legal))], nil
	}

	return greedy(vf, board, legal)
}

// Greedy is SelectAction with epsilon 0, used at play time.
func Greedy(vf ValueFunction, board entity.Board) (int, error) {
	legal := entity.LegalMoves(board)
	if len(legal) == 0 {
		return 0, apperror.ErrInvalidState
	}

	return greedy(vf, board, legal)
}

func greedy(vf ValueFunction, board entity.Board, legal []int) (int, error) {
	values, err := predict(vf, board)
	if err != nil {
		return 0, err
	}

	masked := mask(values, legal)

	best := legal[0]
	for i, v := range masked {
		// strict comparison keeps the lowest index on ties
		if v > masked[best] {
			best = i
		}
	}

	return best, nil
}

// maxLegal returns the highest score among legal cells.
func maxLegal(vf ValueFunction, board entity.Board) (float64, error) {
	legal := entity.LegalMoves(board)
	if len(legal) == 0 {
		return 0, apperror.ErrInvalidState
	}

	values, err := predict(vf, board)
	if err != nil {
		return 0, err
	}

	best := math.Inf(-1)
	for _, v := range mask(values, legal) {
		best = math.Max(best, v)
	}

	return best, nil
}

func predict(vf ValueFunction, board entity.Board) ([]float64, error) {
	values, err := vf.Predict(board.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %w", apperror.ErrNumericOp, err)
	}

	if len(values) != entity.BoardSize {
		return nil, fmt.Errorf("%w: predict returned %d values", apperror.ErrNumericOp, len(values))
	}

	return values, nil
}

// mask returns a copy of values with every illegal cell set to -Inf.
func mask(values []float64, legal []int) []float64 {
	masked := make([]float64, len(values))
	for i := range masked {
		masked[i] = math.Inf(-1)
	}

	for _, i := range legal {
		masked[i] = values[i]
	}

	return masked
}
