package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
)

const BoardSize = 9

// Cell is the numeric encoding of a board square.
type Cell int8

const (
	Empty   Cell = 0
	Player1 Cell = 1
	Player2 Cell = -1
)

// Opponent returns the other player. Empty has no opponent.
func (that Cell) Opponent() Cell {
	return -that
}

// Mark returns the display mark of the cell.
func (that Cell) Mark() string {
	switch that {
	case Player1:
		return "X"
	case Player2:
		return "O"
	default:
		return ""
	}
}

// Outcome is the result of a board: still running, a player won or a draw.
type Outcome int8

const (
	OutcomeNone Outcome = iota
	OutcomePlayer1
	OutcomePlayer2
	OutcomeDraw
)

func (that Outcome) String() string {
	switch that {
	case OutcomePlayer1:
		return "X"
	case OutcomePlayer2:
		return "O"
	case OutcomeDraw:
		return "draw"
	default:
		return ""
	}
}

// IsTerminal reports whether the game is over.
func (that Outcome) IsTerminal() bool {
	return that != OutcomeNone
}

// Reward returns the terminal reward of the outcome seen by player.
func (that Outcome) Reward(player Cell) float64 {
	switch that {
	case OutcomeDraw, OutcomeNone:
		return 0
	case OutcomeFor(player):
		return 1
	default:
		return -1
	}
}

// OutcomeFor converts a player cell into its winning outcome.
func OutcomeFor(player Cell) Outcome {
	switch player {
	case Player1:
		return OutcomePlayer1
	case Player2:
		return OutcomePlayer2
	default:
		return OutcomeNone
	}
}

// Combination is a winning line together with the identifier the view uses to draw the strike.
type Combination struct {
	Line   [3]int `json:"line"`
	Strike string `json:"strike"`
}

// WinCombos is scanned in order; the first completed line decides the winner.
var WinCombos = [8]Combination{
	{Line: [3]int{0, 1, 2}, Strike: "vertical-1"},
	{Line: [3]int{3, 4, 5}, Strike: "vertical-2"},
	{Line: [3]int{6, 7, 8}, Strike: "vertical-3"},
	{Line: [3]int{0, 3, 6}, Strike: "horizontal-1"},
	{Line: [3]int{1, 4, 7}, Strike: "horizontal-2"},
	{Line: [3]int{2, 5, 8}, Strike: "horizontal-3"},
	{Line: [3]int{0, 4, 8}, Strike: "diagonal-1"},
	{Line: [3]int{2, 4, 6}, Strike: "diagonal-2"},
}

// Board is a value type, so assignment takes a snapshot.
type Board [BoardSize]Cell

// Play returns a copy of the board with cell written at index.
func (that Board) Play(index int, cell Cell) (Board, error) {
	if index < 0 || index >= BoardSize {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if that[index] != Empty {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, index)
	}

	that[index] = cell

	return that, nil
}

// Filled returns the number of non-empty cells, which equals the ply count.
func (that Board) Filled() int {
	filled := 0
	for _, cell := range that {
		if cell != Empty {
			filled++
		}
	}

	return filled
}

// Encode returns the board as the 9-number input of a value function.
func (that Board) Encode() []float64 {
	encoded := make([]float64, BoardSize)
	for i, cell := range that {
		encoded[i] = float64(cell)
	}

	return encoded
}

// LegalMoves returns the empty cell indices in ascending order.
func LegalMoves(board Board) []int {
	moves := make([]int, 0, BoardSize)
	for i, cell := range board {
		if cell == Empty {
			moves = append(moves, i)
		}
	}

	return moves
}

// Winner determines the outcome from board contents alone.
func Winner(board Board) Outcome {
	outcome, _, _ := evaluate(board)
	return outcome
}

// WinningCombination returns the completed line, if any.
func WinningCombination(board Board) (Combination, bool) {
	_, combo, ok := evaluate(board)
	return combo, ok
}

func evaluate(board Board) (Outcome, Combination, bool) {
	for _, combo := range WinCombos {
		a, b, c := board[combo.Line[0]], board[combo.Line[1]], board[combo.Line[2]]
		if a != Empty && a == b && b == c {
			return OutcomeFor(a), combo, true
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range board {
		if cell == Empty {
			return OutcomeNone, Combination{}, false
		}
	}

	return OutcomeDraw, Combination{}, false
}
