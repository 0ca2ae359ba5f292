package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
)

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
)

type Mode string

const (
	ModePVP Mode = "pvp"
	ModePVE Mode = "pve"
)

// ParseMode validates a mode received from a client.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModePVP, ModePVE:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownMode, raw)
	}
}

// Game is an interactive match. The winner is always derived from the board.
type Game struct {
	Board Board
	Turn  Cell
	Mode  Mode
}

func NewGame(mode Mode) *Game {
	return &Game{
		Turn: Player1,
		Mode: mode,
	}
}

func (that *Game) Outcome() Outcome {
	return Winner(that.Board)
}

func (that *Game) IsFinished() bool {
	return that.Outcome().IsTerminal()
}

func (that *Game) IsWithAgent() bool {
	return that.Mode == ModePVE
}

// MakeTurn writes the current player's mark into cell and passes the turn.
func (that *Game) MakeTurn(player Cell, cell int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.Turn != player {
		return apperror.ErrNotYourTurn
	}

	board, err := that.Board.Play(cell, player)
	if err != nil {
		return err
	}

	that.Board = board
	if !that.IsFinished() {
		that.Turn = player.Opponent()
	}

	return nil
}

func (that *Game) Restart() {
	that.Board = Board{}
	that.Turn = Player1
}

// GameView is the state the board view renders.
type GameView struct {
	Board  [BoardSize]string `json:"board"`
	Turn   string            `json:"player_turn"`
	Mode   Mode              `json:"mode"`
	Status string            `json:"status"`
	Winner string            `json:"winner,omitempty"`
	Strike *Combination      `json:"combination,omitempty"`
}

func (that *Game) View() GameView {
	view := GameView{
		Turn:   that.Turn.Mark(),
		Mode:   that.Mode,
		Status: StatusOngoing,
	}

	for i, cell := range that.Board {
		view.Board[i] = cell.Mark()
	}

	if outcome := that.Outcome(); outcome.IsTerminal() {
		view.Status = StatusFinished
		view.Winner = outcome.String()
		view.Turn = ""
	}

	if combo, ok := WinningCombination(that.Board); ok {
		view.Strike = &combo
	}

	return view
}
