package entity

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGame(t *testing.T) {
	// When: create a new game instance
	game := NewGame(ModePVP)

	// Then: the game starts empty with X to move
	require.NotNil(t, game)
	assert.Equal(t, Board{}, game.Board)
	assert.Equal(t, Player1, game.Turn)
	assert.False(t, game.IsFinished())
}

func TestGame_MakeTurn(t *testing.T) {
	t.Run("MakeTurn", func(t *testing.T) {
		// Given: We have a new game
		game := NewGame(ModePVP)

		// When: X makes a move
		err := game.MakeTurn(Player1, 0)
		require.NoError(t, err)

		// Then: the board holds the move and the turn passes to O
		assert.Equal(t, Player1, game.Board[0])
		assert.Equal(t, Player2, game.Turn)
	})

	t.Run("Error on playing out of turn", func(t *testing.T) {
		// Given: A new game instance
		game := NewGame(ModePVP)

		// When: O tries to move before X
		err := game.MakeTurn(Player2, 1)

		// Then: An ErrNotYourTurn error should be returned and the board stays empty
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Equal(t, Board{}, game.Board)
	})

	t.Run("Error on cell already occupied", func(t *testing.T) {
		game := NewGame(ModePVP)
		require.NoError(t, game.MakeTurn(Player1, 0))

		err := game.MakeTurn(Player2, 0)

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Equal(t, Player2, game.Turn)
	})

	t.Run("Move After Game Finished", func(t *testing.T) {
		// Given: A game where X has already won
		game := NewGame(ModePVP)
		game.Board = Board{x, x, x, e, o, e, e, o, e}
		game.Turn = Player2

		// When: O tries to make a move after the game has finished
		err := game.MakeTurn(Player2, 3)

		// Then: an ErrGameFinished error should be returned
		assert.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestGame_View(t *testing.T) {
	t.Run("Finished game exposes winner and strike", func(t *testing.T) {
		// Given: X is one move from completing the left column
		game := NewGame(ModePVE)
		game.Board = Board{x, o, e, x, o, e, e, e, e}

		// When: X completes the column
		require.NoError(t, game.MakeTurn(Player1, 6))
		view := game.View()

		// Then: the view reports the finished state
		assert.Equal(t, StatusFinished, view.Status)
		assert.Equal(t, "X", view.Winner)
		assert.Empty(t, view.Turn)
		require.NotNil(t, view.Strike)
		assert.Equal(t, "horizontal-1", view.Strike.Strike)
		assert.Equal(t, [BoardSize]string{"X", "O", "", "X", "O", "", "X", "", ""}, view.Board)
	})

	t.Run("Ongoing game", func(t *testing.T) {
		game := NewGame(ModePVP)

		view := game.View()

		assert.Equal(t, StatusOngoing, view.Status)
		assert.Equal(t, "X", view.Turn)
		assert.Nil(t, view.Strike)
	})
}

func TestGame_Restart(t *testing.T) {
	game := NewGame(ModePVP)
	require.NoError(t, game.MakeTurn(Player1, 4))

	game.Restart()

	assert.Equal(t, Board{}, game.Board)
	assert.Equal(t, Player1, game.Turn)
	assert.Equal(t, ModePVP, game.Mode)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("pve")
	require.NoError(t, err)
	assert.Equal(t, ModePVE, mode)

	_, err = ParseMode("online")
	assert.ErrorIs(t, err, apperror.ErrUnknownMode)
}
