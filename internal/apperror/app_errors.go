package apperror

import "errors"

var (
	ErrGameFinished = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrUnknownMode  = errors.New("unknown game mode")

	// ErrInvalidState is returned when an action is requested for a board without legal moves.
	ErrInvalidState = errors.New("no legal move exists")

	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrNumericOp          = errors.New("numeric operation failed")
)
