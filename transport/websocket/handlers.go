package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/tictactoe-agent/internal/agent"
	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
)

// handleNewGame starts a game, or switches the mode of the current one.
func (that *Server) handleNewGame(_ context.Context, session *session, msg *Message) error {
	log := that.logger.With("method", "handleNewGame")

	var payloadReq RequestPayload
	if err := unmarshalPayload(msg, &payloadReq); err != nil {
		return that.sendError(session, msg.Action, "malformed payload")
	}

	if session.game == nil {
		game, err := that.games.NewGame(payloadReq.Mode)
		if err != nil {
			return that.sendError(session, msg.Action, err.Error())
		}

		session.game = game
	} else if err := that.games.SetMode(session.game, payloadReq.Mode); err != nil {
		return that.sendError(session, msg.Action, err.Error())
	}

	log.Info("game started", "mode", session.game.Mode)

	return that.sendGame(session, msg.Action)
}

func (that *Server) handleGameTurn(_ context.Context, session *session, msg *Message) error {
	log := that.logger.With("method", "handleGameTurn")

	var payloadReq RequestPayload
	if err := unmarshalPayload(msg, &payloadReq); err != nil {
		return that.sendError(session, msg.Action, "malformed payload")
	}

	if payloadReq.Cell == nil {
		return that.sendError(session, msg.Action, "cell is required")
	}

	if session.game == nil {
		return that.sendError(session, msg.Action, "game is not started")
	}

	err := that.games.MakeTurn(session.game, *payloadReq.Cell)
	switch {
	case errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrNotYourTurn):
		return that.sendError(session, msg.Action, err.Error())
	case errors.Is(err, agent.ErrNotReady):
		return that.sendError(session, msg.Action, "agent is not ready")
	case err != nil:
		log.Error("failed to make turn", "error", err)
		return that.sendError(session, msg.Action, "failed to make turn")
	}

	return that.sendGame(session, msg.Action)
}

func (that *Server) handleRestart(_ context.Context, session *session, msg *Message) error {
	if session.game == nil {
		return that.sendError(session, msg.Action, "game is not started")
	}

	that.games.Restart(session.game)

	return that.sendGame(session, msg.Action)
}

func (that *Server) handleTrainingStart(ctx context.Context, session *session, msg *Message) error {
	started := that.trainer.Start(ctx)
	if started {
		that.logger.Info("training started over websocket")
	}

	progress := that.trainer.Progress()

	return that.sendMessage(session, msg.Action, ResponsePayload{Training: &progress, Started: &started})
}

func (that *Server) handleTrainingStop(ctx context.Context, session *session, msg *Message) error {
	that.trainer.Stop()

	return that.handleTrainingProgress(ctx, session, msg)
}

func (that *Server) handleTrainingProgress(_ context.Context, session *session, msg *Message) error {
	progress := that.trainer.Progress()

	return that.sendMessage(session, msg.Action, ResponsePayload{Training: &progress})
}

func (that *Server) sendGame(session *session, action string) error {
	view := session.game.View()

	return that.sendMessage(session, action, ResponsePayload{Game: &view})
}

func unmarshalPayload(msg *Message, payload *RequestPayload) error {
	if len(msg.Payload) == 0 {
		return nil
	}

	return json.Unmarshal(msg.Payload, payload)
}
