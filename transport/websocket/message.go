package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
)

const (
	actionGameNew          = "game:new"
	actionGameTurn         = "game:turn"
	actionGameRestart      = "game:restart"
	actionTrainingStart    = "training:start"
	actionTrainingStop     = "training:stop"
	actionTrainingProgress = "training:progress"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	Mode string `json:"mode,omitempty"`
	Cell *int   `json:"cell,omitempty"`
}

type ResponsePayload struct {
	Game     *entity.GameView  `json:"game,omitempty"`
	Training *usecase.Progress `json:"training,omitempty"`
	Started  *bool             `json:"started,omitempty"`
	Error    string            `json:"error,omitempty"`
}
