package agent

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

var errBrokenModel = errors.New("broken model")

// tableFunction keeps one value vector per board and stores fit targets verbatim,
// logging every call so tests can check ordering.
type tableFunction struct {
	values   map[string][]float64
	fallback []float64
	calls    []string
	fits     [][]float64

	predictErr error
	fitErr     error
}

func newTableFunction(fallback []float64) *tableFunction {
	if fallback == nil {
		fallback = make([]float64, entity.BoardSize)
	}

	return &tableFunction{
		values:   make(map[string][]float64),
		fallback: fallback,
	}
}

func key(state []float64) string {
	return fmt.Sprint(state)
}

func (that *tableFunction) Predict(state []float64) ([]float64, error) {
	that.calls = append(that.calls, "predict "+key(state))

	if that.predictErr != nil {
		return nil, that.predictErr
	}

	values, ok := that.values[key(state)]
	if !ok {
		values = that.fallback
	}

	out := make([]float64, len(values))
	copy(out, values)

	return out, nil
}

func (that *tableFunction) Fit(state, target []float64) error {
	that.calls = append(that.calls, "fit "+key(state))

	if that.fitErr != nil {
		return that.fitErr
	}

	stored := make([]float64, len(target))
	copy(stored, target)
	that.values[key(state)] = stored
	that.fits = append(that.fits, stored)

	return nil
}
