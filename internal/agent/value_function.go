package agent

import (
	"errors"
	"sync"
)

var ErrNotReady = errors.New("value function is not loaded")

// ValueFunction maps an encoded board to one score per cell.
type ValueFunction interface {
	Predict(state []float64) ([]float64, error)
	Fit(state, target []float64) error
}

// Guard serializes access to a value function shared by training and play.
// Writers hold the lock for a whole episode, so readers never observe a partial update.
type Guard struct {
	mu sync.RWMutex
	vf ValueFunction
}

func NewGuard() *Guard {
	return &Guard{}
}

// Set installs the value function once it is created or loaded.
func (that *Guard) Set(vf ValueFunction) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.vf = vf
}

func (that *Guard) Ready() bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.vf != nil
}

// Read runs fn while no writer holds the value function.
func (that *Guard) Read(fn func(vf ValueFunction) error) error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.vf == nil {
		return ErrNotReady
	}

	return fn(that.vf)
}

// Write runs fn with exclusive access.
func (that *Guard) Write(fn func(vf ValueFunction) error) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.vf == nil {
		return ErrNotReady
	}

	return fn(that.vf)
}
