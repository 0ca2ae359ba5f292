package entity

// Transition is one ply of a self-play episode.
type Transition struct {
	State   Board   `json:"state"`
	Action  int     `json:"action"`
	Player  Cell    `json:"player"`
	Outcome Outcome `json:"outcome"`
}

// Trajectory is the ordered record of one episode.
type Trajectory []Transition

// Finalize back-fills the outcome on every transition.
func (that Trajectory) Finalize(outcome Outcome) {
	for i := range that {
		that[i].Outcome = outcome
	}
}

// Outcome returns the shared outcome of a finalized trajectory.
func (that Trajectory) Outcome() Outcome {
	if len(that) == 0 {
		return OutcomeNone
	}

	return that[len(that)-1].Outcome
}

// Episode is a finished self-play game as seen by episode observers.
type Episode struct {
	RunID      string
	Number     int
	Epsilon    float64
	Trajectory Trajectory
}
