package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-agent/internal/agent"
	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/config"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/internal/neural"
)

// ErrTrainingRejected is returned by Run when training is already active or no model is loaded.
var ErrTrainingRejected = errors.New("training already running or model not loaded")

type TrainingState string

const (
	StateIdle     TrainingState = "idle"
	StateTraining TrainingState = "training"
)

// Progress is the observable state of the training loop.
type Progress struct {
	State      TrainingState `json:"state"`
	RunID      string        `json:"run_id,omitempty"`
	Completed  int           `json:"completed"`
	Total      int           `json:"total"`
	Epsilon    float64       `json:"epsilon"`
	XWins      int           `json:"x_wins"`
	OWins      int           `json:"o_wins"`
	Draws      int           `json:"draws"`
	Cancelled  bool          `json:"cancelled,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	ModelReady bool          `json:"model_ready"`
}

type checkpointRepo interface {
	Save(ctx context.Context, key string, network *neural.Network) error
	Load(ctx context.Context, key string) (*neural.Network, error)
}

// EpisodeObserver receives every finished episode after the value function was updated.
type EpisodeObserver interface {
	ObserveEpisode(ctx context.Context, episode entity.Episode) error
}

type flusher interface {
	Flush(ctx context.Context) (string, error)
}

type Trainer struct {
	logger      *slog.Logger
	conf        config.Training
	netConf     neural.Config
	checkpoints checkpointRepo
	observers   []EpisodeObserver
	model       *agent.Guard

	mu       sync.Mutex
	network  *neural.Network
	progress Progress
	cancel   context.CancelFunc
	done     chan struct{}
	rng      *rand.Rand
}

func NewTrainer(logger *slog.Logger, conf config.Training, netConf neural.Config, checkpoints checkpointRepo, observers ...EpisodeObserver) *Trainer {
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Trainer{
		logger:      logger.With("component", "trainer"),
		conf:        conf,
		netConf:     netConf,
		checkpoints: checkpoints,
		observers:   observers,
		model:       agent.NewGuard(),
		progress:    Progress{State: StateIdle, Total: conf.Episodes, Epsilon: conf.Epsilon},
		rng:         rand.New(rand.NewSource(seed)), //nolint: gosec // exploration only
	}
}

// Model is the value function shared with play-time agents.
func (that *Trainer) Model() *agent.Guard {
	return that.model
}

// LoadModel restores the checkpoint or starts from a fresh network when none exists.
func (that *Trainer) LoadModel(ctx context.Context) error {
	log := that.logger.With("method", "LoadModel", "key", that.conf.CheckpointKey)

	network, err := that.checkpoints.Load(ctx, that.conf.CheckpointKey)
	switch {
	case errors.Is(err, apperror.ErrCheckpointNotFound):
		log.Info("no checkpoint found, creating a fresh network")
		network = neural.NewNetwork(that.netConf)
	case err != nil:
		return fmt.Errorf("failed to load checkpoint: %w", err)
	default:
		log.Info("checkpoint loaded", "sizes", network.Sizes)
	}

	that.mu.Lock()
	that.network = network
	that.progress.ModelReady = true
	that.mu.Unlock()

	that.model.Set(network)

	return nil
}

// Start launches training in the background. It is a no-op returning false while
// training is running or before a model is loaded.
func (that *Trainer) Start(ctx context.Context) bool {
	runCtx, ok := that.begin(ctx)
	if !ok {
		return false
	}

	go func() {
		if err := that.run(runCtx); err != nil {
			that.logger.Error("training aborted", "error", err)
		}
	}()

	return true
}

// Run trains in the calling goroutine.
func (that *Trainer) Run(ctx context.Context) error {
	runCtx, ok := that.begin(ctx)
	if !ok {
		return ErrTrainingRejected
	}

	return that.run(runCtx)
}

// Stop cancels a running training; the model keeps the last complete episode.
func (that *Trainer) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.cancel != nil {
		that.progress.Cancelled = true
		that.cancel()
	}
}

// Wait blocks until the current run, if any, has finished.
func (that *Trainer) Wait() {
	that.mu.Lock()
	done := that.done
	that.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (that *Trainer) Progress() Progress {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.progress
}

func (that *Trainer) begin(ctx context.Context) (context.Context, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.progress.State == StateTraining || that.network == nil {
		return nil, false
	}

	runCtx, cancel := context.WithCancel(ctx)
	that.cancel = cancel
	that.done = make(chan struct{})
	that.progress = Progress{
		State:      StateTraining,
		RunID:      fmt.Sprintf("run_%d", time.Now().UnixNano()),
		Total:      that.conf.Episodes,
		Epsilon:    that.conf.Epsilon,
		StartedAt:  time.Now(),
		ModelReady: true,
	}

	return runCtx, true
}

func (that *Trainer) run(ctx context.Context) (err error) {
	runID := that.Progress().RunID
	log := that.logger.With("method", "run", "run", runID)

	defer func() {
		that.mu.Lock()
		that.cancel()
		that.cancel = nil
		that.progress.State = StateIdle
		that.progress.FinishedAt = time.Now()
		if err != nil {
			that.progress.LastError = err.Error()
		}
		close(that.done)
		that.mu.Unlock()
	}()

	log.Info("training started", "episodes", that.conf.Episodes, "epsilon", that.conf.Epsilon)

	epsilon := that.conf.Epsilon
	for g := 0; g < that.conf.Episodes; g++ {
		if ctx.Err() != nil {
			log.Info("training cancelled", "completed", g)
			break
		}

		trajectory, episodeErr := that.episode(epsilon)
		if episodeErr != nil {
			return fmt.Errorf("episode %d: %w", g+1, episodeErr)
		}

		played := epsilon
		epsilon = math.Max(that.conf.EpsilonMin, epsilon*that.conf.EpsilonDecay)
		that.record(g+1, epsilon, trajectory)
		that.notify(ctx, entity.Episode{RunID: runID, Number: g + 1, Epsilon: played, Trajectory: trajectory})

		if that.conf.CheckpointEvery > 0 && (g+1)%that.conf.CheckpointEvery == 0 && g+1 < that.conf.Episodes {
			if saveErr := that.save(ctx); saveErr != nil {
				log.Error("failed to save checkpoint", "episode", g+1, "error", saveErr)
			}
		}

		runtime.Gosched()
	}

	that.flush(ctx)

	// the run context may be cancelled already, the final checkpoint must still land
	if err = that.save(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	progress := that.Progress()
	log.Info("training finished",
		"completed", progress.Completed, "x_wins", progress.XWins, "o_wins", progress.OWins, "draws", progress.Draws)

	return nil
}

// episode simulates and learns while holding the model exclusively.
func (that *Trainer) episode(epsilon float64) (entity.Trajectory, error) {
	var trajectory entity.Trajectory

	err := that.model.Write(func(vf agent.ValueFunction) error {
		var err error

		trajectory, err = agent.PlayEpisode(vf, epsilon, that.rng)
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}

		if err = agent.Learn(vf, trajectory, that.conf.Gamma, that.conf.Alpha); err != nil {
			return fmt.Errorf("learn: %w", err)
		}

		return nil
	})

	return trajectory, err
}

func (that *Trainer) record(completed int, epsilon float64, trajectory entity.Trajectory) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.progress.Completed = completed
	that.progress.Epsilon = epsilon

	switch trajectory.Outcome() {
	case entity.OutcomePlayer1:
		that.progress.XWins++
	case entity.OutcomePlayer2:
		that.progress.OWins++
	case entity.OutcomeDraw:
		that.progress.Draws++
	}
}

func (that *Trainer) notify(ctx context.Context, episode entity.Episode) {
	ctx = context.WithoutCancel(ctx)

	for _, observer := range that.observers {
		if err := observer.ObserveEpisode(ctx, episode); err != nil {
			that.logger.Error("episode observer failed", "episode", episode.Number, "error", err)
		}
	}
}

func (that *Trainer) flush(ctx context.Context) {
	for _, observer := range that.observers {
		f, ok := observer.(flusher)
		if !ok {
			continue
		}

		path, err := f.Flush(context.WithoutCancel(ctx))
		if err != nil {
			that.logger.Error("failed to flush observer", "error", err)
			continue
		}

		if path != "" {
			that.logger.Info("trajectory archive written", "path", path)
		}
	}
}

func (that *Trainer) save(ctx context.Context) error {
	that.mu.Lock()
	network := that.network
	that.mu.Unlock()

	return that.model.Read(func(agent.ValueFunction) error {
		return that.checkpoints.Save(ctx, that.conf.CheckpointKey, network)
	})
}
