package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

const archiveSchema = "tictactoe_transition_v1"

// TransitionRow is one ply of a self-play episode in the archive.
//
// State holds the 9 cells before the move as +1 (X), -1 (O) and 0 (empty).
type TransitionRow struct {
	RunID   string  `parquet:"run_id,dict"`
	Episode int32   `parquet:"episode"`
	Ply     int32   `parquet:"ply"`
	State   []int32 `parquet:"state"`
	Action  int32   `parquet:"action"`
	Player  int32   `parquet:"player"`
	Outcome string  `parquet:"outcome,dict"`
	Epsilon float32 `parquet:"epsilon"`
}

// TrajectoryArchive buffers transitions and writes them as parquet batches.
type TrajectoryArchive struct {
	dir        string
	flushEvery int

	mu       sync.Mutex
	runID    string
	rows     []TransitionRow
	buffered int
	batch    int
}

// NewTrajectoryArchive writes a batch every flushEvery episodes; 0 means only on Flush.
func NewTrajectoryArchive(dir string, flushEvery int) *TrajectoryArchive {
	return &TrajectoryArchive{
		dir:        dir,
		flushEvery: flushEvery,
	}
}

// ObserveEpisode buffers the episode. Rows left over from a previous run are
// written under that run's name first, or dropped when writing them fails.
func (that *TrajectoryArchive) ObserveEpisode(_ context.Context, episode entity.Episode) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	var staleErr error
	if that.runID != episode.RunID {
		if _, err := that.flush(); err != nil {
			staleErr = fmt.Errorf("dropped rows of run %s: %w", that.runID, err)
		}

		that.runID = episode.RunID
		that.rows = nil
		that.buffered = 0
		that.batch = 0
	}

	outcome := episode.Trajectory.Outcome().String()
	for ply, transition := range episode.Trajectory {
		state := make([]int32, entity.BoardSize)
		for i, cell := range transition.State {
			state[i] = int32(cell)
		}

		that.rows = append(that.rows, TransitionRow{
			RunID:   episode.RunID,
			Episode: int32(episode.Number),
			Ply:     int32(ply),
			State:   state,
			Action:  int32(transition.Action),
			Player:  int32(transition.Player),
			Outcome: outcome,
			Epsilon: float32(episode.Epsilon),
		})
	}
	that.buffered++

	if that.flushEvery > 0 && that.buffered >= that.flushEvery {
		if _, err := that.flush(); err != nil {
			return err
		}
	}

	return staleErr
}

// Flush writes buffered rows, returning the written file or "" when nothing was buffered.
func (that *TrajectoryArchive) Flush(_ context.Context) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.flush()
}

func (that *TrajectoryArchive) flush() (string, error) {
	if len(that.rows) == 0 {
		return "", nil
	}

	name := fmt.Sprintf("%s_%05d.parquet", that.runID, that.batch)

	path, err := writeParquetAtomic(that.dir, name, that.rows)
	if err != nil {
		return "", err
	}

	that.rows = nil
	that.buffered = 0
	that.batch++

	return path, nil
}

func writeParquetAtomic(outDir, name string, rows []TransitionRow) (string, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", archiveSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}

	return finalPath, nil
}

// ReadArchive loads every row of one archive file.
func ReadArchive(path string) ([]TransitionRow, error) {
	rows, err := parquet.ReadFile[TransitionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}

	return rows, nil
}
