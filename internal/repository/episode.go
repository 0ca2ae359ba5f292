package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
)

// OutcomeStats counts episode results of one training run.
type OutcomeStats struct {
	Episodes int `json:"episodes"`
	XWins    int `json:"x_wins"`
	OWins    int `json:"o_wins"`
	Draws    int `json:"draws"`
}

type EpisodeRepository interface {
	ObserveEpisode(ctx context.Context, episode entity.Episode) error
	RunStats(ctx context.Context, runID string) (OutcomeStats, error)
}

type episodeRepository struct {
	conn *sql.DB
}

func NewEpisodeRepository(conn *sql.DB) EpisodeRepository {
	return &episodeRepository{
		conn: conn,
	}
}

// ObserveEpisode journals an episode and its transitions in one transaction.
func (that *episodeRepository) ObserveEpisode(ctx context.Context, episode entity.Episode) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint: errcheck // no-op after commit

	result, err := tx.ExecContext(ctx,
		`INSERT INTO episodes (run_id, number, epsilon, outcome, plies) VALUES (?, ?, ?, ?, ?)`,
		episode.RunID, episode.Number, episode.Epsilon, episode.Trajectory.Outcome().String(), len(episode.Trajectory),
	)
	if err != nil {
		return fmt.Errorf("can't save episode: %w", err)
	}

	episodeID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("can't get episode id: %w", err)
	}

	for ply, transition := range episode.Trajectory {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transitions (episode_id, ply, state, action, player) VALUES (?, ?, ?, ?, ?)`,
			episodeID, ply, encodeState(transition.State), transition.Action, int(transition.Player),
		)
		if err != nil {
			return fmt.Errorf("can't save transition %d: %w", ply, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit episode: %w", err)
	}

	return nil
}

func (that *episodeRepository) RunStats(ctx context.Context, runID string) (OutcomeStats, error) {
	query := `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
	FROM episodes
	WHERE run_id = ?`

	var stats OutcomeStats

	err := that.conn.QueryRowContext(ctx, query,
		entity.OutcomePlayer1.String(), entity.OutcomePlayer2.String(), entity.OutcomeDraw.String(), runID,
	).Scan(&stats.Episodes, &stats.XWins, &stats.OWins, &stats.Draws)
	if err != nil {
		return OutcomeStats{}, fmt.Errorf("can't read run stats: %w", err)
	}

	return stats, nil
}

// encodeState renders a board as "X.O......" for readable queries.
func encodeState(board entity.Board) string {
	var sb strings.Builder
	for _, cell := range board {
		if mark := cell.Mark(); mark != "" {
			sb.WriteString(mark)
			continue
		}
		sb.WriteByte('.')
	}

	return sb.String()
}
