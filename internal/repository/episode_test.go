package repository

import (
	"context"
	"testing"

	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEpisode(runID string, number int, outcome entity.Outcome) entity.Episode {
	trajectory := entity.Trajectory{
		{State: entity.Board{}, Action: 4, Player: entity.Player1},
		{State: entity.Board{4: entity.Player1}, Action: 0, Player: entity.Player2},
	}
	trajectory.Finalize(outcome)

	return entity.Episode{RunID: runID, Number: number, Epsilon: 0.2, Trajectory: trajectory}
}

func TestEpisodeRepository_ObserveEpisode(t *testing.T) {
	ctx := context.Background()
	st := suite.NewSQLite(t)
	repo := NewEpisodeRepository(st.Connection)

	// Given: an episode with two transitions
	episode := testEpisode("run-1", 1, entity.OutcomeDraw)

	// When: journaling it
	err := repo.ObserveEpisode(ctx, episode)
	require.NoError(t, err)

	// Then: the episode row and its transitions are stored
	var outcome string
	var plies int
	err = st.Connection.QueryRowContext(ctx, `SELECT outcome, plies FROM episodes WHERE run_id = ?`, "run-1").Scan(&outcome, &plies)
	require.NoError(t, err)
	assert.Equal(t, "draw", outcome)
	assert.Equal(t, 2, plies)

	var states []string
	rows, err := st.Connection.QueryContext(ctx, `SELECT state FROM transitions ORDER BY ply`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var state string
		require.NoError(t, rows.Scan(&state))
		states = append(states, state)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{".........", "....X...."}, states)
}

func TestEpisodeRepository_RunStats(t *testing.T) {
	ctx := context.Background()
	repo := NewEpisodeRepository(suite.NewSQLite(t).Connection)

	t.Run("Counts outcomes per run", func(t *testing.T) {
		// Given: episodes across two runs
		require.NoError(t, repo.ObserveEpisode(ctx, testEpisode("run-a", 1, entity.OutcomePlayer1)))
		require.NoError(t, repo.ObserveEpisode(ctx, testEpisode("run-a", 2, entity.OutcomePlayer1)))
		require.NoError(t, repo.ObserveEpisode(ctx, testEpisode("run-a", 3, entity.OutcomePlayer2)))
		require.NoError(t, repo.ObserveEpisode(ctx, testEpisode("run-a", 4, entity.OutcomeDraw)))
		require.NoError(t, repo.ObserveEpisode(ctx, testEpisode("run-b", 1, entity.OutcomeDraw)))

		// When: reading stats of the first run
		stats, err := repo.RunStats(ctx, "run-a")

		// Then: only its episodes are counted
		require.NoError(t, err)
		assert.Equal(t, OutcomeStats{Episodes: 4, XWins: 2, OWins: 1, Draws: 1}, stats)
	})

	t.Run("Unknown run", func(t *testing.T) {
		stats, err := repo.RunStats(ctx, "nope")

		require.NoError(t, err)
		assert.Equal(t, OutcomeStats{}, stats)
	})
}
