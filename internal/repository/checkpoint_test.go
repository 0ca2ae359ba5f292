package repository

import (
	"testing"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/neural"
	"github.com/rocketscienceinc/tictactoe-agent/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNetwork() *neural.Network {
	return neural.NewNetwork(neural.Config{
		Inputs:       9,
		Outputs:      9,
		Hidden:       []int{12},
		LearningRate: 0.01,
		Momentum:     0.9,
		Seed:         5,
	})
}

func TestCheckpointRepository_SaveLoad(t *testing.T) {
	t.Run("Load_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		repo := NewCheckpointRepository(st.Storage)

		// Given: a trained network saved under a key
		network := newTestNetwork()
		sample := []float64{1, 0, -1, 0, 1, 0, 0, 0, -1}
		target := []float64{0, 1, 0, 0, 0, 0, 0, 0, 0}
		require.NoError(t, network.Fit(sample, target))

		err := repo.Save(ctx, "tictactoe-model", network)
		require.NoError(t, err)

		// When: Load is called with the same key
		loaded, err := repo.Load(ctx, "tictactoe-model")

		// Then: predictions of the loaded network match bit for bit
		require.NoError(t, err)
		for _, board := range [][]float64{make([]float64, 9), sample, {1, -1, 1, -1, 1, -1, -1, 1, -1}} {
			want, err := network.Predict(board)
			require.NoError(t, err)

			got, err := loaded.Predict(board)
			require.NoError(t, err)

			assert.Equal(t, want, got)
		}
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		repo := NewCheckpointRepository(st.Storage)

		// When: Load is called with a key nobody saved
		network, err := repo.Load(ctx, "missing")

		// Then: an ErrCheckpointNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrCheckpointNotFound)
		assert.Nil(t, network)
	})

	t.Run("Load_Corrupted", func(t *testing.T) {
		ctx, st := suite.New(t)

		repo := NewCheckpointRepository(st.Storage)

		// Given: a stored value that is not a valid network
		require.NoError(t, st.Storage.Set(ctx, checkpointKey("broken"), `{"sizes":[9]}`, 0).Err())

		// When: loading it
		_, err := repo.Load(ctx, "broken")

		// Then: the shape validation rejects it
		require.ErrorIs(t, err, neural.ErrShapeMismatch)
	})
}
