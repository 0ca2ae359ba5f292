package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/neural"
)

type CheckpointRepository interface {
	Save(ctx context.Context, key string, network *neural.Network) error
	Load(ctx context.Context, key string) (*neural.Network, error)
}

type dbCheckpoint struct {
	client *redis.Client
}

func NewCheckpointRepository(client *redis.Client) CheckpointRepository {
	return &dbCheckpoint{
		client: client,
	}
}

func (that *dbCheckpoint) Save(ctx context.Context, key string, network *neural.Network) error {
	networkJSON, err := json.Marshal(network)
	if err != nil {
		return fmt.Errorf("could not marshal network: %w", err)
	}

	err = that.client.Set(ctx, checkpointKey(key), networkJSON, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}

	return nil
}

func (that *dbCheckpoint) Load(ctx context.Context, key string) (*neural.Network, error) {
	response, err := that.client.Get(ctx, checkpointKey(key)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrCheckpointNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	var network neural.Network
	if err = json.Unmarshal(response, &network); err != nil {
		return nil, fmt.Errorf("failed to unmarshal network: %w", err)
	}

	if err = network.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checkpoint %q: %w", key, err)
	}

	return &network, nil
}

func checkpointKey(key string) string {
	return "checkpoint:" + key
}
