package config

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string   `yaml:"log-level" env-default:"info"`
	HTTPPort          string   `yaml:"http-port" env-default:"9090"`
	SocketPort        string   `yaml:"socket-port" env-default:"9091"`
	Redis             Redis    `yaml:"redis"`
	SQLiteStoragePath string   `yaml:"sqlite-storage-path" env-default:""`
	Archive           Archive  `yaml:"archive"`
	Training          Training `yaml:"training"`
	Network           Network  `yaml:"network"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// Archive configures the parquet trajectory archive. An empty Dir disables it.
type Archive struct {
	Dir        string `yaml:"dir" env-default:""`
	FlushEvery int    `yaml:"flush-every" env-default:"1000"`
}

type Training struct {
	Episodes     int     `yaml:"episodes" env-default:"30000"`
	Epsilon      float64 `yaml:"epsilon" env-default:"0.2"`
	EpsilonDecay float64 `yaml:"epsilon-decay" env-default:"0.995"`
	// EpsilonMin equal to Epsilon keeps exploration constant.
	EpsilonMin      float64 `yaml:"epsilon-min" env-default:"0.2"`
	Gamma           float64 `yaml:"gamma" env-default:"0.9"`
	Alpha           float64 `yaml:"alpha" env-default:"0.1"`
	CheckpointEvery int     `yaml:"checkpoint-every" env-default:"0"`
	CheckpointKey   string  `yaml:"checkpoint-key" env-default:"tictactoe-model"`
	Seed            int64   `yaml:"seed" env-default:"0"`
}

type Network struct {
	Hidden       []int   `yaml:"hidden" env-default:"64,64"`
	LearningRate float64 `yaml:"learning-rate" env-default:"0.005"`
	Momentum     float64 `yaml:"momentum" env-default:"0.9"`
	Seed         int64   `yaml:"seed" env-default:"1"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Training.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

var ErrEmptyCheckpointKey = errors.New("checkpoint-key must not be empty")

func (that *Training) Validate() error {
	switch {
	case that.Episodes < 0:
		return fmt.Errorf("episodes must not be negative, got %d", that.Episodes)
	case !unit(that.Epsilon):
		return fmt.Errorf("epsilon must be in [0,1], got %v", that.Epsilon)
	case !unit(that.EpsilonMin):
		return fmt.Errorf("epsilon-min must be in [0,1], got %v", that.EpsilonMin)
	case !unit(that.EpsilonDecay):
		return fmt.Errorf("epsilon-decay must be in [0,1], got %v", that.EpsilonDecay)
	case !unit(that.Gamma):
		return fmt.Errorf("gamma must be in [0,1], got %v", that.Gamma)
	case !unit(that.Alpha):
		return fmt.Errorf("alpha must be in [0,1], got %v", that.Alpha)
	case that.CheckpointKey == "":
		return ErrEmptyCheckpointKey
	}

	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
