package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-agent/internal/config"
	"github.com/rocketscienceinc/tictactoe-agent/internal/entity"
	"github.com/rocketscienceinc/tictactoe-agent/internal/neural"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository/storage/sqlite"
	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-agent/transport/rest"
	"github.com/rocketscienceinc/tictactoe-agent/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// services is everything built from the config that both run modes share.
type services struct {
	trainer  *usecase.Trainer
	episodes repository.EpisodeRepository
	closers  []func() error
}

func (that *services) close(log *slog.Logger) {
	for i := len(that.closers) - 1; i >= 0; i-- {
		if err := that.closers[i](); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}
}

// RunApp - runs the application: loads the model and serves the game and training endpoints.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signalContext(log)
	defer cancel()

	svc, err := build(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer svc.close(log)

	gameManager := usecase.NewGameManager(logger, svc.trainer.Model())

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.New(logger, svc.trainer).Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameManager, svc.trainer)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	// a running training still persists the model on shutdown
	defer svc.trainer.Wait()
	defer svc.trainer.Stop()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// RunSelfPlay trains headless in the calling goroutine and returns when training ends.
func RunSelfPlay(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "selfPlay")

	ctx, cancel := signalContext(log)
	defer cancel()

	svc, err := build(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer svc.close(log)

	if err = svc.trainer.Run(ctx); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	progress := svc.trainer.Progress()
	log.Info("self-play finished",
		"completed", progress.Completed, "x_wins", progress.XWins, "o_wins", progress.OWins, "draws", progress.Draws)

	if svc.episodes != nil {
		stats, statsErr := svc.episodes.RunStats(context.WithoutCancel(ctx), progress.RunID)
		if statsErr != nil {
			return fmt.Errorf("failed to read journal: %w", statsErr)
		}

		log.Info("journal stats", "run", progress.RunID, "episodes", stats.Episodes,
			"x_wins", stats.XWins, "o_wins", stats.OWins, "draws", stats.Draws)
	}

	return nil
}

func signalContext(log *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()

	return ctx, cancel
}

// build connects the storages, wires the observers and loads the model.
func build(ctx context.Context, logger *slog.Logger, conf *config.Config) (*services, error) {
	log := logger.With("component", "app")
	svc := &services{}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}
	svc.closers = append(svc.closers, redisStorage.Close)

	var observers []usecase.EpisodeObserver

	if conf.SQLiteStoragePath != "" {
		sqliteStorage, sqliteErr := sqlite.New(conf.SQLiteStoragePath)
		if sqliteErr != nil {
			svc.close(log)
			return nil, fmt.Errorf("could not open sqlite storage: %w", sqliteErr)
		}
		svc.closers = append(svc.closers, sqliteStorage.Close)

		if sqliteErr = sqliteStorage.Init(ctx); sqliteErr != nil {
			svc.close(log)
			return nil, fmt.Errorf("could not init sqlite storage: %w", sqliteErr)
		}

		svc.episodes = repository.NewEpisodeRepository(sqliteStorage.Connection)
		observers = append(observers, svc.episodes)
		log.Info("episode journal enabled", "path", conf.SQLiteStoragePath)
	}

	if conf.Archive.Dir != "" {
		observers = append(observers, repository.NewTrajectoryArchive(conf.Archive.Dir, conf.Archive.FlushEvery))
		log.Info("trajectory archive enabled", "dir", conf.Archive.Dir)
	}

	checkpoints := repository.NewCheckpointRepository(redisStorage.Connection)
	svc.trainer = usecase.NewTrainer(logger, conf.Training, networkConfig(conf.Network), checkpoints, observers...)

	if err = svc.trainer.LoadModel(ctx); err != nil {
		svc.close(log)
		return nil, fmt.Errorf("could not load model: %w", err)
	}

	return svc, nil
}

func networkConfig(conf config.Network) neural.Config {
	return neural.Config{
		Inputs:       entity.BoardSize,
		Outputs:      entity.BoardSize,
		Hidden:       conf.Hidden,
		LearningRate: conf.LearningRate,
		Momentum:     conf.Momentum,
		Seed:         conf.Seed,
	}
}
