package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"

	sqlitecache "github.com/bnema/perch/internal/adapters/cache/sqlite"
	timelinerender "github.com/bnema/perch/internal/adapters/render/timeline"
	tomlrepo "github.com/bnema/perch/internal/adapters/repo/toml"
	chainstore "github.com/bnema/perch/internal/adapters/secrets/chain"
	"github.com/bnema/perch/internal/application"
	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

const configDirName = ".perch"

type app struct {
	accounts         *application.AccountService
	repo             ports.AccountRepository
	resolver         application.Resolver
	secretStore      ports.SecretStore
	cache            *sqlitecache.Store
	logger           *slog.Logger
	httpClient       *http.Client
	timelineRenderer func([]domain.Post, timelinerender.RenderOptions) (string, error)
	now              func() time.Time
}

func wireApp() (*app, error) {
	logger := newLogger()

	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, configDirName)

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(configDir, "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	cache, err := sqlitecache.Open(filepath.Join(configDir, "perch.db"))
	if err != nil {
		return nil, fmt.Errorf("wire post cache: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	return &app{
		accounts:         application.NewAccountService(repo, secretStore, ports.SystemClock{}, logger),
		repo:             repo,
		resolver:         application.NewClientResolver(secretStore, httpClient),
		secretStore:      secretStore,
		cache:            cache,
		logger:           logger,
		httpClient:       httpClient,
		timelineRenderer: timelinerender.Render,
		now:              time.Now,
	}, nil
}

// newWorker spins up the background worker on its own goroutine and hands
// back the worker plus a stop function that requests shutdown.
func (a *app) newWorker() (*application.Worker, func()) {
	worker := application.NewWorker(a.resolver, a.logger)
	go worker.Run(context.Background())

	stop := func() {
		worker.Commands() <- application.Shutdown{}
	}
	return worker, stop
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("PERCH_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
