package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/latamteks-cmyk/SmartEdify-app-sub003/auth"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode"
	authcodefake "github.com/latamteks-cmyk/SmartEdify-app-sub003/authcode/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/clients"
	clientfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/clients/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop"
	dpopfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/dpop/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/internal/config"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation"
	revocationfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/revocation/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/server"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions"
	sessionfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/sessions/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/storage/postgres"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys"
	keyfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/token/keys/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh"
	refreshfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/token/refresh/repofake"
	"github.com/latamteks-cmyk/SmartEdify-app-sub003/users"
	userfake "github.com/latamteks-cmyk/SmartEdify-app-sub003/users/repofake"
)

// repos bundles every storage dependency so the Postgres and in-memory
// wirings are interchangeable.
type repos struct {
	codes      authcode.Repo
	replay     dpop.ReplayGuard
	refresh    refresh.Repo
	sessions   sessions.Repo
	keys       keys.Repo
	revocation revocation.Repo
	clients    clients.Repo
	users      users.Repo
}

func main() {
	cfg := config.New()
	displayAppname(cfg.GetAppName())

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

func run(cfg config.Config, logger zerolog.Logger) error {
	storage, err := buildRepos(cfg, logger)
	if err != nil {
		return err
	}

	registry := revocation.NewRegistry(storage.revocation)
	sessionService := sessions.NewService(storage.sessions, registry,
		sessions.WithSessionTTL(cfg.GetDefaultSessionExpiry()),
		sessions.WithLogger(logger))
	keyManager := keys.NewManager(storage.keys,
		keys.WithKeyLifetime(cfg.GetSigningKeyLifetime()),
		keys.WithLogger(logger))
	issuer := token.NewIssuer(keyManager, cfg.GetBaseURL(),
		token.WithTokenExpiry(cfg.GetDefaultAccessTokenExpiry(), cfg.GetDefaultRefreshTokenExpiry()),
		token.WithAudience(cfg.GetAudience()))
	refreshManager := refresh.NewManager(storage.refresh, issuer,
		refresh.WithLogger(logger))
	codes := authcode.NewStore(storage.codes,
		authcode.WithTTL(cfg.GetAuthCodeTimeout()),
		authcode.WithCodeLength(cfg.GetCodeGenerationLength()))
	validator := dpop.NewValidator(storage.replay,
		dpop.WithFreshnessWindow(cfg.GetProofMaxAge(), cfg.GetClockSkew()))

	authService := auth.NewService(storage.clients, storage.users, codes,
		sessionService, refreshManager, issuer, validator, registry,
		auth.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pruneLoop(ctx, cfg, logger, storage.replay, codes)

	httpServer := &http.Server{
		Addr:    cfg.GetPort(),
		Handler: server.New(cfg, authService, keyManager, server.WithLogger(logger)),
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case <-stop:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildRepos(cfg config.Config, logger zerolog.Logger) (*repos, error) {
	dsn := cfg.GetPostgresDSN()
	if dsn == "" {
		logger.Warn().Msg("POSTGRES_DSN not set, using in-memory storage (single instance only)")
		clientRepo := clientfake.NewFakeClientRepo()
		userRepo := userfake.NewFakeUserRepo()
		if cfg.GetEnv() == "DEV" {
			if err := seedDev(clientRepo, userRepo, logger); err != nil {
				return nil, err
			}
		}
		return &repos{
			codes:      authcodefake.NewFakeCodeRepo(),
			replay:     dpopfake.NewFakeReplayGuard(),
			refresh:    refreshfake.NewFakeRefreshTokenRepo(),
			sessions:   sessionfake.NewFakeSessionRepo(),
			keys:       keyfake.NewFakeKeyRepo(),
			revocation: revocationfake.NewFakeRevocationRepo(),
			clients:    clientRepo,
			users:      userRepo,
		}, nil
	}

	db, err := postgres.Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		return nil, err
	}
	return &repos{
		codes:      postgres.NewCodeRepo(db),
		replay:     postgres.NewReplayRepo(db),
		refresh:    postgres.NewRefreshTokenRepo(db),
		sessions:   postgres.NewSessionRepo(db),
		keys:       postgres.NewKeyRepo(db),
		revocation: postgres.NewRevocationRepo(db),
		clients:    postgres.NewClientRepo(db),
		users:      postgres.NewUserRepo(db),
	}, nil
}

// seedDev registers a development client and user so the in-memory server is
// usable without provisioning.
func seedDev(clientRepo *clientfake.FakeClientRepo, userRepo *userfake.FakeUserRepo, logger zerolog.Logger) error {
	clientRepo.Add(&clients.Client{
		ID:           "dev-client",
		Type:         clients.TypePublic,
		TenantID:     "dev",
		RedirectURIs: []string{"http://localhost:3000/callback"},
		Scopes:       []string{"openid", "profile", "email"},
	})

	password := config.GetEnv("DEV_USER_PASSWORD", "password")
	hash, err := users.HashPassword(password)
	if err != nil {
		return err
	}
	userRepo.Add(&users.User{
		ID:           "dev-user",
		TenantID:     "dev",
		Email:        "dev@example.com",
		PasswordHash: hash,
	})
	logger.Info().Str("client_id", "dev-client").Str("email", "dev@example.com").Msg("seeded development client and user")
	return nil
}

// pruneLoop clears expired replay entries and authorization codes. Replay
// entries older than the retention window can never validate again, so
// deleting them does not weaken replay protection.
func pruneLoop(ctx context.Context, cfg config.Config, logger zerolog.Logger, replay dpop.ReplayGuard, codes *authcode.Store) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-cfg.GetReplayRetention())
			if pruned, err := replay.PruneBefore(ctx, cutoff); err != nil {
				logger.Error().Err(err).Msg("replay pruning failed")
			} else if pruned > 0 {
				logger.Debug().Int64("entries", pruned).Msg("pruned replay entries")
			}
			if pruned, err := codes.PruneExpired(ctx); err != nil {
				logger.Error().Err(err).Msg("code pruning failed")
			} else if pruned > 0 {
				logger.Debug().Int64("codes", pruned).Msg("pruned expired codes")
			}
		}
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.GetEnv() == "DEV" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
