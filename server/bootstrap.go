package server

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/inkwell-cms/auth-service/auth"
	"github.com/inkwell-cms/auth-service/history"
	historypg "github.com/inkwell-cms/auth-service/history/pgrepo"
	"github.com/inkwell-cms/auth-service/history/repofakes"
	"github.com/inkwell-cms/auth-service/internal/config"
	"github.com/inkwell-cms/auth-service/ratelimit"
	"github.com/inkwell-cms/auth-service/sessions/pgstore"
	"github.com/inkwell-cms/auth-service/sessions/redisstore"
	sessionfakes "github.com/inkwell-cms/auth-service/sessions/repofakes"
	"github.com/inkwell-cms/auth-service/token"
	"github.com/inkwell-cms/auth-service/users"
	userspg "github.com/inkwell-cms/auth-service/users/pgrepo"
	"github.com/inkwell-cms/auth-service/users/repofake"
)

// Build wires the whole service from configuration: repositories for the
// selected store backend, the token service, the history recorder, the
// rate limiter, OIDC providers and finally the Server itself. The
// returned cleanup releases everything Build started, in reverse order.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	repos, pgCleanup, err := buildRepos(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if pgCleanup != nil {
		cleanups = append(cleanups, pgCleanup)
	}

	tokens, err := token.NewService(
		cfg.GetAccessTokenSecret(),
		cfg.GetRefreshTokenSecret(),
		cfg.GetRefreshKDFSalt(),
		token.WithExpiry(cfg.GetAccessTokenExpiry(), cfg.GetRefreshTokenExpiry()),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	recorder := history.NewRecorder(repos.History, logger)
	cleanups = append(cleanups, recorder.Close)

	authService, err := auth.NewService(repos, tokens, recorder,
		auth.WithLogger(logger),
		auth.WithSessionLifetimes(cfg.GetSessionExpiry(), cfg.GetSessionExtension()),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	limiter := ratelimit.New(cfg.GetRateLimitMax(), cfg.GetRateLimitWindow(),
		ratelimit.WithSweepInterval(cfg.GetRateLimitSweepInterval()),
	)
	limiter.Start()
	cleanups = append(cleanups, limiter.Stop)

	providers := make(map[string]*OIDCProvider)
	for name, pc := range cfg.GetOAuthProviders() {
		provider, err := NewOIDCProvider(ctx, name, pc, cfg.GetBaseURL())
		if err != nil {
			// Discovery failures disable the provider but never keep the
			// password-login service from starting.
			logger.Warn().Err(err).Str("provider", name).Msg("oauth provider disabled")
			continue
		}
		providers[name] = provider
	}

	srv, err := New(cfg, Deps{
		Auth:      authService,
		Limiter:   limiter,
		Logger:    logger,
		Providers: providers,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return srv, cleanup, nil
}

// buildRepos selects the persistence backend. "memory" keeps everything
// in-process, "postgres" puts users, sessions and history in one pool,
// and "redis" holds sessions in Redis with users and history in postgres
// when a database URL is configured, in memory otherwise.
func buildRepos(ctx context.Context, cfg config.Config, logger zerolog.Logger) (auth.Repos, func(), error) {
	backend := cfg.GetSessionStoreBackend()

	switch backend {
	case "memory":
		return auth.Repos{
			Users:    repofake.NewFakeUserRepo(),
			Sessions: sessionfakes.NewFakeSessionRepo(),
			History:  repofakes.NewFakeHistoryRepo(),
		}, nil, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return auth.Repos{}, nil, errors.Wrap(err, "[server.buildRepos] pgxpool.New")
		}
		repos, err := postgresRepos(ctx, pool)
		if err != nil {
			pool.Close()
			return auth.Repos{}, nil, err
		}
		return repos, pool.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
		})
		sessionStore := redisstore.New(client)

		var (
			userRepo    users.Repo
			historyRepo history.Repo
			pgcleanup   func()
		)
		if url := cfg.GetDatabaseURL(); url != "" {
			pool, err := pgxpool.New(ctx, url)
			if err != nil {
				_ = client.Close()
				return auth.Repos{}, nil, errors.Wrap(err, "[server.buildRepos] pgxpool.New")
			}
			ur := userspg.New(pool)
			hr := historypg.New(pool)
			if err := ur.EnsureSchema(ctx); err != nil {
				pool.Close()
				_ = client.Close()
				return auth.Repos{}, nil, err
			}
			if err := hr.EnsureSchema(ctx); err != nil {
				pool.Close()
				_ = client.Close()
				return auth.Repos{}, nil, err
			}
			userRepo, historyRepo, pgcleanup = ur, hr, pool.Close
		} else {
			logger.Warn().Msg("redis session store without a database url, users and history are in-memory")
			userRepo = repofake.NewFakeUserRepo()
			historyRepo = repofakes.NewFakeHistoryRepo()
		}

		cleanup := func() {
			if pgcleanup != nil {
				pgcleanup()
			}
			_ = client.Close()
		}
		return auth.Repos{Users: userRepo, Sessions: sessionStore, History: historyRepo}, cleanup, nil

	default:
		return auth.Repos{}, nil, errors.Errorf("[server.buildRepos] unknown session store %q", backend)
	}
}

func postgresRepos(ctx context.Context, pool *pgxpool.Pool) (auth.Repos, error) {
	userRepo := userspg.New(pool)
	sessionStore := pgstore.New(pool)
	historyRepo := historypg.New(pool)

	for _, ensure := range []func(context.Context) error{
		userRepo.EnsureSchema,
		sessionStore.EnsureSchema,
		historyRepo.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			return auth.Repos{}, err
		}
	}

	return auth.Repos{Users: userRepo, Sessions: sessionStore, History: historyRepo}, nil
}
