package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/mentor"
	"github.com/aretw0/mentor/internal/config"
	"github.com/aretw0/mentor/pkg/adapters/memory"
	"github.com/aretw0/mentor/pkg/adapters/redis"
	"github.com/aretw0/mentor/pkg/adapters/rest"
	"github.com/aretw0/mentor/pkg/adapters/scripted"
	"github.com/aretw0/mentor/pkg/domain"
	"github.com/aretw0/mentor/pkg/observability"
	"github.com/aretw0/mentor/pkg/persistence/middleware"
	"github.com/aretw0/mentor/pkg/ports"
	"github.com/aretw0/mentor/pkg/session"
)

// newService returns the scripted service when a script is given, the REST
// client otherwise.
func newService(cfg *config.Config, scriptPath string, logger *slog.Logger) (ports.LearningService, error) {
	if scriptPath != "" {
		script, err := scripted.LoadFile(scriptPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("using scripted learning service", "script", scriptPath, "atoms", len(script.Atoms))
		return scripted.NewService(script), nil
	}

	if cfg.Service.BaseURL == "" {
		return nil, errors.New("no learning service configured: set service.base_url (MENTOR_SERVICE_BASE_URL) or pass --script")
	}
	opts := []rest.Option{
		rest.WithTimeout(cfg.Service.Timeout),
		rest.WithLogger(logger),
	}
	if cfg.Service.Token != "" {
		opts = append(opts, rest.WithTokenSource(ports.StaticToken(cfg.Service.Token)))
	}
	if cfg.Service.RateLimit > 0 {
		opts = append(opts, rest.WithRateLimit(cfg.Service.RateLimit, cfg.Service.Burst))
	}
	return rest.NewClient(cfg.Service.BaseURL, opts...)
}

func newTutor(cfg *config.Config, svc ports.LearningService, logger *slog.Logger, hooks domain.LifecycleHooks) (*mentor.Tutor, error) {
	messages, err := cfg.PacingMessages()
	if err != nil {
		return nil, err
	}
	return mentor.New(svc,
		mentor.WithLogger(logger),
		mentor.WithMessages(messages),
		mentor.WithLifecycleHooks(hooks),
	)
}

// newStore picks the snapshot store and the matching session manager options.
// The returned close function releases the backend connection.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.SnapshotStore, []session.Option, func() error, error) {
	var (
		store      ports.SnapshotStore
		opts       []session.Option
		closeStore = func() error { return nil }
	)

	if cfg.Server.RedisURL == "" {
		logger.Info("using in-memory session store")
		store = memory.NewStore()
	} else {
		rs, err := redis.New(cfg.Server.RedisURL,
			redis.WithPrefix(cfg.Server.RedisPrefix),
			redis.WithTTL(cfg.Server.SessionTTL),
		)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, nil, fmt.Errorf("redis unavailable: %w", err)
		}
		logger.Info("using redis session store", "prefix", cfg.Server.RedisPrefix)
		store = rs
		closeStore = rs.Close
		opts = append(opts,
			session.WithLocker(redis.NewLocker(rs.Client(), cfg.Server.RedisPrefix)),
			session.WithLockTTL(cfg.Server.LockTTL),
		)
	}

	if len(cfg.Server.SnapshotKeys) > 0 {
		keys, err := middleware.ParseKeys(cfg.Server.SnapshotKeys)
		if err != nil {
			_ = closeStore()
			return nil, nil, nil, fmt.Errorf("invalid snapshot keys: %w", err)
		}
		seal, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			_ = closeStore()
			return nil, nil, nil, err
		}
		store = middleware.Chain(store, seal)
		logger.Info("snapshot encryption enabled", "fallback_keys", len(keys.FallbackKeys))
	}

	return store, append(opts, session.WithLogger(logger)), closeStore, nil
}

// newManager wires a session manager whose sessions log every lifecycle event
// next to the given hooks.
func newManager(ctx context.Context, cfg *config.Config, scriptPath string, logger *slog.Logger, hooks domain.LifecycleHooks, extra ...session.Option) (*session.Manager, func() error, error) {
	svc, err := newService(cfg, scriptPath, logger)
	if err != nil {
		return nil, nil, err
	}
	tutor, err := newTutor(cfg, svc, logger, observability.Combine(observability.LoggingHooks(logger), hooks))
	if err != nil {
		return nil, nil, err
	}
	store, opts, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return session.NewManager(tutor, store, append(opts, extra...)...), closeStore, nil
}
