// Package app assembles the store backend, repositories and auth services
// from one Config. Commands build an App at startup and Close it on exit.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rfpdesk/api/internal/authpw"
	"rfpdesk/api/internal/blob"
	"rfpdesk/api/internal/config"
	"rfpdesk/api/internal/email"
	"rfpdesk/api/internal/repo"
	"rfpdesk/api/internal/session"
	"rfpdesk/api/internal/store"
)

type App struct {
	Config   config.Config
	Log      *zap.SugaredLogger
	Table    store.Table
	Repos    *repo.Repositories
	Sessions *session.RedisStore
	Auth     *authpw.Service
	Objects  *blob.MinioStore // nil when object storage is not configured

	redis *redis.Client
	db    *sql.DB
}

// New connects to Redis, and to Postgres on the postgres backend. Redis
// always holds refresh sessions.
func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log}

	client, err := store.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.Sessions = session.NewRedisStoreWithClient(client)

	switch cfg.Backend {
	case config.BackendRedis:
		a.Table = store.NewRedisTable(client, cfg.Table)
	case config.BackendPostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.Table = store.NewPostgresTable(db)
	}

	repoCfg := repo.Config{Table: a.Table, Logger: log}
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		objects, err := blob.NewMinioStore(blob.Config{
			Endpoint:   cfg.MinioEndpoint,
			AccessKey:  cfg.MinioAccessKey,
			SecretKey:  cfg.MinioSecretKey,
			Bucket:     cfg.MinioBucket,
			Region:     cfg.MinioRegion,
			UseSSL:     cfg.MinioUseSSL,
			PresignTTL: cfg.PresignTTL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Objects = objects
		repoCfg.Objects = objects
	}

	a.Repos, err = repo.New(repoCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	authCfg := authpw.Config{
		Users:       a.Repos.Users,
		ResetTokens: a.Repos.ResetTokens,
		Sessions:    a.Sessions,
		Logger:      log,
		Secret:      cfg.JWTSecret,
		AccessTTL:   cfg.AccessTTL,
		RefreshTTL:  cfg.RefreshTTL,
		ResetTTL:    cfg.ResetTTL,
		BcryptCost:  cfg.BcryptCost,
		AppURL:      cfg.AppURL,
	}
	mailer := email.NewSender(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		AppName:  cfg.AppName,
	})
	if mailer.Enabled() {
		authCfg.Mailer = mailer
	} else {
		log.Infow("smtp not configured; reset links are not mailed")
	}
	a.Auth, err = authpw.NewService(authCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Migrate applies pending schema migrations. The redis backend has none.
func (a *App) Migrate(ctx context.Context) ([]string, error) {
	if a.db == nil {
		return nil, nil
	}
	applied, err := store.ApplyMigrations(ctx, a.db, store.Migrations())
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return applied, nil
}

// Ping checks every configured dependency.
func (a *App) Ping(ctx context.Context) error {
	var errs []error
	if err := a.Table.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("table: %w", err))
	}
	if err := a.Sessions.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}
	if a.Objects != nil {
		if err := a.Objects.EnsureBucket(ctx); err != nil {
			errs = append(errs, fmt.Errorf("objects: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Log.Warnw("close database", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warnw("close redis", "error", err)
		}
	}
}
