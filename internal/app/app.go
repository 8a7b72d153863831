// Package app assembles the storage, session and service graph shared by the
// server and the seeder.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"tweeter/internal/attachment"
	"tweeter/internal/auth"
	"tweeter/internal/config"
	"tweeter/internal/redis"
	"tweeter/internal/repository/sqlite"
	"tweeter/internal/service"
	"tweeter/internal/storage"
)

type App struct {
	DB            *sql.DB
	Redis         *redis.Client
	Authenticator *auth.Authenticator
	Avatars       *attachment.Store
	Users         service.UserService
	Tweets        service.TweetService
}

func Build(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	tweetRepo := sqlite.NewTweetRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := tweetRepo.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tweet repository: %w", err)
	}

	rc, err := redis.NewClient(cfg.Redis.URL)
	if err != nil {
		db.Close()
		return nil, err
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		db.Close()
		rc.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	authenticator := auth.NewAuthenticator(auth.NewTokenService(cfg.Auth.JWTSecret), rc, cfg.Auth.TokenTTL, cfg.Auth.RememberTTL)
	avatars := attachment.NewStore(storageSvc, logger)

	return &App{
		DB:            db,
		Redis:         rc,
		Authenticator: authenticator,
		Avatars:       avatars,
		Users: service.NewUserService(userRepo, avatars, authenticator,
			service.NewLogNotifier(logger, cfg.Server.BaseURL),
			service.UserServiceConfig{ResetTTL: cfg.Auth.ResetTTL, Logger: logger}),
		Tweets: service.NewTweetService(tweetRepo),
	}, nil
}

func (a *App) Close() error {
	return multierr.Combine(a.Redis.Close(), a.DB.Close())
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		PublicBaseURL: cfg.Storage.PublicURL,
		URLExpiry:     cfg.Storage.URLExpiry,
	})
}
