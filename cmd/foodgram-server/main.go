package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/apierror"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/config"
	"github.com/mikepea/foodgram/pkg/foodgram/database"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/models"
	"github.com/mikepea/foodgram/pkg/foodgram/server"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"github.com/mikepea/foodgram/pkg/foodgram/telemetry"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// @title Foodgram API
// @version 1.0
// @description Recipe sharing: recipes, favorites, shopping lists and subscriptions.

// @BasePath /api

// @securityDefinitions.apikey TokenAuth
// @in header
// @name Authorization
// @description Format: "Token {jwt}"

func main() {
	app := &cli.App{
		Name:  "foodgram-server",
		Usage: "Foodgram recipe sharing API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"FOODGRAM_ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "first-name", Value: "Admin"},
					&cli.StringFlag{Name: "last-name", Value: "Admin"},
				},
				Action: createAdmin,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logging.Logger().WithError(err).Fatal("foodgram-server failed")
	}
}

// setup loads configuration, configures logging and opens the database
func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return cfg, db, nil
}

func migrate(c *cli.Context) error {
	_, _, err := setup()
	if err != nil {
		return err
	}
	logging.Info(c.Context, "database migrations completed")
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	ctx := c.Context

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Settings{
		ServiceName:  cfg.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logging.Warnf(flushCtx, "tracer shutdown: %v", err)
		}
	}()
	if cfg.OTLPEndpoint != "" {
		if err := database.RegisterTracing(db); err != nil {
			return fmt.Errorf("failed to register database tracing: %w", err)
		}
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.New(server.Deps{
		Config: cfg,
		DB:     db,
		Images: images,
		Issuer: auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof(ctx, "starting foodgram server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Infof(ctx, "received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicURL)
	default:
		mediaURL := cfg.MediaURL
		if !strings.HasPrefix(mediaURL, "http://") && !strings.HasPrefix(mediaURL, "https://") {
			mediaURL = cfg.BaseURL + mediaURL
		}
		return storage.NewLocalStore(cfg.MediaRoot, mediaURL), nil
	}
}

func createAdmin(c *cli.Context) error {
	_, db, err := setup()
	if err != nil {
		return err
	}

	username := c.String("username")
	if !apierror.ValidUsername(username) || strings.EqualFold(username, models.ReservedUsername) {
		return fmt.Errorf("invalid username %q", username)
	}
	hash, err := auth.HashPassword(c.String("password"))
	if err != nil {
		return err
	}

	user := models.User{
		Email:        c.String("email"),
		Username:     username,
		FirstName:    c.String("first-name"),
		LastName:     c.String("last-name"),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := db.WithContext(c.Context).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("a user with email %q or username %q already exists", user.Email, user.Username)
		}
		return err
	}

	logging.WithFields(c.Context, map[string]interface{}{"admin_id": user.ID, "email": user.Email}).Info("admin user created")
	return nil
}
