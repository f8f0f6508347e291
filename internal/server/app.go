// Package server wires the profilekeeper dependencies together and runs the
// HTTP API and the gRPC health service until the process is signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/profilekeeper/internal/credentials"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/auth"
	"github.com/dmitrijs2005/profilekeeper/internal/server/config"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/dmitrijs2005/profilekeeper/internal/server/photos"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/profilekeeper/internal/server/revocation"
	"github.com/dmitrijs2005/profilekeeper/internal/server/services"
	"github.com/dmitrijs2005/profilekeeper/internal/validation"

	gs "github.com/dmitrijs2005/profilekeeper/internal/server/grpc"
	hs "github.com/dmitrijs2005/profilekeeper/internal/server/http"
)

// Seams for tests.
var (
	openDB         = repomanager.OpenDB
	newRepoManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
	newRevocations = func(ctx context.Context, url string) (revocation.Store, io.Closer, error) {
		client, err := revocation.NewRedisClient(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return revocation.NewRedisStore(client), client, nil
	}
	newPhotoStore = func(ctx context.Context, c *config.Config) (photos.Store, error) {
		return photos.NewS3Store(ctx, c)
	}
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	userService   *services.UserService
	personService *services.PersonService
	closers       []io.Closer
}

// NewApp connects to the database, applies migrations and builds the
// services. An empty Redis URL selects an in-process revocation list and an
// empty S3 endpoint selects in-process photo storage.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, registry: prometheus.NewRegistry()}
	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db)

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	var revocations revocation.Store = revocation.NewMemoryStore()
	if c.RedisURL != "" {
		store, closer, err := newRevocations(ctx, c.RedisURL)
		if err != nil {
			return fmt.Errorf("redis init error: %w", err)
		}
		revocations = store
		app.closers = append(app.closers, closer)
	}

	var store photos.Store = photos.NewMemoryStore()
	if c.S3BaseEndpoint != "" {
		store, err = newPhotoStore(ctx, c)
		if err != nil {
			return fmt.Errorf("s3 init error: %w", err)
		}
	}

	creds, err := credentials.NewManager(c.PasswordScheme)
	if err != nil {
		return err
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.Issuer, c.Audience, c.AccessTokenValidityDuration)
	app.metrics = metrics.New(app.registry)

	app.userService = services.NewUserService(db, rm, creds, issuer, revocations, app.metrics, app.logger)
	app.personService = services.NewPersonService(db, rm, validation.New(), store, app.metrics, app.logger)

	app.logDependencies(ctx, c.RedisURL != "", c.S3BaseEndpoint != "")
	return nil
}

func (app *App) logDependencies(ctx context.Context, redis, s3 bool) {
	revocations, photoStore := "memory", "memory"
	if redis {
		revocations = "redis"
	}
	if s3 {
		photoStore = "s3"
	}
	app.logger.Info(ctx, "dependencies ready", "revocations", revocations, "photos", photoStore)
}

// CreateAdmin creates an Admin credential. Used by the bootstrap CLI.
func (app *App) CreateAdmin(ctx context.Context, username, password string) (*models.User, error) {
	return app.userService.CreateAdmin(ctx, username, password)
}

// Close releases the database and cache connections.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC until a signal arrives or either server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	httpServer := hs.NewServer(app.config.HTTPAddr, app.userService, app.personService, app.metrics, app.registry, app.logger)
	grpcServer := gs.NewGRPCServer(app.config.GRPCAddr, app.logger)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context) error{httpServer.Run, grpcServer.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
