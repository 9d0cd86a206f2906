package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"callrouter/internal/api"
	"callrouter/internal/bgcf"
	"callrouter/internal/config"
	"callrouter/internal/constants"
	"callrouter/internal/enum"
	"callrouter/internal/ifc"
	"callrouter/internal/logger"
	"callrouter/internal/registrar"
	"callrouter/internal/routing"
	"callrouter/internal/subscriber"
	"callrouter/pkg/bootstrap"
	"callrouter/pkg/health"
	"callrouter/pkg/logging"
	"callrouter/pkg/metrics"
	"callrouter/pkg/tracing"
)

const serviceName = "routing-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	translator     enum.Translator
	routes         *bgcf.Service
	service        *routing.Service
	health         *health.CheckerRegistry
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	metrics.Register()

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.InitTraceSink(); err != nil {
		return err
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	a.initHTTPServer(ctx)
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	a.mongoClient = mongoClient

	if a.db != nil {
		a.health.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redis != nil {
		a.health.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		a.health.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	return nil
}

func (a *App) initService(ctx context.Context) error {
	translator, err := enum.NewTranslator(a.Config.Enum, a.Config.CircuitBreaker, a.Sink, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create ENUM translator: %w", err)
	}
	a.translator = translator

	if js, ok := translator.(*enum.JSONService); ok {
		a.health.RegisterOptional(health.NewFuncChecker("enum", func(context.Context) error {
			if len(js.Blocks()) == 0 {
				return fmt.Errorf("no ENUM number blocks loaded")
			}
			return nil
		}))
	}

	if a.Config.BGCF.File != "" {
		a.routes = bgcf.NewService(a.Config.BGCF.File, a.Logger)
	}

	connector, err := subscriber.NewConnector(a.Config, subscriber.Stores{
		Postgres: a.db,
		Redis:    a.redis,
		Mongo:    a.mongoClient,
	}, a.Sink, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create subscriber connector: %w", err)
	}

	checker, err := registrar.NewChecker(a.Config.Registrar, a.redis)
	if err != nil {
		return fmt.Errorf("failed to create registrar checker: %w", err)
	}

	filters, err := ifc.NewService(a.Sink, a.Logger)
	if err != nil {
		return err
	}

	a.service = routing.NewService(a.Config.Routing.HomeDomains, routing.Dependencies{
		Subscribers: connector,
		Registrar:   checker,
		Filters:     filters,
		Translator:  translator,
		Routes:      a.routes,
	}, a.Logger)

	a.Logger.InfowCtx(logging.WithServiceName(ctx, serviceName), "Routing service initialized",
		"enum_backend", a.Config.Enum.Type,
		"subscriber_connector", a.Config.Subscriber.Type,
		"registrar", a.Config.Registrar.Type,
		"home_domains", a.Config.Routing.HomeDomains,
	)
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(ctx, a.Config, a.service, a.health, a.Logger)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if js, ok := a.translator.(*enum.JSONService); ok && a.Config.Enum.JSON.ReloadIntervalSeconds > 0 {
		interval := time.Duration(a.Config.Enum.JSON.ReloadIntervalSeconds) * time.Second
		g.Go(func() error {
			a.Logger.InfowCtx(gCtx, "Starting ENUM reloader", "interval", interval)
			return js.StartReloader(gCtx, interval)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down routing service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
