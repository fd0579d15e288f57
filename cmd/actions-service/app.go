package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"insightstream/internal/actions"
	"insightstream/internal/broker"
	"insightstream/internal/config"
	"insightstream/internal/confighandler"
	"insightstream/internal/constants"
	"insightstream/internal/logger"
	"insightstream/internal/router"
	"insightstream/pkg/bootstrap"
	"insightstream/pkg/health"
	"insightstream/pkg/logging"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	router         *router.Router
	dispatcher     *actions.Dispatcher
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("actions-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initMongoDB(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "actions-service")
		a.Logger.WarnwCtx(initCtx, "MongoDB initialization failed, custom routing rules disabled",
			"error", err,
		)
	}

	if err := a.initDispatcher(ctx); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	if err := a.InitBroker("actions-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "actions-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterRouterMetrics()
	metrics.RegisterBrokerMetrics()

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initMongoDB(ctx context.Context) error {
	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}

	if mongoClient != nil {
		a.mongoClient = mongoClient
	}
	return nil
}

func (a *App) initDispatcher(ctx context.Context) error {
	var ruleRepo router.RuleRepository
	if a.Config.Router.CustomRulesEnabled && a.mongoClient != nil {
		dbName := a.Config.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		ruleRepo = router.NewRuleRepository(a.mongoClient.Database(dbName))
	}

	rt, err := router.New(ruleRepo, a.Logger)
	if err != nil {
		return err
	}
	a.router = rt

	if err := a.router.ReloadRules(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "actions-service")
		a.Logger.WarnwCtx(initCtx, "Failed to load custom routing rules",
			"error", err,
		)
	}

	var issues actions.IssueTracker
	if a.Config.Actions.Jira.BaseURL != "" {
		issues = actions.NewJiraClient(a.Config.Actions.Jira)
	}

	var todos actions.TodoTracker
	if a.Config.Actions.Basecamp.AccessToken != "" {
		todos = actions.NewBasecampClient(a.Config.Actions.Basecamp)
	}

	var mailer actions.Mailer
	if a.Config.Actions.Email.APIKey != "" {
		mailer = actions.NewEmailClient(a.Config.Actions.Email)
	}

	a.dispatcher = actions.NewDispatcher(a.router, issues, todos, mailer, a.Logger)
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	if a.Config.Broker.Type == "kafka" && a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
		if err != nil {
			configCtx := logging.WithServiceName(ctx, "actions-service")
			a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName("actions-service")
			defer configConsumer.Close()
			configEventHandler := confighandler.NewHandler(
				models.EventTypeRoutingRuleUpdated,
				models.ServiceTypeActions,
				a.router.ReloadRules,
				a.Logger,
			)

			g.Go(func() error {
				configCtx := logging.WithServiceName(gCtx, "actions-service")
				a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
					"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
				)
				return configConsumer.Consume(gCtx, a.Config.Broker.Kafka.ConfigUpdateTopic, configEventHandler.HandleConfigUpdateEvent)
			})
		}
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	if inputTopic == "" {
		inputTopic = constants.DefaultClassifiedFeedbackTopic
	}

	g.Go(func() error {
		return a.Consumer.Consume(gCtx, inputTopic, a.dispatcher.Handle)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "actions-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down actions service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, nil, nil, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
