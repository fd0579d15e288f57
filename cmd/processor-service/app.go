package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"insightstream/internal/analyzer"
	"insightstream/internal/broker"
	"insightstream/internal/config"
	"insightstream/internal/confighandler"
	"insightstream/internal/constants"
	"insightstream/internal/logger"
	"insightstream/internal/pipeline"
	"insightstream/internal/reply"
	"insightstream/pkg/bootstrap"
	"insightstream/pkg/circuitbreaker"
	"insightstream/pkg/health"
	"insightstream/pkg/logging"
	"insightstream/pkg/metrics"
	"insightstream/pkg/models"
	"insightstream/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	mongoClient    *mongo.Client
	analyzer       *analyzer.Analyzer
	service        *pipeline.Service
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("processor-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "processor-service")
		a.Logger.WarnwCtx(initCtx, "Redis initialization failed, score caching disabled",
			"error", err,
		)
	}

	if err := a.initMongoDB(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "processor-service")
		a.Logger.WarnwCtx(initCtx, "MongoDB initialization failed, lexicon reload disabled",
			"error", err,
		)
	}

	if err := a.InitBroker("processor-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "processor-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterProcessorMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if a.Config.Database.Redis.Host == "" {
		return nil
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
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

func (a *App) initService(ctx context.Context) error {
	scorer := a.buildScorer()

	var lexiconRepo analyzer.LexiconRepository
	if a.mongoClient != nil {
		dbName := a.Config.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		lexiconRepo = analyzer.NewLexiconRepository(a.mongoClient.Database(dbName))
	}

	a.analyzer = analyzer.New(scorer, lexiconRepo, a.Config.Analyzer, a.Logger)

	if err := a.analyzer.ReloadLexicon(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "processor-service")
		a.Logger.WarnwCtx(initCtx, "Failed to load lexicon, using built-in defaults",
			"error", err,
		)
	}

	var textGen reply.TextGenerator
	if a.Config.Reply.Enabled {
		textGen = reply.NewOpenAIGenerator(a.Config.Reply)
	}
	replier := reply.New(textGen, a.Config.Reply, a.Logger)

	outputTopic := a.Config.Broker.Kafka.OutputTopic
	if outputTopic == "" {
		outputTopic = constants.DefaultClassifiedFeedbackTopic
	}

	a.service = pipeline.NewService(a.analyzer, replier, a.Producer, outputTopic, a.Logger)
	return nil
}

// buildScorer assembles the scorer chain inside out: the raw HTTP client,
// then the circuit breaker, then the cache, so cache hits never touch the
// breaker.
func (a *App) buildScorer() analyzer.Scorer {
	var scorer analyzer.Scorer = analyzer.NewHTTPScorer(a.Config.Analyzer.Scorer)

	if a.Config.CircuitBreaker.Enabled {
		scorer = analyzer.NewBreakerScorer(scorer, "sentiment-scorer", a.breakerConfig())
	}

	if a.redis != nil {
		ttl := time.Duration(a.Config.Analyzer.CacheTTLSeconds) * time.Second
		scorer = analyzer.NewCachedScorer(scorer, a.redis, ttl, a.Logger)
	}

	return scorer
}

func (a *App) breakerConfig() circuitbreaker.Config {
	cbCfg := a.Config.CircuitBreaker
	cfg := circuitbreaker.DefaultConfig("sentiment-scorer")

	if cbCfg.MaxRequests > 0 {
		cfg.MaxRequests = cbCfg.MaxRequests
	}
	if cbCfg.Interval > 0 {
		cfg.Interval = cbCfg.Interval
	}
	if cbCfg.Timeout > 0 {
		cfg.Timeout = cbCfg.Timeout
	}
	if cbCfg.FailureRatio > 0 || cbCfg.MinRequests > 0 {
		failureRatio := cbCfg.FailureRatio
		if failureRatio <= 0 {
			failureRatio = 0.5
		}
		minRequests := cbCfg.MinRequests
		if minRequests == 0 {
			minRequests = 3
		}
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		}
	}

	return cfg
}

func (a *App) initHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
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
			configCtx := logging.WithServiceName(ctx, "processor-service")
			a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName("processor-service")
			defer configConsumer.Close()
			configEventHandler := confighandler.NewHandler(
				models.EventTypeLexiconUpdated,
				models.ServiceTypeProcessor,
				a.analyzer.ReloadLexicon,
				a.Logger,
			)

			g.Go(func() error {
				configCtx := logging.WithServiceName(gCtx, "processor-service")
				a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
					"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
				)
				return configConsumer.Consume(gCtx, a.Config.Broker.Kafka.ConfigUpdateTopic, configEventHandler.HandleConfigUpdateEvent)
			})
		}
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	if inputTopic == "" {
		inputTopic = constants.DefaultRawFeedbackTopic
	}

	g.Go(func() error {
		return a.Consumer.Consume(gCtx, inputTopic, a.service.Handle)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "processor-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down processor service")

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

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, nil, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
