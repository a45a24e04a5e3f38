// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AccelByte/extend-lifecycle-engine/internal/bootstrap"
	"github.com/AccelByte/extend-lifecycle-engine/internal/config"
	"github.com/AccelByte/extend-lifecycle-engine/internal/server"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/handler"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/metrics"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/personalization"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/pipeline"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/service"
	"github.com/AccelByte/extend-lifecycle-engine/pkg/state"
	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/factory"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/iam"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	actionBuiltin "github.com/AccelByte/extend-lifecycle-engine/pkg/action/builtin"
)

// healthCheckInterval is how often Redis reachability is re-checked for probes.
const healthCheckInterval = 10 * time.Second

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	pipelineConfig    *pipeline.Config
	grpcServer        *server.GRPCServer
	httpServer        *server.HTTPServer
	redisClient       *redis.Client
	kafkaProducer     sarama.SyncProducer
	manager           *pipeline.Manager
	directory         service.UserDirectory
	recorder          *metrics.Recorder
	health            *state.HealthChecker
	healthy           atomic.Bool
	shutdownTelemetry func(context.Context) error

	// AccelByte SDK repositories (shared across all services)
	configRepo *sdkAuth.ConfigRepositoryImpl
	tokenRepo  *sdkAuth.TokenRepositoryImpl
}

// New creates and initializes a new application instance.
//
// ============================================================
// DEVELOPER: Application initialization order
// ============================================================
// Components are initialized in dependency order:
// 1. AccelByte SDK (statistics and fulfillment calls)
// 2. Redis (lifecycle records, outbox, locks, behavior data)
// 3. Engine config (config/lifecycle.yaml)
// 4. External services (stores, SDK clients, Kafka producer)
// 5. Engine components (signals → risk → state machine → playbook → dispatch)
// 6. Servers (gRPC health, HTTP API + metrics)
// 7. Telemetry (OpenTelemetry tracing)
// ============================================================
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	// ============================================================
	// Step 1: Initialize Client Auth using AccelByte SDK
	// ============================================================
	if err := app.initAccelByteSDKAuth(); err != nil {
		return nil, fmt.Errorf("failed to init AccelByte SDK: %w", err)
	}

	// ============================================================
	// Step 2: Initialize Redis
	// ============================================================
	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}

	// ============================================================
	// Step 3: Load engine configuration
	// ============================================================
	pipelineConfig, err := pipeline.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config from %s: %w", cfg.ConfigPath, err)
	}
	app.pipelineConfig = pipelineConfig
	logrus.Infof("loaded engine configuration from %s", cfg.ConfigPath)

	// ============================================================
	// Step 4: Initialize external services
	// ============================================================
	store := service.NewRedisLifecycleStore(app.redisClient)
	locker := service.NewRedisUserLocker(app.redisClient)
	app.directory = service.NewRedisUserDirectory(app.redisClient)
	app.health = state.NewHealthChecker(app.redisClient)

	statisticsService := app.initUserStatisticService()
	itemGranter := app.initItemGranter()
	userStatUpdater := service.NewStatisticService(statisticsService, service.StatisticServiceConfig{
		Namespace: cfg.ABNamespace,
	})

	if bootstrap.NeedsKafka(pipelineConfig) {
		producer, err := bootstrap.InitKafkaProducer(cfg.KafkaBrokers, cfg.KafkaClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to init Kafka producer: %w", err)
		}
		app.kafkaProducer = producer
	}

	// ============================================================
	// Step 5: Bootstrap engine components
	// ============================================================
	aggregator, sessions, err := bootstrap.InitSignalAggregator(cfg.SignalSource, pipelineConfig, bootstrap.SignalDependencies{
		RedisClient:       app.redisClient,
		StatisticsService: statisticsService,
		Namespace:         cfg.ABNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init signal aggregator: %w", err)
	}

	scorer, err := bootstrap.InitRiskScorer(pipelineConfig)
	if err != nil {
		return nil, err
	}

	stateMachine, ruleRegistry, err := bootstrap.InitStateMachine(pipelineConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to init state machine: %w", err)
	}

	selector, playbook, err := bootstrap.InitInterventionSelector(pipelineConfig)
	if err != nil {
		return nil, err
	}

	// ============================================================
	// DEVELOPER: Action dependencies setup
	// ============================================================
	// If your custom actions need external services, add them
	// to the Dependencies struct in pkg/action/builtin/init.go
	// and pass them here.
	// ============================================================
	deps := &actionBuiltin.Dependencies{
		EntitlementGranter: itemGranter,
		UserStatUpdater:    userStatUpdater,
		KafkaProducer:      app.kafkaProducer,
	}

	executor, actionRegistry, err := bootstrap.InitActionExecutor(pipelineConfig, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to init action executor: %w", err)
	}

	// ============================================================
	// Validate engine wiring
	// ============================================================
	// Every enabled transition must be registered and every enabled
	// playbook surface must name a registered action.
	// ============================================================
	if err := pipeline.ValidateWiring(ruleRegistry, actionRegistry, playbook, pipelineConfig); err != nil {
		return nil, fmt.Errorf("engine wiring validation failed: %w", err)
	}
	logrus.Info("engine wiring validation passed")

	app.recorder = metrics.NewRecorder()
	app.manager = bootstrap.InitPipeline(bootstrap.PipelineComponents{
		Store:      store,
		Locker:     locker,
		Aggregator: aggregator,
		Scorer:     scorer,
		Engine:     stateMachine,
		Selector:   selector,
		Executor:   executor,
		Recorder:   app.recorder,
	}, pipelineConfig)

	resolver, err := personalization.NewResolver(pipelineConfig.Personalization)
	if err != nil {
		return nil, fmt.Errorf("failed to build personalization resolver: %w", err)
	}

	// ============================================================
	// Step 6: Setup servers
	// ============================================================
	registry := prometheus.NewRegistry()
	app.recorder.MustRegister(registry)

	api := handler.NewLifecycleHandler(store, app.directory, resolver, app.manager, sessions)
	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, registry, api, app.healthy.Load)
	if err := app.httpServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup HTTP server: %w", err)
	}

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	// ============================================================
	// Step 7: Setup telemetry
	// ============================================================
	shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.OtelEnabled, cfg.OtelServiceName, cfg.Environment, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	app.shutdownTelemetry = shutdownTelemetry

	logrus.Info("application initialized successfully")

	return app, nil
}

// initAccelByteSDKAuth initializes the AccelByte SDK auth by performing client login.
//
// ============================================================
// DEVELOPER: AccelByte Client Auth configuration
// ============================================================
// The Client Auth is configured via environment variables:
// - AB_BASE_URL: AccelByte platform base URL
// - AB_CLIENT_ID: OAuth2 client ID
// - AB_CLIENT_SECRET: OAuth2 client secret
// - AB_NAMESPACE: Game namespace
//
// The SDK uses automatic token refresh (RefreshRate: 0.8 = 80% of TTL).
//
// IMPORTANT: The configRepo and tokenRepo are stored in the App struct
// and must be reused by all AccelByte services to share authentication.
// ============================================================
func (a *App) initAccelByteSDKAuth() error {
	a.configRepo = sdkAuth.DefaultConfigRepositoryImpl()
	a.tokenRepo = sdkAuth.DefaultTokenRepositoryImpl()
	refreshRepo := &sdkAuth.RefreshTokenImpl{AutoRefresh: true, RefreshRate: 0.8}

	oauthService := iam.OAuth20Service{
		Client:                 factory.NewIamClient(a.configRepo),
		ConfigRepository:       a.configRepo,
		TokenRepository:        a.tokenRepo,
		RefreshTokenRepository: refreshRepo,
	}

	clientID := a.configRepo.GetClientId()
	clientSecret := a.configRepo.GetClientSecret()

	if err := oauthService.LoginClient(&clientID, &clientSecret); err != nil {
		return fmt.Errorf("unable to login using clientId and clientSecret: %w", err)
	}

	logrus.Info("AccelByte SDK initialized and authenticated")
	return nil
}

// initRedis initializes the Redis client, retrying the first ping with
// exponential backoff.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(a.cfg.RedisRetryDelayMs) * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries)), ctx)

	err := backoff.RetryNotify(
		func() error {
			_, err := client.Ping(ctx).Result()
			return err
		},
		policy,
		func(err error, next time.Duration) {
			logrus.Warnf("Redis connection failed: %v, retrying in %s...", err, next)
		},
	)

	if err != nil {
		_ = client.Close()
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

// ============================================================
// DEVELOPER: Add custom service initializers here
// ============================================================
// IMPORTANT: Always reuse a.configRepo and a.tokenRepo to share the
// authenticated session. Do NOT call DefaultConfigRepositoryImpl() or
// DefaultTokenRepositoryImpl() again - this creates new empty instances!
// ============================================================

// initItemGranter creates an entitlement service for granting reward items.
func (a *App) initItemGranter() service.EntitlementGranter {
	fulfillmentService := &platform.FulfillmentService{
		Client:           factory.NewPlatformClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}

	return service.NewEntitlementService(fulfillmentService, service.EntitlementServiceConfig{
		Namespace: a.cfg.ABNamespace,
	})
}

// initUserStatisticService creates the statistic client shared by the
// statistic_increment action and the statistic signal source.
func (a *App) initUserStatisticService() *social.UserStatisticService {
	return &social.UserStatisticService{
		Client:           factory.NewSocialClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}
}
