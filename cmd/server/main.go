package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codequest/internal/common/cache"
	"codequest/internal/common/docstore"
	commonmw "codequest/internal/common/http/middleware"
	"codequest/internal/common/mq"
	"codequest/internal/common/storage"
	gatewayMiddleware "codequest/internal/gateway/middleware"
	gatewayRepository "codequest/internal/gateway/repository"
	gatewayService "codequest/internal/gateway/service"
	"codequest/internal/judge/grader"
	"codequest/internal/judge/judgeclient"
	"codequest/internal/judge/language"
	problemController "codequest/internal/problem/controller"
	problemRepository "codequest/internal/problem/repository"
	problemService "codequest/internal/problem/service"
	submitController "codequest/internal/submit/controller"
	submitRepository "codequest/internal/submit/repository"
	submitService "codequest/internal/submit/service"
	userController "codequest/internal/user/controller"
	userRepository "codequest/internal/user/repository"
	userService "codequest/internal/user/service"
	"codequest/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "configs/server.yaml"
	defaultEnvPath    = ".env"
)

// services groups what the HTTP layer needs.
type services struct {
	auth    *gatewayService.AuthService
	rate    *gatewayService.RateLimitService
	users   *userService.UserService
	problem *problemService.ProblemService
	submit  *submitService.SubmitService
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	envPath := flag.String("env", defaultEnvPath, "Path to an optional .env file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	store, err := openStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()
	if err := userRepository.EnsureIndexes(ctx, store); err != nil {
		return fmt.Errorf("ensure user indexes failed: %w", err)
	}
	if err := submitRepository.EnsureIndexes(ctx, store); err != nil {
		return fmt.Errorf("ensure submission indexes failed: %w", err)
	}

	var cacheClient cache.Cache
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() { _ = redisCache.Close() }()
		cacheClient = redisCache
	} else {
		logger.Warn(ctx, "redis disabled: no caching, rate limiting or token revocation")
	}

	var producer mq.Producer
	if appCfg.Kafka.Enabled {
		kafkaProducer, err := mq.NewKafkaProducer(appCfg.Kafka.Producer)
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		defer func() { _ = kafkaProducer.Close() }()
		producer = kafkaProducer
	}

	var objects storage.ObjectStorage
	if appCfg.MinIO.Enabled {
		minioStorage, err := storage.NewMinIOStorage(appCfg.MinIO.Client)
		if err != nil {
			return fmt.Errorf("init minio failed: %w", err)
		}
		if err := minioStorage.EnsureBucket(ctx, appCfg.Submit.ArchiveBucket); err != nil {
			return fmt.Errorf("ensure archive bucket failed: %w", err)
		}
		objects = minioStorage
	}

	if appCfg.Server.MetricsEnabled {
		if err := judgeclient.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register judge metrics failed: %w", err)
		}
		if err := submitService.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register submit metrics failed: %w", err)
		}
	}

	svcs, err := buildServices(appCfg, store, cacheClient, producer, objects)
	if err != nil {
		return err
	}

	httpServer := buildHTTPServer(appCfg, svcs)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("store", appCfg.Store.Driver),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return nil
}

func openStore(ctx context.Context, appCfg *AppConfig) (docstore.Store, error) {
	if appCfg.Store.Driver == storeDriverMemory {
		logger.Warn(ctx, "using in-memory store; data is lost on restart")
		return docstore.NewMemoryStore(), nil
	}
	store, err := docstore.NewMongoStore(ctx, appCfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("init mongo failed: %w", err)
	}
	return store, nil
}

func buildServices(appCfg *AppConfig, store docstore.Store, cacheClient cache.Cache, producer mq.Producer, objects storage.ObjectStorage) (*services, error) {
	registry := language.NewRegistry(appCfg.Judge.Languages)
	engine, err := judgeclient.New(judgeclient.Config{
		BaseURL:         appCfg.Judge.BaseURL,
		AuthToken:       appCfg.Judge.AuthToken,
		RapidAPIKey:     appCfg.Judge.RapidAPIKey,
		RapidAPIHost:    appCfg.Judge.RapidAPIHost,
		RequestTimeout:  appCfg.Judge.RequestTimeout,
		PollInterval:    appCfg.Judge.PollInterval,
		MaxPollInterval: appCfg.Judge.MaxPollInterval,
		MaxPollAttempts: appCfg.Judge.MaxPollAttempts,
		MaxBatchSize:    appCfg.Judge.MaxBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init judge client failed: %w", err)
	}
	judge, err := grader.New(engine)
	if err != nil {
		return nil, fmt.Errorf("init grader failed: %w", err)
	}

	var blacklist *gatewayRepository.TokenBlacklistRepository
	if cacheClient != nil {
		local := gatewayRepository.NewLRUCache[bool](appCfg.Auth.RevokedLocal, appCfg.Auth.RevokedTTL)
		blacklist = gatewayRepository.NewTokenBlacklistRepository(local, cacheClient, appCfg.Redis.ReadTimeout)
	}
	auth, err := gatewayService.NewAuthService(gatewayService.AuthConfig{
		JWTSecret: appCfg.Auth.JWTSecret,
		JWTIssuer: appCfg.Auth.JWTIssuer,
		TokenTTL:  appCfg.Auth.TokenTTL,
	}, blacklist)
	if err != nil {
		return nil, fmt.Errorf("init auth failed: %w", err)
	}
	var rate *gatewayService.RateLimitService
	if cacheClient != nil {
		rate = gatewayService.NewRateLimitService(cacheClient, appCfg.Auth.CredentialRate.Window, appCfg.Redis.ReadTimeout)
	}

	problemRepo := problemRepository.NewProblemRepositoryWithTTL(store, cacheClient, appCfg.Problem.CacheTTL, appCfg.Problem.CacheEmptyTTL)
	userRepo := userRepository.NewUserRepository(store, cacheClient)
	submissionRepo := submitRepository.NewSubmissionRepository(store, cacheClient)

	submissions, err := submitService.NewSubmitService(submitService.Config{
		SubmissionRepo: submissionRepo,
		Problems:       problemRepo,
		Solved:         userRepo,
		Registry:       registry,
		Grader:         judge,
		Cache:          cacheClient,
		Storage:        objects,
		Producer:       producer,
		EventTopic:     appCfg.Kafka.JudgedTopic,
		ArchiveBucket:  appCfg.Submit.ArchiveBucket,
		ArchivePrefix:  appCfg.Submit.ArchivePrefix,
		MaxCodeBytes:   appCfg.Submit.MaxCodeBytes,
		RateLimit: submitService.RateLimitConfig{
			UserMax: appCfg.Submit.RateLimit.UserMax,
			Window:  appCfg.Submit.RateLimit.Window,
		},
		Timeouts: submitService.TimeoutConfig{
			Judge:   appCfg.Submit.Timeouts.Judge,
			DB:      appCfg.Submit.Timeouts.DB,
			Cache:   appCfg.Submit.Timeouts.Cache,
			MQ:      appCfg.Submit.Timeouts.MQ,
			Storage: appCfg.Submit.Timeouts.Storage,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init submit service failed: %w", err)
	}

	problems, err := problemService.NewProblemService(problemService.Config{
		Repo:                  problemRepo,
		Registry:              registry,
		Grader:                judge,
		Submissions:           submissions,
		Events:                problemService.NewEventPublisher(producer, appCfg.Kafka.ProblemTopic),
		ValidationTimeout:     appCfg.Problem.ValidationTimeout,
		ValidationConcurrency: appCfg.Problem.ValidationConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("init problem service failed: %w", err)
	}

	users, err := userService.NewUserService(userService.Config{
		Users:       userRepo,
		Tokens:      auth,
		Problems:    problems,
		Submissions: submissions,
		BcryptCost:  appCfg.Auth.BcryptCost,
	})
	if err != nil {
		return nil, fmt.Errorf("init user service failed: %w", err)
	}
	auth.SetUserChecker(users)

	return &services{auth: auth, rate: rate, users: users, problem: problems, submit: submissions}, nil
}

func buildHTTPServer(appCfg *AppConfig, svcs *services) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(gatewayMiddleware.CORSMiddleware(appCfg.CORS))
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	if appCfg.Server.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("")
	auth := gatewayMiddleware.AuthMiddleware(svcs.auth)
	admin := gatewayMiddleware.RequireRole(string(userRepository.UserRoleAdmin))
	credentialLimit := gatewayMiddleware.RateLimitMiddleware(svcs.rate, "credentials", appCfg.Auth.CredentialRate)

	userController.NewAuthController(svcs.users, appCfg.Auth.Cookie).RegisterRoutes(api, auth, admin, credentialLimit)
	problemController.NewProblemController(svcs.problem).RegisterRoutes(api, auth, admin)
	submitController.NewSubmitController(svcs.submit).RegisterRoutes(api, auth)

	return &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
