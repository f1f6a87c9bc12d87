package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/config"
	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/handlers"
	"github.com/dkrasner/taskmind/internal/logger"
	"github.com/dkrasner/taskmind/internal/middleware"
	"github.com/dkrasner/taskmind/internal/queue"
	"github.com/dkrasner/taskmind/internal/services/ai"
	"github.com/dkrasner/taskmind/internal/services/oidc"
	"github.com/dkrasner/taskmind/internal/telemetry"
)

const serviceName = "taskmind-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync() // Ignore sync errors in production
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var otelReady bool
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				otelReady = true
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		zapLogger.Fatal("failed_to_run_migrations", zap.Error(err))
	}
	migrateCancel()

	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting (optional)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_parse_redis_url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		pingCancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}

	// Connect to RabbitMQ for the re-analysis queue (optional). Retry with
	// exponential backoff to ride out broker startup delays.
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue, err = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_rabbitmq")
	} else {
		zapLogger.Warn("rabbitmq_not_configured_reanalysis_disabled")
	}

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)
	categoryRepo := database.NewCategoryRepository(db)
	contextRepo := database.NewContextEntryRepository(db)
	userRepo := database.NewUserRepository(db)

	// Initialize the completion provider. A missing key is not fatal; the
	// suggestion engine and analyzer fall back to heuristics.
	provider, err := createProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("completion_provider_unavailable_using_heuristics", zap.Error(err))
		provider = nil
	}

	engine := ai.NewSuggestionEngine(provider, zapLogger)
	analyzer := ai.NewContextAnalyzer(provider, zapLogger)

	// Initialize OIDC (optional)
	var oidcClient *oidc.Client
	var verifier *oidc.Verifier
	if cfg.OIDCIssuer != "" {
		oidcClient = oidc.NewClient(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURI)
		verifier = oidc.NewVerifier(oidc.NewJWKSManager(), cfg.OIDCIssuer)
	} else {
		zapLogger.Warn("oidc_not_configured_authenticated_routes_will_reject")
	}

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(taskRepo, categoryRepo, contextRepo, engine, zapLogger)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo)
	contextHandler := handlers.NewContextEntryHandler(contextRepo, analyzer, jobQueue, zapLogger)
	authHandler := handlers.NewAuthHandler(oidcClient)
	healthChecker := handlers.NewHealthChecker(db, redisClient, jobQueue)

	// Setup router
	r := mux.NewRouter()

	if otelReady {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS([]string{cfg.FrontendURL}))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// Rate limiting needs Redis; without it routes run unlimited
	rateLimitMW := passthrough
	if redisClient != nil {
		rateLimitMW, err = middleware.RateLimit(redisClient, cfg.RateLimit)
		if err != nil {
			zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
		}
	}

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	authMW := middleware.Auth(userRepo, verifier, cfg.OIDCJWKSURL, zapLogger)

	// Auth routes
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	loginRouter := authRouter.PathPrefix("/oidc").Subrouter()
	loginRouter.Use(rateLimitMW)
	loginRouter.HandleFunc("/login", authHandler.GetOIDCLogin).Methods("GET")

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	protectedAuthRouter.HandleFunc("/me", authHandler.GetMe).Methods("GET")

	// Task routes (protected)
	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	tasksRouter.Use(authMW)
	tasksRouter.Use(rateLimitMW)
	taskHandler.RegisterRoutes(tasksRouter)

	// Category routes (protected)
	categoriesRouter := apiRouter.PathPrefix("/categories").Subrouter()
	categoriesRouter.Use(authMW)
	categoriesRouter.Use(rateLimitMW)
	categoryHandler.RegisterRoutes(categoriesRouter)

	// Context entry routes (protected)
	contextRouter := apiRouter.PathPrefix("/context").Subrouter()
	contextRouter.Use(authMW)
	contextRouter.Use(rateLimitMW)
	contextHandler.RegisterRoutes(contextRouter)

	// Catch-all OPTIONS handler so preflight requests succeed on every route
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ dials the broker with exponential backoff
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			return jobQueue, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	return nil, lastErr
}

// createProvider creates a completion provider based on configuration
func createProvider(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) (ai.CompletionProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			zapLogger,
			debugMode,
		), nil
	}

	// Fallback to registry for other providers (without logger)
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	providerConfig := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}

	return registry.GetProvider(providerType, providerConfig)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
