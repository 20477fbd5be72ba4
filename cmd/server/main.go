package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"colab-review-server/internal/config"
	"colab-review-server/internal/domain"
	"colab-review-server/internal/handler"
	"colab-review-server/internal/middleware"
	"colab-review-server/internal/realtime"
	"colab-review-server/internal/repository"
	"colab-review-server/internal/service"
	"colab-review-server/internal/session"
	"colab-review-server/internal/websocket"
	"colab-review-server/pkg/response"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		logger.Fatal("failed to connect to CouchDB", zap.Error(err))
	}

	if err := ensureDatabase(context.Background(), client, cfg.Database.Name, logger); err != nil {
		logger.Fatal("failed to prepare database", zap.String("db", cfg.Database.Name), zap.Error(err))
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	profileRepo := repository.NewProfileRepository(client, cfg.Database.Name)
	documentRepo := repository.NewDocumentRepository(client, cfg.Database.Name)
	revisionRepo := repository.NewRevisionRepository(client, cfg.Database.Name)

	var sessions service.RefreshSessionStore
	var redisStore *session.RedisStore
	if cfg.Redis.URL != "" {
		redisStore, err = session.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		logger.Warn("REDIS_URL not set, refresh tokens cannot be revoked before they expire")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := realtime.NewHub(logger.Named("hub"))
	feed := realtime.NewCouchFeed(client, cfg.Database.Name, hub, logger.Named("feed"))
	go feed.Run(ctx)

	wsManager := websocket.NewManager(websocket.ManagerConfig{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, logger.Named("websocket"))
	go wsManager.Run(ctx)

	authService := service.NewAuthService(
		userRepo,
		profileRepo,
		sessions,
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
		logger.Named("auth"),
	)
	resolver := service.NewOrganizationResolver(profileRepo, logger.Named("resolver"))
	documentService := service.NewDocumentService(documentRepo)
	revisionService := service.NewRevisionService(revisionRepo, profileRepo, logger.Named("revisions"))

	profileChanges := hub.Subscribe(realtime.Filter{Kind: domain.KindProfiles})
	go revisionService.FollowProfileChanges(profileChanges.C())

	authHandler := handler.NewAuthHandler(authService, wsManager, logger)
	organizationHandler := handler.NewOrganizationHandler(resolver, logger)
	documentHandler := handler.NewDocumentHandler(documentService, resolver, logger)
	revisionHandler := handler.NewRevisionHandler(revisionService, documentService, resolver, logger)
	wsHandler := handler.NewWebSocketHandler(wsManager, authService, handler.WorkspaceDeps{
		Resolver:        resolver,
		Documents:       documentService,
		Revisions:       revisionService,
		Changes:         hub,
		HighlightWindow: cfg.Workspace.HighlightWindow,
	}, cfg.WebSocket, logger.Named("workspace"))

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger.Named("http")))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, logger.Named("ratelimit")).Middleware())
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/signup", authHandler.SignUp).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/signin", authHandler.SignIn).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/signout", authHandler.SignOut).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(authService))

	protected.HandleFunc("/session", authHandler.Session).Methods("GET", "OPTIONS")
	protected.HandleFunc("/organization", organizationHandler.Get).Methods("GET", "OPTIONS")

	protected.HandleFunc("/documents", documentHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/documents", documentHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/documents/{id}", documentHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/documents/{id}", documentHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/documents/{id}/revisions", revisionHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/documents/{id}/revisions", revisionHandler.Submit).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", healthHandler(client, redisStore)).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting colab review server",
			zap.String("addr", addr),
			zap.String("env", cfg.Server.Env),
			zap.String("couchdb", fmt.Sprintf("%s:%s", cfg.Database.Host, cfg.Database.Port)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	stop()
	profileChanges.Close()
	resolver.Wait()

	logger.Info("server stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func ensureDatabase(ctx context.Context, client *kivik.Client, name string, logger *zap.Logger) error {
	exists, err := client.DBExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := client.CreateDB(ctx, name); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	logger.Info("created database", zap.String("db", name))
	return nil
}

func healthHandler(client *kivik.Client, redisStore *session.RedisStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"service": "colab-review-server", "couchdb": "ok"}
		healthy := true

		if up, err := client.Ping(ctx); err != nil || !up {
			status["couchdb"] = "unreachable"
			healthy = false
		}
		if redisStore != nil {
			status["redis"] = "ok"
			if err := redisStore.Ping(ctx); err != nil {
				status["redis"] = "unreachable"
				healthy = false
			}
		}

		if !healthy {
			response.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		response.Success(w, status)
	}
}
