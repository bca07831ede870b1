package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mveit/entente/internal/auth"
	"github.com/mveit/entente/internal/config"
	"github.com/mveit/entente/internal/handler"
	"github.com/mveit/entente/internal/logger"
	"github.com/mveit/entente/internal/middleware"
	"github.com/mveit/entente/internal/repository/postgres"
	redisrepo "github.com/mveit/entente/internal/repository/redis"
	"github.com/mveit/entente/internal/service"
	"github.com/mveit/entente/pkg/dipmap"
)

func main() {
	logger.Init()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	log.Info().Str("port", cfg.Port).Msg("Config loaded")

	// Boards
	standard, err := dipmap.Standard()
	if err != nil {
		log.Fatal().Err(err).Msg("Standard map failed to parse")
	}
	maps := map[string]*dipmap.Map{"standard": standard}

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Enable Redis keyspace notifications for deadline expiry events.
	if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (deadline expiry may not work)")
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	gameRepo := postgres.NewGameRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	identity := auth.NewIdentityService(userRepo)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	deadlines := service.Deadlines{
		Move:    cfg.MoveDeadline,
		Retreat: cfg.RetreatDeadline,
		Build:   cfg.BuildDeadline,
	}
	gameSvc := service.NewGameService(gameRepo, redisClient, maps, deadlines, wsHub)

	// Deadline listener (auto-resolve on expiry)
	deadlineListener := service.NewDeadlineListener(redisClient.Underlying(), gameSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo)
	userHandler := handler.NewUserHandler(userRepo)
	gameHandler := handler.NewGameHandler(gameSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("GET /auth/dev", authHandler.DevLogin)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)
	api.HandleFunc("GET /users/{id}", userHandler.GetUser)
	api.HandleFunc("GET /maps", gameHandler.ListMaps)
	api.HandleFunc("GET /maps/{name}", gameHandler.GetMap)
	api.HandleFunc("POST /games", gameHandler.CreateGame)
	api.HandleFunc("GET /games", gameHandler.ListGames)
	api.HandleFunc("GET /games/{id}", gameHandler.GetGame)
	api.HandleFunc("DELETE /games/{id}", gameHandler.DeleteGame)
	api.HandleFunc("POST /games/{id}/claim", gameHandler.ClaimCountry)
	api.HandleFunc("POST /games/{id}/orders", gameHandler.SubmitOrders)
	api.HandleFunc("POST /games/{id}/ready", gameHandler.MarkReady)
	api.HandleFunc("DELETE /games/{id}/ready", gameHandler.UnmarkReady)
	api.HandleFunc("POST /games/{id}/draw/vote", gameHandler.VoteDraw)
	api.HandleFunc("DELETE /games/{id}/draw/vote", gameHandler.UnvoteDraw)

	permMw := auth.RequirePermission(identity, auth.AppName)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(permMw(api))))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Resolve phases whose deadline lapsed while the server was down.
	if err := gameSvc.RecoverActiveGames(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	}

	// Start deadline listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deadlineListener.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
