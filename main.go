package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"playquestAPI/handlers"
	"playquestAPI/internal/notification"
	"playquestAPI/middleware"
	"playquestAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	userService         *services.UserService
	walletService       *services.WalletService
	experienceService   *services.ExperienceService
	streakService       *services.StreakService
	notificationService *services.NotificationService
	achievementService  *services.AchievementService
	challengeService    *services.ChallengeService
	gameService         *services.GameService
	rewardService       *services.RewardService
	taskService         *services.TaskService
	progressionService  *services.ProgressionService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	userService = services.NewUserService(dbPool)
	walletService = services.NewWalletService(dbPool)
	experienceService = services.NewExperienceService(dbPool)
	streakService = services.NewStreakService(dbPool)
	notificationService = services.NewNotificationService(dbPool)
	experienceService.SetNotificationService(notificationService)
	achievementService = services.NewAchievementService(dbPool, walletService, experienceService, notificationService)
	challengeService = services.NewChallengeService(dbPool)
	walletService.SetChallengeService(challengeService)
	gameService = services.NewGameService(dbPool, walletService, experienceService, streakService, achievementService, challengeService)
	rewardService = services.NewRewardService(dbPool)
	taskService = services.NewTaskService(dbPool, achievementService, challengeService)
	progressionService = services.NewProgressionService(dbPool)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	userHandler := handlers.NewUserHandler(userService)
	walletHandler := handlers.NewWalletHandler(walletService, userService)
	progressionHandler := handlers.NewProgressionHandler(experienceService, streakService, achievementService, progressionService, userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, userService)
	gameHandler := handlers.NewGameHandler(gameService, userService)
	rewardHandler := handlers.NewRewardHandler(rewardService, userService)
	taskHandler := handlers.NewTaskHandler(taskService, userService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, userService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.Cleanup()

	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "playquest-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public reads: game catalog and leaderboard work without a session.
	public := api.PathPrefix("").Subrouter()
	public.Use(middleware.OptionalAuthMiddleware)
	public.HandleFunc("/games", gameHandler.GetGames).Methods("GET")
	public.HandleFunc("/leaderboard", progressionHandler.GetLeaderboard).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/wallet", walletHandler.GetWallet).Methods("GET")
	protected.HandleFunc("/wallet/transactions", walletHandler.GetTransactions).Methods("GET")
	protected.HandleFunc("/wallet/credit", walletHandler.Credit).Methods("POST")

	protected.HandleFunc("/experience/add", progressionHandler.AddXP).Methods("POST")
	protected.HandleFunc("/experience", progressionHandler.GetLevelState).Methods("GET")

	protected.HandleFunc("/streak/touch", progressionHandler.TouchStreak).Methods("POST")
	protected.HandleFunc("/streak", progressionHandler.GetStreak).Methods("GET")

	protected.HandleFunc("/achievements/evaluate", progressionHandler.EvaluateAchievements).Methods("POST")
	protected.HandleFunc("/achievements", progressionHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/achievements/{id}/progress", progressionHandler.GetAchievementProgress).Methods("GET")

	protected.HandleFunc("/challenges/initialize", challengeHandler.Initialize).Methods("POST")
	protected.HandleFunc("/challenges/progress", challengeHandler.BumpProgress).Methods("POST")
	protected.HandleFunc("/challenges/claim", challengeHandler.Claim).Methods("POST")
	protected.HandleFunc("/challenges", challengeHandler.GetChallenges).Methods("GET")

	protected.HandleFunc("/games/complete", gameHandler.CompleteGame).Methods("POST")
	protected.HandleFunc("/games/progress", gameHandler.GetProgress).Methods("GET")

	protected.HandleFunc("/rewards", rewardHandler.GetCatalog).Methods("GET")
	protected.HandleFunc("/rewards/redeem", rewardHandler.Redeem).Methods("POST")
	protected.HandleFunc("/rewards/redemptions", rewardHandler.GetRedemptions).Methods("GET")

	protected.HandleFunc("/tasks/submit", taskHandler.Submit).Methods("POST")
	protected.HandleFunc("/tasks/submissions/{id}/approve", taskHandler.Approve).Methods("POST")
	protected.HandleFunc("/tasks/submissions/{id}/reject", taskHandler.Reject).Methods("POST")
	protected.HandleFunc("/tasks/submissions", taskHandler.GetSubmissions).Methods("GET")

	protected.HandleFunc("/progression/summary", progressionHandler.GetSummary).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
