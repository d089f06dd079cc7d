package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wager-settlement-system/handlers"
	"wager-settlement-system/middleware"
	"wager-settlement-system/models"
	"wager-settlement-system/services"
	"wager-settlement-system/workers"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB, this service only moves JSON
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cfg := services.LoadSettlementConfig()

	// Redis is optional; without it the leaderboard reads straight from
	// the database.
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("⚠️  Redis at %s unreachable, leaderboard cache disabled: %v", addr, err)
			rdb = nil
		}
	}

	ledgerService := services.NewLedgerService(db)
	ratingService := services.NewRatingService(db)
	notificationService := services.NewNotificationService(db)
	referralService := services.NewReferralService(ledgerService, cfg.ReferralBonus)
	matchService := services.NewMatchService(db, cfg, ledgerService, ratingService, referralService, notificationService)
	tournamentService := services.NewTournamentService(db, cfg, ledgerService, ratingService, notificationService)
	accountService := services.NewAccountService(db, ratingService)
	leaderboardService := services.NewLeaderboardService(db, rdb)

	// The fee wallet is an ordinary account; make sure it exists before
	// the first settlement tries to credit it.
	if _, err := accountService.EnsureAccount(cfg.FeeAccountID, "platform_fee_wallet"); err != nil {
		log.Fatal("failed to ensure fee wallet account:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without a subscription service every winner pays the fee; the worker
	// is optional so local setups do not need the whole platform running.
	if subscriptionServiceURL := os.Getenv("SUBSCRIPTION_SERVICE_URL"); subscriptionServiceURL != "" {
		serviceToken := os.Getenv("SETTLEMENT_SERVICE_TOKEN")
		subscriptionSync := workers.NewSubscriptionSyncWorker(db, subscriptionServiceURL, "/api/v1/public/subscriptions", serviceToken)
		subscriptionSync.Start(ctx)
	} else {
		log.Println("⚠️  SUBSCRIPTION_SERVICE_URL not set, subscription mirroring disabled")
	}

	ledgerAudit := workers.NewLedgerAuditWorker(db, 15*time.Minute)
	ledgerAudit.Start(ctx)

	sweeps, err := services.StartSettlementSweeps(matchService, tournamentService)
	if err != nil {
		log.Fatal("failed to start settlement sweeps:", err)
	}

	// ✅ Setup routes — now with enforced Gateway auth
	handlers.SetupRoutes(app, matchService, tournamentService, accountService, leaderboardService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Ledger Audit Worker running")
	log.Println("✅ Settlement sweeps running (every 1m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := sweeps.Shutdown(); err != nil {
		log.Printf("sweep scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
