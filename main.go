package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erg-logbook-system/handlers"
	"erg-logbook-system/middleware"
	"erg-logbook-system/models"
	"erg-logbook-system/services"
	"erg-logbook-system/utils"
	"erg-logbook-system/workers"

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

	app := fiber.New()

	// Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-User-ID",
		AllowCredentials: true,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Squad{},
		&models.Member{},
		&models.Profile{},
		&models.FinishedErg{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	c2BaseURL := os.Getenv("C2_BASE_URL")
	if c2BaseURL == "" {
		c2BaseURL = "https://log.concept2.com"
	}
	c2ClientID := os.Getenv("C2_CLIENT_ID")
	c2ClientSecret := os.Getenv("C2_CLIENT_SECRET")
	if c2ClientID == "" || c2ClientSecret == "" {
		log.Fatal("C2_CLIENT_ID / C2_CLIENT_SECRET environment variables not set")
	}
	redirectURI := os.Getenv("C2_REDIRECT_URI")
	if redirectURI == "" {
		log.Fatal("C2_REDIRECT_URI environment variable not set")
	}

	quotesPath := os.Getenv("QUOTES_FILE")
	if quotesPath == "" {
		quotesPath = "static/quotes.json"
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	quotes := services.NewFileQuoteProvider(quotesPath, rnd)

	logbookService := services.NewLogbookService(db)
	leaderboardService := services.NewLeaderboardService(db, rnd, quotes)
	syncService := services.NewSyncService(db, c2BaseURL, utils.C2ResultsClient)
	oauthService := services.NewOAuthService(db, c2BaseURL+"/oauth/access_token",
		c2ClientID, c2ClientSecret, redirectURI, utils.C2OAuthClient)
	profileService := services.NewProfileService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncService.StartAutoSyncScheduler(ctx)

	refreshWorker := workers.NewTokenRefreshWorker(db, oauthService)
	refreshWorker.Start(ctx)

	handlers.SetupLogbookRoutes(app, db, logbookService, leaderboardService, syncService)
	handlers.SetupProfileRoutes(app, db, profileService, oauthService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Erg logbook service running on http://localhost:%s", port)
	log.Println("✅ Nightly Concept2 auto-sync scheduled")
	log.Println("✅ Token refresh worker running")

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
