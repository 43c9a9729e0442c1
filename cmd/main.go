package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"ecosakshi/backend/internal/api/handler"
	"ecosakshi/backend/internal/apikey"
	"ecosakshi/backend/internal/lifecycle"
	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/notify"
	"ecosakshi/backend/internal/payment"
	"ecosakshi/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "ecosakshi"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.StatusChange{},
		&models.MediaAttachment{},
		&models.APIKey{},
		&models.PaymentOrder{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Eco Sakshi Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	templates, err := notify.NewTemplateStore(envOr("LOCALES_DIR", "locales"))
	if err != nil {
		log.Fatalf("Failed to load notification templates: %v", err)
	}

	// Notification channels: websocket broadcast always; Telegram and SMTP
	// only when configured.
	channels := []notify.Channel{&notify.BroadcastChannel{Storage: s}}

	var botService *notify.BotService
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		botService, err = notify.NewBotService(token, s, templates)
		if err != nil {
			log.Fatalf("Failed to start Telegram bot: %v", err)
		}
		channels = append(channels, botService.Channel())
	}

	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		smtpPort, _ := strconv.Atoi(envOr("SMTP_PORT", "587"))
		channels = append(channels, notify.NewMailer(
			smtpHost,
			smtpPort,
			os.Getenv("SMTP_USER"),
			os.Getenv("SMTP_PASSWORD"),
			envOr("SMTP_FROM", "noreply@ecosakshi.in"),
		))
	}

	dispatcher := notify.NewDispatcher(s, templates, channels...)
	hub := notify.NewHub(s)

	gateway := payment.New(os.Getenv("RAZORPAY_KEY_ID"), os.Getenv("RAZORPAY_KEY_SECRET"))

	lifecycleSvc := lifecycle.NewService(s, dispatcher)
	keySvc := apikey.NewService(s, gateway, dispatcher)

	go hub.Run()
	if botService != nil {
		go botService.Run()
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is not set!")
	}

	r := gin.Default()
	h := handler.NewHandler(lifecycleSvc, keySvc, s, hub, []byte(jwtSecret))

	// Public surface
	r.POST("/api/users", h.RegisterUser)
	r.POST("/api/auth/token", h.IssueToken)
	r.GET("/track/:complaintId", h.TrackReport)
	r.GET("/ws", h.ServeWebSocket)

	// Authenticated app surface
	api := r.Group("/api", h.AuthRequired())
	{
		api.POST("/reports", h.CreateReport)
		api.GET("/reports", h.ListReports)
		api.GET("/reports/:id", h.GetReport)
		api.PATCH("/reports/:id/severity", h.UpdateSeverity)

		staff := api.Group("", handler.RequireRole(models.RoleAuthority, models.RoleAdmin))
		{
			staff.PATCH("/reports/:id/status", h.UpdateStatus)
			staff.POST("/reports/:id/resolve", h.ResolveReport)
			staff.POST("/reports/bulk", h.BulkAction)
		}

		ngo := api.Group("/keys", handler.RequireRole(models.RoleNGO, models.RoleAdmin))
		{
			ngo.POST("/trial", h.IssueTrialKey)
			ngo.GET("", h.ListKeys)
			ngo.DELETE("/:id", h.RevokeKey)
			ngo.POST("/orders", h.CreateOrder)
			ngo.POST("/orders/verify", h.VerifyOrder)
		}
	}

	// External data API, authenticated by API key
	data := r.Group("/data/v1", h.APIKeyAuth())
	{
		data.GET("/reports", h.DataReports)
	}

	server := &http.Server{
		Addr:           ":" + envOr("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
