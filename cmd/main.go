package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"wingmate/backend/internal/api/handler"
	"wingmate/backend/internal/autopilot"
	"wingmate/backend/internal/config"
	"wingmate/backend/internal/logger"
	"wingmate/backend/internal/models"
	"wingmate/backend/internal/realtime"
	"wingmate/backend/internal/storage"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Match{},
		&models.Message{},
		&models.Profile{},
		&models.SeedProfile{},
		&models.ReadReceipt{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	bus, err := realtime.NewRedisBus(zlog, rdb)
	if err != nil {
		zlog.Fatal("failed to build realtime bus", "error", err)
	}

	synth, err := autopilot.NewSynthesizer(zlog, cfg.OpenAIKey, cfg.OpenAIModel)
	if err != nil {
		zlog.Fatal("failed to build synthesizer", "error", err)
	}
	broadcaster := autopilot.NewBroadcaster(zlog, bus)
	orchestrator := autopilot.NewOrchestrator(zlog, s, synth, broadcaster, cfg.MaxTurnsPerSide)

	hub := realtime.NewHub(zlog, bus)
	go hub.Run(context.Background())

	r := gin.Default()
	h := handler.NewHandler(zlog, s, hub, orchestrator, synth, broadcaster, cfg.JWTSecret)

	r.GET("/token", h.IssueToken)
	r.GET("/ws", h.ServeWebSocket)

	r.POST("/webhook/message", h.HandleMessageWebhook)
	r.POST("/autopilot/draft", h.HandleDraft)

	r.GET("/matches", h.ListMatches)
	r.POST("/matches/seed", h.LikeSeed)
	r.POST("/matches/user", h.LikeUser)
	r.POST("/matches/:matchId/autopilot", h.SetAutopilot)
	r.GET("/matches/:matchId/messages", h.GetMessages)
	r.POST("/matches/:matchId/messages", h.SendMessage)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	zlog.Info("wingmate backend listening", "addr", cfg.HTTPAddr)
	log.Fatal(server.ListenAndServe())
}
