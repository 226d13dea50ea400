package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zedbingo/bingo-engine/config"
	"github.com/zedbingo/bingo-engine/controllers"
	"github.com/zedbingo/bingo-engine/repository"
	"github.com/zedbingo/bingo-engine/routes"
	"github.com/zedbingo/bingo-engine/services"
	"github.com/zedbingo/bingo-engine/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatalf("DATABASE_URL is required in .env or environment")
	}
	if cfg.Debug {
		logger.SetDebug()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}

	games := repository.NewGameRepository(db)
	users := repository.NewUserRepository(db)
	cards := repository.NewCardRepository(db)
	rooms := repository.NewRoomRepository(db)
	txs := repository.NewTransactionRepository(db)

	ctx := context.Background()
	if err := rooms.SeedDefaults(ctx, cfg.Stakes, cfg.MinPlayers, cfg.CountdownSec, cfg.CallIntervalSec, cfg.CommissionRate); err != nil {
		logger.Fatalf("failed to seed rooms: %v", err)
	}

	hub := services.NewHub()
	wallet := services.NewWalletService(users, txs)
	scheduler := services.NewScheduler(games, hub)
	engine := services.NewEngine(games, users, cards, rooms, wallet, scheduler, hub)

	// A restart loses every in-memory timer; sweep once now, then
	// periodically as the out-of-band safety net.
	if err := engine.RecoverStalledGames(ctx); err != nil {
		logger.Errorf("boot recovery sweep failed: %v", err)
	}
	recoveryCron, err := engine.StartRecoveryCron(cfg.RecoveryCronSpec)
	if err != nil {
		logger.Fatalf("failed to schedule recovery sweep: %v", err)
	}

	api := controllers.New(engine, games, users, txs, rooms)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})
	r.GET("/ws/:room_id", engine.HandleWebSocket(hub))
	routes.SetupRoutes(r, api)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("bingo engine listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("shutting down")

	recoveryCron.Stop()
	scheduler.Drain()

	timeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(timeout); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
}
