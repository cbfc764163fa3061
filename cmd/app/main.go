package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerfiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"

	_ "lottery-bot-backend/docs"
	"lottery-bot-backend/internal/common/config"
	"lottery-bot-backend/internal/common/logger"
	"lottery-bot-backend/internal/common/middleware"
	lotteryhttp "lottery-bot-backend/internal/features/lottery/delivery/http"
	lotteryredis "lottery-bot-backend/internal/features/lottery/repository/redis"
	"lottery-bot-backend/internal/features/lottery/service"
	"lottery-bot-backend/internal/platform/redis"
	"lottery-bot-backend/internal/platform/telegram"
)

// @title           Lottery Bot API
// @version         1.0
// @description     API server for group lotteries run by the messaging bot. All endpoints require init_data authentication.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data string for authentication

// @tag.name lotteries
// @tag.description Lottery management - creation, publishing, participation and results

func main() {
	cfg := config.Load()
	logger.Init("lottery-bot-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	repo := lotteryredis.NewLotteryRepository(redisClient)
	tgClient := telegram.NewClient(cfg.Telegram.BotToken)

	svc := service.NewLotteryService(repo, tgClient, log.Logger)
	scheduler := service.NewScheduler(svc, repo, service.SchedulerConfig{
		SweepInterval: cfg.Lottery.SweepInterval,
		DraftTTL:      cfg.Lottery.DraftTTL,
		Retention:     cfg.Lottery.Retention,
	}, log.Logger)
	svc.AttachScheduler(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "init_data"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.InitData())

	router.GET("/swagger/*any", ginswagger.WrapHandler(swaggerfiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.RequireAuth())
	lotteryhttp.NewLotteryHandler(svc).RegisterRoutes(api)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
		os.Exit(1)
	}
}
