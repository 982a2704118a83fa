package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/horizon-travel/tourbook/config"
	"github.com/horizon-travel/tourbook/internal/analytics"
	"github.com/horizon-travel/tourbook/internal/auth"
	"github.com/horizon-travel/tourbook/internal/bookings"
	"github.com/horizon-travel/tourbook/internal/discounts"
	"github.com/horizon-travel/tourbook/internal/emaillogs"
	"github.com/horizon-travel/tourbook/internal/middleware"
	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/internal/payments"
	"github.com/horizon-travel/tourbook/internal/realtime"
	"github.com/horizon-travel/tourbook/internal/tours"
	"github.com/horizon-travel/tourbook/pkg/database"
	"github.com/horizon-travel/tourbook/pkg/queue"
	redisclient "github.com/horizon-travel/tourbook/pkg/redis"
	"github.com/horizon-travel/tourbook/pkg/response"
	"github.com/horizon-travel/tourbook/pkg/storage"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	rdb, err := redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	s3, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ImagesBucket:         cfg.AWS.ImagesBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("init s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	hub := realtime.NewHub(rdb.Client, logger)
	go hub.Run(ctx)

	userRepo := auth.NewRepository(pool)
	tourRepo := tours.NewRepository(pool)
	discountRepo := discounts.NewRepository(pool)
	bookingRepo := bookings.NewRepository(pool)
	emailLogRepo := emaillogs.NewRepository(pool)

	authHandler := auth.NewHandler(userRepo, jwtService, jobQueue, logger)
	tourHandler := tours.NewHandler(tourRepo, s3, logger)
	discountHandler := discounts.NewHandler(discountRepo, logger)
	bookingHandler := bookings.NewHandler(bookingRepo, tourRepo, discountRepo, userRepo,
		payments.NewBuilder(cfg.Payment), jobQueue, hub, logger)
	analyticsHandler := analytics.NewHandler(pool, logger)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo, bookingRepo, tourRepo, userRepo, jobQueue, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Logger(logger), gin.Recovery(), middleware.CORS(cfg.Server.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	}

	tourGroup := api.Group("/tours")
	{
		tourGroup.GET("", tourHandler.List)
		tourGroup.GET("/search", tourHandler.Search)
		tourGroup.GET("/upcoming", tourHandler.Upcoming)
		tourGroup.GET("/popular", tourHandler.Popular)
		tourGroup.GET("/:id", tourHandler.GetByID)
		tourGroup.GET("/:id/image", tourHandler.ImageURL)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(jwtService))
	{
		authed.GET("/profile", authHandler.Profile)
		authed.PATCH("/profile", authHandler.UpdateProfile)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.GET("/discounts/validate", discountHandler.ValidateCode)

		authed.POST("/bookings/quote", bookingHandler.Quote)
		authed.POST("/bookings", bookingHandler.Create)
		authed.GET("/bookings", bookingHandler.MyBookings)
		authed.GET("/bookings/reference/:ref", bookingHandler.GetByReference)
		authed.GET("/bookings/:id", bookingHandler.GetByID)
		authed.GET("/bookings/:id/qr", bookingHandler.QRImage)
		authed.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(string(models.RoleAdmin)))
	{
		admin.GET("/users", authHandler.List)
		admin.POST("/users", authHandler.AdminCreate)
		admin.PATCH("/users/:id", authHandler.AdminUpdate)
		admin.POST("/users/:id/reset-password", authHandler.AdminResetPassword)
		admin.DELETE("/users/:id", authHandler.AdminDelete)

		admin.GET("/tours", tourHandler.ListAll)
		admin.POST("/tours", tourHandler.Create)
		admin.PUT("/tours/:id", tourHandler.Update)
		admin.DELETE("/tours/:id", tourHandler.Delete)
		admin.POST("/tours/:id/image", tourHandler.UploadImage)

		admin.GET("/discounts", discountHandler.List)
		admin.POST("/discounts", discountHandler.Create)
		admin.POST("/discounts/deactivate-expired", discountHandler.DeactivateExpired)
		admin.GET("/discounts/:id", discountHandler.GetByID)
		admin.PATCH("/discounts/:id", discountHandler.Update)
		admin.DELETE("/discounts/:id", discountHandler.Delete)

		admin.GET("/bookings", bookingHandler.List)
		admin.POST("/bookings/:id/approve", bookingHandler.Approve)
		admin.POST("/bookings/:id/reject", bookingHandler.Reject)

		admin.GET("/analytics/revenue", analyticsHandler.Revenue)
		admin.GET("/analytics/tours", analyticsHandler.Tours)

		admin.GET("/email-logs", emailLogHandler.List)
		admin.POST("/email-logs/:id/resend", emailLogHandler.Resend)

		admin.GET("/ws/bookings", realtime.ServeWS(hub, logger))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
