package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-portal-api/internal/config"
	"github.com/noah-isme/lms-portal-api/internal/database"
	"github.com/noah-isme/lms-portal-api/internal/handler"
	"github.com/noah-isme/lms-portal-api/internal/middleware"
	"github.com/noah-isme/lms-portal-api/internal/models"
	"github.com/noah-isme/lms-portal-api/internal/repository"
	"github.com/noah-isme/lms-portal-api/internal/router"
	"github.com/noah-isme/lms-portal-api/internal/service"
	"github.com/noah-isme/lms-portal-api/pkg/ai"
	cloud "github.com/noah-isme/lms-portal-api/pkg/cloudinary"
	"github.com/noah-isme/lms-portal-api/pkg/midtrans"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Question{},
		&models.Submission{},
		&models.Answer{},
		&models.Grade{},
		&models.AttendanceRecord{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.Video{},
		&models.VideoProgress{},
		&models.OfficeHourSlot{},
		&models.Invoice{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, caching and fan-out degraded")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats not configured, jobs run inline")
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	var gateway service.PaymentGateway
	if cfg.MidtransServerKey != "" {
		snap, err := midtrans.New(midtrans.Config{
			ServerKey:  cfg.MidtransServerKey,
			Production: cfg.MidtransProduction,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create midtrans client: %v", err)
		}
		gateway = snap
	}

	var drafter ai.Drafter
	if cfg.OpenAIAPIKey != "" {
		drafter, err = ai.NewOpenAIDrafter(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIFeedbackModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create feedback drafter: %v", err)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	officeHourRepo := repository.NewOfficeHourRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	authService := service.NewAuthService(userRepo, service.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, validate, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	dashboardService := service.NewDashboardService(assignmentRepo, submissionRepo, gradeRepo, enrollmentRepo, redisClient, cfg.DashboardCacheTTL, logger)
	gradingService := service.NewGradingService(submissionRepo, gradeRepo, natsConn, cfg.ChannelBase, cfg.GradingMaxAttempts, notificationService, dashboardService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, enrollmentRepo, gradingService, dashboardService, validate, cfg.SubmissionSweepEvery, cfg.SubmissionGrace, logger)
	gradeService := service.NewGradeService(gradeRepo, submissionRepo, drafter, notificationService, dashboardService, validate, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, courseRepo, validate, logger)
	chatService := service.NewChatService(chatRepo, enrollmentRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	videoService := service.NewVideoService(videoRepo, courseRepo, uploader, cfg.UploadMaxSizeMB, validate, logger)
	officeHourService := service.NewOfficeHourService(officeHourRepo, validate, logger)
	paymentService := service.NewPaymentService(invoiceRepo, userRepo, gateway, notificationService, validate, logger)
	activityService := service.NewActivityService(activityRepo, logger)

	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	notificationService.Start(runCtx)
	chatService.Start(runCtx)
	gradingService.Start(runCtx)
	submissionService.Start(runCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, validate, logger),
		UserHandler:         handler.NewUserHandler(userService, activityService, validate, logger),
		CourseHandler:       handler.NewCourseHandler(courseService, activityService, validate, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, activityService, validate, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, validate, logger),
		GradeHandler:        handler.NewGradeHandler(gradeService, activityService, validate, logger),
		AttendanceHandler:   handler.NewAttendanceHandler(attendanceService, validate, logger),
		ChatHandler:         handler.NewChatHandler(chatService, validate, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 30*time.Second),
		VideoHandler:        handler.NewVideoHandler(videoService, validate, logger),
		OfficeHourHandler:   handler.NewOfficeHourHandler(officeHourService, validate, logger),
		PaymentHandler:      handler.NewPaymentHandler(paymentService, activityService, validate, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
