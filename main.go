package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeserve/config"
	"homeserve/cron"
	"homeserve/database"
	bookingRepo "homeserve/database/repository/booking"
	deviceRepo "homeserve/database/repository/device"
	recordsRepo "homeserve/database/repository/records"
	"homeserve/handlers"
	"homeserve/middleware"
	"homeserve/routes"
	"homeserve/services/booking"
	"homeserve/services/cancellation"
	"homeserve/services/cart"
	"homeserve/services/notification"
	"homeserve/services/payment"
	"homeserve/services/settlement"
	"homeserve/services/tracking"
	"homeserve/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()
	cfg := config.AppConfig

	if cfg.JWTSecret == "" {
		logger.Fatal("main: JWT_SECRET must be set")
	}
	loc := config.Location()

	database.InitDB()
	utils.InitCache()
	utils.InitLockCache()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := recordsRepo.EnsureIndexes(ctx, database.MongoClient.Database(cfg.MongoDB)); err != nil {
			logger.Fatal("main: could not create event log indexes", zap.Error(err))
		}
		cancel()
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	utils.StartHealthMonitor(monitorCtx, database.DB, []*redis.Client{utils.CacheClient, utils.LockClient}, database.MongoClient)

	// repositories.
	repo := bookingRepo.NewGormBookingRepo(database.DB, cfg.TxTimeout)
	events := recordsRepo.NewMongoEventLogRepo(database.MongoClient.Database(cfg.MongoDB))
	devices := deviceRepo.NewGormDeviceRepo(database.DB)
	carts := cart.NewRedisStore(utils.CacheClient, cfg.CartTTL)

	// notifications.
	queueOpts := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
	queue := asynq.NewClient(queueOpts)
	defer queue.Close()
	dispatcher := notification.NewQueueDispatcher(queue, logger)

	fcm, err := utils.NewFCMClient(context.Background(), cfg.FirebaseCredentialsFile)
	if err != nil {
		logger.Fatal("main: firebase", zap.Error(err))
	}
	pushService, err := notification.NewDefaultNotificationService(devices, fcm, logger)
	if err != nil {
		logger.Fatal("main: notification service", zap.Error(err))
	}
	worker := cron.NewWorker(queueOpts, pushService, logger)

	// payments.
	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	}, logger)
	commission := &payment.PlanCommission{
		Repo:     repo,
		Prices:   gateway,
		Cache:    utils.CacheClient,
		CacheTTL: time.Hour,
		Default:  cfg.DefaultCommissionRate,
		Logger:   logger,
	}

	// services.
	reservations := &booking.DefaultReservationManager{
		Repo:         repo,
		Ledger:       booking.SlotLedger{},
		Cart:         carts,
		Gateway:      gateway,
		Events:       events,
		Notification: dispatcher,
		Logger:       logger,
		Options: booking.Options{
			HoldDuration: cfg.HoldDuration,
			MinAmount:    cfg.MinBookingAmount,
			Currency:     cfg.Currency,
			Location:     loc,
		},
	}
	settler := &settlement.DefaultCoordinator{
		Repo:         repo,
		Commission:   commission,
		Cart:         carts,
		Events:       events,
		Notification: dispatcher,
		Logger:       logger,
	}
	cancellations := &cancellation.DefaultEngine{
		Repo:         repo,
		Gateway:      gateway,
		Events:       events,
		Notification: dispatcher,
		Logger:       logger,
		Location:     loc,
	}
	tracker := &tracking.DefaultTracker{
		Repo:             repo,
		Events:           events,
		Notification:     dispatcher,
		Logger:           logger,
		Location:         loc,
		EarlyStartWindow: cfg.EarlyStartWindow,
	}

	// background sweeps.
	scheduler := cron.NewScheduler(cron.NewRedisLocker(utils.LockClient), logger, loc)
	reaper := &cron.ExpiryReaper{Repo: repo, Events: events, Logger: logger, HoldDuration: cfg.HoldDuration}
	lookahead, err := cron.SpecInterval(cfg.ReminderSweepSpec, time.Now().In(loc))
	if err != nil {
		logger.Fatal("main: reminder sweep spec", zap.Error(err))
	}
	reminders := &cron.ReminderSweep{
		Repo:      repo,
		Queue:     queue,
		Logger:    logger,
		Location:  loc,
		Lead:      cfg.ReminderLead,
		Lookahead: lookahead,
	}
	if err := scheduler.Add("expiry", cfg.ExpirySweepSpec, time.Minute, reaper.Task()); err != nil {
		logger.Fatal("main: schedule expiry sweep", zap.Error(err))
	}
	if err := scheduler.Add("reminder", cfg.ReminderSweepSpec, 5*time.Minute, reminders.Task()); err != nil {
		logger.Fatal("main: schedule reminder sweep", zap.Error(err))
	}

	handlerBundle := &handlers.HandlerBundle{
		JWTSecret:         []byte(cfg.JWTSecret),
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
		Reservation:       handlers.NewReservationHandler(reservations),
		Cart:              handlers.NewCartHandler(carts),
		Cancellation:      handlers.NewCancellationHandler(cancellations),
		Tracking:          handlers.NewTrackingHandler(tracker),
		Events:            handlers.NewEventsHandler(events, repo),
		Webhook:           handlers.NewWebhookHandler(gateway, settler, cancellations, logger),
		Device:            handlers.NewDeviceHandler(devices),
		Ops:               handlers.NewOpsHandler(scheduler, logger),
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(handlerBundle.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	worker.Start()
	scheduler.Start()

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheduler.Stop(ctx)
	worker.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	database.Close(ctx)
	utils.CloseCaches()

	logger.Sugar().Info("main: server stopped gracefully")
}
