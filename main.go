package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enaya/config"
	"enaya/cron"
	"enaya/database"
	guestRepo "enaya/database/repository/guest"
	"enaya/handlers"
	"enaya/middleware"
	"enaya/routes"
	"enaya/services/appointment"
	"enaya/services/checkin"
	"enaya/services/directory"
	"enaya/services/payment"
	"enaya/services/tasks"
	"enaya/services/zenoti"
	"enaya/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// checkInTTL bounds how long a recorded check-in suppresses repeats.
const checkInTTL = 24 * time.Hour

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()
	cfg := config.AppConfig

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pingers []utils.Pinger

	// Redis is optional; without it the ledger and token lease stay in memory.
	var notifier checkin.ArrivalNotifier
	var ledger checkin.Ledger = checkin.NewMemoryLedger()
	var tokenCache zenoti.TokenCache
	if cfg.RedisEnabled {
		if err := utils.InitCache(); err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		rc := utils.GetCacheClient()
		defer rc.Close()
		pingers = append(pingers, utils.RedisPinger{Client: rc})
		ledger = checkin.NewRedisLedger(rc, checkInTTL)
		tokenCache = zenoti.NewRedisTokenCache(rc)

		queue := asynq.NewClient(cron.RedisOpt())
		defer queue.Close()
		notifier = tasks.NewArrivalQueue(queue)

		worker := cron.InitArrivalWorker(ctx, cron.LogSink{Logger: logger}, logger)
		defer worker.Shutdown()
	}

	// Guest data source.
	var (
		repo    guestRepo.GuestRepository
		source  appointment.Source
		backend checkin.Backend = checkin.LocalBackend{}
	)
	switch cfg.DataSource {
	case config.SourceMongo:
		if err := database.InitDB(cfg.DatabaseURL); err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		defer database.CloseDB(context.Background())
		mongoRepo, err := guestRepo.NewMongoGuestRepo(database.MongoClient, cfg.DatabaseName)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to prepare guest collection: %v", err)
		}
		pingers = append(pingers, database.MongoPinger{Client: database.MongoClient})
		repo = mongoRepo
		source = appointment.RepoSource{Repo: mongoRepo}
	case config.SourceZenoti:
		platform := zenoti.NewClient(zenoti.Config{
			BaseURL:      cfg.ZenotiBaseURL,
			OrgID:        cfg.ZenotiOrgID,
			CenterID:     cfg.ZenotiCenterID,
			APIKey:       cfg.ZenotiAPIKey,
			ClientID:     cfg.ZenotiClientID,
			ClientSecret: cfg.ZenotiClientSecret,
			Window:       cfg.AppointmentWindow(),
		}, tokenCache, logger)
		pingers = append(pingers, platform)
		repo = platform
		source = platform
		backend = platform
	default:
		snapshot := guestRepo.NewJSONGuestRepo(cfg.DataFile)
		pingers = append(pingers, snapshot)
		repo = snapshot
		source = appointment.RepoSource{Repo: snapshot}
	}

	policy, err := directory.PolicyByName(cfg.SearchPolicy)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}

	var payments payment.Provider
	switch cfg.PaymentProvider {
	case "stripe":
		payments = payment.NewStripeProvider(cfg.StripeKey, cfg.PaymentCurrency, "", logger)
	case "random":
		payments = payment.NewRandomProvider(cfg.PaymentLatency(), cfg.PaymentFailureRate, time.Now().UnixNano(), logger)
	default:
		payments = payment.NewMockProvider(cfg.PaymentLatency(), logger)
	}

	kioskHandler := handlers.NewKioskHandler(
		directory.NewDirectory(repo, policy, cfg.SearchLimit, logger),
		appointment.NewLookup(source, logger),
		checkin.NewGateway(backend, ledger, notifier, logger),
		payments,
		cfg.PaymentCurrency,
	)
	handlerBundle := handlers.NewHandlerBundle(kioskHandler)

	utils.StartHealthMonitor(ctx, pingers, 30*time.Second)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	routes.RegisterRoutes(router, handlerBundle, cfg.KioskJWTSecret)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Info("starting server",
		zap.String("addr", srv.Addr),
		zap.String("source", cfg.DataSource),
		zap.String("policy", policy.Name()),
		zap.String("payments", cfg.PaymentProvider))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
