package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"

	"slotbook/config"
	"slotbook/cron"
	"slotbook/database"
	availabilityRepo "slotbook/database/repository/availability"
	bookingRepo "slotbook/database/repository/booking"
	paymentRepo "slotbook/database/repository/payment"
	reservationRepo "slotbook/database/repository/reservation"
	serviceRepo "slotbook/database/repository/service"
	verificationRepo "slotbook/database/repository/verification"
	"slotbook/handlers"
	"slotbook/routes"
	"slotbook/services/booking"
	"slotbook/services/notification"
	"slotbook/services/payment"
	"slotbook/services/reconcile"
	"slotbook/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitReservationCache()
	utils.InitTokenCache()
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	availRepo := availabilityRepo.NewMongoAvailabilityRepo()
	bkRepo := bookingRepo.NewMongoBookingRepo()
	payRepo := paymentRepo.NewMongoPaymentRepo()
	svcRepo := serviceRepo.NewMongoServiceRepo()
	resvRepo := reservationRepo.NewRedisReservationRepo(utils.GetReservationClient())
	tokens := verificationRepo.NewRedisTokenStore(utils.GetTokenClient())

	indexCtx, cancelIdx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelIdx()
	for _, ensure := range []func(context.Context) error{
		availRepo.EnsureIndexes, bkRepo.EnsureIndexes, payRepo.EnsureIndexes, svcRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Sugar().Fatalf("main: failed to ensure indexes: %v", err)
		}
	}

	// services.
	notifier := notification.NewLogNotificationService()
	gateway := payment.NewStripeGateway(
		config.AppConfig.CheckoutSuccessURL,
		config.AppConfig.CheckoutCancelURL,
		logger,
	)

	engine := &booking.DefaultBookingEngine{
		Availability: availRepo,
		Bookings:     bkRepo,
		Payments:     payRepo,
		Reservations: resvRepo,
		Services:     svcRepo,
		Tokens:       tokens,
		Gateway:      gateway,
		Notifier:     notifier,
		Txn:          database.NewMongoTxnRunner(database.MongoClient),

		ReservationTTL: config.ReservationTTL(),
		VerifyTokenTTL: time.Duration(config.AppConfig.VerifyTokenTTLHours) * time.Hour,
	}

	// Background reminder queue and reconciliation sweeps.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()

	reconciler := &reconcile.Reconciler{
		Bookings:    bkRepo,
		Notifier:    notifier,
		Reminders:   &reconcile.AsynqEnqueuer{Client: asynqClient},
		GracePeriod: time.Duration(config.AppConfig.VendorPromptGraceHours) * time.Hour,
	}
	cron.InitReminderWorker(notifier)
	scheduler := cron.StartReconcileScheduler(reconciler)

	// HTTP surface.
	handlerBundle := handlers.NewHandlerBundle(engine, svcRepo, availRepo, logger)
	router := routes.SetupRouter(handlerBundle)

	port := config.AppConfig.AppPort
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

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
