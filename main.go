package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripdesk/config"
	"tripdesk/database"
	ledgerRepo "tripdesk/database/repository/ledger"
	"tripdesk/handlers"
	"tripdesk/marketplace"
	"tripdesk/middleware"
	"tripdesk/payments"
	"tripdesk/routes"
	"tripdesk/services/booking"
	"tripdesk/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitPendingCache()
	stripe.Key = config.AppConfig.StripeKey

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	// Gateways.
	client := marketplace.NewClient(
		config.AppConfig.MarketplaceBaseURL,
		config.AppConfig.MarketplaceToken,
		config.AppConfig.MarketplaceVersion,
		config.RequestTimeout(),
		config.AppConfig.MaxRetries,
		logger,
	)
	staysGateway := marketplace.NewStaysGateway(client)
	flightsGateway := marketplace.NewFlightsGateway(client)
	processor := payments.NewStripeProcessor(config.AppConfig.PaymentReturnURL, logger)

	// Service.
	bookingService := &booking.DefaultBookingService{
		Stays:     staysGateway,
		Flights:   flightsGateway,
		Processor: processor,
		Ledger:    ledgerRepo.NewMongoPaymentLedger(),
		Pending: &booking.RedisPendingStore{
			Client: utils.GetPendingCacheClient(),
			TTL:    config.PendingTTL(),
		},
		Logger: logger,
	}
	bookingHandler := handlers.NewBookingHandler(bookingService)

	routes.RegisterHealthRoute(router)
	routes.RegisterStayRoutes(router, bookingHandler)
	routes.RegisterFlightRoutes(router, bookingHandler)

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("main: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("main: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: forced shutdown: %v", err)
	}
	logger.Info("main: stopped")
}
