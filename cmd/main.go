package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/watervendor/dispense-gateway/internal/api"
	"github.com/watervendor/dispense-gateway/internal/audit"
	"github.com/watervendor/dispense-gateway/internal/config"
	"github.com/watervendor/dispense-gateway/internal/handlers"
	"github.com/watervendor/dispense-gateway/internal/interfaces"
	"github.com/watervendor/dispense-gateway/internal/ledger"
	"github.com/watervendor/dispense-gateway/internal/mercadopago"
	"github.com/watervendor/dispense-gateway/internal/publisher"
	"github.com/watervendor/dispense-gateway/internal/service"
	"github.com/watervendor/dispense-gateway/internal/signature"
	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("dispense-gateway"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Dispense Gateway")

	missing := cfg.MissingRequired()
	routerHandlers := api.Handlers{Missing: missing}

	var mqttPublisher *publisher.MQTTPublisher

	if len(missing) > 0 {
		// Degraded: keep health and metrics up so the platform does not
		// crash-restart us, but attempt no broker connection and accept
		// no work until configuration is corrected.
		telemetry.Logger.Error("Required configuration missing, running degraded",
			zap.Strings("missing", missing),
		)
		routerHandlers.Health = handlers.NewHealthHandler(nil, missing)
	} else {
		var err error
		mqttPublisher, err = publisher.NewMQTTPublisher(publisher.Options{
			BrokerURL:         cfg.MQTTBrokerURL,
			Username:          cfg.MQTTUsername,
			Password:          cfg.MQTTPassword,
			BaseTopic:         cfg.MQTTBaseTopic,
			ClientID:          cfg.MQTTClientID,
			ReconnectInterval: cfg.MQTTReconnectInterval,
			InsecureTLS:       cfg.MQTTInsecureTLS,
		})
		if err != nil {
			telemetry.Logger.Fatal("Failed to configure MQTT publisher", zap.Error(err))
		}
		mqttPublisher.Connect()
		defer mqttPublisher.Close()

		// Dispatch ledger: Redis when configured, otherwise in-memory
		// for the process lifetime.
		var dispatchLedger interfaces.DispatchLedger = ledger.NewMemoryLedger()
		if cfg.RedisURL != "" {
			dispatchLedger = ledger.NewRedisLedger(redis.NewClient(&redis.Options{
				Addr: cfg.RedisURL,
			}))
			telemetry.Logger.Info("Using Redis-backed dispatch ledger")
		}

		// Audit trail: Kafka when configured, otherwise discarded.
		var trail interfaces.AuditTrail = audit.NopTrail{}
		if cfg.KafkaBrokers != "" {
			kafkaTrail := audit.NewKafkaTrail(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
			defer kafkaTrail.Close()
			trail = kafkaTrail
			telemetry.Logger.Info("Audit trail enabled",
				zap.String("topic", cfg.KafkaAuditTopic),
			)
		}

		mpClient := mercadopago.NewClient(cfg.MPAccessToken, cfg.MPAPITimeout)
		pipeline := service.NewPipeline(mpClient, dispatchLedger, mqttPublisher, trail)

		routerHandlers.Health = handlers.NewHealthHandler(mqttPublisher, nil)
		routerHandlers.Webhook = handlers.NewWebhookHandler(signature.NewVerifier(cfg.MPWebhookSecret), pipeline)
		routerHandlers.Checkout = handlers.NewCheckoutHandler(mpClient, cfg.PriceTable, cfg.PublicBaseURL)
	}

	r := api.NewRouter(routerHandlers)

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Dispense Gateway starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
