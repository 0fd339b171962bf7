package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watervendor/dispense-gateway/internal/handlers"
	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

// Handlers bundles everything the router mounts. Webhook and Checkout
// are nil when the service is running degraded; their routes then answer
// 503 instead.
type Handlers struct {
	Health   *handlers.HealthHandler
	Webhook  *handlers.WebhookHandler
	Checkout *handlers.CheckoutHandler
	Missing  []string
}

func NewRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health page, served even when degraded
	r.GET("/", h.Health.Root)

	if h.Webhook == nil {
		degraded := handlers.Degraded(h.Missing)
		r.POST("/notificacao-mp", degraded)
		r.GET("/notificacao-mp", degraded)
		r.GET("/comprar/:machineId/:volume", degraded)
		r.GET("/produtos", degraded)
		return r
	}

	r.POST("/notificacao-mp", h.Webhook.HandleNotification)
	r.GET("/notificacao-mp", h.Webhook.NotificationGet)

	r.GET("/comprar/:machineId/:volume", h.Checkout.Comprar)
	r.GET("/produtos", h.Checkout.ListProducts)

	return r
}
