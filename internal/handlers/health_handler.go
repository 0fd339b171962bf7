package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/watervendor/dispense-gateway/internal/interfaces"
)

type HealthHandler struct {
	publisher interfaces.CommandPublisher
	missing   []string
}

func NewHealthHandler(publisher interfaces.CommandPublisher, missing []string) *HealthHandler {
	return &HealthHandler{publisher: publisher, missing: missing}
}

// Root serves the human-readable status page the hosting platform polls.
func (h *HealthHandler) Root(c *gin.Context) {
	broker := "Desconectado"
	if h.publisher != nil && h.publisher.IsConnected() {
		broker = "Conectado"
	}

	degraded := ""
	if len(h.missing) > 0 {
		degraded = fmt.Sprintf("<p><strong>DEGRADADO</strong>: faltando %v</p>", h.missing)
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, `<html>
  <body>
    <h1>Servidor WaterVendor Online</h1>
    <p>Status MQTT: <strong>%s</strong></p>
    <p>Webhook MP: <code>POST /notificacao-mp</code></p>
    %s
  </body>
</html>`, broker, degraded)
}
