package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/watervendor/dispense-gateway/internal/notification"
	"github.com/watervendor/dispense-gateway/internal/service"
	"github.com/watervendor/dispense-gateway/internal/signature"
	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

type WebhookHandler struct {
	verifier *signature.Verifier
	pipeline *service.Pipeline
}

func NewWebhookHandler(verifier *signature.Verifier, pipeline *service.Pipeline) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, pipeline: pipeline}
}

// HandleNotification is the provider-facing webhook POST. Verification
// failures are the only non-200 responses; once a notification is
// authentic it is always acknowledged, whatever the pipeline decides,
// so the provider's redelivery loop stays bounded.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	telemetry.WebhooksReceived.Inc()

	rawBody, err := c.GetRawData()
	if err != nil {
		telemetry.WebhooksRejected.WithLabelValues("unreadable_body").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	sig := c.GetHeader("x-signature")
	if sig == "" {
		sig = c.GetHeader("x-signature-sha256")
	}
	dataID := c.Query("data.id")
	if dataID == "" {
		dataID = c.Query("id")
	}

	result := h.verifier.Verify(signature.Request{
		RawBody:   rawBody,
		Signature: sig,
		RequestID: c.GetHeader("x-request-id"),
		DataID:    dataID,
	})

	switch result.Verdict {
	case signature.Malformed:
		telemetry.WebhooksRejected.WithLabelValues("malformed").Inc()
		telemetry.Logger.Warn("Malformed webhook signature material",
			zap.String("detail", result.Detail),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Detail})
		return
	case signature.Invalid:
		telemetry.WebhooksRejected.WithLabelValues("invalid_signature").Inc()
		telemetry.Logger.Warn("Webhook signature mismatch",
			zap.String("scheme", result.Scheme),
			zap.String("received_hash", result.Received),
			zap.String("computed_hash", result.Expected),
			zap.String("detail", result.Detail),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	outcome := notification.Normalize(rawBody)
	if !outcome.Relevant {
		telemetry.WebhooksIgnored.Inc()
		telemetry.Logger.Info("Webhook ignored",
			zap.String("reason", outcome.Reason),
		)
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": outcome.Reason})
		return
	}

	processed := h.pipeline.Process(c.Request.Context(), outcome.PaymentID)
	c.JSON(http.StatusOK, gin.H{
		"status":     "processed",
		"payment_id": outcome.PaymentID,
		"outcome":    string(processed),
	})
}

// NotificationGet answers GETs on the webhook path with an explicit 405,
// which reads better in provider-side diagnostics than a 404.
func (h *WebhookHandler) NotificationGet(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "webhook accepts POST only"})
}

// Degraded replaces the functional handlers while required configuration
// is missing: the service stays up for health checks but refuses work.
func Degraded(missing []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "service degraded, required configuration missing",
			"missing": missing,
		})
	}
}
