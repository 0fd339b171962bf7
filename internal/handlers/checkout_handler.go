package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/watervendor/dispense-gateway/internal/mercadopago"
	"github.com/watervendor/dispense-gateway/internal/models"
	"github.com/watervendor/dispense-gateway/internal/telemetry"
)

type CheckoutHandler struct {
	client        *mercadopago.Client
	priceTable    map[int]float64
	publicBaseURL string
}

func NewCheckoutHandler(client *mercadopago.Client, priceTable map[int]float64, publicBaseURL string) *CheckoutHandler {
	return &CheckoutHandler{
		client:        client,
		priceTable:    priceTable,
		publicBaseURL: publicBaseURL,
	}
}

// Comprar creates a checkout preference for one machine and volume and
// redirects the buyer to the provider-hosted payment page. The external
// reference carries the machine and volume back to us on the webhook.
func (h *CheckoutHandler) Comprar(c *gin.Context) {
	machineID := c.Param("machineId")
	volume, err := strconv.Atoi(c.Param("volume"))
	if err != nil || volume <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "volume must be a positive integer in milliliters"})
		return
	}

	price, ok := h.priceTable[volume]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no price configured for %d ml", volume)})
		return
	}

	ref := models.MachineRef{MachineID: machineID, VolumeML: volume}
	pref, err := h.client.CreatePreference(c.Request.Context(), mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{{
			Title:      fmt.Sprintf("Água Mineral %d Litros", volume/1000),
			Quantity:   1,
			UnitPrice:  price,
			CurrencyID: "BRL",
		}},
		ExternalReference: ref.String(),
		NotificationURL:   h.publicBaseURL + "/notificacao-mp",
	})
	if err != nil {
		telemetry.Logger.Error("Error creating checkout preference",
			zap.String("external_reference", ref.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create checkout session"})
		return
	}

	telemetry.Logger.Info("Checkout preference created",
		zap.String("preference_id", pref.ID),
		zap.String("external_reference", ref.String()),
	)
	c.Redirect(http.StatusFound, pref.InitPoint)
}

// ListProducts returns the seller's catalog, useful when wiring up the
// fixed QR codes on a machine.
func (h *CheckoutHandler) ListProducts(c *gin.Context) {
	items, err := h.client.ListItems(c.Request.Context())
	if err != nil {
		telemetry.Logger.Error("Error listing products", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items})
}
