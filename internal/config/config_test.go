package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePriceTable(t *testing.T) {
	table := parsePriceTable("20000:1.50,5000:1.00")
	assert.Equal(t, map[int]float64{20000: 1.5, 5000: 1.0}, table)
}

func TestParsePriceTableSkipsMalformedEntries(t *testing.T) {
	table := parsePriceTable("20000:1.50,garbage,:2,0:1.00,500:-1,1000:0.75")
	assert.Equal(t, map[int]float64{20000: 1.5, 1000: 0.75}, table)
}

func TestParsePriceTableEmpty(t *testing.T) {
	assert.Empty(t, parsePriceTable(""))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MQTT_BASE_TOPIC", "")
	t.Setenv("MP_API_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "watervendor", cfg.MQTTBaseTopic)
	assert.Equal(t, 5*time.Second, cfg.MPAPITimeout)
}

func TestMissingRequired(t *testing.T) {
	cfg := &Config{}
	assert.ElementsMatch(t,
		[]string{"MP_ACCESS_TOKEN", "MP_WEBHOOK_SECRET", "MQTT_BROKER_URL"},
		cfg.MissingRequired(),
	)

	cfg = &Config{
		MPAccessToken:   "token",
		MPWebhookSecret: "secret",
		MQTTBrokerURL:   "ssl://broker:8883",
	}
	assert.Empty(t, cfg.MissingRequired())
}
