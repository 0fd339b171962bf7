package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	MPAccessToken   string
	MPWebhookSecret string
	// MPAPITimeout bounds the outbound payment-lookup call so a slow
	// provider cannot hold a request-handling slot.
	MPAPITimeout time.Duration

	MQTTBrokerURL         string
	MQTTUsername          string
	MQTTPassword          string
	MQTTBaseTopic         string
	MQTTClientID          string
	MQTTInsecureTLS       bool
	MQTTReconnectInterval time.Duration

	RedisURL        string
	KafkaBrokers    string
	KafkaAuditTopic string

	// PublicBaseURL is this service's externally reachable URL, used as
	// the notification_url on created checkout preferences.
	PublicBaseURL string

	// PriceTable maps volume in milliliters to price in BRL.
	PriceTable map[int]float64
}

func Load() *Config {
	// A local .env is a development convenience; absence is normal.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	baseTopic := os.Getenv("MQTT_BASE_TOPIC")
	if baseTopic == "" {
		baseTopic = "watervendor"
	}

	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "dispense.audit"
	}

	return &Config{
		Port:                  port,
		MPAccessToken:         os.Getenv("MP_ACCESS_TOKEN"),
		MPWebhookSecret:       os.Getenv("MP_WEBHOOK_SECRET"),
		MPAPITimeout:          durationEnv("MP_API_TIMEOUT", 5*time.Second),
		MQTTBrokerURL:         os.Getenv("MQTT_BROKER_URL"),
		MQTTUsername:          os.Getenv("MQTT_USERNAME"),
		MQTTPassword:          os.Getenv("MQTT_PASSWORD"),
		MQTTBaseTopic:         baseTopic,
		MQTTClientID:          os.Getenv("MQTT_CLIENT_ID"),
		MQTTInsecureTLS:       os.Getenv("MQTT_INSECURE_TLS") == "true",
		MQTTReconnectInterval: durationEnv("MQTT_RECONNECT_INTERVAL", 10*time.Second),
		RedisURL:              os.Getenv("REDIS_URL"),
		KafkaBrokers:          os.Getenv("KAFKA_BROKERS"),
		KafkaAuditTopic:       auditTopic,
		PublicBaseURL:         strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		PriceTable:            parsePriceTable(os.Getenv("PRICE_TABLE")),
	}
}

// MissingRequired lists the settings without which the service cannot
// verify webhooks or reach the broker. A non-empty result means the
// service runs degraded: health and metrics stay up, everything else
// refuses to work.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.MPAccessToken == "" {
		missing = append(missing, "MP_ACCESS_TOKEN")
	}
	if c.MPWebhookSecret == "" {
		missing = append(missing, "MP_WEBHOOK_SECRET")
	}
	if c.MQTTBrokerURL == "" {
		missing = append(missing, "MQTT_BROKER_URL")
	}
	return missing
}

// parsePriceTable reads "20000:1.50,5000:1.00" into {20000: 1.5, 5000: 1}.
// Malformed entries are skipped rather than fatal; an empty table just
// means checkout creation rejects every volume.
func parsePriceTable(raw string) map[int]float64 {
	table := make(map[int]float64)
	for _, entry := range strings.Split(raw, ",") {
		volumeStr, priceStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}
		volume, err := strconv.Atoi(volumeStr)
		if err != nil || volume <= 0 {
			continue
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			continue
		}
		table[volume] = price
	}
	return table
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s=%q, using %s\n", name, raw, fallback)
		return fallback
	}
	return d
}
