package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string
	EventsTopic  string

	OutboxRelayInterval time.Duration
	OutboxBatchSize     int

	EnableAutoApprove bool
	EnableOutboxRelay bool

	// Static entitlement grants until the policy service lands.
	ApproverIDs    []string
	AutoApproveIDs []string
}

func Load() (Config, error) {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "meridian"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("KAFKA_EVENTS_TOPIC")
	if topic == "" {
		topic = "meridian.workflow.events"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,
		EventsTopic:  topic,

		OutboxRelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
		OutboxBatchSize:     envInt("OUTBOX_BATCH_SIZE", 100),

		EnableAutoApprove: envBool("ENABLE_AUTO_APPROVE", true),
		EnableOutboxRelay: envBool("ENABLE_OUTBOX_RELAY", true),

		ApproverIDs:    envList("APPROVER_IDS"),
		AutoApproveIDs: envList("AUTO_APPROVE_IDS"),
	}, nil
}

func envList(name string) []string {
	var items []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
