package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	SQLitePath   string
	KafkaBrokers []string

	CouncilSigners   []string
	CouncilThreshold int

	EnableMarketOutboxRelay     bool
	EnableTreasuryOutboxRelay   bool
	EnableStakingOutboxRelay    bool
	EnableGovernanceOutboxRelay bool
	EnableGovernanceExpirySweep bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "delphi"
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

	var signers []string
	for _, value := range strings.Split(os.Getenv("COUNCIL_SIGNERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			signers = append(signers, value)
		}
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		KafkaBrokers: brokers,

		CouncilSigners:   signers,
		CouncilThreshold: envInt("COUNCIL_THRESHOLD", 0),

		EnableMarketOutboxRelay:     envBool("ENABLE_MARKET_OUTBOX_RELAY", true),
		EnableTreasuryOutboxRelay:   envBool("ENABLE_TREASURY_OUTBOX_RELAY", true),
		EnableStakingOutboxRelay:    envBool("ENABLE_STAKING_OUTBOX_RELAY", true),
		EnableGovernanceOutboxRelay: envBool("ENABLE_GOVERNANCE_OUTBOX_RELAY", true),
		EnableGovernanceExpirySweep: envBool("ENABLE_GOVERNANCE_EXPIRY_SWEEP", true),
	}, nil
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
