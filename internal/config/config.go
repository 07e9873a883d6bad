// Package config loads bridge settings from environment variables,
// with sane defaults for the ambient/observability surface. The three
// required variables (POSTGRESQL_URI, AMQP_URI, BRIDGE_CHANNELS) have
// no defaults — a missing one is a fatal configuration error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DeliveryMode mirrors the AMQP per-message delivery-mode flag.
type DeliveryMode uint8

const (
	NonPersistent DeliveryMode = 1
	Persistent    DeliveryMode = 2
)

// Config is the immutable, process-wide settings struct. It is built
// once at startup and passed by value into the supervisor.
type Config struct {
	PostgresURI  string
	AMQPURI      string
	BridgeChans  string
	DeliveryMode DeliveryMode

	AdminAddr         string
	HeartbeatSchedule string
	ElasticsearchURL  string
	RedisAddr         string
	RecentDepth       int
	LogLevel          string
}

// Load reads the environment and returns a populated Config, or a
// *ConfigError describing the first missing or invalid setting.
func Load() (*Config, error) {
	pgURI, err := requiredWithFile("POSTGRESQL_URI", "POSTGRESQL_URI_FILE")
	if err != nil {
		return nil, err
	}

	amqpURI, err := requiredWithFile("AMQP_URI", "AMQP_URI_FILE")
	if err != nil {
		return nil, err
	}

	bridgeChans := os.Getenv("BRIDGE_CHANNELS")
	if strings.TrimSpace(bridgeChans) == "" {
		return nil, &ConfigError{Msg: "BRIDGE_CHANNELS environment variable must be defined"}
	}

	mode, err := parseDeliveryMode(os.Getenv("DELIVERY_MODE"))
	if err != nil {
		return nil, err
	}

	recentDepth := 20
	if raw := os.Getenv("RECENT_DEPTH"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return nil, &ConfigError{Msg: fmt.Sprintf("RECENT_DEPTH must be a positive integer, got %q", raw)}
		}
		recentDepth = v
	}

	return &Config{
		PostgresURI:  pgURI,
		AMQPURI:      amqpURI,
		BridgeChans:  bridgeChans,
		DeliveryMode: mode,

		AdminAddr:         getEnv("ADMIN_ADDR", ":9090"),
		HeartbeatSchedule: getEnv("HEARTBEAT_SCHEDULE", "@every 1m"),
		ElasticsearchURL:  os.Getenv("ELASTICSEARCH_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RecentDepth:       recentDepth,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

// ConfigError marks a fatal, startup-time configuration failure.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "config: " + e.Msg }

func parseDeliveryMode(raw string) (DeliveryMode, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PERSISTENT":
		return Persistent, nil
	case "NON-PERSISTENT", "":
		return NonPersistent, nil
	default:
		return 0, &ConfigError{Msg: fmt.Sprintf("DELIVERY_MODE must be PERSISTENT or NON-PERSISTENT, got %q", raw)}
	}
}

// requiredWithFile reads envVar, or — if fileVar is set — the content
// of the file it names, which takes precedence.
func requiredWithFile(envVar, fileVar string) (string, error) {
	if path := os.Getenv(fileVar); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &ConfigError{Msg: fmt.Sprintf("reading %s (%s): %v", fileVar, path, err)}
		}
		return strings.TrimSpace(string(data)), nil
	}

	v := os.Getenv(envVar)
	if v == "" {
		return "", &ConfigError{Msg: fmt.Sprintf("%s environment variable must be defined", envVar)}
	}
	return v, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
