package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Database DatabaseConfig
	NATS     NATSConfig
	HTTP     HTTPConfig
	Probes   ProbeConfig
	Retry    RetryConfig
	Tracing  TracingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL     string
	Enabled bool
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// ProbeConfig holds probe execution settings
type ProbeConfig struct {
	EchoPort          string
	EchoTimeout       time.Duration
	LatencyPackets    int
	JitterSamples     int
	DNSTimeout        time.Duration
	ThroughputTimeout time.Duration

	// MeasurementServers is a comma-separated list of
	// host|location|base-url triples for the throughput probe.
	MeasurementServers string
}

// RetryConfig holds probe retry settings
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// TracingConfig holds tracing settings
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "netdiag"),
			Password: getEnv("DB_PASSWORD", "netdiag"),
			Database: getEnv("DB_NAME", "netdiag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvBool("NATS_ENABLED", true),
		},
		HTTP: HTTPConfig{
			Port:            getEnvInt("HTTP_PORT", 8080),
			AllowedOrigins:  getEnvList("HTTP_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Probes: ProbeConfig{
			EchoPort:          getEnv("PROBE_ECHO_PORT", "443"),
			EchoTimeout:       getEnvDuration("PROBE_ECHO_TIMEOUT", 2*time.Second),
			LatencyPackets:    getEnvInt("PROBE_LATENCY_PACKETS", 10),
			JitterSamples:     getEnvInt("PROBE_JITTER_SAMPLES", 20),
			DNSTimeout:        getEnvDuration("PROBE_DNS_TIMEOUT", 5*time.Second),
			ThroughputTimeout: getEnvDuration("PROBE_THROUGHPUT_TIMEOUT", 30*time.Second),
			MeasurementServers: getEnv("PROBE_MEASUREMENT_SERVERS",
				"speed.netdiag.local|Local Rack|http://speed.netdiag.local:8081"),
		},
		Retry: RetryConfig{
			MaxRetries: getEnvInt("RETRY_MAX_RETRIES", 2),
			BaseDelay:  getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
			MaxDelay:   getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			ServiceName: getEnv("SERVICE_NAME", "netdiag"),
			Endpoint:    getEnv("OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
