// Package config loads the process configuration of the audio policy service.
//
// Settings come from environment variables (a .env file is read first by the
// app package). The hardware topology is described separately in YAML, see
// LoadTopology.
//
// Environment Variables:
//   - PORT: HTTP control surface port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path, empty logs to stdout
//   - TOPOLOGY_FILE: YAML topology description, empty uses DefaultTopology
//   - ROUTING_ENGINE: Routing engine name (default: default)
//   - HAL_CLIENT: Hardware client, "sim" or "null" (default: sim)
//   - METRICS_ENABLED: Serve Prometheus metrics on /metrics (default: true)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//	spec, err := cfg.Topology()
package config

import (
	"os"
	"strconv"

	"audio-policy/internal/common/errors"
	"audio-policy/internal/common/validation"
	"audio-policy/internal/topology"
)

// Hardware clients selectable with HAL_CLIENT
const (
	HALClientSim  = "sim"
	HALClientNull = "null"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds all configuration values of the service
type Config struct {
	Port     string // HTTP port
	LogLevel string // debug, info, warn or error
	LogFile  string // empty logs to stdout

	TopologyFile  string // YAML topology description, empty for the built-in one
	RoutingEngine string // name of the routing engine
	HALClient     string // sim or null

	MetricsEnabled bool
}

// Load creates a Config from environment variables, falling back to defaults.
// Call Validate on the result before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		TopologyFile:  getEnv("TOPOLOGY_FILE", ""),
		RoutingEngine: getEnv("ROUTING_ENGINE", "default"),
		HALClient:     getEnv("HAL_CLIENT", HALClientSim),

		MetricsEnabled: getBoolEnv("METRICS_ENABLED", true),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts the strconv.ParseBool spellings; anything else yields defaultValue
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks every setting and reports all problems in one config error
func (c *Config) Validate() error {
	v := validation.NewFluentValidator().
		RequireOneOf(c.LogLevel, logLevels, "LOG_LEVEL").
		RequireString(c.RoutingEngine, "ROUTING_ENGINE").
		RequireOneOf(c.HALClient, []string{HALClientSim, HALClientNull}, "HAL_CLIENT")

	port, err := strconv.Atoi(c.Port)
	if err != nil {
		port = 0
	}
	v.RequireRange(port, 1, 65535, "PORT")

	if v.HasErrors() {
		return errors.ConfigError(v.Message())
	}
	return nil
}

// Topology returns the topology described by TopologyFile, or the built-in
// default topology when none is configured
func (c *Config) Topology() (topology.Spec, error) {
	if c.TopologyFile == "" {
		return DefaultTopology(), nil
	}
	return LoadTopology(c.TopologyFile)
}
