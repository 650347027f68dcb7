// Package config provides configuration for the processing log service.
package config

import (
	"os"
)

// Environment names.
const (
	Development = "development"
	Production  = "production"
)

// Config holds every tunable of the service.
type Config struct {
	Environment string

	// Storage
	TableName       string
	ObjectKeyIndex  string
	ProcessingIndex string

	// Side effects
	ArchiveBucket string
	EventBusName  string

	// Server
	ListenAddr string

	// Observability
	EnableMetrics bool
	EnableTracing bool
	OTLPEndpoint  string

	// Optional JSON override file, hot reloaded in development.
	OverrideFile string
}

// Load reads configuration from the environment.
func Load() Config {
	cfg := Config{
		Environment:     envOr("ENVIRONMENT", Development),
		TableName:       envOr("TABLE_NAME", "processing-actions-dev"),
		ObjectKeyIndex:  envOr("OBJECT_KEY_INDEX", "ObjectKeyIndex"),
		ProcessingIndex: envOr("PROCESSING_INDEX", "ProcessingIndex"),
		ArchiveBucket:   os.Getenv("ARCHIVE_BUCKET"),
		EventBusName:    os.Getenv("EVENT_BUS_NAME"),
		ListenAddr:      envOr("LISTEN_ADDR", ":8080"),
		EnableMetrics:   os.Getenv("ENABLE_METRICS") != "false",
		EnableTracing:   os.Getenv("ENABLE_TRACING") == "true",
		OTLPEndpoint:    envOr("OTLP_ENDPOINT", "localhost:4317"),
		OverrideFile:    os.Getenv("CONFIG_OVERRIDE_FILE"),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
