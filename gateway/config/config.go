// Copyright 2025 PromptGate
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the gateway configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ServiceURLs are the base URLs of the proxied upstream AI services.
type ServiceURLs struct {
	RAG          string
	Eval         string
	Incident     string
	DevOps       string
	Architecture string
}

// RateLimitConfig controls the token-bucket admission layer.
type RateLimitConfig struct {
	Tokens     int     // bucket capacity
	RefillRate float64 // tokens per second
	PerClient  bool    // one bucket per client identity vs one shared
}

// SecurityConfig toggles the request screening passes.
type SecurityConfig struct {
	EnablePIIRedaction       bool
	EnableInjectionDetection bool
	LogRequests              bool
}

// CostConfig holds the USD pricing used for token cost estimates.
type CostConfig struct {
	Per1KInputTokens  float64
	Per1KOutputTokens float64
}

// Config is the full gateway configuration.
type Config struct {
	Host string
	Port int

	Services  ServiceURLs
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Cost      CostConfig

	// AuditDatabaseURL enables the Postgres audit sink when non-empty.
	AuditDatabaseURL string
	// RedisURL enables the distributed rate limiter when non-empty.
	RedisURL string
	// RoutesFile points at an optional YAML route-table override.
	RoutesFile string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnvInt("PORT", 8080),
		Services: ServiceURLs{
			RAG:          getEnv("RAG_SERVICE_URL", "http://localhost:8001"),
			Eval:         getEnv("EVAL_SERVICE_URL", "http://localhost:8002"),
			Incident:     getEnv("INCIDENT_SERVICE_URL", "http://localhost:8003"),
			DevOps:       getEnv("DEVOPS_SERVICE_URL", "http://localhost:8004"),
			Architecture: getEnv("ARCHITECTURE_SERVICE_URL", "http://localhost:8005"),
		},
		RateLimit: RateLimitConfig{
			Tokens:     getEnvInt("RATE_LIMIT_TOKENS", 100),
			RefillRate: getEnvFloat("RATE_LIMIT_REFILL_RATE", 10.0),
			PerClient:  getEnvBool("RATE_LIMIT_PER_CLIENT", true),
		},
		Security: SecurityConfig{
			EnablePIIRedaction:       getEnvBool("ENABLE_PII_REDACTION", true),
			EnableInjectionDetection: getEnvBool("ENABLE_INJECTION_DETECTION", true),
			LogRequests:              getEnvBool("LOG_REQUESTS", true),
		},
		Cost: CostConfig{
			Per1KInputTokens:  getEnvFloat("COST_PER_1K_INPUT_TOKENS", 0.0015),
			Per1KOutputTokens: getEnvFloat("COST_PER_1K_OUTPUT_TOKENS", 0.002),
		},
		AuditDatabaseURL: getEnv("AUDIT_DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		RoutesFile:       getEnv("ROUTES_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
