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

// Package gateway is the admission layer in front of the upstream AI
// services: token-bucket rate limiting, PII redaction, prompt-injection
// blocking, cost estimation, and per-request audit records, applied
// uniformly by one pipeline parameterized per route.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"promptgate/gateway/audit"
	"promptgate/gateway/config"
	"promptgate/gateway/cost"
	"promptgate/gateway/ratelimit"
	"promptgate/gateway/security"
	"promptgate/shared/logger"
)

// App bundles the constructed gateway: the HTTP handler plus the resources
// that need closing on shutdown.
type App struct {
	Handler http.Handler
	log     *logger.Logger
	sink    audit.Sink
	closers []func() error
}

// NewApp builds the gateway from configuration: limiter (Redis-backed when
// REDIS_URL is set), security middleware, cost estimator, audit sink
// (Postgres when AUDIT_DATABASE_URL is set), route table, and HTTP surface.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New("gateway")

	var limiter ratelimit.Checker = ratelimit.NewLimiter(
		cfg.RateLimit.Tokens, cfg.RateLimit.RefillRate, cfg.RateLimit.PerClient)
	var closers []func() error
	if cfg.RedisURL != "" {
		rl, err := ratelimit.NewRedisLimiter(
			cfg.RedisURL, cfg.RateLimit.Tokens, cfg.RateLimit.RefillRate, cfg.RateLimit.PerClient, log)
		if err != nil {
			log.Warn("", "", "redis unavailable, using in-memory rate limiter", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			limiter = rl
			closers = append(closers, rl.Close)
		}
	}

	guard := security.NewMiddleware(
		cfg.Security.EnablePIIRedaction, cfg.Security.EnableInjectionDetection, log)
	estimator := cost.NewEstimator(cfg.Cost.Per1KInputTokens, cfg.Cost.Per1KOutputTokens)
	proxy := NewProxy(cfg.Services)

	var sink audit.Sink = audit.NewLogSink(log)
	if cfg.AuditDatabaseURL != "" {
		pg := audit.NewPostgresSink(cfg.AuditDatabaseURL, log)
		sink = pg
		closers = append(closers, pg.Close)
	}

	routes := DefaultRoutes()
	if cfg.RoutesFile != "" {
		loaded, err := LoadRoutes(cfg.RoutesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load route table: %w", err)
		}
		routes = loaded
	}

	pipeline := NewPipeline(limiter, guard, estimator, proxy, sink, log, cfg.Security.LogRequests)

	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	for _, route := range routes {
		router.HandleFunc(route.Path, pipeline.Handler(route)).Methods(route.Method)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return &App{
		Handler: corsMiddleware.Handler(router),
		log:     log,
		sink:    sink,
		closers: closers,
	}, nil
}

// Close releases the app's resources, flushing buffered audit records.
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.log.Error("", "", "shutdown error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// Run builds the gateway from the environment and serves until the process
// exits.
func Run() error {
	cfg := config.Load()

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	app.log.Info("", "", "gateway listening", map[string]interface{}{
		"addr": addr,
	})
	return http.ListenAndServe(addr, app.Handler)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"service":   "promptgate",
		"timestamp": time.Now().UTC(),
	})
}
