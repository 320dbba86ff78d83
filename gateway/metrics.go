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

package gateway

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgate_requests_total",
			Help: "Total number of requests processed by the gateway",
		},
		[]string{"route", "outcome"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptgate_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		},
		[]string{"route"},
	)
	promRateLimitedRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promptgate_rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
	promBlockedRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promptgate_blocked_requests_total",
			Help: "Total number of requests blocked by security checks",
		},
	)
	promEstimatedCostUSD = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promptgate_estimated_cost_usd_total",
			Help: "Cumulative estimated spend across proxied requests",
		},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promRateLimitedRequests)
	prometheus.MustRegister(promBlockedRequests)
	prometheus.MustRegister(promEstimatedCostUSD)
}
