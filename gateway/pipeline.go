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

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"promptgate/gateway/audit"
	"promptgate/gateway/cost"
	"promptgate/gateway/ratelimit"
	"promptgate/gateway/security"
	"promptgate/shared/logger"
)

// maxRequestBodyBytes caps inbound request bodies.
const maxRequestBodyBytes = 10 << 20

// Pipeline runs the admission sequence for every route: resolve identity,
// spend rate-limit tokens, screen declared text fields, forward to the
// upstream, price the exchange, and attach the gateway metadata block.
// All dependencies are injected at construction; there is no package-level
// mutable state.
type Pipeline struct {
	limiter     ratelimit.Checker
	guard       *security.Middleware
	estimator   *cost.Estimator
	proxy       *Proxy
	sink        audit.Sink
	log         *logger.Logger
	logRequests bool
}

// NewPipeline wires the pipeline's collaborators together. logRequests
// controls the per-request completion log line; audit records are emitted
// regardless.
func NewPipeline(limiter ratelimit.Checker, guard *security.Middleware, estimator *cost.Estimator, proxy *Proxy, sink audit.Sink, log *logger.Logger, logRequests bool) *Pipeline {
	return &Pipeline{
		limiter:     limiter,
		guard:       guard,
		estimator:   estimator,
		proxy:       proxy,
		sink:        sink,
		log:         log,
		logRequests: logRequests,
	}
}

// requestState carries everything one in-flight request accumulates. finish
// is the single exit point: it emits exactly one audit record, one metrics
// observation, and one response, whichever terminal box the request hit.
type requestState struct {
	route    Route
	w        http.ResponseWriter
	r        *http.Request
	start    time.Time
	record   *audit.Record
	finished bool
}

// Handler builds the http.HandlerFunc for one route.
func (p *Pipeline) Handler(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{
			route: route,
			w:     w,
			r:     r,
			start: time.Now(),
			record: &audit.Record{
				RequestID: uuid.New().String(),
				Timestamp: time.Now().UTC(),
				ClientID:  clientIdentity(r),
				Method:    r.Method,
				Path:      r.URL.Path,
				Route:     route.Name,
			},
		}

		defer func() {
			if rec := recover(); rec != nil {
				p.log.Error(st.record.ClientID, st.record.RequestID, "pipeline panic", map[string]interface{}{
					"panic": fmt.Sprint(rec),
					"route": route.Name,
				})
				st.record.ErrorMessage = "internal error"
				p.fail(st, audit.OutcomeInternalError, ErrInternal, ErrorResponse{
					Error:     "Internal server error",
					RequestID: st.record.RequestID,
				})
			}
		}()

		p.serve(st)
	}
}

func (p *Pipeline) serve(st *requestState) {
	route := st.route
	rec := st.record
	ctx := st.r.Context()

	// Step 1: rate limiting. The route's cost is spent before anything
	// else happens; a denied request does no further work.
	allowed, remaining := p.limiter.Check(ctx, rec.ClientID, route.Cost)
	rec.RateLimitRemaining = remaining
	if !allowed {
		promRateLimitedRequests.Inc()
		rec.SecurityStatus = "rate_limited"
		st.w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		p.fail(st, audit.OutcomeRateLimited, ErrRateLimitExceeded, ErrorResponse{
			Error:     "Rate limit exceeded",
			RequestID: rec.RequestID,
			Blocked:   true,
		})
		return
	}

	// Step 2: decode the body on routes that carry one.
	var body map[string]interface{}
	if route.Method == http.MethodPost {
		raw, err := io.ReadAll(io.LimitReader(st.r.Body, maxRequestBodyBytes))
		if err != nil {
			rec.ErrorMessage = err.Error()
			p.fail(st, audit.OutcomeInvalidInput, ErrInvalidRequest, ErrorResponse{
				Error:     "Failed to read request body",
				RequestID: rec.RequestID,
			})
			return
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				rec.ErrorMessage = err.Error()
				p.fail(st, audit.OutcomeInvalidInput, ErrInvalidRequest, ErrorResponse{
					Error:     "Request body is not valid JSON",
					RequestID: rec.RequestID,
				})
				return
			}
		} else {
			body = map[string]interface{}{}
		}
	}

	// Step 3: screen the declared free-text fields. The originals feed the
	// cost estimate later; the redacted versions go upstream.
	verdict := security.CheckResult{Status: security.StatusPassed}
	var inspected []string
	if body != nil && len(route.InspectFields) > 0 {
		verdict, inspected = p.screenFields(body, route.InspectFields)
	}
	rec.SecurityStatus = string(verdict.Status)
	rec.PIIDetected = piiNames(verdict.PIIDetected)
	rec.InjectionDetected = injectionNames(verdict.InjectionDetected)

	if verdict.Status == security.StatusBlocked {
		promBlockedRequests.Inc()
		rec.ErrorMessage = verdict.BlockedReason
		v := verdict
		p.fail(st, audit.OutcomeBlocked, ErrSecurityBlocked, ErrorResponse{
			Error:     verdict.BlockedReason,
			RequestID: rec.RequestID,
			Blocked:   true,
			Security:  &v,
		})
		return
	}

	// Step 4: the single upstream call.
	upstreamPath := substitutePathParams(route.UpstreamPath, mux.Vars(st.r))
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}

	rec.UpstreamService = route.Service
	status, respBody, err := p.proxy.Do(ctx, route, upstreamPath, payload)
	if err != nil {
		rec.ErrorMessage = err.Error()
		p.fail(st, audit.OutcomeUpstreamError, ErrUpstreamUnavailable, ErrorResponse{
			Error:     fmt.Sprintf("%s service error: %v", route.Service, err),
			RequestID: rec.RequestID,
		})
		return
	}
	rec.UpstreamStatus = status

	if status == http.StatusNotFound && route.PassNotFound {
		p.fail(st, audit.OutcomeNotFound, ErrUpstreamNotFound, ErrorResponse{
			Error:     route.NotFoundMessage,
			RequestID: rec.RequestID,
		})
		return
	}
	if status < 200 || status > 299 {
		rec.ErrorMessage = fmt.Sprintf("upstream returned %d", status)
		p.fail(st, audit.OutcomeUpstreamError, ErrUpstreamUnavailable, ErrorResponse{
			Error:     fmt.Sprintf("%s service error: status %d", route.Service, status),
			RequestID: rec.RequestID,
		})
		return
	}

	var upstream map[string]interface{}
	if err := json.Unmarshal(respBody, &upstream); err != nil {
		rec.ErrorMessage = "upstream response is not a JSON object"
		p.fail(st, audit.OutcomeUpstreamError, ErrUpstreamUnavailable, ErrorResponse{
			Error:     fmt.Sprintf("%s service error: invalid response", route.Service),
			RequestID: rec.RequestID,
		})
		return
	}

	// Step 5: price the exchange on routes that incur model spend.
	var costMeta *cost.Metadata
	if route.EstimateCost {
		meta := p.estimator.Estimate(strings.Join(inspected, " "), outputText(upstream, route.CostOutputField, respBody))
		costMeta = &meta
		rec.InputTokens = meta.InputTokens
		rec.OutputTokens = meta.OutputTokens
		rec.EstimatedCostUSD = meta.EstimatedCostUSD
		promEstimatedCostUSD.Add(meta.EstimatedCostUSD)
	}

	// Step 6: attach the gateway metadata block and return the enriched
	// upstream payload.
	latency := p.latencyMS(st)
	meta := map[string]interface{}{
		"request_id":           rec.RequestID,
		"timestamp":            rec.Timestamp.Format(time.RFC3339Nano),
		"latency_ms":           latency,
		"security":             verdict,
		"rate_limit_remaining": remaining,
	}
	if costMeta != nil {
		meta["cost"] = costMeta
	}
	upstream["gateway"] = meta

	p.respond(st, audit.OutcomeProxied, status, upstream)
}

// screenFields runs the security middleware over each declared field and
// merges the per-field verdicts: any block wins, otherwise any PII warning,
// otherwise pass. It returns the merged verdict and the original (unredacted)
// field values in inspection order.
func (p *Pipeline) screenFields(body map[string]interface{}, fields []string) (security.CheckResult, []string) {
	merged := security.CheckResult{Status: security.StatusPassed}
	var originals []string

	for _, field := range fields {
		transformField(body, field, func(text string) string {
			originals = append(originals, text)
			processed, result := p.guard.Process(text)
			mergeVerdicts(&merged, result)
			return processed
		})
	}
	return merged, originals
}

func mergeVerdicts(into *security.CheckResult, r security.CheckResult) {
	for _, kind := range r.PIIDetected {
		if !containsStr(piiNames(into.PIIDetected), string(kind)) {
			into.PIIDetected = append(into.PIIDetected, kind)
		}
	}
	for _, kind := range r.InjectionDetected {
		if !containsStr(injectionNames(into.InjectionDetected), string(kind)) {
			into.InjectionDetected = append(into.InjectionDetected, kind)
		}
	}
	into.PIIRedacted = into.PIIRedacted || r.PIIRedacted

	switch r.Status {
	case security.StatusBlocked:
		into.Status = security.StatusBlocked
		if into.BlockedReason == "" {
			into.BlockedReason = r.BlockedReason
		}
	case security.StatusWarning:
		if into.Status != security.StatusBlocked {
			into.Status = security.StatusWarning
		}
	}
}

// respond finishes a successful request.
func (p *Pipeline) respond(st *requestState, outcome audit.Outcome, status int, payload map[string]interface{}) {
	if st.finished {
		return
	}
	st.finished = true

	st.record.Outcome = outcome
	st.record.StatusCode = status
	st.record.LatencyMS = p.latencyMS(st)

	st.w.Header().Set("Content-Type", "application/json")
	st.w.WriteHeader(status)
	if err := json.NewEncoder(st.w).Encode(payload); err != nil {
		p.log.Error(st.record.ClientID, st.record.RequestID, "failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}

	p.emit(st)
}

// fail finishes a request on any terminal error box.
func (p *Pipeline) fail(st *requestState, outcome audit.Outcome, kind ErrorKind, resp ErrorResponse) {
	if st.finished {
		return
	}
	st.finished = true

	st.record.Outcome = outcome
	st.record.StatusCode = kind.StatusCode()
	st.record.LatencyMS = p.latencyMS(st)

	st.w.Header().Set("Content-Type", "application/json")
	st.w.WriteHeader(st.record.StatusCode)
	_ = json.NewEncoder(st.w).Encode(resp)

	p.emit(st)
}

// emit writes the request's single audit record and metrics observation.
func (p *Pipeline) emit(st *requestState) {
	rec := st.record
	p.sink.Write(rec)
	promRequestsTotal.WithLabelValues(rec.Route, string(rec.Outcome)).Inc()
	promRequestDuration.WithLabelValues(rec.Route).Observe(rec.LatencyMS)

	if p.logRequests {
		p.log.Info(rec.ClientID, rec.RequestID, "request completed", map[string]interface{}{
			"route":      rec.Route,
			"outcome":    string(rec.Outcome),
			"status":     rec.StatusCode,
			"latency_ms": rec.LatencyMS,
		})
	}
}

func (p *Pipeline) latencyMS(st *requestState) float64 {
	return math.Round(float64(time.Since(st.start).Microseconds())/1000*100) / 100
}

func substitutePathParams(path string, vars map[string]string) string {
	for key, val := range vars {
		path = strings.ReplaceAll(path, "{"+key+"}", val)
	}
	return path
}

// outputText picks the response text counted as model output: a named field
// when the route declares one, otherwise the whole response body.
func outputText(upstream map[string]interface{}, field string, raw []byte) string {
	if field == "" {
		return string(raw)
	}
	if s, ok := upstream[field].(string); ok {
		return s
	}
	return ""
}

func piiNames(kinds []security.PIIKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func injectionNames(kinds []security.InjectionKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
