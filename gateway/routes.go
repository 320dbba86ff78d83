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
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Service names routes may target.
const (
	ServiceRAG          = "rag"
	ServiceEval         = "eval"
	ServiceIncident     = "incident"
	ServiceDevOps       = "devops"
	ServiceArchitecture = "architecture"
)

// Route is the metadata that parameterizes the request pipeline for one
// gateway endpoint. The same five admission steps run for every route; the
// route decides the token cost, the timeout, which body fields get screened,
// and whether the response is priced.
type Route struct {
	// Name tags audit records and metrics.
	Name string `yaml:"name"`
	// Method and Path are the surface the gateway exposes. Path may carry
	// mux-style {param} segments.
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	// Service selects the upstream base URL; UpstreamPath is the path on
	// that service, with the same {param} placeholders as Path.
	Service      string `yaml:"service"`
	UpstreamPath string `yaml:"upstream_path"`
	// TimeoutSeconds bounds the upstream call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Cost is the number of rate-limit tokens one call spends.
	Cost float64 `yaml:"cost"`
	// InspectFields are the free-text body fields screened for PII and
	// injections. Paths are dotted; "[]" marks an array of objects, as in
	// "artifacts[].content".
	InspectFields []string `yaml:"inspect_fields"`
	// EstimateCost enables token pricing on routes that incur model spend.
	// CostOutputField names the response field counted as output text; empty
	// means the whole response body.
	EstimateCost    bool   `yaml:"estimate_cost"`
	CostOutputField string `yaml:"cost_output_field"`
	// PassNotFound surfaces an upstream 404 as 404 instead of 502, for
	// detail routes where "no such id" is a caller error.
	PassNotFound bool `yaml:"pass_not_found"`
	// NotFoundMessage is the error text used with PassNotFound.
	NotFoundMessage string `yaml:"not_found_message"`
}

// Timeout returns the upstream deadline for the route.
func (r Route) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// DefaultRoutes is the built-in route table covering the five upstream
// services. ROUTES_FILE replaces it wholesale when set.
func DefaultRoutes() []Route {
	return []Route{
		{
			Name: "rag-ask", Method: "POST", Path: "/rag/ask",
			Service: ServiceRAG, UpstreamPath: "/ask",
			TimeoutSeconds: 30, Cost: 1,
			InspectFields: []string{"question"},
			EstimateCost:  true, CostOutputField: "answer",
		},
		{
			Name: "eval-run", Method: "POST", Path: "/eval/run",
			Service: ServiceEval, UpstreamPath: "/runs",
			TimeoutSeconds: 120, Cost: 5,
		},
		{
			Name: "incident-ingest", Method: "POST", Path: "/incident/ingest",
			Service: ServiceIncident, UpstreamPath: "/ingest",
			TimeoutSeconds: 60, Cost: 3,
			InspectFields: []string{"incident_summary", "artifacts[].content"},
		},
		{
			Name: "incident-analyze", Method: "POST", Path: "/incident/analyze",
			Service: ServiceIncident, UpstreamPath: "/analyze",
			TimeoutSeconds: 120, Cost: 5,
			InspectFields: []string{"user_notes"},
		},
		{
			Name: "incident-list-cases", Method: "GET", Path: "/incident/cases",
			Service: ServiceIncident, UpstreamPath: "/cases",
			TimeoutSeconds: 30, Cost: 1,
		},
		{
			Name: "incident-get-case", Method: "GET", Path: "/incident/cases/{case_id}",
			Service: ServiceIncident, UpstreamPath: "/cases/{case_id}",
			TimeoutSeconds: 30, Cost: 1,
			PassNotFound: true, NotFoundMessage: "Case not found",
		},
		{
			Name: "incident-rerun", Method: "POST", Path: "/incident/cases/{case_id}/rerun",
			Service: ServiceIncident, UpstreamPath: "/cases/{case_id}/rerun",
			TimeoutSeconds: 120, Cost: 5,
			InspectFields: []string{"user_notes"},
		},
		{
			Name: "incident-feedback", Method: "POST", Path: "/incident/cases/{case_id}/feedback",
			Service: ServiceIncident, UpstreamPath: "/cases/{case_id}/feedback",
			TimeoutSeconds: 30, Cost: 1,
			InspectFields: []string{"reviewer_note"},
			PassNotFound:  true, NotFoundMessage: "Case not found",
		},
		{
			Name: "devops-ingest", Method: "POST", Path: "/devops/changes/ingest",
			Service: ServiceDevOps, UpstreamPath: "/changes/ingest",
			TimeoutSeconds: 60, Cost: 2,
			InspectFields: []string{"diff_summary", "description"},
		},
		{
			Name: "devops-analyze", Method: "POST", Path: "/devops/changes/analyze",
			Service: ServiceDevOps, UpstreamPath: "/changes/analyze",
			TimeoutSeconds: 120, Cost: 5,
		},
		{
			Name: "devops-list-changes", Method: "GET", Path: "/devops/changes",
			Service: ServiceDevOps, UpstreamPath: "/changes",
			TimeoutSeconds: 30, Cost: 1,
		},
		{
			Name: "devops-get-change", Method: "GET", Path: "/devops/changes/{change_id}",
			Service: ServiceDevOps, UpstreamPath: "/changes/{change_id}",
			TimeoutSeconds: 30, Cost: 1,
			PassNotFound: true, NotFoundMessage: "Change not found",
		},
		{
			Name: "architecture-review", Method: "POST", Path: "/architecture/review",
			Service: ServiceArchitecture, UpstreamPath: "/review",
			TimeoutSeconds: 120, Cost: 1,
			InspectFields: []string{"problem_statement", "user_notes"},
			EstimateCost:  true,
		},
		{
			Name: "architecture-list-reviews", Method: "GET", Path: "/architecture/reviews",
			Service: ServiceArchitecture, UpstreamPath: "/reviews",
			TimeoutSeconds: 30, Cost: 1,
		},
		{
			Name: "architecture-get-review", Method: "GET", Path: "/architecture/reviews/{review_id}",
			Service: ServiceArchitecture, UpstreamPath: "/reviews/{review_id}",
			TimeoutSeconds: 30, Cost: 1,
			PassNotFound: true, NotFoundMessage: "Review not found",
		},
		{
			Name: "architecture-feedback", Method: "POST", Path: "/architecture/reviews/{review_id}/feedback",
			Service: ServiceArchitecture, UpstreamPath: "/reviews/{review_id}/feedback",
			TimeoutSeconds: 30, Cost: 1,
			InspectFields: []string{"notes"},
			PassNotFound:  true, NotFoundMessage: "Review not found",
		},
	}
}

// LoadRoutes reads a YAML route table. Each entry must name a known service
// and carry a method, path, and positive timeout.
func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}

	var file struct {
		Routes []Route `yaml:"routes"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse routes file: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("routes file %s defines no routes", path)
	}

	for i, route := range file.Routes {
		if err := validateRoute(route); err != nil {
			return nil, fmt.Errorf("route %d (%s): %w", i, route.Name, err)
		}
	}
	return file.Routes, nil
}

func validateRoute(r Route) error {
	switch r.Service {
	case ServiceRAG, ServiceEval, ServiceIncident, ServiceDevOps, ServiceArchitecture:
	default:
		return fmt.Errorf("unknown service %q", r.Service)
	}
	if r.Name == "" {
		return fmt.Errorf("route name is required")
	}
	if r.Method != "GET" && r.Method != "POST" {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	if r.Path == "" || r.UpstreamPath == "" {
		return fmt.Errorf("path and upstream_path are required")
	}
	if r.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if r.Cost <= 0 {
		return fmt.Errorf("cost must be positive")
	}
	return nil
}
