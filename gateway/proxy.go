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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"promptgate/gateway/config"
)

// maxUpstreamResponseBytes caps how much of an upstream body is read.
const maxUpstreamResponseBytes = 10 << 20

// Proxy issues the single upstream call of the pipeline. There is no retry:
// a failed call surfaces immediately and the caller decides what to do.
type Proxy struct {
	services map[string]string
	client   *http.Client
}

// NewProxy maps service names to their configured base URLs. Per-call
// deadlines come from the route, so the shared client has no timeout.
func NewProxy(urls config.ServiceURLs) *Proxy {
	return &Proxy{
		services: map[string]string{
			ServiceRAG:          urls.RAG,
			ServiceEval:         urls.Eval,
			ServiceIncident:     urls.Incident,
			ServiceDevOps:       urls.DevOps,
			ServiceArchitecture: urls.Architecture,
		},
		client: &http.Client{},
	}
}

// Do forwards one request to the route's upstream service and returns the
// status code and body. upstreamPath must already have its path parameters
// substituted. A context deadline bounds the whole exchange; hitting it is
// reported like any other transport error.
func (p *Proxy) Do(ctx context.Context, route Route, upstreamPath string, body []byte) (int, []byte, error) {
	base, ok := p.services[route.Service]
	if !ok {
		return 0, nil, fmt.Errorf("no upstream configured for service %q", route.Service)
	}

	ctx, cancel := context.WithTimeout(ctx, route.Timeout())
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, route.Method, base+upstreamPath, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
