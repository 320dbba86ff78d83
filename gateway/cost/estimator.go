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

// Package cost estimates token counts and API spend for proxied AI requests.
package cost

import (
	"math"

	"github.com/pkoukk/tiktoken-go"
)

// Metadata carries the token accounting attached to a proxied response.
type Metadata struct {
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Estimator counts tokens with the cl100k_base encoding (GPT-4 family) and
// prices them at configured per-1K-token rates. If the encoding cannot be
// loaded it falls back to a chars/4 approximation rather than failing.
type Estimator struct {
	costPer1KInput  float64
	costPer1KOutput float64
	encoding        *tiktoken.Tiktoken
}

// NewEstimator creates an Estimator with the given USD rates per 1000
// input and output tokens.
func NewEstimator(costPer1KInput, costPer1KOutput float64) *Estimator {
	// Encoding load pulls the BPE ranks; a failure here (offline first
	// run, no cache) downgrades to approximate counting.
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		encoding = nil
	}
	return &Estimator{
		costPer1KInput:  costPer1KInput,
		costPer1KOutput: costPer1KOutput,
		encoding:        encoding,
	}
}

// CountTokens returns the number of tokens in text.
func (e *Estimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e.encoding != nil {
		return len(e.encoding.Encode(text, nil, nil))
	}
	// Rough approximation: about 4 characters per token.
	return len(text) / 4
}

// Estimate prices a request/response pair. The cost is rounded to 6 decimal
// places, the resolution at which providers publish their rates.
func (e *Estimator) Estimate(inputText, outputText string) Metadata {
	inputTokens := e.CountTokens(inputText)
	outputTokens := e.CountTokens(outputText)

	inputCost := float64(inputTokens) / 1000 * e.costPer1KInput
	outputCost := float64(outputTokens) / 1000 * e.costPer1KOutput

	return Metadata{
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		TotalTokens:      inputTokens + outputTokens,
		EstimatedCostUSD: round6(inputCost + outputCost),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
