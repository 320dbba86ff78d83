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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8001", cfg.Services.RAG)
	assert.Equal(t, "http://localhost:8002", cfg.Services.Eval)
	assert.Equal(t, "http://localhost:8003", cfg.Services.Incident)
	assert.Equal(t, "http://localhost:8004", cfg.Services.DevOps)
	assert.Equal(t, "http://localhost:8005", cfg.Services.Architecture)

	assert.Equal(t, 100, cfg.RateLimit.Tokens)
	assert.Equal(t, 10.0, cfg.RateLimit.RefillRate)
	assert.True(t, cfg.RateLimit.PerClient)

	assert.True(t, cfg.Security.EnablePIIRedaction)
	assert.True(t, cfg.Security.EnableInjectionDetection)

	assert.Equal(t, 0.0015, cfg.Cost.Per1KInputTokens)
	assert.Equal(t, 0.002, cfg.Cost.Per1KOutputTokens)

	assert.Empty(t, cfg.AuditDatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.RoutesFile)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_TOKENS", "50")
	t.Setenv("RATE_LIMIT_PER_CLIENT", "false")
	t.Setenv("ENABLE_PII_REDACTION", "false")
	t.Setenv("RAG_SERVICE_URL", "http://rag.internal:8001")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 50, cfg.RateLimit.Tokens)
	assert.False(t, cfg.RateLimit.PerClient)
	assert.False(t, cfg.Security.EnablePIIRedaction)
	assert.Equal(t, "http://rag.internal:8001", cfg.Services.RAG)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("RATE_LIMIT_REFILL_RATE", "fast")
	t.Setenv("RATE_LIMIT_PER_CLIENT", "maybe")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port, "unparseable PORT should keep the default")
	assert.Equal(t, 10.0, cfg.RateLimit.RefillRate)
	assert.True(t, cfg.RateLimit.PerClient)
}
