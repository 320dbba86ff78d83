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

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"promptgate/shared/logger"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	queueDepth           = 10000
)

// PostgresSink batches audit records into a Postgres table. Records are
// enqueued without blocking the request path; a background worker flushes
// them when the batch fills or on a timer. If the database cannot be opened
// the sink degrades to a no-op so an audit outage never takes requests down.
type PostgresSink struct {
	db    *sql.DB
	log   *logger.Logger
	queue chan *Record

	mu    sync.Mutex
	batch []*Record

	batchSize     int
	flushInterval time.Duration

	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewPostgresSink connects to the audit database and starts the flush
// worker. A connection failure is logged and yields a no-op sink.
func NewPostgresSink(databaseURL string, log *logger.Logger) *PostgresSink {
	db, err := sql.Open("postgres", databaseURL)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		log.Warn("", "", "audit database unavailable, audit records will not be persisted", map[string]interface{}{
			"error": err.Error(),
		})
		return &PostgresSink{log: log}
	}

	if err := createAuditTable(db); err != nil {
		log.Error("", "", "failed to create audit table", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return newPostgresSink(db, log)
}

func newPostgresSink(db *sql.DB, log *logger.Logger) *PostgresSink {
	s := &PostgresSink{
		db:            db,
		log:           log,
		queue:         make(chan *Record, queueDepth),
		batch:         make([]*Record, 0, defaultBatchSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		shutdown:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Write enqueues a record. If the queue is full the record is dropped with
// a log line rather than stalling the request.
func (s *PostgresSink) Write(entry *Record) {
	if s.db == nil {
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.log.Warn(entry.ClientID, entry.RequestID, "audit queue full, dropping record", nil)
	}
}

// Close flushes buffered records and closes the database.
func (s *PostgresSink) Close() error {
	if s.db == nil {
		return nil
	}
	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}

func (s *PostgresSink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-s.queue:
			s.add(entry)
		case <-ticker.C:
			s.Flush()
		case <-s.shutdown:
			// Drain whatever is still queued, then flush once.
			for {
				select {
				case entry := <-s.queue:
					s.add(entry)
				default:
					s.Flush()
					return
				}
			}
		}
	}
}

func (s *PostgresSink) add(entry *Record) {
	s.mu.Lock()
	s.batch = append(s.batch, entry)
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()

	if full {
		s.Flush()
	}
}

// Flush writes the buffered batch in one transaction.
func (s *PostgresSink) Flush() {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]*Record, 0, s.batchSize)
	s.mu.Unlock()

	if err := s.writeBatch(pending); err != nil {
		s.log.Error("", "", "failed to write audit batch", map[string]interface{}{
			"error":   err.Error(),
			"entries": len(pending),
		})
	}
}

func (s *PostgresSink) writeBatch(entries []*Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO gateway_audit (
			request_id, timestamp, client_id, method, path, route,
			outcome, status_code, latency_ms, security_status,
			pii_detected, injection_detected, rate_limit_remaining,
			input_tokens, output_tokens, estimated_cost_usd,
			upstream_service, upstream_status, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		piiJSON, _ := json.Marshal(entry.PIIDetected)
		injectionJSON, _ := json.Marshal(entry.InjectionDetected)

		if _, err := stmt.Exec(
			entry.RequestID,
			entry.Timestamp,
			entry.ClientID,
			entry.Method,
			entry.Path,
			entry.Route,
			string(entry.Outcome),
			entry.StatusCode,
			entry.LatencyMS,
			entry.SecurityStatus,
			piiJSON,
			injectionJSON,
			entry.RateLimitRemaining,
			entry.InputTokens,
			entry.OutputTokens,
			entry.EstimatedCostUSD,
			entry.UpstreamService,
			entry.UpstreamStatus,
			entry.ErrorMessage,
		); err != nil {
			s.log.Error(entry.ClientID, entry.RequestID, "failed to insert audit record", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return tx.Commit()
}

// IsHealthy reports whether the audit database answers a ping. The no-op
// sink is always healthy.
func (s *PostgresSink) IsHealthy() bool {
	if s.db == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

func createAuditTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS gateway_audit (
		id BIGSERIAL PRIMARY KEY,
		request_id VARCHAR(255) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		client_id VARCHAR(255) NOT NULL,
		method VARCHAR(10) NOT NULL,
		path TEXT NOT NULL,
		route VARCHAR(100) NOT NULL,
		outcome VARCHAR(50) NOT NULL,
		status_code INTEGER NOT NULL,
		latency_ms DOUBLE PRECISION NOT NULL,
		security_status VARCHAR(20) NOT NULL,
		pii_detected JSONB,
		injection_detected JSONB,
		rate_limit_remaining INTEGER,
		input_tokens INTEGER,
		output_tokens INTEGER,
		estimated_cost_usd DECIMAL(10, 6),
		upstream_service VARCHAR(100),
		upstream_status INTEGER,
		error_message TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_gateway_audit_timestamp ON gateway_audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_gateway_audit_request_id ON gateway_audit(request_id);
	CREATE INDEX IF NOT EXISTS idx_gateway_audit_client_id ON gateway_audit(client_id);
	CREATE INDEX IF NOT EXISTS idx_gateway_audit_outcome ON gateway_audit(outcome);
	`
	_, err := db.Exec(query)
	return err
}
