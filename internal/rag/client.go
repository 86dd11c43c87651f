/*
 * This file is part of Sona (https://github.com/sonalabs/sona).
 * Copyright (C) 2026 Sona Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
	"go.uber.org/zap"
)

// Request is the payload sent to the RAG endpoint. The field names follow
// the backend contract: "name"/"user_type" personalize retrieval, "message"
// carries the utterance.
type Request struct {
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
}

// rawResponse mirrors the endpoint's JSON body. The deployed backend returns
// the answer under "response"; "answer" is accepted as well so the client
// works against both generations of the service.
type rawResponse struct {
	Response   string   `json:"response"`
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
	Timestamp  float64  `json:"timestamp"`
}

// Answer holds the extracted result of a successful RAG query
type Answer struct {
	Text       string
	Confidence float64
	Sources    []string
	Latency    time.Duration
}

// Client issues personalized queries against the remote RAG endpoint.
// It never retries: a failed call ends the turn and the caller reports a
// spoken fallback.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

// NewClient creates a RAG client from configuration
func NewClient(cfg config.RAGConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("RAG endpoint cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("RAG timeout must be positive: %v", cfg.Timeout)
	}

	c := &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🧠 RAG client initialized",
			"endpoint", cfg.Endpoint,
			"timeout", cfg.Timeout,
			"authenticated", cfg.APIKey != "",
		)
	}

	return c, nil
}

// Query sends one utterance to the RAG endpoint and extracts the answer.
// Failures are returned as *QueryError with the kind set; callers decide on
// the spoken fallback.
func (c *Client) Query(ctx context.Context, req Request) (*Answer, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("query message cannot be empty")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RAG request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()

	resp, err := c.client.Do(httpReq)
	if err != nil {
		kind := KindUnreachable
		if isTimeout(err) {
			kind = KindTimeout
		}
		if logging.Logger != nil {
			logging.LogError(err, "RAG request failed",
				zap.String("endpoint", c.endpoint),
				zap.String("kind", string(kind)),
			)
		}
		return nil, &QueryError{Kind: kind, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.LogWarn("Failed to close RAG response body", zap.Error(err))
		}
	}()

	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if logging.Logger != nil {
			logging.LogWarn("RAG endpoint rejected request",
				zap.Int("status_code", resp.StatusCode),
				zap.ByteString("response_body", respBody),
			)
		}
		return nil, &QueryError{Kind: KindRemoteRejected, StatusCode: resp.StatusCode}
	}

	var raw rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &QueryError{Kind: KindMalformed, Err: err}
	}

	text := raw.Response
	if text == "" {
		text = raw.Answer
	}
	if text == "" {
		return nil, &QueryError{
			Kind: KindMalformed,
			Err:  fmt.Errorf("response body has no answer field"),
		}
	}

	return &Answer{
		Text:       text,
		Confidence: raw.Confidence,
		Sources:    raw.Sources,
		Latency:    latency,
	}, nil
}

// isTimeout distinguishes deadline expiry from other transport failures
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
