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

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
)

// maxConcurrentSynthesis bounds parallel requests against the speech
// service so a burst of turns cannot starve it.
const maxConcurrentSynthesis = 2

// speechRequest is the OpenAI-style /audio/speech payload.
type speechRequest struct {
	Model  string  `json:"model"`
	Input  string  `json:"input"`
	Voice  string  `json:"voice"`
	Format string  `json:"response_format"`
	Speed  float32 `json:"speed,omitempty"`
}

type voicesResponse struct {
	Voices []string `json:"voices"`
}

// HTTPClient implements Synthesizer against an OpenAI-style speech service.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	config    config.TTSConfig
	semaphore chan struct{}

	mu              sync.RWMutex
	cachedVoices    []string
	voicesCacheTime time.Time
}

// NewHTTPClient creates a speech service client and verifies the service is
// reachable.
func NewHTTPClient(cfg config.TTSConfig) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("TTS service URL cannot be empty")
	}

	c := &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		config:    cfg,
		semaphore: make(chan struct{}, maxConcurrentSynthesis),
	}

	if err := c.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	logging.Sugar.Infow("🔊 TTS service client initialized",
		"url", cfg.URL,
		"voice", cfg.VoiceID,
		"format", cfg.Format,
	)
	return c, nil
}

// Synthesize converts text to speech audio.
func (c *HTTPClient) Synthesize(text string, options *Options) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("TTS synthesis queue full, request timed out")
	}

	start := time.Now()

	voice := c.config.VoiceID
	speed := c.config.Speed
	format := c.config.Format
	if options != nil {
		if options.Voice != "" {
			voice = options.Voice
		}
		if options.Speed > 0 {
			speed = options.Speed
		}
		if options.Format != "" {
			format = options.Format
		}
	}

	payload, err := json.Marshal(speechRequest{
		Model:  "tts-1",
		Input:  text,
		Voice:  voice,
		Format: format,
		Speed:  speed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	logging.LogSynthesis("synthesis_start",
		zap.String("voice", voice),
		zap.Int("text_length", len(text)),
		zap.String("format", format),
	)

	// The context must outlive this call: the caller streams resp.Body
	// during playback, so cancellation is tied to Result.Audio.Close.
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		logging.LogError(err, "TTS HTTP request failed",
			zap.String("voice", voice),
			zap.Int("text_length", len(text)))
		return nil, fmt.Errorf("TTS HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		logging.LogWarn("TTS request rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response_body", string(body)))
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	logging.LogSynthesis("synthesis_complete",
		zap.String("voice", voice),
		zap.Duration("processing_time", time.Since(start)),
		zap.String("content_type", resp.Header.Get("Content-Type")),
	)

	return &Result{
		Audio:       &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		Format:      format,
		ContentType: resp.Header.Get("Content-Type"),
		Length:      resp.ContentLength,
	}, nil
}

// cancelOnClose keeps the request context alive while the audio stream is
// being read and releases it when the caller closes the stream.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// GetAvailableVoices returns the service's voice list, cached for an hour.
func (c *HTTPClient) GetAvailableVoices() ([]string, error) {
	c.mu.RLock()
	if len(c.cachedVoices) > 0 && time.Since(c.voicesCacheTime) < time.Hour {
		voices := make([]string, len(c.cachedVoices))
		copy(voices, c.cachedVoices)
		c.mu.RUnlock()
		return voices, nil
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch voices: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices request failed with status %d", resp.StatusCode)
	}

	var voices voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	c.mu.Lock()
	c.cachedVoices = make([]string, len(voices.Voices))
	copy(c.cachedVoices, voices.Voices)
	c.voicesCacheTime = time.Now()
	c.mu.Unlock()

	return voices.Voices, nil
}

// Close cleans up resources.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) testConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/voices", nil)
	if err != nil {
		return fmt.Errorf("failed to create test request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status %d", resp.StatusCode)
	}
	return nil
}
