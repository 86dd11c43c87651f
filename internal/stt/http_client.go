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

package stt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/logging"
)

// HTTPClient implements Transcriber against any OpenAI-compatible
// /v1/audio/transcriptions endpoint.
type HTTPClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewHTTPClient creates a transcription client and verifies the service is
// reachable via its health endpoint.
func NewHTTPClient(baseURL, language string) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("STT base URL must be provided")
	}

	c := &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: shortLanguage(language),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if err := c.healthCheck(); err != nil {
		return nil, fmt.Errorf("STT service health check failed: %w", err)
	}

	logging.Sugar.Infow("🎙️  Connected to STT service", "base_url", c.baseURL)
	return c, nil
}

// shortLanguage maps locale tags like "en-US" to the bare language code the
// transcription API expects.
func shortLanguage(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

func (c *HTTPClient) healthCheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to connect to STT service at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("STT service health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Transcribe sends the samples as a WAV upload and returns the recognized
// text. Empty text means the service heard nothing intelligible.
func (c *HTTPClient) Transcribe(audioData []float32, sampleRate int) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("empty audio data")
	}
	if sampleRate <= 0 {
		return "", fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileWriter, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if err := writeWAV(fileWriter, audioData, sampleRate); err != nil {
		return "", fmt.Errorf("failed to encode WAV: %w", err)
	}

	_ = writer.WriteField("language", c.language)
	_ = writer.WriteField("temperature", "0.0")
	_ = writer.WriteField("response_format", "json")

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	logging.LogRecognition("transcribed",
		zap.Int("samples", len(audioData)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.String("text", text))

	return text, nil
}

// Close cleans up resources.
func (c *HTTPClient) Close() error {
	return nil
}

// writeWAV encodes mono float32 samples as a 32-bit IEEE float WAV stream.
func writeWAV(w io.Writer, samples []float32, sampleRate int) error {
	dataSize := len(samples) * 4
	byteRate := sampleRate * 4

	var header bytes.Buffer
	header.WriteString("RIFF")
	_ = binary.Write(&header, binary.LittleEndian, uint32(36+dataSize))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	_ = binary.Write(&header, binary.LittleEndian, uint32(16))
	_ = binary.Write(&header, binary.LittleEndian, uint16(3)) // IEEE float
	_ = binary.Write(&header, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&header, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&header, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&header, binary.LittleEndian, uint16(4))  // block align
	_ = binary.Write(&header, binary.LittleEndian, uint16(32)) // bits per sample
	header.WriteString("data")
	_ = binary.Write(&header, binary.LittleEndian, uint32(dataSize))

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, sample := range samples {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(sample))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
