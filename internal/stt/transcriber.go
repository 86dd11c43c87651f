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

// Package stt turns captured audio into text. The default backend is an
// OpenAI-compatible transcription service; a local whisper.cpp model can be
// used instead when built with -tags whisper.
package stt

import (
	"fmt"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
)

// Transcriber converts audio samples to text.
type Transcriber interface {
	// Transcribe converts mono audio samples at the given rate to text.
	Transcribe(audioData []float32, sampleRate int) (string, error)

	// Close cleans up resources.
	Close() error
}

// NewTranscriber selects a speech-to-text backend from configuration. The
// remote service is preferred; when it is unreachable a local whisper model
// is tried before giving up.
func NewTranscriber(cfg config.RecognitionConfig) (Transcriber, error) {
	if cfg.STTURL != "" {
		client, err := NewHTTPClient(cfg.STTURL, cfg.Language)
		if err == nil {
			return client, nil
		}
		logging.LogError(err, "STT service unavailable, trying local whisper model")
	}

	whisper, err := NewWhisperTranscriber(cfg.WhisperModel)
	if err != nil {
		return nil, fmt.Errorf("no speech-to-text backend available: %w", err)
	}
	return whisper, nil
}
