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

// Package tts turns response text into audible speech. Two engines are
// supported: an OpenAI-style /audio/speech HTTP service and local espeak.
// When the configured engine cannot be initialized the other one is tried,
// so the assistant still talks when the speech service is down.
package tts

import (
	"fmt"
	"io"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
)

// Options overrides per-call synthesis parameters. Zero values fall back to
// the configured defaults.
type Options struct {
	Voice  string
	Speed  float32
	Format string // mp3, wav
}

// Result holds a synthesized audio stream. The caller owns Audio and must
// close it after playback.
type Result struct {
	Audio       io.ReadCloser
	Format      string // mp3 or wav, for the playback decoder
	ContentType string
	Length      int64 // -1 if unknown
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	// Synthesize converts text to an audio stream.
	Synthesize(text string, options *Options) (*Result, error)

	// Close cleans up resources.
	Close() error
}

// NewSynthesizer builds the configured engine, falling back to the
// alternative when initialization fails.
func NewSynthesizer(cfg config.TTSConfig) (Synthesizer, error) {
	var primary, fallback func() (Synthesizer, error)

	httpEngine := func() (Synthesizer, error) { return NewHTTPClient(cfg) }
	espeakEngine := func() (Synthesizer, error) { return NewEspeakSynthesizer(cfg) }

	switch cfg.Engine {
	case "http":
		primary, fallback = httpEngine, espeakEngine
	case "espeak":
		primary, fallback = espeakEngine, httpEngine
	default:
		return nil, fmt.Errorf("unknown TTS engine: %q", cfg.Engine)
	}

	synth, err := primary()
	if err == nil {
		return synth, nil
	}
	logging.LogError(err, "Primary TTS engine unavailable, trying fallback")

	synth, fallbackErr := fallback()
	if fallbackErr != nil {
		return nil, fmt.Errorf("no TTS engine available: %w", err)
	}
	return synth, nil
}
