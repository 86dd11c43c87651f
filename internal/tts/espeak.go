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
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
)

// espeakBaseWPM is espeak's default speaking rate; Speed scales it.
const espeakBaseWPM = 175

// EspeakSynthesizer shells out to espeak-ng (or espeak) for fully offline
// synthesis. Output is WAV on stdout.
type EspeakSynthesizer struct {
	binary string
	config config.TTSConfig
}

// NewEspeakSynthesizer locates the espeak binary on PATH.
func NewEspeakSynthesizer(cfg config.TTSConfig) (*EspeakSynthesizer, error) {
	binary, err := exec.LookPath("espeak-ng")
	if err != nil {
		binary, err = exec.LookPath("espeak")
		if err != nil {
			return nil, fmt.Errorf("espeak not found on PATH: %w", err)
		}
	}

	logging.Sugar.Infow("🔊 espeak synthesizer initialized",
		"binary", binary,
		"language", cfg.Language,
	)

	return &EspeakSynthesizer{
		binary: binary,
		config: cfg,
	}, nil
}

// Synthesize runs espeak and returns the WAV stream it produced.
func (e *EspeakSynthesizer) Synthesize(text string, options *Options) (*Result, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	speed := e.config.Speed
	voice := e.config.Language
	if options != nil {
		if options.Speed > 0 {
			speed = options.Speed
		}
		if options.Voice != "" {
			voice = options.Voice
		}
	}
	wpm := int(float32(espeakBaseWPM) * speed)

	ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary,
		"--stdout",
		"-v", voice,
		"-s", strconv.Itoa(wpm),
		text,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.LogError(err, "espeak synthesis failed",
			zap.String("stderr", stderr.String()))
		return nil, fmt.Errorf("espeak failed: %w", err)
	}

	logging.LogSynthesis("synthesis_complete",
		zap.String("engine", "espeak"),
		zap.Int("text_length", len(text)),
		zap.Int("audio_bytes", stdout.Len()),
	)

	return &Result{
		Audio:       io.NopCloser(bytes.NewReader(stdout.Bytes())),
		Format:      "wav",
		ContentType: "audio/wav",
		Length:      int64(stdout.Len()),
	}, nil
}

// Close is a no-op; espeak runs per call.
func (e *EspeakSynthesizer) Close() error {
	return nil
}
