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
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/audio"
	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
)

// ErrNoSpeech is returned when no speech starts within the listen timeout.
var ErrNoSpeech = errors.New("no speech detected")

const (
	frameDuration = 10 * time.Millisecond

	// prerollFrames of audio kept before speech onset, so a soft first
	// syllable is not clipped
	prerollFrames = 30 // 300ms

	// endSilenceFrames of continuous silence that end the phrase
	endSilenceFrames = 70 // 700ms
)

// Recognizer drives one listen-and-transcribe cycle: wait for speech, record
// until the speaker stops or the phrase limit is hit, then transcribe.
type Recognizer struct {
	detector    *audio.Detector
	transcriber Transcriber
	sampleRate  int

	listenTimeout   time.Duration
	phraseTimeLimit time.Duration
}

// NewRecognizer builds a recognizer from configuration.
func NewRecognizer(cfg config.RecognitionConfig) (*Recognizer, error) {
	detector, err := audio.NewDetector(cfg.SampleRate, cfg.VADMode)
	if err != nil {
		return nil, err
	}

	transcriber, err := NewTranscriber(cfg)
	if err != nil {
		return nil, err
	}

	return &Recognizer{
		detector:        detector,
		transcriber:     transcriber,
		sampleRate:      cfg.SampleRate,
		listenTimeout:   cfg.ListenTimeout,
		phraseTimeLimit: cfg.PhraseTimeLimit,
	}, nil
}

// Listen captures one utterance from the microphone and returns its
// transcription. ErrNoSpeech is returned when nothing is said within the
// listen timeout. Cancelling ctx aborts the capture.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	capture, err := audio.NewCapture(r.sampleRate)
	if err != nil {
		return "", err
	}
	defer func() { _ = capture.Close() }()

	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := capture.Start(captureCtx); err != nil {
		return "", err
	}

	samples, err := r.record(ctx, capture)
	if err != nil {
		return "", err
	}

	return r.transcriber.Transcribe(samples, r.sampleRate)
}

// record implements the endpointing loop over 10ms frames.
func (r *Recognizer) record(ctx context.Context, capture *audio.Capture) ([]float32, error) {
	listenDeadline := time.After(r.listenTimeout)

	var preroll [][]float32
	var phrase []float32

	speaking := false
	silentFrames := 0
	var phraseDeadline <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-listenDeadline:
			if !speaking {
				return nil, ErrNoSpeech
			}

		case <-phraseDeadline:
			logging.LogRecognition("phrase_limit_reached",
				zap.Duration("limit", r.phraseTimeLimit))
			return phrase, nil

		case frame, ok := <-capture.Frames():
			if !ok {
				if speaking {
					return phrase, nil
				}
				return nil, ErrNoSpeech
			}

			active, err := r.detector.IsSpeech(frame)
			if err != nil {
				return nil, err
			}

			if !speaking {
				if !active {
					preroll = append(preroll, frame)
					if len(preroll) > prerollFrames {
						preroll = preroll[1:]
					}
					continue
				}

				speaking = true
				phraseDeadline = time.After(r.phraseTimeLimit)
				for _, pre := range preroll {
					phrase = append(phrase, pre...)
				}
				logging.LogRecognition("speech_started")
			}

			phrase = append(phrase, frame...)

			if active {
				silentFrames = 0
				continue
			}

			silentFrames++
			if silentFrames >= endSilenceFrames {
				logging.LogRecognition("speech_ended",
					zap.Int("samples", len(phrase)))
				return phrase, nil
			}
		}
	}
}

// Close releases the transcription backend.
func (r *Recognizer) Close() error {
	return r.transcriber.Close()
}
