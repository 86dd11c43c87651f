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

package audio

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// playbackRate is the speaker mixer rate. Streams at other rates are
// resampled on the fly.
const playbackRate = beep.SampleRate(44100)

var speakerOnce sync.Once
var speakerErr error

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(playbackRate, playbackRate.N(time.Second/10))
	})
	return speakerErr
}

// Player plays encoded audio (mp3 or wav) through the default output
// device. One stream plays at a time; Play blocks until playback finishes.
type Player struct {
	mu sync.Mutex
}

// NewPlayer returns a ready Player. The speaker is initialized lazily on
// the first Play call.
func NewPlayer() *Player {
	return &Player{}
}

// Play decodes and plays an audio stream. format is "mp3" or "wav".
func (p *Player) Play(r io.ReadCloser, format string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := initSpeaker(); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	var streamer beep.StreamSeekCloser
	var streamFormat beep.Format
	var err error

	switch strings.ToLower(format) {
	case "mp3":
		streamer, streamFormat, err = mp3.Decode(r)
	case "wav":
		streamer, streamFormat, err = wav.Decode(r)
	default:
		_ = r.Close()
		return fmt.Errorf("unsupported playback format: %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s stream: %w", format, err)
	}
	defer func() { _ = streamer.Close() }()

	var stream beep.Streamer = streamer
	if streamFormat.SampleRate != playbackRate {
		stream = beep.Resample(4, streamFormat.SampleRate, playbackRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}
