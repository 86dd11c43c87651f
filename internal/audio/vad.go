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

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// vadSampleRates are the only rates the WebRTC detector accepts.
var vadSampleRates = []int{8000, 16000, 32000, 48000}

// Detector wraps the WebRTC voice activity detector. It consumes the 10ms
// frames produced by Capture.
type Detector struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
}

// NewDetector creates a detector with the given aggressiveness mode (0-3,
// higher filters more non-speech).
func NewDetector(sampleRate, mode int) (*Detector, error) {
	if !validVADRate(sampleRate) {
		return nil, fmt.Errorf("invalid sample rate %d, must be one of %v", sampleRate, vadSampleRates)
	}
	if mode < 0 || mode > 3 {
		return nil, fmt.Errorf("VAD mode must be 0-3: %d", mode)
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &Detector{
		vad:        vad,
		sampleRate: sampleRate,
		mode:       mode,
	}, nil
}

// IsSpeech reports whether one 10ms frame of float32 samples contains
// speech. Frames of the wrong length are rejected.
func (d *Detector) IsSpeech(frame []float32) (bool, error) {
	if len(frame) != d.sampleRate/100 {
		return false, fmt.Errorf("frame must be 10ms (%d samples), got %d", d.sampleRate/100, len(frame))
	}

	buf := make([]byte, len(frame)*2)
	for i, s := range frame {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767)
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}

	active, err := d.vad.Process(d.sampleRate, buf)
	if err != nil {
		return false, fmt.Errorf("VAD processing failed: %w", err)
	}
	return active, nil
}

// Mode returns the configured aggressiveness.
func (d *Detector) Mode() int {
	return d.mode
}
