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

// Package audio provides microphone capture, voice activity detection and
// speaker playback for the voice pipeline.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/logging"
)

const (
	// DefaultSampleRate is 16kHz mono, what the speech recognizers expect
	DefaultSampleRate = 16000

	// FrameDuration is 10ms per frame, the granularity the voice activity
	// detector operates on
	frameDivisor = 100
)

// Capture reads mono audio frames from the default input device. Each frame
// is 10ms of samples so it can be handed straight to the VAD.
type Capture struct {
	mu         sync.Mutex
	stream     *portaudio.Stream
	sampleRate int
	frameSize  int
	frames     chan []float32
	running    bool
}

// NewCapture initializes PortAudio and prepares a capture for the given
// sample rate. Close must be called to release the audio subsystem.
func NewCapture(sampleRate int) (*Capture, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &Capture{
		sampleRate: sampleRate,
		frameSize:  sampleRate / frameDivisor,
		frames:     make(chan []float32, 64),
	}, nil
}

// Start opens the default input stream and begins delivering frames on
// Frames(). Capture stops when ctx is cancelled or Stop is called.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("capture already running")
	}

	buffer := make([]float32, c.frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), c.frameSize, buffer)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	c.stream = stream
	c.running = true

	logging.LogRecognition("capture_started",
		zap.Int("sample_rate", c.sampleRate),
		zap.Int("frame_size", c.frameSize))

	go c.captureLoop(ctx, buffer)
	return nil
}

func (c *Capture) captureLoop(ctx context.Context, buffer []float32) {
	for {
		select {
		case <-ctx.Done():
			_ = c.Stop()
			return
		default:
		}

		c.mu.Lock()
		stream, running := c.stream, c.running
		c.mu.Unlock()
		if !running || stream == nil {
			return
		}

		if err := stream.Read(); err != nil {
			// Overflows happen under load; keep going unless stopped.
			continue
		}

		frame := make([]float32, len(buffer))
		copy(frame, buffer)

		select {
		case c.frames <- frame:
		default:
			// Consumer is behind, drop the frame rather than block the
			// audio callback path.
		}
	}
}

// Frames returns the channel of captured 10ms frames.
func (c *Capture) Frames() <-chan []float32 {
	return c.frames
}

// SampleRate returns the configured sample rate.
func (c *Capture) SampleRate() int {
	return c.sampleRate
}

// FrameSize returns samples per frame.
func (c *Capture) FrameSize() int {
	return c.frameSize
}

// Stop stops the input stream.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false

	if c.stream != nil {
		_ = c.stream.Stop()
		if err := c.stream.Close(); err != nil {
			return fmt.Errorf("failed to close input stream: %w", err)
		}
		c.stream = nil
	}
	return nil
}

// Close stops capture and tears down PortAudio.
func (c *Capture) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}
