//go:build !whisper

package stt

import "fmt"

// WhisperTranscriber stub used when the whisper build tag is off.
type WhisperTranscriber struct {
	modelPath string
}

// NewWhisperTranscriber returns an error; local transcription needs the
// whisper build tag and the cgo bindings.
func NewWhisperTranscriber(modelPath string) (*WhisperTranscriber, error) {
	return nil, fmt.Errorf("local whisper transcription disabled (build with -tags whisper to enable)")
}

// Transcribe is never reachable in the stub.
func (wt *WhisperTranscriber) Transcribe(audioData []float32, sampleRate int) (string, error) {
	return "", fmt.Errorf("whisper transcription disabled")
}

// Close is a no-op in the stub.
func (wt *WhisperTranscriber) Close() error {
	return nil
}
