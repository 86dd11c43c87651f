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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
)

func TestMain(m *testing.M) {
	if err := logging.Initialize(); err != nil {
		panic(err)
	}
	code := m.Run()
	logging.Close()
	os.Exit(code)
}

func newTTSServer(t *testing.T, speechHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/voices", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"voices": ["alloy", "echo"]}`))
	})
	if speechHandler != nil {
		mux.HandleFunc("/audio/speech", speechHandler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testTTSConfig(url string) config.TTSConfig {
	return config.TTSConfig{
		Engine:  "http",
		URL:     url,
		VoiceID: "alloy",
		Speed:   1.0,
		Format:  "mp3",
		Timeout: 5 * time.Second,
	}
}

func TestHTTPClient_Synthesize(t *testing.T) {
	var gotRequest speechRequest

	server := newTTSServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake-mp3-bytes"))
	})

	client, err := NewHTTPClient(testTTSConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	result, err := client.Synthesize("The library closes at ten.", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	defer func() { _ = result.Audio.Close() }()

	audio, err := io.ReadAll(result.Audio)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(audio) != "fake-mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
	if result.Format != "mp3" {
		t.Errorf("Format = %q, want mp3", result.Format)
	}

	if gotRequest.Input != "The library closes at ten." {
		t.Errorf("request input = %q", gotRequest.Input)
	}
	if gotRequest.Voice != "alloy" {
		t.Errorf("request voice = %q, want configured default", gotRequest.Voice)
	}
	if gotRequest.Speed != 1.0 {
		t.Errorf("request speed = %f", gotRequest.Speed)
	}
}

func TestHTTPClient_SynthesizeOptions(t *testing.T) {
	var gotRequest speechRequest

	server := newTTSServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF"))
	})

	client, err := NewHTTPClient(testTTSConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	result, err := client.Synthesize("hello", &Options{
		Voice:  "echo",
		Speed:  1.5,
		Format: "wav",
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	_ = result.Audio.Close()

	if gotRequest.Voice != "echo" || gotRequest.Speed != 1.5 || gotRequest.Format != "wav" {
		t.Errorf("options not applied: %+v", gotRequest)
	}
	if result.Format != "wav" {
		t.Errorf("result format = %q, want wav", result.Format)
	}
}

func TestHTTPClient_SynthesizeStreamedBody(t *testing.T) {
	// The audio stream must stay readable after Synthesize returns, even
	// when the service delivers it in chunks slower than the call itself.
	tail := bytes.Repeat([]byte("x"), 64*1024)

	server := newTTSServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(bytes.Repeat([]byte("y"), 1024))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write(tail)
	})

	client, err := NewHTTPClient(testTTSConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	result, err := client.Synthesize("a long answer", nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	audio, err := io.ReadAll(result.Audio)
	if err != nil {
		t.Fatalf("read audio after Synthesize returned: %v", err)
	}
	if err := result.Audio.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if len(audio) != 1024+len(tail) {
		t.Errorf("audio length = %d, want %d", len(audio), 1024+len(tail))
	}
}

func TestHTTPClient_SynthesizeErrors(t *testing.T) {
	server := newTTSServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusBadRequest)
	})

	client, err := NewHTTPClient(testTTSConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	if _, err := client.Synthesize("", nil); err == nil {
		t.Error("Synthesize(\"\") = nil error")
	}

	if _, err := client.Synthesize("hello", nil); err == nil {
		t.Error("Synthesize() against rejecting service = nil error")
	}
}

func TestHTTPClient_GetAvailableVoices(t *testing.T) {
	server := newTTSServer(t, nil)

	client, err := NewHTTPClient(testTTSConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	voices, err := client.GetAvailableVoices()
	if err != nil {
		t.Fatalf("GetAvailableVoices() error = %v", err)
	}
	if len(voices) != 2 || voices[0] != "alloy" {
		t.Errorf("voices = %v", voices)
	}
}

func TestNewHTTPClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	if _, err := NewHTTPClient(testTTSConfig(server.URL)); err == nil {
		t.Error("NewHTTPClient() against closed server = nil error")
	}

	if _, err := NewHTTPClient(testTTSConfig("")); err == nil {
		t.Error("NewHTTPClient(\"\") = nil error")
	}
}
