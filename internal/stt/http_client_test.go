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
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

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

func newSTTServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/audio/transcriptions", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_Transcribe(t *testing.T) {
	var gotLanguage string
	var gotWAVHeader []byte

	server := newSTTServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		gotLanguage = r.FormValue("language")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			gotWAVHeader = make([]byte, 12)
			_, _ = io.ReadFull(file, gotWAVHeader)
			_ = file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "  where is the cafeteria  "}`))
	})

	client, err := NewHTTPClient(server.URL, "en-US")
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	samples := make([]float32, 16000)
	text, err := client.Transcribe(samples, 16000)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if text != "where is the cafeteria" {
		t.Errorf("Transcribe() = %q, want trimmed text", text)
	}
	if gotLanguage != "en" {
		t.Errorf("language field = %q, want %q", gotLanguage, "en")
	}
	if string(gotWAVHeader[0:4]) != "RIFF" || string(gotWAVHeader[8:12]) != "WAVE" {
		t.Errorf("uploaded file is not a WAV: %q", gotWAVHeader)
	}
}

func TestHTTPClient_TranscribeErrors(t *testing.T) {
	server := newSTTServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	client, err := NewHTTPClient(server.URL, "en")
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}

	if _, err := client.Transcribe(nil, 16000); err == nil {
		t.Error("Transcribe(nil) = nil error")
	}

	if _, err := client.Transcribe(make([]float32, 100), 0); err == nil {
		t.Error("Transcribe() with zero sample rate = nil error")
	}

	if _, err := client.Transcribe(make([]float32, 100), 16000); err == nil {
		t.Error("Transcribe() against failing service = nil error")
	}
}

func TestNewHTTPClient_HealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewHTTPClient(server.URL, "en"); err == nil {
		t.Error("NewHTTPClient() against unhealthy service = nil error")
	}
}

func TestWriteWAV(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1.0}

	var buf bytes.Buffer
	if err := writeWAV(&buf, samples, 16000); err != nil {
		t.Fatalf("writeWAV() error = %v", err)
	}

	data := buf.Bytes()
	if len(data) != 44+len(samples)*4 {
		t.Fatalf("len(data) = %d, want %d", len(data), 44+len(samples)*4)
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}

	format := binary.LittleEndian.Uint16(data[20:22])
	if format != 3 {
		t.Errorf("audio format = %d, want 3 (IEEE float)", format)
	}

	rate := binary.LittleEndian.Uint32(data[24:28])
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(dataSize) != len(samples)*4 {
		t.Errorf("data size = %d, want %d", dataSize, len(samples)*4)
	}
}

func TestShortLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-US", "en"},
		{"de-DE", "de"},
		{"en", "en"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := shortLanguage(tt.in); got != tt.want {
			t.Errorf("shortLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
