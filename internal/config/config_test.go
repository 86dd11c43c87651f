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

package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RAG.Endpoint != "http://localhost:5000/api/rag" {
		t.Errorf("RAG.Endpoint = %q, want %q", cfg.RAG.Endpoint, "http://localhost:5000/api/rag")
	}
	if cfg.RAG.APIKey != "" {
		t.Errorf("RAG.APIKey = %q, want empty", cfg.RAG.APIKey)
	}
	if cfg.RAG.Timeout != 30*time.Second {
		t.Errorf("RAG.Timeout = %v, want %v", cfg.RAG.Timeout, 30*time.Second)
	}

	if cfg.User.Name != "User" {
		t.Errorf("User.Name = %q, want %q", cfg.User.Name, "User")
	}
	if cfg.User.Type != "student" {
		t.Errorf("User.Type = %q, want %q", cfg.User.Type, "student")
	}

	if cfg.Recognition.Language != "en-US" {
		t.Errorf("Recognition.Language = %q, want %q", cfg.Recognition.Language, "en-US")
	}
	if cfg.Recognition.ListenTimeout != 5*time.Second {
		t.Errorf("Recognition.ListenTimeout = %v, want %v", cfg.Recognition.ListenTimeout, 5*time.Second)
	}
	if cfg.Recognition.PhraseTimeLimit != 10*time.Second {
		t.Errorf("Recognition.PhraseTimeLimit = %v, want %v", cfg.Recognition.PhraseTimeLimit, 10*time.Second)
	}
	if cfg.Recognition.SampleRate != 16000 {
		t.Errorf("Recognition.SampleRate = %d, want %d", cfg.Recognition.SampleRate, 16000)
	}

	if cfg.TTS.Engine != "espeak" {
		t.Errorf("TTS.Engine = %q, want %q", cfg.TTS.Engine, "espeak")
	}
	if cfg.TTS.Language != "en" {
		t.Errorf("TTS.Language = %q, want %q", cfg.TTS.Language, "en")
	}
	if cfg.TTS.Speed != 1.0 {
		t.Errorf("TTS.Speed = %f, want %f", cfg.TTS.Speed, 1.0)
	}

	if cfg.UI.WindowWidth != 800 || cfg.UI.WindowHeight != 600 {
		t.Errorf("UI dimensions = %dx%d, want 800x600", cfg.UI.WindowWidth, cfg.UI.WindowHeight)
	}
	if cfg.UI.Hotkey != "ctrl+shift+space" {
		t.Errorf("UI.Hotkey = %q, want %q", cfg.UI.Hotkey, "ctrl+shift+space")
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8090)
	}
	if cfg.Storage.DBPath != "./data/sona.db" {
		t.Errorf("Storage.DBPath = %q, want %q", cfg.Storage.DBPath, "./data/sona.db")
	}
	if cfg.NATS.URL != "" {
		t.Errorf("NATS.URL = %q, want empty (publishing disabled by default)", cfg.NATS.URL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "RAG configuration",
			envVars: map[string]string{
				"RAG_API_ENDPOINT": "https://rag.example.edu/api/v1/chat/message",
				"RAG_API_KEY":      "secret-key",
				"RAG_API_TIMEOUT":  "45",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.RAG.Endpoint != "https://rag.example.edu/api/v1/chat/message" {
					t.Errorf("RAG.Endpoint = %q", cfg.RAG.Endpoint)
				}
				if cfg.RAG.APIKey != "secret-key" {
					t.Errorf("RAG.APIKey = %q", cfg.RAG.APIKey)
				}
				if cfg.RAG.Timeout != 45*time.Second {
					t.Errorf("RAG.Timeout = %v, want 45s (bare seconds)", cfg.RAG.Timeout)
				}
			},
		},
		{
			name: "user configuration",
			envVars: map[string]string{
				"DEFAULT_USER_NAME": "Alex",
				"DEFAULT_USER_TYPE": "staff",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.User.Name != "Alex" {
					t.Errorf("User.Name = %q, want %q", cfg.User.Name, "Alex")
				}
				if cfg.User.Type != "staff" {
					t.Errorf("User.Type = %q, want %q", cfg.User.Type, "staff")
				}
			},
		},
		{
			name: "recognition bounds",
			envVars: map[string]string{
				"SPEECH_RECOGNITION_LANGUAGE":          "de-DE",
				"SPEECH_RECOGNITION_TIMEOUT":           "8",
				"SPEECH_RECOGNITION_PHRASE_TIME_LIMIT": "1500ms",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Recognition.Language != "de-DE" {
					t.Errorf("Recognition.Language = %q", cfg.Recognition.Language)
				}
				if cfg.Recognition.ListenTimeout != 8*time.Second {
					t.Errorf("Recognition.ListenTimeout = %v", cfg.Recognition.ListenTimeout)
				}
				if cfg.Recognition.PhraseTimeLimit != 1500*time.Millisecond {
					t.Errorf("Recognition.PhraseTimeLimit = %v", cfg.Recognition.PhraseTimeLimit)
				}
			},
		},
		{
			name: "TTS configuration",
			envVars: map[string]string{
				"TTS_ENGINE":   "http",
				"TTS_URL":      "http://tts.local:8880/v1",
				"TTS_VOICE_ID": "af_bella",
				"TTS_SPEED":    "1.25",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.TTS.Engine != "http" {
					t.Errorf("TTS.Engine = %q", cfg.TTS.Engine)
				}
				if cfg.TTS.URL != "http://tts.local:8880/v1" {
					t.Errorf("TTS.URL = %q", cfg.TTS.URL)
				}
				if cfg.TTS.VoiceID != "af_bella" {
					t.Errorf("TTS.VoiceID = %q", cfg.TTS.VoiceID)
				}
				if cfg.TTS.Speed != 1.25 {
					t.Errorf("TTS.Speed = %f", cfg.TTS.Speed)
				}
			},
		},
		{
			name: "logging to a file",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
				"LOG_FILE":  "/tmp/sona.log",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("Logging.Level = %q", cfg.Logging.Level)
				}
				if cfg.Logging.File != "/tmp/sona.log" {
					t.Errorf("Logging.File = %q", cfg.Logging.File)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "unknown user type",
			envVars: map[string]string{"DEFAULT_USER_TYPE": "visitor"},
		},
		{
			name:    "unknown TTS engine",
			envVars: map[string]string{"TTS_ENGINE": "pyttsx3"},
		},
		{
			name:    "negative TTS speed",
			envVars: map[string]string{"TTS_SPEED": "-1"},
		},
		{
			name:    "zero recognition timeout",
			envVars: map[string]string{"SPEECH_RECOGNITION_TIMEOUT": "0"},
		},
		{
			name:    "out of range VAD mode",
			envVars: map[string]string{"VAD_MODE": "7"},
		},
		{
			name:    "bad server port",
			envVars: map[string]string{"SONA_PORT": "70000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Error("Load() = nil error, want validation failure")
			}
		})
	}
}
