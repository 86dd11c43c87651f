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
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Sona assistant. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	RAG         RAGConfig
	User        UserConfig
	Recognition RecognitionConfig
	TTS         TTSConfig
	UI          UIConfig
	Server      ServerConfig
	Storage     StorageConfig
	NATS        NATSConfig
	Logging     LoggingConfig
}

// RAGConfig holds the remote RAG endpoint configuration
type RAGConfig struct {
	Endpoint string        // URL of the RAG chat endpoint
	APIKey   string        // Bearer credential, optional
	Timeout  time.Duration // Per-call timeout
}

// UserConfig holds default request personalization fields
type UserConfig struct {
	Name string
	Type string // "staff" or "student"
}

// RecognitionConfig holds speech-to-text configuration
type RecognitionConfig struct {
	Language        string        // Recognition language, e.g. "en-US"
	ListenTimeout   time.Duration // Max wait for speech to start
	PhraseTimeLimit time.Duration // Max length of a single phrase
	STTURL          string        // OpenAI-compatible STT service URL
	WhisperModel    string        // Path to a local whisper model (build tag "whisper")
	SampleRate      int
	VADMode         int // WebRTC VAD aggressiveness, 0-3
}

// TTSConfig holds text-to-speech configuration
type TTSConfig struct {
	Engine   string // "http" or "espeak"
	URL      string // OpenAI-style /audio/speech service URL (http engine)
	Language string
	VoiceID  string
	Speed    float32
	Format   string // mp3, wav
	Timeout  time.Duration
}

// UIConfig holds presentation and interaction settings consumed by the
// desktop front-end
type UIConfig struct {
	Theme        string
	WindowWidth  int
	WindowHeight int
	// Hotkey is "<modifier>+...+<key>": modifiers ctrl and shift (at
	// least one required), key a letter, digit or "space". Example:
	// "ctrl+shift+space".
	Hotkey string
	Tray         bool
}

// ServerConfig holds the local HTTP API configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig holds turn event persistence configuration
type StorageConfig struct {
	DBPath string
}

// NATSConfig holds optional turn event publishing configuration.
// Publishing is disabled when URL is empty.
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	File   string // Append-only log file, optional
}

// UserTypes are the recognized request personalization roles
var UserTypes = []string{"staff", "student"}

// TTSEngines are the recognized synthesis engines
var TTSEngines = []string{"http", "espeak"}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		RAG: RAGConfig{
			Endpoint: getEnvString("RAG_API_ENDPOINT", "http://localhost:5000/api/rag"),
			APIKey:   getEnvString("RAG_API_KEY", ""),
			Timeout:  getEnvSeconds("RAG_API_TIMEOUT", 30*time.Second),
		},
		User: UserConfig{
			Name: getEnvString("DEFAULT_USER_NAME", "User"),
			Type: getEnvString("DEFAULT_USER_TYPE", "student"),
		},
		Recognition: RecognitionConfig{
			Language:        getEnvString("SPEECH_RECOGNITION_LANGUAGE", "en-US"),
			ListenTimeout:   getEnvSeconds("SPEECH_RECOGNITION_TIMEOUT", 5*time.Second),
			PhraseTimeLimit: getEnvSeconds("SPEECH_RECOGNITION_PHRASE_TIME_LIMIT", 10*time.Second),
			STTURL:          getEnvString("STT_URL", "http://localhost:8000"),
			WhisperModel:    getEnvString("WHISPER_MODEL_PATH", "./models/ggml-base.en.bin"),
			SampleRate:      getEnvInt("AUDIO_SAMPLE_RATE", 16000),
			VADMode:         getEnvInt("VAD_MODE", 2),
		},
		TTS: TTSConfig{
			Engine:   getEnvString("TTS_ENGINE", "espeak"),
			URL:      getEnvString("TTS_URL", "http://localhost:8880/v1"),
			Language: getEnvString("TTS_LANGUAGE", "en"),
			VoiceID:  getEnvString("TTS_VOICE_ID", ""),
			Speed:    getEnvFloat32("TTS_SPEED", 1.0),
			Format:   getEnvString("TTS_FORMAT", "mp3"),
			Timeout:  getEnvDuration("TTS_TIMEOUT", 10*time.Second),
		},
		UI: UIConfig{
			Theme:        getEnvString("UI_THEME", "light"),
			WindowWidth:  getEnvInt("UI_WINDOW_WIDTH", 800),
			WindowHeight: getEnvInt("UI_WINDOW_HEIGHT", 600),
			Hotkey:       getEnvString("UI_HOTKEY", "ctrl+shift+space"),
			Tray:         getEnvBool("UI_TRAY", true),
		},
		Server: ServerConfig{
			Host:         getEnvString("SONA_HOST", "127.0.0.1"),
			Port:         getEnvInt("SONA_PORT", 8090),
			ReadTimeout:  getEnvDuration("SONA_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SONA_WRITE_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "./data/sona.db"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", ""),
			Subject:       getEnvString("NATS_SUBJECT", "sona.turns.completed"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
			File:   getEnvString("LOG_FILE", ""),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.RAG.Endpoint == "" {
		return fmt.Errorf("RAG endpoint must be provided")
	}

	if c.RAG.Timeout <= 0 {
		return fmt.Errorf("RAG timeout must be positive: %v", c.RAG.Timeout)
	}

	if !contains(UserTypes, c.User.Type) {
		return fmt.Errorf("unknown user type %q, must be one of %v", c.User.Type, UserTypes)
	}

	if !contains(TTSEngines, c.TTS.Engine) {
		return fmt.Errorf("unknown TTS engine %q, must be one of %v", c.TTS.Engine, TTSEngines)
	}

	if c.TTS.Speed <= 0 {
		return fmt.Errorf("TTS speed must be positive: %f", c.TTS.Speed)
	}

	if c.Recognition.ListenTimeout <= 0 {
		return fmt.Errorf("recognition timeout must be positive: %v", c.Recognition.ListenTimeout)
	}

	if c.Recognition.PhraseTimeLimit <= 0 {
		return fmt.Errorf("phrase time limit must be positive: %v", c.Recognition.PhraseTimeLimit)
	}

	if c.Recognition.VADMode < 0 || c.Recognition.VADMode > 3 {
		return fmt.Errorf("VAD mode must be 0-3: %d", c.Recognition.VADMode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.UI.WindowWidth <= 0 || c.UI.WindowHeight <= 0 {
		return fmt.Errorf("invalid window dimensions: %dx%d", c.UI.WindowWidth, c.UI.WindowHeight)
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

// getEnvSeconds parses a bare number of seconds, the unit the .env files use
// for the timeout keys. Duration strings like "1500ms" are accepted too.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
