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

// Package server exposes the local HTTP API: conversation, turn history,
// identity, configuration and the websocket event stream.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sonalabs/sona/internal/api"
	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
	"github.com/sonalabs/sona/internal/session"
	"github.com/sonalabs/sona/internal/storage"
)

// Server is the local HTTP front of the assistant. It binds to loopback by
// default and carries no authentication of its own.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server
	hub    *Hub

	started time.Time
}

// Deps are the collaborators the HTTP layer exposes.
type Deps struct {
	Config    *config.Config
	Session   *session.Session
	Assistant api.Converser
	Store     *storage.TurnEventsStore
}

// New creates the HTTP server and wires all routes.
func New(deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		cfg: deps.Config,
		mux: mux,
		hub: NewHub(),
	}

	s.server = &http.Server{
		Addr:         net.JoinHostPort(deps.Config.Server.Host, strconv.Itoa(deps.Config.Server.Port)),
		Handler:      mux,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	converse := api.NewConverseHandler(deps.Assistant, deps.Session)
	turns := api.NewTurnEventsHandler(deps.Store)
	user := api.NewUserHandler(deps.Session)
	history := api.NewHistoryHandler(deps.Session)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/converse", converse.HandleConverse)
	mux.HandleFunc("/api/turns", turns.HandleTurns)
	mux.HandleFunc("/api/turns/", turns.HandleTurnByUUID)
	mux.HandleFunc("/api/user", user.HandleUser)
	mux.HandleFunc("/api/history", history.HandleHistory)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/ws", s.hub.HandleWS)

	return s
}

// Hub returns the websocket hub so the assistant can broadcast turns.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the route mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	s.started = time.Now()

	logging.Sugar.Infow("🚀 Sona API listening",
		"addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	logging.Sugar.Info("🛑 Shutting down Sona API")

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// handleHealth reports process liveness and basic runtime facts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "ok",
		"timestamp":  time.Now(),
		"uptime":     time.Since(s.started).String(),
		"ws_clients": s.hub.ClientCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		logging.LogError(err, "Failed to write health response")
	}
}

// handleConfig returns the effective non-secret configuration for the UI
// settings panel. Credentials never leave the process.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := map[string]interface{}{
		"rag": map[string]interface{}{
			"endpoint":      s.cfg.RAG.Endpoint,
			"timeout":       s.cfg.RAG.Timeout.String(),
			"authenticated": s.cfg.RAG.APIKey != "",
		},
		"recognition": map[string]interface{}{
			"language":          s.cfg.Recognition.Language,
			"listen_timeout":    s.cfg.Recognition.ListenTimeout.String(),
			"phrase_time_limit": s.cfg.Recognition.PhraseTimeLimit.String(),
			"sample_rate":       s.cfg.Recognition.SampleRate,
			"vad_mode":          s.cfg.Recognition.VADMode,
		},
		"tts": map[string]interface{}{
			"engine": s.cfg.TTS.Engine,
			"voice":  s.cfg.TTS.VoiceID,
			"speed":  s.cfg.TTS.Speed,
			"format": s.cfg.TTS.Format,
		},
		"ui": map[string]interface{}{
			"theme":  s.cfg.UI.Theme,
			"width":  s.cfg.UI.WindowWidth,
			"height": s.cfg.UI.WindowHeight,
			"hotkey": s.cfg.UI.Hotkey,
			"tray":   s.cfg.UI.Tray,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		logging.LogError(err, "Failed to write config response")
	}
}
