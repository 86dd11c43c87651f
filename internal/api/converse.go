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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sonalabs/sona/internal/assistant"
	"github.com/sonalabs/sona/internal/logging"
	"github.com/sonalabs/sona/internal/session"
)

// Converser runs one typed conversation turn. Satisfied by
// *assistant.Assistant.
type Converser interface {
	HandleText(ctx context.Context, text string) (string, error)
}

// ConverseHandler accepts typed questions over HTTP, for the desktop UI and
// for curl-style debugging.
type ConverseHandler struct {
	assistant Converser
	session   *session.Session
}

// NewConverseHandler creates the conversation handler.
func NewConverseHandler(converser Converser, sess *session.Session) *ConverseHandler {
	return &ConverseHandler{assistant: converser, session: sess}
}

// ConverseRequest is the POST /api/converse payload.
type ConverseRequest struct {
	Message string `json:"message"`
}

// ConverseResponse carries the assistant's answer.
type ConverseResponse struct {
	Response  string    `json:"response"`
	UserName  string    `json:"user_name"`
	UserType  string    `json:"user_type"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleConverse handles POST /api/converse.
func (h *ConverseHandler) HandleConverse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	response, err := h.assistant.HandleText(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrBusy) {
			http.Error(w, "A turn is already in progress", http.StatusConflict)
			return
		}
		logging.LogError(err, "Converse request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	name, userType := h.session.User()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ConverseResponse{
		Response:  response,
		UserName:  name,
		UserType:  string(userType),
		Timestamp: time.Now(),
	}); err != nil {
		logging.LogError(err, "Failed to encode converse response")
	}
}

// UserHandler exposes the session identity.
type UserHandler struct {
	session *session.Session
}

// NewUserHandler creates the identity handler.
func NewUserHandler(sess *session.Session) *UserHandler {
	return &UserHandler{session: sess}
}

// UserPayload is the GET/PUT /api/user body.
type UserPayload struct {
	Name     string `json:"name"`
	UserType string `json:"user_type"`
}

// HandleUser handles GET and PUT /api/user.
func (h *UserHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		name, userType := h.session.User()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserPayload{Name: name, UserType: string(userType)})

	case http.MethodPut:
		var payload UserPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if payload.UserType != "" {
			userType, err := session.ParseUserType(payload.UserType)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.session.SetUserType(userType)
		}
		if payload.Name != "" {
			h.session.SetUserName(payload.Name)
		}

		name, userType := h.session.User()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserPayload{Name: name, UserType: string(userType)})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HistoryHandler returns the in-memory conversation history.
type HistoryHandler struct {
	session *session.Session
}

// NewHistoryHandler creates the history handler.
func NewHistoryHandler(sess *session.Session) *HistoryHandler {
	return &HistoryHandler{session: sess}
}

// HandleHistory handles GET and DELETE /api/history.
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"exchanges": h.session.History(),
		})

	case http.MethodDelete:
		h.session.Clear()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
