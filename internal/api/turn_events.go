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

// Package api implements the local HTTP handlers: conversation, turn
// history, identity and configuration.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/events"
	"github.com/sonalabs/sona/internal/logging"
	"github.com/sonalabs/sona/internal/storage"
)

// TurnEventsHandler serves the persisted turn history.
type TurnEventsHandler struct {
	store *storage.TurnEventsStore
}

// NewTurnEventsHandler creates a turn history handler.
func NewTurnEventsHandler(store *storage.TurnEventsStore) *TurnEventsHandler {
	return &TurnEventsHandler{store: store}
}

// ListTurnsResponse is the paginated history payload.
type ListTurnsResponse struct {
	Turns      []*events.TurnEvent `json:"turns"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// HandleTurns handles GET /api/turns.
func (h *TurnEventsHandler) HandleTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	options := storage.ListOptions{
		Outcome:   query.Get("outcome"),
		UserType:  query.Get("user_type"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	if successStr := query.Get("success"); successStr != "" {
		if success, err := strconv.ParseBool(successStr); err == nil {
			options.Success = &success
		}
	}

	if startStr := query.Get("start_time"); startStr != "" {
		if start, err := time.Parse(time.RFC3339, startStr); err == nil {
			options.StartTime = &start
		}
	}
	if endStr := query.Get("end_time"); endStr != "" {
		if end, err := time.Parse(time.RFC3339, endStr); err == nil {
			options.EndTime = &end
		}
	}

	total, err := h.store.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count turn events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	turns, err := h.store.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list turn events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	response := ListTurnsResponse{
		Turns:      turns,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(err, "Failed to encode turns response")
	}
}

// HandleTurnByUUID handles GET /api/turns/{uuid}.
func (h *TurnEventsHandler) HandleTurnByUUID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uuid := strings.TrimPrefix(r.URL.Path, "/api/turns/")
	if uuid == "" || strings.Contains(uuid, "/") {
		http.Error(w, "Turn UUID is required", http.StatusBadRequest)
		return
	}

	event, err := h.store.GetByUUID(uuid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Turn not found", http.StatusNotFound)
			return
		}
		logging.LogError(err, "Failed to get turn event", zap.String("uuid", uuid))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(event); err != nil {
		logging.LogError(err, "Failed to encode turn response")
	}
}

func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(param); err == nil {
		return value
	}
	return defaultValue
}
