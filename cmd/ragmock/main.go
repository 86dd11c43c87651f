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

// ragmock is a stand-in for the campus RAG backend, for local development
// and demos without network access to the real service.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/logging"
)

type ragRequest struct {
	Name     string `json:"name"`
	UserType string `json:"user_type"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
}

type ragResponse struct {
	Response   string   `json:"response"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
	Timestamp  float64  `json:"timestamp"`
}

// knowledge is a tiny keyword-matched corpus covering the questions people
// actually ask during demos.
var knowledge = []struct {
	keywords   []string
	answer     string
	confidence float64
	source     string
}{
	{
		keywords:   []string{"library", "hours", "open"},
		answer:     "The campus library is open from 8am to 10pm on weekdays and 10am to 6pm on weekends.",
		confidence: 0.92,
		source:     "library-handbook",
	},
	{
		keywords:   []string{"parking", "permit", "car"},
		answer:     "Parking permits are issued at the facilities office in building C. Staff permits cover lots A and B, student permits cover lot D.",
		confidence: 0.88,
		source:     "facilities-faq",
	},
	{
		keywords:   []string{"wifi", "network", "internet", "eduroam"},
		answer:     "Connect to the eduroam network with your campus credentials. Guest access is available through the CampusGuest portal.",
		confidence: 0.9,
		source:     "it-services",
	},
	{
		keywords:   []string{"cafeteria", "food", "lunch", "dining"},
		answer:     "The main cafeteria serves lunch from 11:30am to 2pm. The coffee bar in the student center is open until 8pm.",
		confidence: 0.85,
		source:     "dining-services",
	},
	{
		keywords:   []string{"exam", "grade", "registrar", "enroll", "registration"},
		answer:     "Enrollment and grade questions are handled by the registrar's office, open weekdays 9am to 4pm in the administration building.",
		confidence: 0.82,
		source:     "registrar-faq",
	},
}

func lookup(message string) (string, float64, []string) {
	lower := strings.ToLower(message)
	for _, entry := range knowledge {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.answer, entry.confidence, []string{entry.source}
			}
		}
	}
	return "I don't have information about that yet. Try asking about the library, parking, wifi, dining, or the registrar.", 0.3, nil
}

func personalize(answer string, req ragRequest) string {
	name := strings.TrimSpace(req.Name)
	if name == "" || name == "User" {
		return answer
	}
	if req.UserType == "staff" {
		return fmt.Sprintf("%s, here's what I found: %s", name, answer)
	}
	return fmt.Sprintf("Hi %s! %s", name, answer)
}

func main() {
	port := cli.IntP("port", "p", 8900, "Listen port")
	apiKey := cli.String("api-key", "", "Require this bearer token (empty disables auth)")
	delay := cli.Duration("delay", 0, "Artificial response delay, for timeout testing")
	cli.Parse()

	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	defer logging.Close()

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("/api/rag", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if *apiKey != "" && r.Header.Get("Authorization") != "Bearer "+*apiKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req ragRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		if *delay > 0 {
			time.Sleep(*delay)
		}

		answer, confidence, sources := lookup(req.Message)

		logging.Sugar.Infow("Mock RAG query",
			"name", req.Name,
			"user_type", req.UserType,
			"message", req.Message,
			"confidence", confidence,
		)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ragResponse{
			Response:   personalize(answer, req),
			Confidence: confidence,
			Sources:    sources,
			Timestamp:  float64(time.Now().UnixMilli()) / 1000.0,
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	logging.Logger.Info("🧪 Mock RAG server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.LogError(err, "Mock RAG server failed")
		os.Exit(1)
	}
}
