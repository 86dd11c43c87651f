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

package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a conversation turn ended
type Outcome string

const (
	OutcomeAnswered       Outcome = "answered"
	OutcomeCommand        Outcome = "command"
	OutcomeNoSpeech       Outcome = "no_speech"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeUnreachable    Outcome = "unreachable"
	OutcomeRemoteRejected Outcome = "remote_rejected"
	OutcomeMalformed      Outcome = "malformed_response"
	OutcomeSynthesisError Outcome = "synthesis_error"
)

// TurnEvent records one complete conversation turn for persistence, the
// HTTP API and the optional NATS publisher
type TurnEvent struct {
	UUID      string    `json:"uuid" db:"uuid"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Source    string    `json:"source" db:"source"` // "voice" or "text"

	UserName string `json:"user_name" db:"user_name"`
	UserType string `json:"user_type" db:"user_type"`

	Utterance  string  `json:"utterance" db:"utterance"`
	Intent     string  `json:"intent,omitempty" db:"intent"`
	Confidence float64 `json:"confidence" db:"confidence"`

	ResponseText string  `json:"response_text" db:"response_text"`
	Outcome      Outcome `json:"outcome" db:"outcome"`
	LatencyMS    int64   `json:"latency_ms" db:"latency_ms"`
	Success      bool    `json:"success" db:"success"`
	ErrorMessage string  `json:"error_message,omitempty" db:"error_message"`
}

// NewTurnEvent creates a turn event with a fresh UUID and the current time
func NewTurnEvent(source, userName, userType, utterance string) *TurnEvent {
	return &TurnEvent{
		UUID:      uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
		UserName:  userName,
		UserType:  userType,
		Utterance: utterance,
	}
}

// SetConfidence records the remote confidence score, clamped to [0, 1] so a
// misbehaving backend cannot produce an unpersistable event.
func (te *TurnEvent) SetConfidence(confidence float64) {
	switch {
	case confidence < 0:
		te.Confidence = 0
	case confidence > 1:
		te.Confidence = 1
	default:
		te.Confidence = confidence
	}
}

// Complete marks the turn as successfully answered
func (te *TurnEvent) Complete(outcome Outcome, responseText string) {
	te.Outcome = outcome
	te.ResponseText = responseText
	te.Success = true
	te.LatencyMS = time.Since(te.Timestamp).Milliseconds()
}

// Fail marks the turn as failed. The spoken fallback still goes into
// ResponseText so the record shows what the user actually heard.
func (te *TurnEvent) Fail(outcome Outcome, fallbackText string, err error) {
	te.Outcome = outcome
	te.ResponseText = fallbackText
	te.Success = false
	if err != nil {
		te.ErrorMessage = err.Error()
	}
	te.LatencyMS = time.Since(te.Timestamp).Milliseconds()
}

// IsValid performs basic validation before persistence
func (te *TurnEvent) IsValid() error {
	if te.UUID == "" {
		return fmt.Errorf("UUID is required")
	}
	if te.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if te.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if te.Confidence < 0 || te.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	return nil
}

// String returns a human-readable representation of the turn event
func (te *TurnEvent) String() string {
	return fmt.Sprintf("TurnEvent{UUID: %s, Utterance: %q, Outcome: %s, Latency: %dms, Success: %t}",
		te.UUID, te.Utterance, te.Outcome, te.LatencyMS, te.Success)
}
