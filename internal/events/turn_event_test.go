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
	"testing"
)

func TestNewTurnEvent(t *testing.T) {
	te := NewTurnEvent("voice", "Alex", "student", "hello")

	if te.UUID == "" {
		t.Error("UUID not generated")
	}
	if te.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if te.Source != "voice" || te.UserName != "Alex" || te.UserType != "student" {
		t.Errorf("fields not set: %+v", te)
	}

	other := NewTurnEvent("voice", "Alex", "student", "hello")
	if te.UUID == other.UUID {
		t.Error("UUIDs collide across events")
	}
}

func TestTurnEvent_CompleteAndFail(t *testing.T) {
	te := NewTurnEvent("voice", "Alex", "student", "hello")
	te.Complete(OutcomeAnswered, "Hi Alex.")

	if !te.Success || te.Outcome != OutcomeAnswered || te.ResponseText != "Hi Alex." {
		t.Errorf("after Complete: %+v", te)
	}
	if te.LatencyMS < 0 {
		t.Errorf("LatencyMS = %d", te.LatencyMS)
	}
	if err := te.IsValid(); err != nil {
		t.Errorf("IsValid() = %v", err)
	}

	te = NewTurnEvent("voice", "Alex", "student", "hello")
	te.Fail(OutcomeTimeout, "Sorry, that took too long.", fmt.Errorf("deadline exceeded"))

	if te.Success {
		t.Error("failed turn marked successful")
	}
	if te.Outcome != OutcomeTimeout {
		t.Errorf("Outcome = %q", te.Outcome)
	}
	if te.ResponseText == "" {
		t.Error("fallback text not recorded, spoken fallback must never be empty")
	}
	if te.ErrorMessage != "deadline exceeded" {
		t.Errorf("ErrorMessage = %q", te.ErrorMessage)
	}
}

func TestTurnEvent_IsValid(t *testing.T) {
	te := NewTurnEvent("text", "Alex", "staff", "hello")
	if err := te.IsValid(); err == nil {
		t.Error("IsValid() = nil for event without outcome")
	}

	te.Complete(OutcomeAnswered, "ok")
	te.Confidence = 1.5
	if err := te.IsValid(); err == nil {
		t.Error("IsValid() = nil for out-of-range confidence")
	}

	te.Confidence = 0.9
	te.UUID = ""
	if err := te.IsValid(); err == nil {
		t.Error("IsValid() = nil for missing UUID")
	}
}

func TestTurnEvent_SetConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.85, 0.85},
		{0, 0},
		{1, 1},
		{1.2, 1},
		{-0.3, 0},
	}

	for _, tt := range tests {
		te := NewTurnEvent("text", "Alex", "staff", "hello")
		te.SetConfidence(tt.in)
		if te.Confidence != tt.want {
			t.Errorf("SetConfidence(%v): Confidence = %v, want %v", tt.in, te.Confidence, tt.want)
		}
		te.Complete(OutcomeAnswered, "ok")
		if err := te.IsValid(); err != nil {
			t.Errorf("SetConfidence(%v): IsValid() error = %v", tt.in, err)
		}
	}
}
