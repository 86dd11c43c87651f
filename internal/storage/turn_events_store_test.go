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

package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sonalabs/sona/internal/events"
)

func newTestStore(t *testing.T) *TurnEventsStore {
	t.Helper()

	db, err := NewDatabase(DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "sona-test.db"),
	})
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewTurnEventsStore(db)
}

func answeredEvent(utterance, response string) *events.TurnEvent {
	te := events.NewTurnEvent("voice", "Alex", "student", utterance)
	te.Complete(events.OutcomeAnswered, response)
	return te
}

func TestTurnEventsStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)

	event := answeredEvent("when does the library close", "At 10pm.")
	event.Confidence = 0.9

	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.GetByUUID(event.UUID)
	if err != nil {
		t.Fatalf("GetByUUID() error = %v", err)
	}

	if got.Utterance != event.Utterance {
		t.Errorf("Utterance = %q, want %q", got.Utterance, event.Utterance)
	}
	if got.ResponseText != "At 10pm." {
		t.Errorf("ResponseText = %q", got.ResponseText)
	}
	if got.Outcome != events.OutcomeAnswered {
		t.Errorf("Outcome = %q", got.Outcome)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %f", got.Confidence)
	}
	if !got.Success {
		t.Error("Success not preserved")
	}
}

func TestTurnEventsStore_InsertInvalid(t *testing.T) {
	store := newTestStore(t)

	// No outcome set
	event := events.NewTurnEvent("voice", "Alex", "student", "hello")
	if err := store.Insert(event); err == nil {
		t.Error("Insert() accepted an incomplete event")
	}
}

func TestTurnEventsStore_ListFiltering(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := store.Insert(answeredEvent(fmt.Sprintf("question %d", i), "answer")); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	failed := events.NewTurnEvent("voice", "Alex", "student", "slow question")
	failed.Fail(events.OutcomeTimeout, "Sorry, that took too long.", fmt.Errorf("deadline exceeded"))
	if err := store.Insert(failed); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	all, err := store.List(ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len(List()) = %d, want 4", len(all))
	}

	timeouts, err := store.List(ListOptions{Outcome: string(events.OutcomeTimeout)})
	if err != nil {
		t.Fatalf("List(outcome) error = %v", err)
	}
	if len(timeouts) != 1 || timeouts[0].UUID != failed.UUID {
		t.Errorf("outcome filter returned %d events", len(timeouts))
	}

	success := true
	okOnly, err := store.List(ListOptions{Success: &success})
	if err != nil {
		t.Fatalf("List(success) error = %v", err)
	}
	if len(okOnly) != 3 {
		t.Errorf("success filter returned %d events, want 3", len(okOnly))
	}

	count, err := store.Count(ListOptions{Success: &success})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestTurnEventsStore_Pagination(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Insert(answeredEvent(fmt.Sprintf("question %d", i), "answer")); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	page, err := store.List(ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 {
		t.Errorf("len(page) = %d, want 2", len(page))
	}
}

func TestTurnEventsStore_Delete(t *testing.T) {
	store := newTestStore(t)

	event := answeredEvent("hello", "hi")
	if err := store.Insert(event); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := store.Delete(event.UUID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if err := store.Delete(event.UUID); err == nil {
		t.Error("Delete() of missing event = nil error")
	}

	if _, err := store.GetByUUID(event.UUID); err == nil {
		t.Error("GetByUUID() after delete = nil error")
	}
}
