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

package session

import (
	"fmt"
	"strings"
	"sync"
)

// UserType is the personalization role attached to every RAG request.
// It is a tagged value, not a hierarchy.
type UserType string

const (
	UserTypeStaff   UserType = "staff"
	UserTypeStudent UserType = "student"
)

// ParseUserType validates and normalizes a user type string
func ParseUserType(s string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(s))) {
	case UserTypeStaff:
		return UserTypeStaff, nil
	case UserTypeStudent:
		return UserTypeStudent, nil
	default:
		return "", fmt.Errorf("unknown user type %q", s)
	}
}

// Exchange is one completed query/response pair kept in the in-memory
// conversation history
type Exchange struct {
	Query    string `json:"query"`
	Response string `json:"response"`
	UserName string `json:"user_name"`
	UserType string `json:"user_type"`
}

// ChangeFunc is notified when the user identity changes
type ChangeFunc func(name string, userType UserType)

// Session holds the active user identity and the conversation history for
// one assistant process. Identity starts from the configured defaults and
// can be changed mid-session by voice command or the HTTP API.
type Session struct {
	mu       sync.RWMutex
	userName string
	userType UserType
	history  []Exchange
	lastText string
	onChange ChangeFunc
}

// New creates a session with the given default identity
func New(userName string, userType UserType) *Session {
	return &Session{
		userName: userName,
		userType: userType,
	}
}

// OnChange registers a callback fired after every identity change
func (s *Session) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// User returns the current identity
func (s *Session) User() (string, UserType) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName, s.userType
}

// SetUserName updates the user name. Empty names are ignored.
func (s *Session) SetUserName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	s.mu.Lock()
	s.userName = name
	fn, userType := s.onChange, s.userType
	s.mu.Unlock()

	if fn != nil {
		fn(name, userType)
	}
}

// SetUserType updates the user type
func (s *Session) SetUserType(userType UserType) {
	s.mu.Lock()
	s.userType = userType
	fn, name := s.onChange, s.userName
	s.mu.Unlock()

	if fn != nil {
		fn(name, userType)
	}
}

// Record appends one completed exchange and remembers the response for
// repeat requests
func (s *Session) Record(query, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Exchange{
		Query:    query,
		Response: response,
		UserName: s.userName,
		UserType: string(s.userType),
	})
	s.lastText = response
}

// LastResponse returns the most recent response text, or "" if nothing has
// been said yet
func (s *Session) LastResponse() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastText
}

// History returns a copy of the conversation history
func (s *Session) History() []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Exchange, len(s.history))
	copy(out, s.history)
	return out
}

// Clear drops the conversation history and the remembered last response
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.lastText = ""
}
