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

import "testing"

func TestParseUserType(t *testing.T) {
	tests := []struct {
		input   string
		want    UserType
		wantErr bool
	}{
		{input: "staff", want: UserTypeStaff},
		{input: "student", want: UserTypeStudent},
		{input: " Staff ", want: UserTypeStaff},
		{input: "STUDENT", want: UserTypeStudent},
		{input: "visitor", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUserType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseUserType(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserType(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseUserType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSession_IdentityChangeCallback(t *testing.T) {
	s := New("User", UserTypeStudent)

	var gotName string
	var gotType UserType
	calls := 0
	s.OnChange(func(name string, userType UserType) {
		gotName, gotType = name, userType
		calls++
	})

	s.SetUserName("Jordan")
	if gotName != "Jordan" || gotType != UserTypeStudent {
		t.Errorf("after SetUserName: got (%q, %q)", gotName, gotType)
	}

	s.SetUserType(UserTypeStaff)
	if gotName != "Jordan" || gotType != UserTypeStaff {
		t.Errorf("after SetUserType: got (%q, %q)", gotName, gotType)
	}

	// Empty names are ignored and must not fire the callback
	s.SetUserName("   ")
	if calls != 2 {
		t.Errorf("callback fired %d times, want 2", calls)
	}

	name, userType := s.User()
	if name != "Jordan" || userType != UserTypeStaff {
		t.Errorf("User() = (%q, %q)", name, userType)
	}
}

func TestSession_HistoryAndRepeat(t *testing.T) {
	s := New("User", UserTypeStudent)

	if s.LastResponse() != "" {
		t.Errorf("LastResponse() = %q before any turn", s.LastResponse())
	}

	s.Record("when is the exam", "The exam is on Friday.")
	s.Record("where", "Room 204.")

	if s.LastResponse() != "Room 204." {
		t.Errorf("LastResponse() = %q", s.LastResponse())
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(history))
	}
	if history[0].Query != "when is the exam" || history[0].UserType != "student" {
		t.Errorf("history[0] = %+v", history[0])
	}

	// History() returns a copy
	history[0].Query = "mutated"
	if s.History()[0].Query == "mutated" {
		t.Error("History() exposed internal slice")
	}

	s.Clear()
	if len(s.History()) != 0 || s.LastResponse() != "" {
		t.Error("Clear() did not reset history")
	}
}
