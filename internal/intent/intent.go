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

// Package intent classifies utterances that the assistant handles locally,
// before any RAG call. Anything that does not match a built-in command goes
// to the remote endpoint untouched.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent identifies a built-in voice command
type Intent string

const (
	IntentNone          Intent = ""
	IntentHelp          Intent = "help"
	IntentExit          Intent = "exit"
	IntentRepeat        Intent = "repeat"
	IntentSetUserType   Intent = "set_user_type"
	IntentSetUserName   Intent = "set_user_name"
	IntentAssistantName Intent = "assistant_name"
)

// Command is a detected built-in command with its captured argument, if any
type Command struct {
	Intent Intent
	Arg    string // user type or user name for the set_* intents
}

var commandPatterns = []struct {
	intent Intent
	re     *regexp.Regexp
	arg    int // capture group index carrying the argument, 0 for none
}{
	{IntentHelp, regexp.MustCompile(`(?i)^help$|^what can you do$|^what commands`), 0},
	{IntentExit, regexp.MustCompile(`(?i)^exit$|^quit$|^goodbye$`), 0},
	{IntentRepeat, regexp.MustCompile(`(?i)^repeat$|^say that again$|^what did you say`), 0},
	{IntentSetUserType, regexp.MustCompile(`(?i)^i am a (staff|student)$`), 1},
	{IntentSetUserName, regexp.MustCompile(`(?i)^(set|call|change) my name to (.+)$`), 2},
	{IntentAssistantName, regexp.MustCompile(`(?i)^what is your name$|^who are you$`), 0},
}

// Detect matches an utterance against the built-in command patterns.
// Returns nil when the utterance should go to the RAG endpoint.
func Detect(utterance string) *Command {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return nil
	}

	for _, p := range commandPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		cmd := &Command{Intent: p.intent}
		if p.arg > 0 && p.arg < len(m) {
			cmd.Arg = strings.TrimSpace(m[p.arg])
		}
		return cmd
	}

	return nil
}

// HelpText is the spoken answer for the help intent
const HelpText = "Here are some things you can ask me: " +
	"ask any question and I'll try to find the answer; " +
	"say 'set my name to' followed by a name to change your name; " +
	"say 'I am a staff' or 'I am a student' to change your user type; " +
	"say 'repeat' to hear my last response again; " +
	"say 'exit' or 'quit' to leave. How can I help you today?"

// Entities holds simple surface entities extracted from text
type Entities struct {
	Dates   []string `json:"dates,omitempty"`
	Emails  []string `json:"emails,omitempty"`
	Numbers []int    `json:"numbers,omitempty"`
}

var (
	dateRe   = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
	emailRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	numberRe = regexp.MustCompile(`\b\d+\b`)
)

// ExtractEntities pulls dates, emails and bare numbers out of an utterance.
// Date and email fragments are excluded from the number list.
func ExtractEntities(text string) Entities {
	var e Entities

	e.Dates = dateRe.FindAllString(text, -1)
	e.Emails = emailRe.FindAllString(text, -1)

	stripped := dateRe.ReplaceAllString(text, " ")
	stripped = emailRe.ReplaceAllString(stripped, " ")
	for _, s := range numberRe.FindAllString(stripped, -1) {
		if n, err := strconv.Atoi(s); err == nil {
			e.Numbers = append(e.Numbers, n)
		}
	}

	return e
}
