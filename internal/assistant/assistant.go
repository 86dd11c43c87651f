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

// Package assistant orchestrates one conversation turn: capture or receive
// an utterance, handle built-in commands locally, query the RAG endpoint for
// everything else, speak the result and record the turn.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/events"
	"github.com/sonalabs/sona/internal/intent"
	"github.com/sonalabs/sona/internal/logging"
	"github.com/sonalabs/sona/internal/rag"
	"github.com/sonalabs/sona/internal/session"
	"github.com/sonalabs/sona/internal/stt"
	"github.com/sonalabs/sona/internal/tts"
)

// Spoken fallbacks per failure kind. The user always hears something; the
// turn record carries the underlying error.
const (
	fallbackTimeout     = "Sorry, that took too long. Please try again."
	fallbackUnreachable = "I can't reach the knowledge service right now. Please try again later."
	fallbackRejected    = "The knowledge service couldn't handle that request."
	fallbackMalformed   = "I received a response I couldn't understand. Please try again."
	fallbackNoSpeech    = "I didn't catch that. Please try again."

	assistantNameText = "My name is Sona. I'm your campus assistant."
	goodbyeText       = "Goodbye! Have a great day."
)

// ErrBusy is returned when an activation arrives while a turn is already in
// flight. Busy activations are dropped, never queued.
var ErrBusy = errors.New("a turn is already in progress")

// State is the assistant's externally visible activity phase, mirrored by
// the tray icon.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateThinking  State = "thinking"
	StateSpeaking  State = "speaking"
	StateError     State = "error"
)

// Listener captures one utterance from the microphone.
type Listener interface {
	Listen(ctx context.Context) (string, error)
	Close() error
}

// Querier issues one RAG query. Satisfied by *rag.Client.
type Querier interface {
	Query(ctx context.Context, req rag.Request) (*rag.Answer, error)
}

// Speaker plays an encoded audio stream. Satisfied by *audio.Player.
type Speaker interface {
	Play(r io.ReadCloser, format string) error
}

// TurnStore persists completed turns. Satisfied by *storage.TurnEventsStore.
type TurnStore interface {
	Insert(event *events.TurnEvent) error
}

// TurnPublisher fans completed turns out to NATS. Satisfied by
// *messaging.NATSService.
type TurnPublisher interface {
	PublishTurn(event *events.TurnEvent) error
}

// Deps wires the assistant's collaborators. Listener, Synthesizer, Speaker,
// Store and Publisher may be nil; the corresponding step is skipped.
type Deps struct {
	Config      *config.Config
	Session     *session.Session
	RAG         Querier
	Listener    Listener
	Synthesizer tts.Synthesizer
	Speaker     Speaker
	Store       TurnStore
	Publisher   TurnPublisher
}

// Assistant runs the conversation loop. At most one turn is in flight at a
// time; concurrent activations are ignored.
type Assistant struct {
	cfg     *config.Config
	session *session.Session
	ragc    Querier
	listen  Listener
	synth   tts.Synthesizer
	speaker Speaker
	store   TurnStore
	pub     TurnPublisher

	mu        sync.Mutex // turn gate
	broadcast func(*events.TurnEvent)
	onExit    func()
	onState   func(State)
}

// New creates an assistant from its dependencies.
func New(deps Deps) (*Assistant, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if deps.RAG == nil {
		return nil, fmt.Errorf("RAG client is required")
	}

	return &Assistant{
		cfg:     deps.Config,
		session: deps.Session,
		ragc:    deps.RAG,
		listen:  deps.Listener,
		synth:   deps.Synthesizer,
		speaker: deps.Speaker,
		store:   deps.Store,
		pub:     deps.Publisher,
	}, nil
}

// OnTurn registers a callback fired with every finished turn event. Used by
// the websocket hub to push turns to connected UIs.
func (a *Assistant) OnTurn(fn func(*events.TurnEvent)) {
	a.broadcast = fn
}

// OnExit registers the callback fired when the user asks to exit.
func (a *Assistant) OnExit(fn func()) {
	a.onExit = fn
}

// OnState registers a callback fired when the activity phase changes.
func (a *Assistant) OnState(fn func(State)) {
	a.onState = fn
}

func (a *Assistant) setState(state State) {
	if a.onState != nil {
		a.onState(state)
	}
}

// HandleActivation runs one voice turn: listen, transcribe, respond. It is
// invoked from the hotkey and the tray menu. When a turn is already running
// the activation is dropped and ErrBusy returned.
func (a *Assistant) HandleActivation(ctx context.Context) error {
	if !a.mu.TryLock() {
		logging.LogTurn("activation_ignored_busy")
		return ErrBusy
	}
	defer a.mu.Unlock()
	defer a.setState(StateIdle)

	if a.listen == nil {
		return fmt.Errorf("no microphone listener configured")
	}

	a.setState(StateListening)
	utterance, err := a.listen.Listen(ctx)
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			a.recordNoSpeech()
			a.speak(fallbackNoSpeech)
			return nil
		}
		return fmt.Errorf("listen failed: %w", err)
	}

	if strings.TrimSpace(utterance) == "" {
		a.recordNoSpeech()
		a.speak(fallbackNoSpeech)
		return nil
	}

	_, err = a.runTurn(ctx, "voice", utterance, true)
	return err
}

// HandleText runs one typed turn and returns the response text. Used by the
// HTTP API; nothing is spoken.
func (a *Assistant) HandleText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty message")
	}

	if !a.mu.TryLock() {
		return "", ErrBusy
	}
	defer a.mu.Unlock()
	defer a.setState(StateIdle)

	return a.runTurn(ctx, "text", text, false)
}

// runTurn handles one utterance end to end. The turn gate is held by the
// caller.
func (a *Assistant) runTurn(ctx context.Context, source, utterance string, speak bool) (string, error) {
	name, userType := a.session.User()
	event := events.NewTurnEvent(source, name, string(userType), utterance)

	logging.LogTurn("turn_started",
		zap.String("uuid", event.UUID),
		zap.String("source", source),
		zap.String("utterance", utterance))

	if cmd := intent.Detect(utterance); cmd != nil {
		response := a.runCommand(cmd)
		event.Intent = string(cmd.Intent)
		event.Complete(events.OutcomeCommand, response)
		if speak {
			a.speakTurn(event, response)
		}
		a.finish(event)

		if cmd.Intent == intent.IntentExit && a.onExit != nil {
			a.onExit()
		}
		return response, nil
	}

	a.setState(StateThinking)
	answer, err := a.query(ctx, utterance)
	if err != nil {
		a.setState(StateError)
		fallback := fallbackFor(err)
		event.Fail(outcomeFor(err), fallback, err)
		if speak {
			a.speakTurn(event, fallback)
		}
		a.finish(event)
		return fallback, nil
	}

	event.SetConfidence(answer.Confidence)
	event.Complete(events.OutcomeAnswered, answer.Text)
	a.session.Record(utterance, answer.Text)
	if speak {
		a.speakTurn(event, answer.Text)
	}
	a.finish(event)

	return answer.Text, nil
}

// query sends the utterance to the RAG endpoint with the current identity.
// Extracted surface entities ride along as context.
func (a *Assistant) query(ctx context.Context, utterance string) (*rag.Answer, error) {
	name, userType := a.session.User()

	req := rag.Request{
		Name:     name,
		UserType: string(userType),
		Message:  utterance,
	}

	entities := intent.ExtractEntities(utterance)
	if len(entities.Dates) > 0 || len(entities.Emails) > 0 || len(entities.Numbers) > 0 {
		if encoded, err := json.Marshal(entities); err == nil {
			req.Context = string(encoded)
		}
	}

	return a.ragc.Query(ctx, req)
}

// runCommand produces the spoken answer for a built-in command and applies
// its side effects.
func (a *Assistant) runCommand(cmd *intent.Command) string {
	switch cmd.Intent {
	case intent.IntentHelp:
		return intent.HelpText

	case intent.IntentExit:
		return goodbyeText

	case intent.IntentRepeat:
		if last := a.session.LastResponse(); last != "" {
			return last
		}
		return "I haven't said anything yet."

	case intent.IntentSetUserName:
		a.session.SetUserName(cmd.Arg)
		name, _ := a.session.User()
		return fmt.Sprintf("Okay %s, I'll call you that from now on.", name)

	case intent.IntentSetUserType:
		userType, err := session.ParseUserType(cmd.Arg)
		if err != nil {
			return "I only know staff and student user types."
		}
		a.session.SetUserType(userType)
		return fmt.Sprintf("Got it, you are a %s.", userType)

	case intent.IntentAssistantName:
		return assistantNameText

	default:
		return fallbackMalformed
	}
}

// speakTurn synthesizes and plays the response. Synthesis failures downgrade
// the turn outcome but keep the response text available to the UI.
func (a *Assistant) speakTurn(event *events.TurnEvent, text string) {
	a.setState(StateSpeaking)
	if err := a.speak(text); err != nil {
		logging.LogError(err, "Speech synthesis failed",
			zap.String("uuid", event.UUID))
		if event.Success {
			event.Outcome = events.OutcomeSynthesisError
			event.ErrorMessage = err.Error()
		}
	}
}

func (a *Assistant) speak(text string) error {
	if a.synth == nil || a.speaker == nil {
		return nil
	}

	result, err := a.synth.Synthesize(text, nil)
	if err != nil {
		return err
	}
	defer func() { _ = result.Audio.Close() }()

	return a.speaker.Play(result.Audio, result.Format)
}

// recordNoSpeech persists an empty-capture turn so the no_speech rate shows
// up in the history.
func (a *Assistant) recordNoSpeech() {
	name, userType := a.session.User()
	event := events.NewTurnEvent("voice", name, string(userType), "")
	event.Fail(events.OutcomeNoSpeech, fallbackNoSpeech, nil)
	a.finish(event)
}

// finish persists, publishes and broadcasts one completed turn.
func (a *Assistant) finish(event *events.TurnEvent) {
	logging.LogTurn("turn_finished",
		zap.String("uuid", event.UUID),
		zap.String("outcome", string(event.Outcome)),
		zap.Int64("latency_ms", event.LatencyMS),
		zap.Bool("success", event.Success))

	if a.store != nil {
		if err := a.store.Insert(event); err != nil {
			logging.LogError(err, "Failed to persist turn event",
				zap.String("uuid", event.UUID))
		}
	}

	if a.pub != nil {
		if err := a.pub.PublishTurn(event); err != nil {
			logging.LogError(err, "Failed to publish turn event",
				zap.String("uuid", event.UUID))
		}
	}

	if a.broadcast != nil {
		a.broadcast(event)
	}
}

// Close releases the microphone pipeline.
func (a *Assistant) Close() error {
	if a.listen != nil {
		return a.listen.Close()
	}
	return nil
}

// fallbackFor maps a query failure to its spoken fallback.
func fallbackFor(err error) string {
	switch rag.KindOf(err) {
	case rag.KindTimeout:
		return fallbackTimeout
	case rag.KindUnreachable:
		return fallbackUnreachable
	case rag.KindRemoteRejected:
		return fallbackRejected
	default:
		return fallbackMalformed
	}
}

// outcomeFor maps a query failure to the recorded outcome.
func outcomeFor(err error) events.Outcome {
	switch rag.KindOf(err) {
	case rag.KindTimeout:
		return events.OutcomeTimeout
	case rag.KindUnreachable:
		return events.OutcomeUnreachable
	case rag.KindRemoteRejected:
		return events.OutcomeRemoteRejected
	default:
		return events.OutcomeMalformed
	}
}
