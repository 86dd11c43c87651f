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

// Sona is a campus voice assistant: push a hotkey, ask a question, and the
// answer comes back from the campus RAG service, spoken aloud.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/sonalabs/sona/internal/assistant"
	"github.com/sonalabs/sona/internal/audio"
	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/logging"
	"github.com/sonalabs/sona/internal/messaging"
	"github.com/sonalabs/sona/internal/rag"
	"github.com/sonalabs/sona/internal/server"
	"github.com/sonalabs/sona/internal/session"
	"github.com/sonalabs/sona/internal/storage"
	"github.com/sonalabs/sona/internal/stt"
	"github.com/sonalabs/sona/internal/tts"
	"github.com/sonalabs/sona/internal/ui"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log-level", "l", "", "Log level override (debug, info, warn, error)")
	noTray := cli.Bool("no-tray", false, "Run without the system tray")
	cli.Parse()

	// Missing .env is fine, the environment may carry everything.
	_ = godotenv.Load(*envFile)

	if *logLevel != "" {
		_ = os.Setenv("LOG_LEVEL", *logLevel)
	}
	if err := logging.Initialize(); err != nil {
		os.Exit(1)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cancel, cfg, *noTray); err != nil {
		logging.LogError(err, "Sona failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, shutdown context.CancelFunc, cfg *config.Config, noTray bool) error {
	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store := storage.NewTurnEventsStore(db)

	ragClient, err := rag.NewClient(cfg.RAG)
	if err != nil {
		return err
	}

	sess := session.New(cfg.User.Name, session.UserType(cfg.User.Type))

	publisher := messaging.NewNATSService(cfg.NATS)
	if err := publisher.Connect(); err != nil {
		// Turn publishing is best effort, the assistant runs without it.
		logging.LogError(err, "NATS unavailable, turn publishing disabled")
	}
	defer publisher.Close()

	// The voice pipeline is optional: without a microphone or speech
	// backend the typed API still works.
	var listener assistant.Listener
	if recognizer, err := stt.NewRecognizer(cfg.Recognition); err != nil {
		logging.LogError(err, "Voice capture unavailable, running text-only")
	} else {
		listener = recognizer
	}

	var synth tts.Synthesizer
	if s, err := tts.NewSynthesizer(cfg.TTS); err != nil {
		logging.LogError(err, "Speech synthesis unavailable, responses will be silent")
	} else {
		synth = s
		defer func() { _ = s.Close() }()
	}

	asst, err := assistant.New(assistant.Deps{
		Config:      cfg,
		Session:     sess,
		RAG:         ragClient,
		Listener:    listener,
		Synthesizer: synth,
		Speaker:     audio.NewPlayer(),
		Store:       store,
		Publisher:   publisher,
	})
	if err != nil {
		return err
	}
	defer func() { _ = asst.Close() }()

	srv := server.New(server.Deps{
		Config:    cfg,
		Session:   sess,
		Assistant: asst,
		Store:     store,
	})

	asst.OnTurn(srv.Hub().Broadcast)
	asst.OnExit(shutdown)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	if listener != nil {
		if err := asst.RegisterHotkey(ctx, cfg.UI.Hotkey); err != nil {
			logging.LogError(err, "Hotkey registration failed, use the tray menu to activate")
		}
	}

	if cfg.UI.Tray && !noTray {
		runWithTray(ctx, shutdown, cfg, sess, asst)
	} else {
		<-ctx.Done()
	}

	if err := srv.Stop(); err != nil {
		return err
	}

	select {
	case err := <-serverErr:
		return err
	default:
		return nil
	}
}

// runWithTray owns the main goroutine until the user quits or the process
// is signalled. Some platforms require the tray loop to run on the initial
// thread.
func runWithTray(ctx context.Context, shutdown context.CancelFunc, cfg *config.Config, sess *session.Session, asst *assistant.Assistant) {
	tray := ui.NewTray(cfg.UI.Hotkey, ui.Callbacks{
		OnActivate: func() {
			go func() {
				if err := asst.HandleActivation(ctx); err != nil && err != assistant.ErrBusy {
					logging.LogError(err, "Voice activation failed")
				}
			}()
		},
		OnQuit: shutdown,
	})

	sess.OnChange(func(name string, userType session.UserType) {
		tray.SetUser(name, string(userType))
	})
	asst.OnState(func(state assistant.State) {
		tray.SetState(ui.State(state))
	})
	name, userType := sess.User()
	tray.SetUser(name, string(userType))

	go func() {
		<-ctx.Done()
		tray.Quit()
	}()

	tray.Run()
}
