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

// Package ui puts Sona in the system tray: a state-colored icon, the active
// user, and menu entries to start a voice turn or quit.
package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"fyne.io/systray"
)

// State drives the tray icon color.
type State string

const (
	StateIdle      State = "idle"      // green - ready for a question
	StateListening State = "listening" // red - microphone open
	StateThinking  State = "thinking"  // blue - waiting on the RAG endpoint
	StateSpeaking  State = "speaking"  // yellow - playing the answer
	StateError     State = "error"     // orange - last turn failed
)

// Callbacks holds the tray menu actions.
type Callbacks struct {
	OnActivate func()
	OnQuit     func()
}

// Tray is the system tray presence of the assistant.
type Tray struct {
	callbacks Callbacks
	hotkey    string

	mu       sync.Mutex
	userLine string

	menuStatus   *systray.MenuItem
	menuUser     *systray.MenuItem
	menuActivate *systray.MenuItem
	menuQuit     *systray.MenuItem
}

// NewTray creates the tray controller. hotkey is shown in the activate
// entry so the user can discover it.
func NewTray(hotkey string, callbacks Callbacks) *Tray {
	return &Tray{
		callbacks: callbacks,
		hotkey:    hotkey,
	}
}

// Run starts the tray loop. It blocks until Quit is called, so it must own
// the main goroutine on platforms that require it.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes(StateIdle))
	systray.SetTooltip("Sona campus assistant")

	t.menuStatus = systray.AddMenuItem("Status: ready", "Current assistant state")
	t.menuStatus.Disable()

	t.mu.Lock()
	userLine := t.userLine
	t.mu.Unlock()
	if userLine == "" {
		userLine = "User: -"
	}
	t.menuUser = systray.AddMenuItem(userLine, "Active user identity")
	t.menuUser.Disable()

	systray.AddSeparator()

	label := "Ask Sona"
	if t.hotkey != "" {
		label += " (" + t.hotkey + ")"
	}
	t.menuActivate = systray.AddMenuItem(label, "Start a voice question")

	systray.AddSeparator()
	t.menuQuit = systray.AddMenuItem("Quit", "Stop the assistant")

	go t.handleClicks()
}

func (t *Tray) handleClicks() {
	for {
		select {
		case <-t.menuActivate.ClickedCh:
			if t.callbacks.OnActivate != nil {
				t.callbacks.OnActivate()
			}
		case <-t.menuQuit.ClickedCh:
			if t.callbacks.OnQuit != nil {
				t.callbacks.OnQuit()
			}
			systray.Quit()
			return
		}
	}
}

func (t *Tray) onExit() {}

// SetState updates the icon color and status line.
func (t *Tray) SetState(state State) {
	systray.SetIcon(iconBytes(state))
	if t.menuStatus != nil {
		t.menuStatus.SetTitle("Status: " + statusLabel(state))
	}
}

// SetUser updates the identity line. Safe to call before Run; the value is
// applied once the menu exists.
func (t *Tray) SetUser(name, userType string) {
	line := "User: " + name + " (" + userType + ")"
	t.mu.Lock()
	t.userLine = line
	t.mu.Unlock()
	if t.menuUser != nil {
		t.menuUser.SetTitle(line)
	}
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func statusLabel(state State) string {
	switch state {
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "ready"
	}
}

func stateColor(state State) color.RGBA {
	switch state {
	case StateListening:
		return color.RGBA{255, 59, 48, 255}
	case StateThinking:
		return color.RGBA{0, 122, 255, 255}
	case StateSpeaking:
		return color.RGBA{255, 204, 0, 255}
	case StateError:
		return color.RGBA{255, 149, 0, 255}
	default:
		return color.RGBA{52, 199, 89, 255}
	}
}

// iconBytes renders a filled circle in the state color as a PNG. Tray icons
// must be raster data, so we draw one rather than ship asset files.
func iconBytes(state State) []byte {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := stateColor(state)

	center := float64(size) / 2
	radius := center - 2

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center + 0.5
			dy := float64(y) - center + 0.5
			if dx*dx+dy*dy <= radius*radius {
				img.SetRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fallbackPNG()
	}
	return buf.Bytes()
}

func fallbackPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
