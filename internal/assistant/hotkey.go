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

package assistant

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.design/x/hotkey"

	"github.com/sonalabs/sona/internal/logging"
)

// hotkeyKeys maps the configurable key names to hotkey key codes. Letters,
// digits and space; the modifier set is ctrl/shift, the only modifiers the
// hotkey library defines on every platform.
var hotkeyKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace,
	"0":     hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
}

// parseHotkey parses a spec like "ctrl+shift+space" into modifiers and key.
func parseHotkey(spec string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(spec)), "+")
	if len(parts) == 0 {
		return nil, 0, fmt.Errorf("empty hotkey spec")
	}

	var mods []hotkey.Modifier
	for _, part := range parts[:len(parts)-1] {
		switch strings.TrimSpace(part) {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		default:
			return nil, 0, fmt.Errorf("unknown hotkey modifier %q", part)
		}
	}

	keyName := strings.TrimSpace(parts[len(parts)-1])
	key, ok := hotkeyKeys[keyName]
	if !ok {
		return nil, 0, fmt.Errorf("unknown hotkey key %q", keyName)
	}
	if len(mods) == 0 {
		return nil, 0, fmt.Errorf("hotkey %q needs at least one modifier", spec)
	}

	return mods, key, nil
}

// RegisterHotkey binds the global activation hotkey and fires one voice turn
// per press. On macOS registration is skipped; the tray menu activates
// instead, since the hotkey library is unstable there.
func (a *Assistant) RegisterHotkey(ctx context.Context, spec string) error {
	if runtime.GOOS == "darwin" {
		logging.Sugar.Info("⌨️  Global hotkey disabled on macOS, use the tray menu to activate")
		return nil
	}

	mods, key, err := parseHotkey(spec)
	if err != nil {
		return err
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", spec, err)
	}

	go func() {
		defer func() { _ = hk.Unregister() }()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				// Presses during a running turn are dropped, not queued.
				if err := a.HandleActivation(ctx); err != nil && err != ErrBusy {
					logging.LogError(err, "Voice activation failed")
				}
			}
		}
	}()

	logging.Sugar.Infow("⌨️  Global hotkey registered", "hotkey", spec)
	return nil
}
