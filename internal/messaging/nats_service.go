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

// Package messaging publishes completed conversation turns to NATS so that
// other campus services (dashboards, analytics) can consume them. The
// publisher is optional: with no NATS URL configured every call is a no-op.
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sonalabs/sona/internal/config"
	"github.com/sonalabs/sona/internal/events"
	"github.com/sonalabs/sona/internal/logging"
)

// NATSService publishes turn events to a NATS server.
type NATSService struct {
	conn *nats.Conn
	cfg  config.NATSConfig
}

// NewNATSService creates a publisher from configuration. An empty URL yields
// a disabled service whose methods all succeed silently.
func NewNATSService(cfg config.NATSConfig) *NATSService {
	return &NATSService{cfg: cfg}
}

// Enabled reports whether a NATS URL was configured.
func (ns *NATSService) Enabled() bool {
	return ns.cfg.URL != ""
}

// Connect establishes the connection to the NATS server. Calling Connect on
// a disabled service is a no-op.
func (ns *NATSService) Connect() error {
	if !ns.Enabled() {
		logging.Sugar.Info("📪 NATS publishing disabled (no NATS_URL configured)")
		return nil
	}

	logging.Sugar.Infow("🔌 Connecting to NATS", "url", ns.cfg.URL)

	opts := []nats.Option{
		nats.Name("sona"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("🔄 NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Info("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.Sugar.Infow("✅ Connected to NATS server", "url", conn.ConnectedUrl())
	return nil
}

// PublishTurn publishes a completed turn event. Publish failures are
// reported but never interrupt the conversation loop; the caller decides
// whether to log and move on.
func (ns *NATSService) PublishTurn(event *events.TurnEvent) error {
	if !ns.Enabled() {
		return nil
	}
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	if err := ns.conn.Publish(ns.cfg.Subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", ns.cfg.Subject, err)
	}

	logging.Sugar.Debugw("📤 Published turn event",
		"subject", ns.cfg.Subject,
		"uuid", event.UUID,
		"outcome", event.Outcome)
	return nil
}

// SubscribeToTurns subscribes to turn events on the configured subject.
// Used by the mock consumer in tests and by external tooling.
func (ns *NATSService) SubscribeToTurns(handler func(*events.TurnEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	return ns.conn.Subscribe(ns.cfg.Subject, func(msg *nats.Msg) {
		var event events.TurnEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.LogError(err, "Failed to unmarshal turn event")
			return
		}
		handler(&event)
	})
}

// Close closes the NATS connection.
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
	}
}

// IsConnected returns true if connected to NATS.
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}
