// Package events publishes build summaries to NATS when enabled. A nil
// *Publisher is a no-op so callers never branch on configuration.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// BuildEvent is the wire form of one completed pipeline run.
type BuildEvent struct {
	BuildID   string    `json:"build_id"`
	Outcome   string    `json:"outcome"`
	Converted int       `json:"converted"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Publisher sends build events over a NATS connection.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials NATS. Called only when events are enabled; a connection
// failure at startup is fatal to the caller.
func Connect(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("nbpublish"),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	slog.Info("Connected to NATS", slog.String("url", url), slog.String("subject", subject))
	return &Publisher{conn: conn, subject: subject}, nil
}

// PublishBuild sends one build event. Nil-safe no-op when disabled.
func (p *Publisher) PublishBuild(ev BuildEvent) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		slog.Warn("NATS drain failed", slog.Any("error", err))
	}
}
