package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vendlabs/vmhistory/internal/models"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSConfig holds NATS publisher configuration.
type NATSConfig struct {
	URL           string
	Name          string
	SubjectPrefix string
	Timeout       time.Duration
}

// NATSPublisher publishes history events as JSON to <prefix>.<kind>.
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// NewNATSPublisher connects to the server at cfg.URL.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.Name == "" {
		cfg.Name = "vmhistory"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return NewNATSPublisherWithConn(conn, cfg.SubjectPrefix), nil
}

// NewNATSPublisherWithConn wraps an existing connection.
func NewNATSPublisherWithConn(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the full subject for suffix.
func (p *NATSPublisher) Subject(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

func (p *NATSPublisher) PublishEvent(ctx context.Context, ev models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(p.Subject(SubjectFor(ev.Kind)), data)
}

func (p *NATSPublisher) PublishCleared(ctx context.Context, startTime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ClearedMessage{StartTime: models.FormatTimestamp(startTime)})
	if err != nil {
		return fmt.Errorf("marshal cleared message: %w", err)
	}
	return p.conn.Publish(p.Subject(SubjectCleared), data)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
