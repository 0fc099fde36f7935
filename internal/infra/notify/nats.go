package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bryanwahyu/aishield/internal/domain/notification"
)

const defaultSubject = "aishield.notify"

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL            string
	Subject        string
	ConnectTimeout time.Duration
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes events on "<subject>.<kind>".
type NATSSink struct {
	conn    *nats.Conn
	pub     publisher
	subject string
}

func NewNATSSink(cfg NATSConfig) (*NATSSink, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("aishield"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	s := newNATSSink(conn, cfg.Subject)
	s.conn = conn
	return s, nil
}

func newNATSSink(pub publisher, subject string) *NATSSink {
	if subject == "" {
		subject = defaultSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

func (s *NATSSink) Name() string { return "nats:" + s.subject }

func (s *NATSSink) Subject(kind notification.Kind) string {
	return fmt.Sprintf("%s.%s", s.subject, kind)
}

func (s *NATSSink) Deliver(_ context.Context, ev notification.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.pub.Publish(s.Subject(ev.Kind), data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Check reports whether the connection is up. Used by the health endpoint.
func (s *NATSSink) Check(context.Context) error {
	if s.conn == nil {
		return nil
	}
	if !s.conn.IsConnected() {
		return fmt.Errorf("nats status %s", s.conn.Status())
	}
	return nil
}

func (s *NATSSink) Close(context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
