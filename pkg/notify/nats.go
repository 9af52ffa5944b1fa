package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type natsSink struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNATSSink connects to the NATS server and returns a Sink that publishes
// events as JSON on "<subject>.<kind>".
func NewNATSSink(url, subject, credsFile string, logger *zap.Logger) (Sink, error) {
	opts := []nats.Option{
		nats.Name("leadwerk-engine"),
		nats.MaxReconnects(-1),
	}
	if credsFile != "" {
		opts = append(opts, nats.UserCredentials(credsFile))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &natsSink{
		conn:    conn,
		subject: subject,
		logger:  logger.Named("nats-sink"),
	}, nil
}

var _ Sink = (*natsSink)(nil)

func (s *natsSink) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := s.subject + "." + event.Kind
	if err := s.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (s *natsSink) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn("Failed to drain NATS connection", zap.Error(err))
		s.conn.Close()
	}
	return nil
}

// NoopSink discards every event. Used when no bus is configured.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) Publish(context.Context, Event) error { return nil }
func (NoopSink) Close() error                         { return nil }
