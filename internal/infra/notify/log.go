package notify

import (
	"context"
	"log"

	"github.com/bryanwahyu/aishield/internal/domain/notification"
)

// LogSink writes each event as a key=value log line.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink uses the standard logger when l is nil.
func NewLogSink(l *log.Logger) *LogSink {
	if l == nil {
		l = log.Default()
	}
	return &LogSink{logger: l}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, ev notification.Event) error {
	s.logger.Printf("notification id=%s kind=%s session=%s seq=%d message=%q",
		ev.ID, ev.Kind, ev.SessionID, ev.Seq, ev.Message)
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }
