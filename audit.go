package goGate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Audit event types emitted by the session and the guard.
const (
	AuditLogin           = "login"
	AuditLogout          = "logout"
	AuditVerify          = "verify"
	AuditSessionExpired  = "session_expired"
	AuditSessionRestored = "session_restored"
	AuditPurge           = "purge"
	AuditNavigation      = "navigation"
)

// AuditEvent is one session or navigation fact. ID and Timestamp are stamped on emit when
// left empty, and RequestID is taken from the emitting context.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    int64             `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Route     string            `json:"route,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher worker, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// Sinks fans each event out to every sink in order.
type Sinks []AuditSink

func (s Sinks) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}

// ChannelSink hands events to a consumer goroutine through a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(append(line, '\n'))
}

// SlogSink logs events at info level, failures at warn.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Emit(ctx context.Context, event AuditEvent) {
	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.Bool("success", event.Success),
	}
	if event.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", event.UserID))
	}
	if event.Route != "" {
		attrs = append(attrs, slog.String("route", event.Route), slog.String("decision", event.Decision))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	s.logger.LogAttrs(ctx, level, "audit "+event.EventType, attrs...)
}

// RedisStreamSink appends events to a Redis stream so every workstation of a floor
// writes to one trail. The stream is capped near MaxLen entries when MaxLen > 0.
type RedisStreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	onErr  func(error)
}

// NewRedisStreamSink returns a sink writing to stream. onErr, when set, receives
// XADD failures; events are never retried.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64, onErr func(error)) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen, onErr: onErr}
}

func (s *RedisStreamSink) Emit(ctx context.Context, event AuditEvent) {
	values := map[string]any{
		"id":         event.ID,
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
		"event_type": event.EventType,
		"success":    strconv.FormatBool(event.Success),
	}
	if event.UserID != 0 {
		values["user_id"] = strconv.FormatInt(event.UserID, 10)
	}
	for k, v := range map[string]string{
		"email":      event.Email,
		"request_id": event.RequestID,
		"route":      event.Route,
		"decision":   event.Decision,
		"error":      event.Error,
	} {
		if v != "" {
			values[k] = v
		}
	}

	args := &redis.XAddArgs{Stream: s.stream, Values: values}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil && s.onErr != nil {
		s.onErr(err)
	}
}
