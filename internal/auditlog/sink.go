// Package auditlog records complaint history and system log events on a
// best-effort basis. A failed write never blocks or fails the mutation it
// accompanies; it is logged, counted and handed to the dead-letter channel.
package auditlog

import (
	"context"
	"fmt"
	"time"

	"barangay/backend/internal/config"
	"barangay/backend/internal/metrics"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/rs/zerolog"
)

const (
	deadLetterBuffer = 64
	writeTimeout     = 5 * time.Second
)

// Failure describes one record that could not be written.
type Failure struct {
	Entry     interface{}
	Err       error
	Timestamp time.Time
}

func (f Failure) String() string {
	return fmt.Sprintf("%T: %v", f.Entry, f.Err)
}

// Sink writes audit entries and system logs.
type Sink struct {
	store   storage.Storage
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	deadLetters chan Failure
	changes     storage.Broadcaster[[]models.SystemLog]
}

// NewSink creates a sink over store.
func NewSink(store storage.Storage, logger zerolog.Logger, m *metrics.Metrics) *Sink {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Sink{
		store:       store,
		logger:      logger.With().Str("component", "auditlog").Logger(),
		metrics:     m,
		now:         time.Now,
		deadLetters: make(chan Failure, deadLetterBuffer),
	}
}

// DeadLetters exposes failed writes. When nobody drains it and the buffer is
// full, further failures are only logged and counted.
func (s *Sink) DeadLetters() <-chan Failure {
	return s.deadLetters
}

// RecordComplaint appends one line to a complaint's audit log and mirrors it
// into the system log under the COMPLAINT category.
func (s *Sink) RecordComplaint(ctx context.Context, complaintID string, action models.AuditAction, author, details string) {
	ts := s.now().UTC()
	entry := &models.AuditLogEntry{
		ComplaintID: complaintID,
		Action:      action,
		Author:      author,
		Timestamp:   ts,
		Details:     details,
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := s.store.AppendAuditEntry(wctx, entry); err != nil {
		s.fail(entry, err)
	}

	s.write(wctx, &models.SystemLog{
		Timestamp: ts,
		Action:    action,
		Category:  models.CategoryComplaint,
		Actor:     author,
		Details:   details,
		Metadata:  models.LogMetadata{ComplaintID: complaintID},
	})
}

// Log appends a system log record.
func (s *Sink) Log(ctx context.Context, action models.AuditAction, category models.LogCategory, actor, details string, meta models.LogMetadata) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	s.write(wctx, &models.SystemLog{
		Timestamp: s.now().UTC(),
		Action:    action,
		Category:  category,
		Actor:     actor,
		Details:   details,
		Metadata:  meta,
	})
}

func (s *Sink) write(ctx context.Context, entry *models.SystemLog) {
	if err := s.store.AppendSystemLog(ctx, entry); err != nil {
		s.fail(entry, err)
		return
	}
	s.notify(ctx)
}

func (s *Sink) fail(entry interface{}, err error) {
	s.metrics.AuditWriteFailures.Inc()
	s.logger.Error().Err(err).Str("entry", fmt.Sprintf("%T", entry)).Msg("audit write failed")

	select {
	case s.deadLetters <- Failure{Entry: entry, Err: err, Timestamp: s.now()}:
	default:
		s.logger.Warn().Msg("dead-letter channel full, dropping failure record")
	}
}

// Recent returns the newest system logs, capped at SystemLogLimit.
func (s *Sink) Recent(ctx context.Context) ([]models.SystemLog, error) {
	return s.store.RecentSystemLogs(ctx, config.SystemLogLimit)
}

// Subscribe delivers the capped, newest-first log list now and after every
// successful write. The returned function removes the handler.
func (s *Sink) Subscribe(ctx context.Context, handler func([]models.SystemLog)) func() {
	copying := func(logs []models.SystemLog) {
		handler(append([]models.SystemLog(nil), logs...))
	}
	return s.changes.SubscribeWithInitial(copying, func() ([]models.SystemLog, bool) {
		return s.load(ctx)
	})
}

func (s *Sink) notify(ctx context.Context) {
	if s.changes.Len() == 0 {
		return
	}
	s.changes.Publish(func() ([]models.SystemLog, bool) {
		return s.load(ctx)
	})
}

func (s *Sink) load(ctx context.Context) ([]models.SystemLog, bool) {
	logs, err := s.Recent(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load system logs")
		return nil, false
	}
	return logs, true
}
