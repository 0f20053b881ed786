package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/repository"

	"github.com/robfig/cron/v3"
)

const pruneTimeout = 30 * time.Second

// LogFilter narrows an event log query.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "CONNECTED", "COMMAND", "MILESTONE", ...
}

type EventLogService struct {
	eventRepo repository.EventRepo
	log       *logger.Logger
	now       func() time.Time
}

func NewEventLogService(eventRepo repository.EventRepo, log *logger.Logger) *EventLogService {
	if log == nil {
		log = logger.Nop()
	}
	return &EventLogService{eventRepo: eventRepo, log: log, now: time.Now}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", ErrInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	return from, to, eventType, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}

// Append records an event; the connection manager writes through it.
func (s *EventLogService) Append(ctx context.Context, e models.DeviceEvent) error {
	return s.eventRepo.Append(ctx, e)
}

// Prune deletes events older than retention.
func (s *EventLogService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	cutoff := s.now().Add(-retention).UTC()
	n, err := s.eventRepo.Prune(ctx, cutoff)
	if err != nil {
		s.log.Errorw("event_prune_failed", "cutoff", cutoff, "err", err)
		return 0, err
	}
	s.log.Infow("event_prune_done", "cutoff", cutoff, "deleted", n)
	return n, nil
}

// StartRetention schedules Prune on a cron spec such as "@daily" or
// "@every 6h". The returned stop waits for a running prune to finish.
func (s *EventLogService) StartRetention(spec string, retention time.Duration) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()
		_, _ = s.Prune(ctx, retention)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule event prune %q: %w", spec, err)
	}
	c.Start()
	s.log.Infow("event_retention_scheduled", "schedule", spec, "retention", retention)
	return func() { <-c.Stop().Done() }, nil
}
