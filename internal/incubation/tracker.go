// Package incubation tracks the current egg batch: when it started, how
// long it runs, and which day-based milestones have been reached.
package incubation

import (
	"errors"
	"fmt"
	"time"

	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
)

// DefaultTotalDays applies until a profile says otherwise.
const DefaultTotalDays = 21

// Store persists the batch record.
type Store interface {
	Load() (models.IncubationRecord, bool, error)
	Save(rec models.IncubationRecord) error
	Delete() error
}

// Tracker is not safe for concurrent use; the connection manager loop owns it.
// Persistence failures are logged and returned, but the in-memory record is
// always updated first and stays authoritative for the session.
type Tracker struct {
	store        Store
	log          *logger.Logger
	rec          models.IncubationRecord
	defaultTotal int
	notified     map[milestoneKey]struct{}
}

type milestoneKey struct {
	kind models.MilestoneKind
	day  int
}

// New loads the persisted record once. A load failure is logged and the
// tracker starts empty.
func New(store Store, defaultTotalDays int, log *logger.Logger) *Tracker {
	if defaultTotalDays <= 0 {
		defaultTotalDays = DefaultTotalDays
	}
	if log == nil {
		log = logger.Nop()
	}
	t := &Tracker{
		store:        store,
		log:          log,
		defaultTotal: defaultTotalDays,
		notified:     make(map[milestoneKey]struct{}),
	}
	t.rec.TotalDays = defaultTotalDays

	if store == nil {
		return t
	}
	rec, ok, err := store.Load()
	switch {
	case err != nil:
		log.Warnw("incubation_load_failed", "err", err)
	case ok:
		if rec.TotalDays <= 0 {
			rec.TotalDays = defaultTotalDays
		}
		t.rec = rec
		log.Infow("incubation_loaded", "start_date", rec.StartDate, "total_days", rec.TotalDays)
	}
	return t
}

// Record returns a copy of the current record.
func (t *Tracker) Record() models.IncubationRecord { return t.rec }

func (t *Tracker) TotalDays() int { return t.rec.TotalDays }

// StartIfAbsent records now as the start date when none exists. It reports
// whether a new batch was started.
func (t *Tracker) StartIfAbsent(now time.Time) (bool, error) {
	if t.rec.HasStart() {
		return false, nil
	}
	t.rec.StartDate = now
	t.log.Infow("incubation_started", "start_date", now, "total_days", t.rec.TotalDays)
	return true, t.persist(now)
}

// CurrentDay is the 1-based day, clamped to [1, total_days].
func (t *Tracker) CurrentDay(now time.Time) int {
	return DayOf(t.rec.StartDate, t.rec.TotalDays, now)
}

// DayOf computes the clamped incubation day for a start date.
func DayOf(start time.Time, totalDays int, now time.Time) int {
	if start.IsZero() {
		return 1
	}
	day := int(now.Sub(start)/(24*time.Hour)) + 1
	if day < 1 {
		day = 1
	}
	if totalDays > 0 && day > totalDays {
		day = totalDays
	}
	return day
}

// DayText renders the "day X of Y" indicator.
func (t *Tracker) DayText(now time.Time) string {
	return fmt.Sprintf("Day %d of %d", t.CurrentDay(now), t.rec.TotalDays)
}

// ApplyProfile sets the batch length and persists once.
func (t *Tracker) ApplyProfile(p models.Profile, now time.Time) error {
	if p.DurationDays > 0 {
		t.rec.TotalDays = p.DurationDays
	}
	t.resetMilestones()
	return t.persist(now)
}

// SetManualStartDate overrides the start date. Future dates are accepted.
func (t *Tracker) SetManualStartDate(date, now time.Time) error {
	t.rec.StartDate = date
	t.resetMilestones()
	t.log.Infow("incubation_start_date_set", "start_date", date)
	return t.persist(now)
}

// Reset forgets the batch and deletes the persisted record.
func (t *Tracker) Reset() error {
	t.rec = models.IncubationRecord{TotalDays: t.defaultTotal}
	t.resetMilestones()
	if t.store == nil {
		return nil
	}
	if err := t.store.Delete(); err != nil {
		t.log.Errorw("incubation_reset_failed", "err", err)
		return persistenceError("delete", err)
	}
	t.log.Infow("incubation_reset")
	return nil
}

// CheckMilestones returns milestones reached at now that have not been
// reported yet. At most one milestone is reported per day; hatch day wins
// over the day before, which wins over the weekly mark.
func (t *Tracker) CheckMilestones(now time.Time) []models.Milestone {
	if !t.rec.HasStart() {
		return nil
	}
	day := t.CurrentDay(now)
	total := t.rec.TotalDays

	var m *models.Milestone
	switch {
	case day == total:
		m = &models.Milestone{Kind: models.MilestoneHatchDay, Day: day, Message: fmt.Sprintf("Day %d: hatch day", day)}
	case day == total-1:
		m = &models.Milestone{Kind: models.MilestoneHatchTomorrow, Day: day, Message: fmt.Sprintf("Day %d: hatching expected tomorrow", day)}
	case day%7 == 0:
		m = &models.Milestone{Kind: models.MilestoneWeekly, Day: day, Message: fmt.Sprintf("Day %d: week %d complete", day, day/7)}
	}
	if m == nil {
		return nil
	}

	key := milestoneKey{kind: m.Kind, day: m.Day}
	if _, seen := t.notified[key]; seen {
		return nil
	}
	t.notified[key] = struct{}{}
	return []models.Milestone{*m}
}

func (t *Tracker) resetMilestones() {
	t.notified = make(map[milestoneKey]struct{})
}

func (t *Tracker) persist(now time.Time) error {
	t.rec.LastUpdated = now
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(t.rec); err != nil {
		t.log.Errorw("incubation_save_failed", "err", err)
		return persistenceError("save", err)
	}
	return nil
}

// persistenceError marks a store failure as such; the in-memory record has
// already changed by the time it is returned.
func persistenceError(op string, err error) error {
	var pe *models.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &models.PersistenceError{Op: op, Err: err}
}
