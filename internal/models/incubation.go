package models

import "time"

// IncubationRecord is the persisted batch record. A zero StartDate means no
// batch has been started yet.
type IncubationRecord struct {
	StartDate   time.Time `json:"start_date"`
	TotalDays   int       `json:"total_days"`
	LastUpdated time.Time `json:"last_updated"`
}

// HasStart reports whether a start date has been recorded.
func (r IncubationRecord) HasStart() bool { return !r.StartDate.IsZero() }

// Profile is a named incubation preset.
type Profile struct {
	Name              string  `json:"name" yaml:"name"`
	TargetTemperature float64 `json:"target_temperature" yaml:"target_temperature"`
	TargetHumidity    float64 `json:"target_humidity" yaml:"target_humidity"`
	DurationDays      int     `json:"duration_days" yaml:"duration_days"`
}

type MilestoneKind string

const (
	MilestoneHatchDay      MilestoneKind = "HATCH_DAY"
	MilestoneHatchTomorrow MilestoneKind = "HATCH_TOMORROW"
	MilestoneWeekly        MilestoneKind = "WEEKLY"
)

type Milestone struct {
	Kind    MilestoneKind `json:"kind"`
	Day     int           `json:"day"`
	Message string        `json:"message"`
}
