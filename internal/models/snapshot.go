package models

import "time"

// DeviceStatus is the power/motor/timer panel.
type DeviceStatus struct {
	Power      int               `json:"power"`
	Motor      MotorDisplayState `json:"motor"`
	TimerText  string            `json:"timer_text"`
	StaleSince *time.Time        `json:"stale_since,omitempty"`
}

// ConnectionView is the connection indicator with the "day X of Y" text.
type ConnectionView struct {
	Connected bool            `json:"connected"`
	State     ConnectionState `json:"state"`
	DayText   string          `json:"day_text"`
	Day       int             `json:"day"`
	TotalDays int             `json:"total_days"`
	Broker    string          `json:"broker"`
}

// TargetView is the JSON shape of TargetSettings.
type TargetView struct {
	TargetTemperature    float64     `json:"target_temperature"`
	TargetHumidity       float64     `json:"target_humidity"`
	RelayOnSeconds       int         `json:"relay_on_seconds"`
	RelayIntervalMinutes int         `json:"relay_interval_minutes"`
	Buzzer               BuzzerState `json:"buzzer"`
}

// Snapshot is an immutable copy of everything the dashboard renders.
type Snapshot struct {
	Reading    SensorReading    `json:"reading"`
	Targets    TargetView       `json:"targets"`
	Device     DeviceStatus     `json:"device"`
	Connection ConnectionView   `json:"connection"`
	Incubation IncubationRecord `json:"incubation"`
	TakenAt    time.Time        `json:"taken_at"`
}
