package models

import "time"

// SensorReading is the latest merged telemetry from the device.
type SensorReading struct {
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	Power          int       `json:"power"`
	RotateFlag     int       `json:"rotate_on"`
	DeviceSetpoint *float64  `json:"device_setpoint,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// HistoryPoint is one sample of the chart series.
type HistoryPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

type BuzzerState string

const (
	BuzzerOn  BuzzerState = "ON"
	BuzzerOff BuzzerState = "OFF"
)

// TargetSettings are the operator-controlled setpoints. TargetHumidity is
// display only and never sent to the device.
type TargetSettings struct {
	TargetTemperature float64       `json:"target_temperature"`
	TargetHumidity    float64       `json:"target_humidity"`
	RelayOnTime       time.Duration `json:"-"`
	RelayInterval     time.Duration `json:"-"`
	Buzzer            BuzzerState   `json:"buzzer"`
}

type MotorStatus string

const (
	MotorIdle     MotorStatus = "Idle"
	MotorRotating MotorStatus = "Rotating"
)

// MotorDisplayState is derived every tick and never persisted.
type MotorDisplayState struct {
	Status           MotorStatus `json:"status"`
	RemainingSeconds int         `json:"remaining_seconds"`
}
