// Package telemetry turns raw status payloads from the incubator into the
// current SensorReading and the chart history.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"controlling_incubator/internal/models"
)

// Payload keys sent by the device.
const (
	KeyTemperature = "temperature"
	KeyHumidity    = "humidity"
	KeyPower       = "power"
	KeyRotate      = "rotate_on"
	KeySetpoint    = "SET"
)

// Fields holds the keys present in one payload; nil means absent.
type Fields struct {
	Temperature *float64
	Humidity    *float64
	Power       *int
	RotateFlag  *int
	Setpoint    *float64
	// Skipped lists known keys whose values could not be coerced.
	Skipped []string
}

// Empty reports whether no known key was usable.
func (f Fields) Empty() bool {
	return f.Temperature == nil && f.Humidity == nil && f.Power == nil && f.RotateFlag == nil && f.Setpoint == nil
}

var errNotObject = errors.New("payload is not a JSON object")

// Decode parses a partial status payload. Malformed JSON or a non-object
// payload yields a *models.DecodeError; individual bad values are skipped.
func Decode(topic string, raw []byte) (Fields, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Fields{}, &models.DecodeError{Topic: topic, Err: err}
	}
	if m == nil {
		return Fields{}, &models.DecodeError{Topic: topic, Err: errNotObject}
	}

	var f Fields
	for key, val := range m {
		var err error
		switch key {
		case KeyTemperature:
			f.Temperature, err = floatField(val)
		case KeyHumidity:
			f.Humidity, err = floatField(val)
		case KeySetpoint:
			f.Setpoint, err = floatField(val)
		case KeyPower:
			f.Power, err = intField(val)
		case KeyRotate:
			f.RotateFlag, err = intField(val)
		default:
			continue
		}
		if err != nil {
			f.Skipped = append(f.Skipped, key)
		}
	}
	return f, nil
}

// coerce accepts a JSON number or a string holding one.
func coerce(raw json.RawMessage) (float64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}

	var (
		out float64
		err error
	)
	switch x := v.(type) {
	case float64:
		out = x
	case string:
		out, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("unsupported value %s", string(raw))
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("non-finite value %s", string(raw))
	}
	return out, nil
}

func floatField(raw json.RawMessage) (*float64, error) {
	v, err := coerce(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intField(raw json.RawMessage) (*int, error) {
	v, err := coerce(raw)
	if err != nil {
		return nil, err
	}
	n := int(math.Round(v))
	return &n, nil
}
