// Package command validates operator commands and turns them into device
// payloads on the command topic.
package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
)

// Accepted ranges.
const (
	MinTargetTemperature = 20.0
	MaxTargetTemperature = 50.0
	// The manual apply path of the dashboard is stricter.
	MinManualTemperature = 30.0
	MaxManualTemperature = 45.0

	MinRelayOnSeconds       = 1
	MaxRelayOnSeconds       = 300
	MinRelayIntervalMinutes = 1
	MaxRelayIntervalMinutes = 60
)

// Delivery is the outcome of a publish attempt.
type Delivery string

const (
	Delivered     Delivery = "DELIVERED"
	NotConnected  Delivery = "NOT_CONNECTED"
	PublishFailed Delivery = "PUBLISH_FAILED"
)

// Publisher hands a payload to the broker session. Publishing is
// fire-and-forget: commands issued while offline are not queued.
type Publisher interface {
	PublishCommand(payload []byte) Delivery
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(payload []byte) Delivery

func (f PublisherFunc) PublishCommand(payload []byte) Delivery { return f(payload) }

// ProfileApplier persists the batch length of an applied profile.
type ProfileApplier interface {
	ApplyProfile(p models.Profile, now time.Time) error
}

// Dispatcher owns TargetSettings. Local state is updated before the publish
// attempt, so a command issued while disconnected still takes effect
// locally. Not safe for concurrent use.
type Dispatcher struct {
	pub     Publisher
	tracker ProfileApplier
	catalog *Catalog
	log     *logger.Logger

	targets      models.TargetSettings
	targetLocked bool
}

func NewDispatcher(defaults models.TargetSettings, catalog *Catalog, pub Publisher, tracker ProfileApplier, log *logger.Logger) *Dispatcher {
	if catalog == nil {
		catalog = NewCatalog(DefaultProfiles...)
	}
	if log == nil {
		log = logger.Nop()
	}
	if defaults.Buzzer == "" {
		defaults.Buzzer = models.BuzzerOff
	}
	return &Dispatcher{pub: pub, tracker: tracker, catalog: catalog, log: log, targets: defaults}
}

// Targets returns a copy of the current settings.
func (d *Dispatcher) Targets() models.TargetSettings { return d.targets }

func (d *Dispatcher) Profiles() []models.Profile { return d.catalog.List() }

// ValidateManual checks the stricter range used by the manual apply control.
func ValidateManual(v float64) error {
	return checkRange("target_temperature", v, MinManualTemperature, MaxManualTemperature)
}

// SetTargetTemperature validates v, stores it and sends {"SET": v}.
func (d *Dispatcher) SetTargetTemperature(v float64) (Delivery, error) {
	if err := checkRange("target_temperature", v, MinTargetTemperature, MaxTargetTemperature); err != nil {
		return "", err
	}
	d.targets.TargetTemperature = v
	d.targetLocked = true
	return d.send(map[string]any{"SET": v}), nil
}

// BootstrapTarget adopts a device-reported setpoint only if no target has
// been chosen locally yet. It reports whether the value was adopted.
func (d *Dispatcher) BootstrapTarget(v float64) bool {
	if d.targetLocked {
		return false
	}
	d.targetLocked = true
	if checkRange("target_temperature", v, MinTargetTemperature, MaxTargetTemperature) != nil {
		d.log.Warnw("device_setpoint_out_of_range", "value", v)
		return false
	}
	d.targets.TargetTemperature = v
	d.log.Infow("target_bootstrapped_from_device", "value", v)
	return true
}

// ApplyProfile sets the profile's targets and batch length, then sends the
// temperature command.
func (d *Dispatcher) ApplyProfile(name string, now time.Time) (models.Profile, Delivery, error) {
	p, err := d.catalog.Find(name)
	if err != nil {
		return models.Profile{}, "", err
	}

	d.targets.TargetTemperature = p.TargetTemperature
	if p.TargetHumidity > 0 {
		d.targets.TargetHumidity = p.TargetHumidity
	}
	d.targetLocked = true

	if d.tracker != nil {
		if err := d.tracker.ApplyProfile(p, now); err != nil {
			d.log.Warnw("profile_persist_failed", "profile", p.Name, "err", err)
		}
	}
	return p, d.send(map[string]any{"SET": p.TargetTemperature}), nil
}

// SetBuzzer accepts "ON" or "OFF" in any case.
func (d *Dispatcher) SetBuzzer(state string) (Delivery, error) {
	s := models.BuzzerState(strings.ToUpper(strings.TrimSpace(state)))
	if s != models.BuzzerOn && s != models.BuzzerOff {
		return "", &models.ValidationError{Field: "buzzer", Reason: fmt.Sprintf("must be ON or OFF, got %q", state)}
	}
	d.targets.Buzzer = s
	return d.send(map[string]any{"BUZZER": string(s)}), nil
}

// SetRelayTiming sets the relay on-time (seconds) and rotation interval
// (minutes). The device expects both as strings.
func (d *Dispatcher) SetRelayTiming(onSeconds, intervalMinutes int) (Delivery, error) {
	if err := checkRange("relay_on_seconds", float64(onSeconds), MinRelayOnSeconds, MaxRelayOnSeconds); err != nil {
		return "", err
	}
	if err := checkRange("relay_interval_minutes", float64(intervalMinutes), MinRelayIntervalMinutes, MaxRelayIntervalMinutes); err != nil {
		return "", err
	}
	d.targets.RelayOnTime = time.Duration(onSeconds) * time.Second
	d.targets.RelayInterval = time.Duration(intervalMinutes) * time.Minute
	return d.send(map[string]any{
		"RT_ON":  strconv.Itoa(onSeconds),
		"RT_INT": strconv.Itoa(intervalMinutes),
	}), nil
}

func (d *Dispatcher) send(cmd map[string]any) Delivery {
	payload, err := json.Marshal(cmd)
	if err != nil {
		d.log.Errorw("command_encode_failed", "err", err)
		return PublishFailed
	}
	if d.pub == nil {
		return NotConnected
	}
	res := d.pub.PublishCommand(payload)
	if res != Delivered {
		d.log.Warnw("command_not_delivered", "payload", string(payload), "result", res)
	}
	return res
}

func checkRange(field string, v, lo, hi float64) error {
	// written so NaN fails too
	if !(v >= lo && v <= hi) {
		return &models.ValidationError{Field: field, Value: v, Min: lo, Max: hi}
	}
	return nil
}
