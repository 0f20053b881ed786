package service

import (
	"context"
	"fmt"
	"time"

	"controlling_incubator/internal/command"
	"controlling_incubator/internal/models"
)

// CommandResult is returned by every command entry point.
type CommandResult struct {
	Delivery command.Delivery  `json:"delivery"`
	Targets  models.TargetView `json:"targets"`
}

// ProfileResult is returned by ApplyProfile.
type ProfileResult struct {
	Profile   models.Profile   `json:"profile"`
	Delivery  command.Delivery `json:"delivery"`
	TotalDays int              `json:"total_days"`
}

// SetTargetTemperature validates against the device range; the dashboard's
// manual path also calls command.ValidateManual first.
func (m *ConnectionManager) SetTargetTemperature(ctx context.Context, v float64) (CommandResult, error) {
	var (
		res CommandResult
		err error
	)
	if xerr := m.exec(ctx, func() {
		var d command.Delivery
		if d, err = m.dispatcher.SetTargetTemperature(v); err != nil {
			return
		}
		res = m.commandResult(d)
		m.recordCommand(fmt.Sprintf("target temperature %.1f", v), d)
	}); xerr != nil {
		return CommandResult{}, xerr
	}
	return res, err
}

func (m *ConnectionManager) ApplyProfile(ctx context.Context, name string) (ProfileResult, error) {
	var (
		res ProfileResult
		err error
	)
	if xerr := m.exec(ctx, func() {
		now := m.now()
		var (
			p models.Profile
			d command.Delivery
		)
		if p, d, err = m.dispatcher.ApplyProfile(name, now); err != nil {
			return
		}
		res = ProfileResult{Profile: p, Delivery: d, TotalDays: m.tracker.TotalDays()}
		m.log.Infow("profile_applied", "profile", p.Name, "delivery", string(d))
		m.record(models.EventProfileApplied, fmt.Sprintf("profile %s applied", p.Name), map[string]any{
			"target_temperature": p.TargetTemperature,
			"total_days":         p.DurationDays,
			"delivery":           string(d),
		})
		m.notify(LevelInfo, models.EventProfileApplied, fmt.Sprintf("profile %s applied", p.Name))
	}); xerr != nil {
		return ProfileResult{}, xerr
	}
	return res, err
}

func (m *ConnectionManager) SetBuzzer(ctx context.Context, state string) (CommandResult, error) {
	var (
		res CommandResult
		err error
	)
	if xerr := m.exec(ctx, func() {
		var d command.Delivery
		if d, err = m.dispatcher.SetBuzzer(state); err != nil {
			return
		}
		res = m.commandResult(d)
		m.recordCommand("buzzer "+string(res.Targets.Buzzer), d)
	}); xerr != nil {
		return CommandResult{}, xerr
	}
	return res, err
}

// SetRelayTiming also retimes the local motor countdown.
func (m *ConnectionManager) SetRelayTiming(ctx context.Context, onSeconds, intervalMinutes int) (CommandResult, error) {
	var (
		res CommandResult
		err error
	)
	if xerr := m.exec(ctx, func() {
		var d command.Delivery
		if d, err = m.dispatcher.SetRelayTiming(onSeconds, intervalMinutes); err != nil {
			return
		}
		t := m.dispatcher.Targets()
		m.motor.SetTiming(t.RelayOnTime, t.RelayInterval)
		res = m.commandResult(d)
		m.recordCommand(fmt.Sprintf("relay on %ds every %dm", onSeconds, intervalMinutes), d)
	}); xerr != nil {
		return CommandResult{}, xerr
	}
	return res, err
}

// SetManualStartDate overrides the batch start. Future dates are accepted.
func (m *ConnectionManager) SetManualStartDate(ctx context.Context, date time.Time) (models.IncubationRecord, error) {
	var (
		rec models.IncubationRecord
		err error
	)
	if xerr := m.exec(ctx, func() {
		err = m.tracker.SetManualStartDate(date, m.now())
		rec = m.tracker.Record()
		m.record(models.EventStartDateSet, "start date set manually", map[string]any{"start_date": date.Format(time.RFC3339)})
	}); xerr != nil {
		return models.IncubationRecord{}, xerr
	}
	return rec, err
}

// ResetBatch forgets the start date, the persisted record and the chart.
func (m *ConnectionManager) ResetBatch(ctx context.Context) error {
	var err error
	if xerr := m.exec(ctx, func() {
		err = m.tracker.Reset()
		m.history.Clear()
		m.record(models.EventBatchReset, "batch reset", nil)
		m.notify(LevelInfo, models.EventBatchReset, "incubation batch reset")
	}); xerr != nil {
		return xerr
	}
	return err
}

func (m *ConnectionManager) commandResult(d command.Delivery) CommandResult {
	if d != command.Delivered {
		m.notify(LevelWarning, models.EventCommand, deliveryMessage(d))
	}
	return CommandResult{Delivery: d, Targets: targetView(m.dispatcher.Targets())}
}

func (m *ConnectionManager) recordCommand(desc string, d command.Delivery) {
	m.log.Infow("command_issued", "command", desc, "delivery", string(d))
	m.record(models.EventCommand, desc, map[string]any{"delivery": string(d)})
}

func deliveryMessage(d command.Delivery) string {
	switch d {
	case command.NotConnected:
		return "applied locally; device not connected, command not sent"
	case command.PublishFailed:
		return "applied locally; command could not be published"
	default:
		return string(d)
	}
}

func (m *ConnectionManager) CurrentReadings() models.SensorReading { return m.Snapshot().Reading }

func (m *ConnectionManager) TargetValues() models.TargetView { return m.Snapshot().Targets }

func (m *ConnectionManager) DeviceStatus() models.DeviceStatus { return m.Snapshot().Device }

func (m *ConnectionManager) ConnectionStatus() models.ConnectionView { return m.Snapshot().Connection }

// HistoricalData reads the buffer directly; it is safe for concurrent use.
func (m *ConnectionManager) HistoricalData() []models.HistoryPoint { return m.history.Snapshot() }

// Profiles returns the catalog. It is immutable after startup.
func (m *ConnectionManager) Profiles() []models.Profile { return m.catalog.List() }

// Snapshot returns the state published after the last loop iteration.
func (m *ConnectionManager) Snapshot() models.Snapshot {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap
}

func (m *ConnectionManager) buildSnapshot(now time.Time) models.Snapshot {
	total := m.tracker.TotalDays()
	day := m.tracker.CurrentDay(now)
	reading := m.processor.Reading()

	device := models.DeviceStatus{
		Power:     reading.Power,
		Motor:     m.motor.State(),
		TimerText: m.motor.Countdown(),
	}
	if m.staleReported {
		since := m.lastTelemetry
		device.StaleSince = &since
	}

	return models.Snapshot{
		Reading: reading,
		Targets: targetView(m.dispatcher.Targets()),
		Device:  device,
		Connection: models.ConnectionView{
			Connected: m.state.Status == models.StatusConnected,
			State:     m.state,
			DayText:   m.tracker.DayText(now),
			Day:       day,
			TotalDays: total,
			Broker:    m.cfg.Broker.Addr(),
		},
		Incubation: m.tracker.Record(),
		TakenAt:    now,
	}
}

func (m *ConnectionManager) publish(kind UpdateKind) {
	snap := m.buildSnapshot(m.now())
	m.snapMu.Lock()
	m.snap = snap
	m.snapMu.Unlock()
	m.hub.broadcast(Update{Kind: kind, Snapshot: &snap})
}

func (m *ConnectionManager) notify(level, typ, msg string) {
	m.hub.broadcast(Update{Kind: UpdateNotification, Notification: &Notification{
		Level:   level,
		Type:    typ,
		Message: msg,
		At:      m.now(),
	}})
}

func targetView(t models.TargetSettings) models.TargetView {
	return models.TargetView{
		TargetTemperature:    t.TargetTemperature,
		TargetHumidity:       t.TargetHumidity,
		RelayOnSeconds:       int(t.RelayOnTime / time.Second),
		RelayIntervalMinutes: int(t.RelayInterval / time.Minute),
		Buzzer:               t.Buzzer,
	}
}
