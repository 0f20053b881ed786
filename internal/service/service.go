package service

import (
	"context"
	"time"

	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Station is the incubator as seen by the dashboard: broker connection,
// operator commands and the latest derived state.
type Station interface {
	Connect(ctx context.Context, creds models.Credentials) error
	Disconnect(ctx context.Context) error

	SetTargetTemperature(ctx context.Context, v float64) (CommandResult, error)
	ApplyProfile(ctx context.Context, name string) (ProfileResult, error)
	SetBuzzer(ctx context.Context, state string) (CommandResult, error)
	SetRelayTiming(ctx context.Context, onSeconds, intervalMinutes int) (CommandResult, error)
	SetManualStartDate(ctx context.Context, date time.Time) (models.IncubationRecord, error)
	ResetBatch(ctx context.Context) error

	CurrentReadings() models.SensorReading
	TargetValues() models.TargetView
	DeviceStatus() models.DeviceStatus
	ConnectionStatus() models.ConnectionView
	HistoricalData() []models.HistoryPoint
	Profiles() []models.Profile
	Snapshot() models.Snapshot
	Subscribe() (<-chan Update, func())
}

// EventLog exposes the lifecycle log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error)
}

// Credentials is the remembered broker login.
type Credentials interface {
	Load(ctx context.Context) (*models.Credentials, error)
	Status(ctx context.Context) (CredentialStatus, error)
	Remember(ctx context.Context, c models.Credentials, remember bool) error
	Clear(ctx context.Context) error
}

var (
	_ Station     = (*ConnectionManager)(nil)
	_ EventLog    = (*EventLogService)(nil)
	_ Credentials = (*CredentialService)(nil)
	_ Recorder    = (*EventLogService)(nil)
)

type Options struct {
	SigningKey string
	TokenTTL   time.Duration
	Log        *logger.Logger
}

// Service aggregates everything the handlers need.
type Service struct {
	Station
	EventLog
	Authorization
	Credentials
}

// NewService wires the repositories around an already constructed station
// and event log; the station records into events, so both exist first.
func NewService(repos *repository.Repository, station Station, events *EventLogService, opts Options) *Service {
	return &Service{
		Station:       station,
		EventLog:      events,
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
		Credentials:   NewCredentialService(repos.Credentials, opts.Log.Named("credentials")),
	}
}

// AutoConnect connects with the remembered login, or with fallback when
// nothing is stored. It reports whether a connect was started.
func (s *Service) AutoConnect(ctx context.Context, fallback models.Credentials, log *logger.Logger) (bool, error) {
	creds := fallback
	stored, err := s.Credentials.Load(ctx)
	if err != nil {
		log.Warnw("auto_connect_load_failed", "err", err)
	}
	if stored != nil {
		creds = *stored
	}
	if creds.Empty() {
		log.Infow("auto_connect_skipped", "reason", "no credentials")
		return false, nil
	}
	if err := s.Station.Connect(ctx, creds); err != nil {
		return false, err
	}
	log.Infow("auto_connect_started", "username", creds.Username)
	return true, nil
}
