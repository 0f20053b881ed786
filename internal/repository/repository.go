package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_incubator/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// EventRepo is the device event log.
type EventRepo interface {
	Append(ctx context.Context, e models.DeviceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// CredentialRepo remembers one broker username/password pair.
type CredentialRepo interface {
	Load(ctx context.Context) (*models.Credentials, error)
	Save(ctx context.Context, c models.Credentials) error
	Clear(ctx context.Context) error
}

// IncubationStore persists the batch record.
type IncubationStore interface {
	Load() (models.IncubationRecord, bool, error)
	Save(rec models.IncubationRecord) error
	Delete() error
}

type Repository struct {
	EventRepo   EventRepo
	Credentials CredentialRepo
	Auth        Authorization
	Incubation  IncubationStore
}

// NewRepository wires the SQLite-backed repositories and the JSON batch file.
// secret seals stored broker passwords.
func NewRepository(db *sql.DB, incubationPath, secret string) *Repository {
	return &Repository{
		EventRepo:   NewEventSQLite(db),
		Credentials: NewCredentialSQLite(db, secret),
		Auth:        NewUserRepository(db),
		Incubation:  NewIncubationFile(incubationPath),
	}
}
