package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"controlling_incubator/internal/models"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	credentialRowID = 1
	nonceSize       = 24

	upsertCredentialSQL = `
		INSERT INTO broker_credentials (id, username, password_sealed, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username=excluded.username,
			password_sealed=excluded.password_sealed,
			updated_at=excluded.updated_at
	`
	selectCredentialSQL = `SELECT username, password_sealed FROM broker_credentials WHERE id=?`
	deleteCredentialSQL = `DELETE FROM broker_credentials WHERE id=?`
)

// ErrCredentialsUnreadable means the stored password cannot be opened with
// the configured secret.
var ErrCredentialsUnreadable = errors.New("stored credentials cannot be decrypted")

// CredentialSQLite keeps the remembered broker login in a single row. The
// password is sealed with NaCl secretbox.
type CredentialSQLite struct {
	db  *sql.DB
	key [32]byte
}

var _ CredentialRepo = (*CredentialSQLite)(nil)

func NewCredentialSQLite(db *sql.DB, secret string) *CredentialSQLite {
	r := &CredentialSQLite{db: db}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("incubator broker credentials"))
	if _, err := io.ReadFull(kdf, r.key[:]); err != nil {
		// hkdf only fails after 255*hash-size bytes
		panic(fmt.Sprintf("derive credential key: %v", err))
	}
	return r
}

// Load returns nil, nil when nothing is stored.
func (r *CredentialSQLite) Load(ctx context.Context) (*models.Credentials, error) {
	var (
		username string
		sealed   []byte
	)
	err := r.db.QueryRowContext(ctx, selectCredentialSQL, credentialRowID).Scan(&username, &sealed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select credentials: %w", err)
	}

	password, err := r.open(sealed)
	if err != nil {
		return nil, err
	}
	return &models.Credentials{Username: username, Password: password}, nil
}

func (r *CredentialSQLite) Save(ctx context.Context, c models.Credentials) error {
	sealed, err := r.seal(c.Password)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertCredentialSQL, credentialRowID, c.Username, sealed, time.Now().UTC()); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (r *CredentialSQLite) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteCredentialSQL, credentialRowID); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// seal returns nonce || box.
func (r *CredentialSQLite) seal(plain string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plain), &nonce, &r.key), nil
}

func (r *CredentialSQLite) open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrCredentialsUnreadable
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &r.key)
	if !ok {
		return "", ErrCredentialsUnreadable
	}
	return string(plain), nil
}
