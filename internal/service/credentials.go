package service

import (
	"context"
	"errors"

	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/repository"
)

// CredentialStatus is what the dashboard may learn about the stored login.
type CredentialStatus struct {
	Saved    bool   `json:"saved"`
	Username string `json:"username,omitempty"`
}

// CredentialService is the remember-me store for the broker login.
type CredentialService struct {
	repo repository.CredentialRepo
	log  *logger.Logger
}

func NewCredentialService(repo repository.CredentialRepo, log *logger.Logger) *CredentialService {
	if log == nil {
		log = logger.Nop()
	}
	return &CredentialService{repo: repo, log: log}
}

// Load returns nil when nothing usable is stored. A record sealed with a
// different secret counts as absent.
func (s *CredentialService) Load(ctx context.Context) (*models.Credentials, error) {
	c, err := s.repo.Load(ctx)
	if errors.Is(err, repository.ErrCredentialsUnreadable) {
		s.log.Warnw("stored_credentials_unreadable")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c == nil || c.Empty() {
		return nil, nil
	}
	return c, nil
}

func (s *CredentialService) Status(ctx context.Context) (CredentialStatus, error) {
	c, err := s.Load(ctx)
	if err != nil || c == nil {
		return CredentialStatus{}, err
	}
	return CredentialStatus{Saved: true, Username: c.Username}, nil
}

// Remember stores c when remember is set and forgets any stored login
// otherwise.
func (s *CredentialService) Remember(ctx context.Context, c models.Credentials, remember bool) error {
	if !remember {
		return s.Clear(ctx)
	}
	if c.Empty() {
		return models.ErrEmptyCredentials
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return err
	}
	s.log.Infow("credentials_saved", "username", c.Username)
	return nil
}

func (s *CredentialService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.log.Infow("credentials_cleared")
	return nil
}
