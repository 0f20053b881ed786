package service

import (
	"context"
	"errors"
	"testing"

	"controlling_incubator/internal/models"
	"controlling_incubator/internal/repository"
)

type credentialRepoStub struct {
	loadResp *models.Credentials
	loadErr  error
	saveErr  error
	saved    []models.Credentials
	clears   int
}

func (s *credentialRepoStub) Load(ctx context.Context) (*models.Credentials, error) {
	return s.loadResp, s.loadErr
}

func (s *credentialRepoStub) Save(ctx context.Context, c models.Credentials) error {
	s.saved = append(s.saved, c)
	return s.saveErr
}

func (s *credentialRepoStub) Clear(ctx context.Context) error {
	s.clears++
	return nil
}

func TestCredentialService_Load(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		repo    *credentialRepoStub
		wantNil bool
		wantErr bool
	}{
		{name: "nothing stored", repo: &credentialRepoStub{}, wantNil: true},
		{name: "stored", repo: &credentialRepoStub{loadResp: &models.Credentials{Username: "farm", Password: "pw"}}},
		{name: "unreadable treated as absent", repo: &credentialRepoStub{loadErr: repository.ErrCredentialsUnreadable}, wantNil: true},
		{name: "blank password treated as absent", repo: &credentialRepoStub{loadResp: &models.Credentials{Username: "farm"}}, wantNil: true},
		{name: "db error", repo: &credentialRepoStub{loadErr: errors.New("locked")}, wantNil: true, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := NewCredentialService(tc.repo, nil)
			got, err := svc.Load(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tc.wantErr)
			}
			if (got == nil) != tc.wantNil {
				t.Fatalf("got=%+v, wantNil=%v", got, tc.wantNil)
			}
		})
	}
}

func TestCredentialService_Remember(t *testing.T) {
	t.Parallel()

	repo := &credentialRepoStub{}
	svc := NewCredentialService(repo, nil)
	creds := models.Credentials{Username: "farm", Password: "pw"}

	if err := svc.Remember(context.Background(), creds, true); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if len(repo.saved) != 1 || repo.saved[0] != creds {
		t.Fatalf("expected credentials saved, got %+v", repo.saved)
	}

	if err := svc.Remember(context.Background(), creds, false); err != nil {
		t.Fatalf("Remember(false): %v", err)
	}
	if repo.clears != 1 {
		t.Fatalf("expected stored login cleared, clears=%d", repo.clears)
	}

	if err := svc.Remember(context.Background(), models.Credentials{}, true); !errors.Is(err, models.ErrEmptyCredentials) {
		t.Fatalf("expected ErrEmptyCredentials, got %v", err)
	}
}

func TestCredentialService_Status(t *testing.T) {
	t.Parallel()

	svc := NewCredentialService(&credentialRepoStub{loadResp: &models.Credentials{Username: "farm", Password: "pw"}}, nil)
	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Saved || st.Username != "farm" {
		t.Fatalf("unexpected status: %+v", st)
	}

	st, err = NewCredentialService(&credentialRepoStub{}, nil).Status(context.Background())
	if err != nil || st.Saved {
		t.Fatalf("expected nothing saved, got %+v, %v", st, err)
	}
}
