package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"controlling_incubator/internal/models"
)

func TestLoadCatalog_BuiltIns(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.List()) != len(DefaultProfiles) {
		t.Fatalf("expected %d built-ins, got %d", len(DefaultProfiles), len(c.List()))
	}
	p, err := c.Find("Ayam (38°C)")
	if err != nil || p.TargetTemperature != 38.0 || p.DurationDays != 21 {
		t.Fatalf("unexpected Ayam profile %+v err=%v", p, err)
	}
}

func TestLoadCatalog_FileOverridesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yml")
	doc := `
profiles:
  - name: "Ayam (38°C)"
    target_temperature: 37.9
    target_humidity: 58
    duration_days: 21
  - name: "Angsa (37.4°C)"
    target_temperature: 37.4
    target_humidity: 55
    duration_days: 30
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list := c.List()
	if len(list) != len(DefaultProfiles)+1 {
		t.Fatalf("expected one appended profile, got %d", len(list))
	}
	if list[0].TargetTemperature != 37.9 {
		t.Fatalf("expected override in place, got %+v", list[0])
	}
	if list[len(list)-1].Name != "Angsa (37.4°C)" {
		t.Fatalf("expected appended profile last, got %+v", list[len(list)-1])
	}
}

func TestLoadCatalog_InvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yml")
	doc := "profiles:\n  - name: Hot\n    target_temperature: 70\n    duration_days: 3\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadCatalog(path)
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil || !strings.Contains(err.Error(), "read profiles") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestCatalog_ListIsCopy(t *testing.T) {
	c := NewCatalog(DefaultProfiles...)
	l := c.List()
	l[0].Name = "mutated"
	if c.List()[0].Name == "mutated" {
		t.Fatalf("List must return a copy")
	}
}
