package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"controlling_incubator/internal/models"
)

// IncubationFile stores the batch record as a small JSON document.
type IncubationFile struct {
	path string
}

func NewIncubationFile(path string) *IncubationFile {
	return &IncubationFile{path: path}
}

var _ IncubationStore = (*IncubationFile)(nil)

// incubationDoc is the on-disk shape; start_date is null until a batch starts.
type incubationDoc struct {
	StartDate   *string `json:"start_date"`
	TotalDays   int     `json:"total_days"`
	LastUpdated string  `json:"last_updated"`
}

func (f *IncubationFile) Path() string { return f.path }

// Load returns (record, false, nil) when the file does not exist yet.
func (f *IncubationFile) Load() (models.IncubationRecord, bool, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.IncubationRecord{}, false, nil
		}
		return models.IncubationRecord{}, false, &models.PersistenceError{Op: "read", Path: f.path, Err: err}
	}

	var doc incubationDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return models.IncubationRecord{}, false, &models.PersistenceError{Op: "parse", Path: f.path, Err: err}
	}

	var rec models.IncubationRecord
	rec.TotalDays = doc.TotalDays
	if doc.StartDate != nil && *doc.StartDate != "" {
		ts, err := parseStoredTime(*doc.StartDate)
		if err != nil {
			return models.IncubationRecord{}, false, &models.PersistenceError{Op: "parse start_date", Path: f.path, Err: err}
		}
		rec.StartDate = ts
	}
	if doc.LastUpdated != "" {
		if ts, err := parseStoredTime(doc.LastUpdated); err == nil {
			rec.LastUpdated = ts
		}
	}
	return rec, true, nil
}

// Save writes the record atomically via a temp file and rename.
func (f *IncubationFile) Save(rec models.IncubationRecord) error {
	doc := incubationDoc{TotalDays: rec.TotalDays}
	if rec.HasStart() {
		s := rec.StartDate.Format(time.RFC3339)
		doc.StartDate = &s
	}
	updated := rec.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	doc.LastUpdated = updated.Format(time.RFC3339)

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &models.PersistenceError{Op: "encode", Path: f.path, Err: err}
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &models.PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return &models.PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return &models.PersistenceError{Op: "rename", Path: f.path, Err: err}
	}
	return nil
}

// Delete removes the record. A missing file is not an error.
func (f *IncubationFile) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &models.PersistenceError{Op: "delete", Path: f.path, Err: err}
	}
	return nil
}

// parseStoredTime accepts RFC3339 and the zone-less ISO form older files use.
func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
