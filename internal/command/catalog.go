package command

import (
	"fmt"
	"os"
	"strings"

	"controlling_incubator/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultProfiles is the built-in catalog.
var DefaultProfiles = []models.Profile{
	{Name: "Ayam (38°C)", TargetTemperature: 38.0, TargetHumidity: 60, DurationDays: 21},
	{Name: "Bebek (37.5°C)", TargetTemperature: 37.5, TargetHumidity: 65, DurationDays: 28},
	{Name: "Burung Puyuh (37.8°C)", TargetTemperature: 37.8, TargetHumidity: 55, DurationDays: 17},
}

// Catalog is an ordered, immutable set of profiles.
type Catalog struct {
	profiles []models.Profile
}

// NewCatalog copies profiles; later entries replace earlier ones with the
// same name (case-insensitive) in place.
func NewCatalog(profiles ...models.Profile) *Catalog {
	c := &Catalog{}
	for _, p := range profiles {
		c.put(p)
	}
	return c
}

func (c *Catalog) put(p models.Profile) {
	for i := range c.profiles {
		if strings.EqualFold(c.profiles[i].Name, p.Name) {
			c.profiles[i] = p
			return
		}
	}
	c.profiles = append(c.profiles, p)
}

// List returns a copy of the profiles in catalog order.
func (c *Catalog) List() []models.Profile {
	out := make([]models.Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Find looks a profile up by exact name, then case-insensitively.
func (c *Catalog) Find(name string) (models.Profile, error) {
	for _, p := range c.profiles {
		if p.Name == name {
			return p, nil
		}
	}
	for _, p := range c.profiles {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return models.Profile{}, &models.NotFoundError{Kind: "profile", Name: name}
}

type catalogFile struct {
	Profiles []models.Profile `yaml:"profiles"`
}

// LoadCatalog returns the built-in profiles merged with the YAML file at
// path. An empty path yields the built-ins only.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog(DefaultProfiles...)
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %q: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse profiles %q: %w", path, err)
	}
	for i, p := range f.Profiles {
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profile %d in %q: %w", i+1, path, err)
		}
		c.put(p)
	}
	return c, nil
}

func validateProfile(p models.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := checkRange("target_temperature", p.TargetTemperature, MinTargetTemperature, MaxTargetTemperature); err != nil {
		return err
	}
	if p.DurationDays < 1 {
		return fmt.Errorf("duration_days must be positive, got %d", p.DurationDays)
	}
	return nil
}
