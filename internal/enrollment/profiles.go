// internal/enrollment/profiles.go
package enrollment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a self-service enrollment profile: which provider-side profile
// issues the ticket and how the resulting connection is seeded.
type Profile struct {
	ID                    string `yaml:"id"`
	DisplayName           string `yaml:"display_name"`
	ConnectionName        string `yaml:"connection_name"`
	ConnectionDisplayName string `yaml:"connection_display_name"`
	Default               bool   `yaml:"default,omitempty"`
}

// LoadProfiles reads the YAML profile registry at path.
func LoadProfiles(path string) ([]Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("profile registry %s: %w", path, err)
	}
	for i, p := range doc.Profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("profile registry %s: entry %d has no id", path, i)
		}
	}
	return doc.Profiles, nil
}

// DefaultProfile picks the registry's default entry (first marked default,
// else first entry). With no registry configured the fixed fallback id is
// used with generic connection seeds.
func DefaultProfile(profiles []Profile, fallbackID string) Profile {
	for _, p := range profiles {
		if p.Default {
			return p
		}
	}
	if len(profiles) > 0 {
		return profiles[0]
	}
	return Profile{
		ID:                    fallbackID,
		ConnectionName:        "self-service-connection",
		ConnectionDisplayName: "Self-Service Connection",
	}
}
