package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
)

// profileKeys are the settings a profile may carry.
//
//nolint:gochecknoglobals
var profileKeys = []string{"protocol", "mode", "key-length", "padding", "tag-length", "kdf"}

// LoadProfiles reads a JSONC file mapping profile names to parameter settings, e.g.
//
//	{
//	  // long term archives
//	  "archive": {"protocol": "AES", "mode": "GCM", "kdf": "Argon2id"},
//	}
func LoadProfiles(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from user-supplied config
	if err != nil {
		return nil, fmt.Errorf("reading profiles file %q: %w", path, err)
	}

	clean := jsonc.ToJSONInPlace(data)

	var profiles map[string]map[string]any
	if err := json.Unmarshal(clean, &profiles); err != nil {
		return nil, fmt.Errorf("parsing profiles file %q: %w", path, err)
	}

	for name, settings := range profiles {
		for key := range settings {
			if !slices.Contains(profileKeys, key) {
				return nil, fmt.Errorf("%w: profile %q: unknown setting %q (valid: %s)",
					ErrInvalidConfig, name, key, strings.Join(profileKeys, ", "))
			}
		}
	}

	return profiles, nil
}

// LoadProfile returns the settings of one profile, keyed like the flags.
func LoadProfile(path, name string) (map[string]any, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return nil, err
	}

	settings, ok := profiles[name]
	if !ok {
		names := slices.Sorted(maps.Keys(profiles))

		return nil, fmt.Errorf("%w: profile %q not found in %q (available: %s)",
			ErrInvalidConfig, name, path, strings.Join(names, ", "))
	}

	return settings, nil
}
