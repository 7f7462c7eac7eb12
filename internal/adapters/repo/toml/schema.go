package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID          string `toml:"id"`
	Network     string `toml:"network"`
	DisplayName string `toml:"display_name"`
	Handle      string `toml:"handle"`
	Server      string `toml:"server,omitempty"`
	Default     bool   `toml:"default"`
	AvatarURL   string `toml:"avatar_url,omitempty"`
	CreatedAt   string `toml:"created_at"`
	LastUsedAt  string `toml:"last_used_at,omitempty"`
}
