package client

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/quizline/pkg/crypto"
)

// Settings remembers the last connection of the console client, persisted
// as YAML next to the binary.
type Settings struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Cipher   string `yaml:"cipher"`
}

// DefaultSettings returns default settings.
func DefaultSettings() *Settings {
	return &Settings{
		Addr:   "localhost:13000",
		Cipher: crypto.SuiteAESCBC.String(),
	}
}

// SettingsPath is the default settings file location.
func SettingsPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "quizline-client.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "quizline-client.yaml")
}

// LoadSettings loads settings from path or returns defaults. Missing keys
// keep their defaults.
func LoadSettings(path string) *Settings {
	s := DefaultSettings()
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return s
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		slog.Error("parse settings", "path", path, "err", err)
		return DefaultSettings()
	}
	return s
}

// Save writes settings to path.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
