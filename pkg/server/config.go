package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/crypto"
	"github.com/NicolasHaas/quizline/pkg/logging"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

// Config holds server configuration. Zero durations and counts are replaced
// by DefaultConfig values when loaded from YAML.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`  // TCP bind address for game clients
	WSAddr      string `yaml:"ws_addr"`      // WebSocket bind address (empty = disabled)
	WSPath      string `yaml:"ws_path"`      // upgrade path on WSAddr
	MetricsAddr string `yaml:"metrics_addr"` // HTTP bind address for /metrics (empty = disabled)

	Passphrase  string `yaml:"passphrase"`   // pre-shared secret for the line cipher
	CipherSuite string `yaml:"cipher_suite"` // "aes-cbc" or "xchacha20poly1305"

	MinPlayers   int `yaml:"min_players"`
	MaxPlayers   int `yaml:"max_players"`
	AttemptCap   int `yaml:"attempt_cap"`
	MinQuestions int `yaml:"min_questions"`

	ContentURL    string `yaml:"content_url"`    // content store base URL
	QuestionsFile string `yaml:"questions_file"` // YAML question bank used instead of ContentURL

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"` // per-line write deadline on TCP connections
	PollInterval     time.Duration `yaml:"poll_interval"`
	MaxBadFrames     int           `yaml:"max_bad_frames"` // consecutive undecodable lines before disconnect

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:       ":13000",
		WSPath:           "/play",
		MetricsAddr:      ":13002",
		Passphrase:       crypto.DefaultPassphrase,
		CipherSuite:      crypto.SuiteAESCBC.String(),
		MinPlayers:       1,
		MaxPlayers:       6,
		AttemptCap:       12,
		MinQuestions:     25,
		ContentURL:       "http://localhost:5000",
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     transport.DefaultWriteTimeout,
		PollInterval:     time.Second,
		MaxBadFrames:     3,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" && c.WSAddr == "" {
		errs = append(errs, errors.New("listen_addr or ws_addr is required"))
	}
	if c.Passphrase == "" {
		errs = append(errs, errors.New("passphrase must not be empty"))
	}
	if _, err := crypto.ParseSuite(c.CipherSuite); err != nil {
		errs = append(errs, err)
	}
	if c.ContentURL == "" && c.QuestionsFile == "" {
		errs = append(errs, errors.New("content_url or questions_file is required"))
	}
	if c.MinPlayers < 1 {
		errs = append(errs, fmt.Errorf("min_players must be at least 1, got %d", c.MinPlayers))
	}
	if c.MaxPlayers < c.MinPlayers {
		errs = append(errs, fmt.Errorf("max_players (%d) must not be below min_players (%d)", c.MaxPlayers, c.MinPlayers))
	}
	if c.AttemptCap < 1 {
		errs = append(errs, fmt.Errorf("attempt_cap must be positive, got %d", c.AttemptCap))
	}
	if c.MinQuestions < 1 {
		errs = append(errs, fmt.Errorf("min_questions must be positive, got %d", c.MinQuestions))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake_timeout must be positive"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("write_timeout must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.MaxBadFrames < 1 {
		errs = append(errs, fmt.Errorf("max_bad_frames must be at least 1, got %d", c.MaxBadFrames))
	}
	if err := logging.Validate(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// gameConfig extracts the per-game settings.
func (c Config) gameConfig() GameConfig {
	return GameConfig{
		MinPlayers:   c.MinPlayers,
		MaxPlayers:   c.MaxPlayers,
		AttemptCap:   c.AttemptCap,
		PollInterval: c.PollInterval,
	}
}

// BuiltinContent as ContentURL plays the embedded question bank.
const BuiltinContent = "builtin"

// ContentSource picks where questions come from: QuestionsFile wins over
// ContentURL.
func (c Config) ContentSource() content.Source {
	switch {
	case c.QuestionsFile != "":
		return content.FileSource{Path: c.QuestionsFile}
	case c.ContentURL == BuiltinContent:
		return content.StaticSource{List: content.DefaultQuestions()}
	default:
		return content.NewHTTPSource(c.ContentURL)
	}
}
