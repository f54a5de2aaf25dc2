package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config carries the process-level settings. Environment variables are
// the base layer; command-line flags override them.
type Config struct {
	// DBPath is the credential metadata database. Empty means
	// $XDG_DATA_HOME-style default under the user home.
	DBPath string `env:"PLATKEY_DB"`

	// KeyDir holds the software key store's PEM files.
	KeyDir string `env:"PLATKEY_KEYDIR"`

	// Mode selects the authentication gate: "biometric" or "passcode".
	// Empty picks the best available.
	Mode string `env:"PLATKEY_MODE"`

	// PromptTimeoutSec bounds how long a consent prompt may wait.
	PromptTimeoutSec int `env:"PLATKEY_PROMPT_TIMEOUT" envDefault:"60"`

	Debug bool `env:"PLATKEY_DEBUG"`

	// BiometryEnrolled declares whether the device has a usable
	// biometric class. Stand-ins for a platform capability probe.
	BiometryEnrolled bool `env:"PLATKEY_BIOMETRY" envDefault:"true"`
	PasscodeSet      bool `env:"PLATKEY_PASSCODE" envDefault:"true"`
}

func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DBPath == "" || cfg.KeyDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		base := filepath.Join(home, ".local", "share", "platkey")
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(base, "credentials.db")
		}
		if cfg.KeyDir == "" {
			cfg.KeyDir = filepath.Join(base, "keys")
		}
	}
	return cfg, nil
}
