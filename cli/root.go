// Package cli wires the authenticator's commands: register, login, and
// credential management.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/platkey/platkey/credstore"
	"github.com/platkey/platkey/keystore"
	"github.com/platkey/platkey/localauth"
	"github.com/platkey/platkey/logging"
	"github.com/platkey/platkey/webauthn"
)

var (
	flagDB      string
	flagKeyDir  string
	flagMode    string
	flagTimeout int
	flagDebug   bool
	flagYes     bool
)

var rootCmd = &cobra.Command{
	Use:   "platkey",
	Short: "Platform WebAuthn authenticator",
	Long: `platkey is a platform FIDO2/WebAuthn authenticator. It registers
credentials (attestation) and produces assertions for relying parties,
keeping private keys in a local gated key store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "credential database path (default: PLATKEY_DB)")
	pf.StringVar(&flagKeyDir, "key-dir", "", "key store directory (default: PLATKEY_KEYDIR)")
	pf.StringVar(&flagMode, "mode", "", "verification mode: biometric or passcode")
	pf.IntVar(&flagTimeout, "timeout", 0, "consent prompt timeout in seconds")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	pf.BoolVar(&flagYes, "yes", false, "auto-confirm prompts (testing only)")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if webauthn.IsUserCanceled(err) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the assembled stores and ceremonies for one command
// invocation.
type app struct {
	cfg   *Config
	log   *slog.Logger
	keys  *keystore.Software
	creds credstore.Store
	auth  *webauthn.Authenticator
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagKeyDir != "" {
		cfg.KeyDir = flagKeyDir
	}
	if flagMode != "" {
		cfg.Mode = flagMode
	}
	if flagTimeout > 0 {
		cfg.PromptTimeoutSec = flagTimeout
	}
	if flagDebug {
		cfg.Debug = true
	}

	log := logging.New(cfg.Debug)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	creds, err := credstore.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	keys, err := keystore.NewSoftware(keystore.SoftwareConfig{
		Dir:    cfg.KeyDir,
		Logger: log,
	})
	if err != nil {
		creds.Close()
		return nil, err
	}

	device := deviceFromConfig(cfg)
	kind, err := gateKind(cfg.Mode, device)
	if err != nil {
		creds.Close()
		return nil, err
	}

	var prompter localauth.Prompter
	if flagYes {
		prompter = autoConfirm{}
	} else {
		p, err := localauth.NewTerminalPrompter()
		if err != nil {
			creds.Close()
			return nil, err
		}
		prompter = p
	}
	gate := localauth.NewGate(kind, device, prompter, log)

	return &app{
		cfg:   cfg,
		log:   log,
		keys:  keys,
		creds: creds,
		auth: webauthn.New(webauthn.Config{
			Keys:        keys,
			Credentials: creds,
			Gate:        gate,
			Logger:      log,
		}),
	}, nil
}

func (a *app) close() {
	a.creds.Close()
	a.keys.Close()
}

func (a *app) promptTimeout() time.Duration {
	return time.Duration(a.cfg.PromptTimeoutSec) * time.Second
}

func deviceFromConfig(cfg *Config) localauth.Device {
	return localauth.Device{
		BiometryEnrolled: cfg.BiometryEnrolled,
		PasscodeSet:      cfg.PasscodeSet,
	}
}

func gateKind(mode string, device localauth.Device) (localauth.Kind, error) {
	switch mode {
	case "":
		return localauth.PreferredKind(device)
	case "biometric":
		return localauth.KindBiometric, nil
	case "passcode":
		return localauth.KindDeviceCredential, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want biometric or passcode)", mode)
	}
}

// autoConfirm satisfies every prompt. It exists for scripted tests; the
// --yes flag that enables it is not a security mode.
type autoConfirm struct{}

func (autoConfirm) Prompt(ctx context.Context, kind localauth.Kind, reason string) error {
	return nil
}
