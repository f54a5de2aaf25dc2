package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/platkey/platkey/webauthn"
)

var registerCmd = &cobra.Command{
	Use:   "register [options.json]",
	Short: "Run a registration (attestation) ceremony",
	Long: `Reads attestation options (challenge, rp, user, pubKeyCredParams)
from the given file or stdin, asks for user consent, and prints the
attestation result as JSON on stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts webauthn.CreationOptions
		if err := readOptions(args, &opts); err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), app.promptTimeout())
		defer cancel()

		result, err := app.auth.MakeCredential(ctx, &opts)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func readOptions(args []string, v any) error {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open options: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("parse options: %w", err)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
