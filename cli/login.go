package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/platkey/platkey/webauthn"
)

var loginCmd = &cobra.Command{
	Use:   "login [options.json]",
	Short: "Run an authentication (assertion) ceremony",
	Long: `Reads assertion options (challenge, rpId, optional allowCredentials)
from the given file or stdin, asks for user consent, and prints the
assertion result as JSON on stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts webauthn.RequestOptions
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

		result, err := app.auth.GetAssertion(ctx, &opts)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
