package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platkey/platkey/cose"
	"github.com/platkey/platkey/webauthn"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show authenticator capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		kind, err := gateKind(app.cfg.Mode, deviceFromConfig(app.cfg))
		if err != nil {
			return err
		}
		fmt.Printf("AAGUID:        %x\n", webauthn.AAGUID())
		fmt.Printf("Attachment:    platform\n")
		fmt.Printf("Algorithms:    ES256 (%d)\n", cose.AlgES256)
		fmt.Printf("Attestation:   %s\n", cose.FormatNone)
		fmt.Printf("Verification:  %s\n", kind)
		fmt.Printf("Database:      %s\n", app.cfg.DBPath)
		fmt.Printf("Key directory: %s\n", app.cfg.KeyDir)

		sources, err := app.creds.LoadAll(cmd.Context(), "")
		if err != nil {
			return err
		}
		fmt.Printf("Credentials:   %d\n", len(sources))
		for _, src := range sources {
			fmt.Printf("  %s  %s (%s)\n",
				base64.RawURLEncoding.EncodeToString(src.ID), src.RPID, src.UserName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
