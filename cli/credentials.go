package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/platkey/platkey/credstore"
	"github.com/platkey/platkey/keystore"
	"github.com/platkey/platkey/webauthn"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored credentials",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list [rpId]",
	Short: "List stored credentials, optionally filtered by relying party",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		rpID := ""
		if len(args) == 1 {
			rpID = args[0]
		}
		sources, err := app.creds.LoadAll(cmd.Context(), rpID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREDENTIAL ID\tRP\tUSER\tCOUNTER\tCREATED")
		for _, src := range sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				base64.RawURLEncoding.EncodeToString(src.ID),
				src.RPID, src.UserName, src.SignatureCounter,
				src.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <credentialId>",
	Short: "Delete one credential and its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := base64.RawURLEncoding.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("invalid credential id: %w", err)
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		src, err := app.creds.Load(cmd.Context(), id)
		if err != nil {
			return err
		}
		// Metadata row first: a dangling key is cheaper to clean up than
		// a credential whose key is gone.
		if err := app.creds.Delete(cmd.Context(), id); err != nil {
			return err
		}
		if err := app.keys.Delete(src.KeyLabel); err != nil {
			return fmt.Errorf("credential removed but key delete failed: %w", err)
		}
		fmt.Printf("Deleted credential %s for %s\n", args[0], src.RPID)
		return nil
	},
}

var credentialsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every credential minted by this authenticator",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		n, err := purgeByAAGUID(cmd.Context(), app.creds, app.keys, webauthn.AAGUID())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d credential(s)\n", n)
		return nil
	},
}

// purgeByAAGUID bulk-deletes the credentials minted under aaguid together
// with their paired keys. Rows minted under any other aaguid keep both
// their metadata and their key.
func purgeByAAGUID(ctx context.Context, creds credstore.Store, keys keystore.KeyStore, aaguid []byte) (int, error) {
	sources, err := creds.LoadAll(ctx, "")
	if err != nil {
		return 0, err
	}
	if err := creds.DeleteAll(ctx, aaguid); err != nil {
		return 0, err
	}
	n := 0
	for _, src := range sources {
		if !bytes.Equal(src.AAGUID, aaguid) {
			continue
		}
		if err := keys.Delete(src.KeyLabel); err != nil {
			return n, fmt.Errorf("key delete failed for %s: %w", src.KeyLabel, err)
		}
		n++
	}
	return n, nil
}

func init() {
	credentialsCmd.AddCommand(credentialsListCmd, credentialsDeleteCmd, credentialsPurgeCmd)
	rootCmd.AddCommand(credentialsCmd)
}
