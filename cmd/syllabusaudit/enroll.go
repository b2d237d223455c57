package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"syllabus-audit/internal/credential"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Store the Canvas API URL and key",
	Long: `enroll writes the credential file read by every other command. Running it
again replaces the stored key. The key stops working on its expiration date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		key, _ := cmd.Flags().GetString("key")
		user, _ := cmd.Flags().GetString("user")
		expires, _ := cmd.Flags().GetString("expires")
		if url == "" || key == "" || expires == "" {
			return errors.New("enroll: --url, --key and --expires are required")
		}

		cred := credential.New(url, key, user, expires)
		if _, err := cred.ExpiresAt(); err != nil {
			return fmt.Errorf("enroll: %w", err)
		}
		if err := credential.Save(cfg.CredentialPath, cred); err != nil {
			return err
		}
		if _, err := cred.Key(); errors.Is(err, credential.ErrExpiredCredential) {
			logger.Warn().Str("expires", expires).Msg("stored key is already expired")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "credential saved to %s\n", cfg.CredentialPath)
		return nil
	},
}

func init() {
	enrollCmd.Flags().String("url", "", "Canvas base URL, e.g. https://school.instructure.com/api/v1")
	enrollCmd.Flags().String("key", "", "Canvas API access token")
	enrollCmd.Flags().String("user", "", "email of the key owner")
	enrollCmd.Flags().String("expires", "", "key expiration date (e.g. 2026-06-30)")

	rootCmd.AddCommand(enrollCmd)
}
