package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rubin.dev/sequencer/config"
	rubincrypto "rubin.dev/sequencer/crypto"
)

func newKeysCommand(loadConfig func(*cobra.Command) (config.Config, error)) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate and wrap sequencer signing keys",
	}
	keysCmd.AddCommand(newKeysGenerateCommand())
	return keysCmd
}

func newKeysGenerateCommand() *cobra.Command {
	var passphrase string
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a 32-byte signing key wrapped under a passphrase-derived key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("rubin-sequencer: --passphrase is required")
			}

			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("rubin-sequencer: generate key: %w", err)
			}

			var provider rubincrypto.CryptoProvider = rubincrypto.DevStdCryptoProvider{}
			digest, err := provider.SHA3_256([]byte(passphrase))
			if err != nil {
				return fmt.Errorf("rubin-sequencer: derive wrapping key: %w", err)
			}
			kek := digest[:]

			wrapped, err := rubincrypto.AESKeyWrapRFC3394(kek, key)
			if err != nil {
				return fmt.Errorf("rubin-sequencer: wrap key: %w", err)
			}

			encoded := hex.EncodeToString(wrapped)
			if out == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), encoded)
				return err
			}
			return os.WriteFile(out, []byte(encoded+"\n"), 0o600)
		},
	}
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase the wrapping key is derived from")
	cmd.Flags().StringVar(&out, "out", "", "file to write the wrapped key to (default: stdout)")
	return cmd
}
