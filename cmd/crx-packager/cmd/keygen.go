package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/crx-packager/internal/config"
	"github.com/oshokin/crx-packager/internal/service/keygen"
)

func newKeygenCommand() *cobra.Command {
	var options keygen.Options

	keygenCmd := &cobra.Command{
		Use:   "keygen [key-file]",
		Short: "Generate a signing key and print the extension id.",
		Long: `Generates an RSA key and writes it as PKCS#8 PEM. When $` + config.PassphraseEnv + `
is set, the file is sealed with that passphrase.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Output = args[0]
			options.Passphrase = os.Getenv(config.PassphraseEnv)

			result, err := keygen.Run(cmd.Context(), &options)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.AppID)

			return err
		},
	}

	keygenCmd.Flags().IntVarP(&options.Bits, "bits", "b", config.DefaultKeyBits, "RSA key size")
	keygenCmd.Flags().BoolVarP(&options.Force, "force", "f", false, "overwrite an existing key file")

	return keygenCmd
}
