package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/crx-packager/internal/config"
	"github.com/oshokin/crx-packager/internal/service/packager"
)

// settingsFlags binds the settings shared by pack and init to flags.
func settingsFlags(flags *pflag.FlagSet, overrides *config.Config) {
	flags.StringVarP(&overrides.RootDirectory, "root", "r", "", "extension source directory")
	flags.StringVarP(&overrides.PrivateKeyFile, "key", "k", "", "private key file (PEM or DER, optionally sealed)")
	flags.BoolVar(&overrides.GenerateKey, "generate-key", false, "generate a key when none is available")
	flags.IntVar(&overrides.KeyBits, "key-bits", 0, "size of generated keys")
	flags.StringVarP(&overrides.Output, "output", "o", "", "path of the produced .crx file")
	flags.StringVar(&overrides.UpdateXML, "update-xml", "", "path of the produced update.xml")
	flags.StringVar(&overrides.Description, "description", "", "path of the produced build description")
	flags.StringVar(&overrides.Codebase, "codebase", "", "URL the .crx file is served from")
	flags.StringVar(&overrides.Version, "extension-version", "", "version advertised in update.xml")
}

func newPackCommand() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack and sign an extension directory.",
		Long: `Reads the extension directory, writes the signed .crx file and, when configured,
update.xml and the build description.

Flags override values from the settings file. A missing settings file is not an
error as long as the flags provide everything required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides.KeyPassphrase = os.Getenv(config.PassphraseEnv)

			options := &packager.Options{
				ConfigPath: configPath,
				Overrides:  &overrides,
			}

			return packager.Run(cmd.Context(), options)
		},
	}

	packCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	settingsFlags(packCmd.Flags(), &overrides)

	return packCmd
}

func newInitCommand() *cobra.Command {
	var (
		configPath string
		force      bool
		overrides  config.Config
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file from flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := &packager.Options{
				ConfigPath: configPath,
				Overrides:  &overrides,
				Force:      force,
			}

			return packager.Init(cmd.Context(), options)
		},
	}

	initCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing settings file")
	settingsFlags(initCmd.Flags(), &overrides)

	return initCmd
}
