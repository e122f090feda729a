package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/crx-packager/internal/config"
	"github.com/oshokin/crx-packager/internal/logger"
	"github.com/oshokin/crx-packager/internal/version"
)

var errUnknownLogLevel = errors.New("unknown log level")

// newRootCommand builds the command tree of the binary.
func newRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   version.Name,
		Short: "Package and sign browser extensions as .crx files.",
		Long: `Builds a deterministic ZIP archive of an extension directory, signs it with an
RSA key and writes a CRX2 package. Optionally produces the update.xml consumed
by the browser auto-update mechanism and a YAML description of the build.

Settings are read from crx-packager.yaml and can be overridden with flags.
The passphrase of a sealed key file is read from $` + config.PassphraseEnv + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			parsed, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(parsed)
			logger.DebugKV(cmd.Context(), "Logging configured", "level", logger.Level())

			return nil
		},
	}

	rootCmd.PersistentFlags().
		StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newPackCommand(),
		newInitCommand(),
		newKeygenCommand(),
		newInspectCommand(),
	)

	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

// Execute runs the crx-packager CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := newRootCommand().ExecuteContext(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Command failed", "error", err)
	}

	stop()
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}
