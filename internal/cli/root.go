package cli

import (
	"github.com/ralt/branchdiff/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var config = defaultConfig()

	rootCmd := &cobra.Command{
		Use:   "branchdiff <branch1> <branch2>",
		Short: "Compare binary packages of two ALT Linux branches",
		Long: `Branchdiff downloads the binary package lists of two ALT Linux branches,
compares them per architecture and writes a JSON report with:
  - packages present only in the second branch
  - packages present only in the first branch
  - packages whose version in the first branch is newer than in the second

Package lists are cached for an hour; use --force to refresh them.

Example:  branchdiff sisyphus p11`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &config); err != nil {
				return err
			}
			config.FirstBranch = args[0]
			config.SecondBranch = args[1]

			// Validate configuration
			opts, codec, err := validateConfig(&config)
			if err != nil {
				return err
			}

			logrus.Debugf("Configuration: %+v", redacted(config))

			return runCompare(cmd.Context(), &config, opts, codec)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("cache-dir", "", "Cache directory (default $HOME/.sisyphus)")
	rootCmd.PersistentFlags().Duration("ttl", config.TTL, "How long cached package lists stay valid")

	// Comparison flags
	rootCmd.Flags().BoolP("force", "f", false, "Force refresh of cached branch data")
	rootCmd.Flags().StringP("arch", "a", AllArches, "Only one architecture, e.g. --arch aarch64")
	rootCmd.Flags().StringP("comp", "c", config.Relation, "How versions of the same package are compared: gt, lt, eq, ge, le, ne")
	rootCmd.Flags().String("key", config.KeyMode, "Identity key packages are matched on: name or symbol")
	rootCmd.Flags().String("symbol-field", config.SymbolField, "Package field holding the needed symbol for --key symbol")
	rootCmd.Flags().StringP("output", "o", config.OutputPath, "Report file")

	// Cache behaviour
	rootCmd.Flags().Bool("stale-fallback", false, "Use an expired cache entry when the download fails")
	rootCmd.Flags().String("compression", config.Compression, "Cache compression: gzip, xz, zstd, none")

	// Remote
	rootCmd.Flags().String("api-url", config.APIURL, "Package database API base URL")
	rootCmd.Flags().Duration("timeout", config.Timeout, "Timeout of one download attempt")
	rootCmd.Flags().Int("retries", config.Retries, "Retries of a failed download")

	// Signing
	rootCmd.Flags().StringP("gpg-key", "k", "", "Path to GPG private key used to sign the report")
	rootCmd.Flags().StringP("gpg-passphrase", "p", "", "GPG key passphrase")

	// Add subcommands
	rootCmd.AddCommand(NewCacheCmd())

	return rootCmd
}

// redacted hides secrets before a config is logged
func redacted(c models.Config) models.Config {
	if c.GPGPassphrase != "" {
		c.GPGPassphrase = "***"
	}
	return c
}
