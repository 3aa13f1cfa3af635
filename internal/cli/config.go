package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ralt/branchdiff/internal/cache"
	"github.com/ralt/branchdiff/internal/compare"
	"github.com/ralt/branchdiff/internal/fetcher"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding flags, e.g.
// BRANCHDIFF_CACHE_DIR or BRANCHDIFF_STALE_FALLBACK
const EnvPrefix = "BRANCHDIFF"

// AllArches is the --arch value selecting every architecture
const AllArches = "all"

var (
	branchPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)
	archPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

func defaultConfig() models.Config {
	return models.Config{
		KeyMode:     compare.ModeDefault.String(),
		Relation:    compare.GT.String(),
		SymbolField: compare.DefaultSymbolField,
		TTL:         cache.DefaultTTL,
		Compression: string(utils.CodecGzip),
		APIURL:      fetcher.DefaultBaseURL,
		Timeout:     5 * time.Minute,
		Retries:     3,
		OutputPath:  "output.json",
	}
}

// newViper layers environment variables over the given flags
func newViper(flagSets ...*pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, fs := range flagSets {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func loadConfig(cmd *cobra.Command, config *models.Config) error {
	v, err := newViper(cmd.Flags(), cmd.InheritedFlags())
	if err != nil {
		return models.NewError(models.ErrInvalidConfig, "flags", err)
	}

	config.Arch = v.GetString("arch")
	config.KeyMode = v.GetString("key")
	config.Relation = v.GetString("comp")
	config.SymbolField = v.GetString("symbol-field")
	config.CacheDir = v.GetString("cache-dir")
	config.TTL = v.GetDuration("ttl")
	config.Force = v.GetBool("force")
	config.StaleFallback = v.GetBool("stale-fallback")
	config.Compression = v.GetString("compression")
	config.APIURL = v.GetString("api-url")
	config.Timeout = v.GetDuration("timeout")
	config.Retries = v.GetInt("retries")
	config.OutputPath = v.GetString("output")
	config.GPGKeyPath = v.GetString("gpg-key")
	config.GPGPassphrase = v.GetString("gpg-passphrase")

	return nil
}

func invalid(subject string, format string, args ...interface{}) error {
	return models.NewError(models.ErrInvalidConfig, subject, fmt.Errorf(format, args...))
}

// validateConfig checks the configuration, fills in defaults and returns the
// parsed comparison options and cache codec
func validateConfig(config *models.Config) (compare.Options, utils.Codec, error) {
	var opts compare.Options

	for _, branch := range []string{config.FirstBranch, config.SecondBranch} {
		if !branchPattern.MatchString(branch) || strings.Contains(branch, "..") {
			return opts, "", invalid("branch", "invalid branch name %q", branch)
		}
	}

	// "all" selects every architecture, like no filter at all
	if strings.EqualFold(config.Arch, AllArches) {
		config.Arch = ""
	}
	if config.Arch != "" && !archPattern.MatchString(config.Arch) {
		return opts, "", invalid("arch", "invalid architecture %q", config.Arch)
	}

	mode, err := compare.ParseMode(config.KeyMode)
	if err != nil {
		return opts, "", models.NewError(models.ErrInvalidConfig, "key", err)
	}
	relation, err := compare.ParseRelation(config.Relation)
	if err != nil {
		return opts, "", models.NewError(models.ErrInvalidConfig, "comp", err)
	}
	opts = compare.Options{Mode: mode, Relation: relation, SymbolField: config.SymbolField}
	if opts.SymbolField == "" {
		opts.SymbolField = compare.DefaultSymbolField
	}

	codec, err := utils.ParseCodec(config.Compression)
	if err != nil {
		return opts, "", models.NewError(models.ErrInvalidConfig, "compression", err)
	}

	if config.TTL <= 0 {
		return opts, "", invalid("ttl", "ttl must be positive, got %s", config.TTL)
	}
	if config.Timeout <= 0 {
		return opts, "", invalid("timeout", "timeout must be positive, got %s", config.Timeout)
	}
	if config.Retries < 0 {
		return opts, "", invalid("retries", "retries must not be negative, got %d", config.Retries)
	}

	if config.OutputPath == "" {
		return opts, "", invalid("output", "output is required")
	}
	if config.GPGPassphrase != "" && config.GPGKeyPath == "" {
		return opts, "", invalid("gpg-key", "gpg-passphrase given without gpg-key")
	}

	if config.CacheDir == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			return opts, "", models.NewError(models.ErrInvalidConfig, "cache-dir", err)
		}
		config.CacheDir = dir
	}

	return opts, codec, nil
}
