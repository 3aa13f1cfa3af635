package cli

import (
	"context"

	"github.com/ralt/branchdiff/internal/cache"
	"github.com/ralt/branchdiff/internal/compare"
	"github.com/ralt/branchdiff/internal/fetcher"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/runner"
	"github.com/ralt/branchdiff/internal/signer"
	"github.com/ralt/branchdiff/internal/utils"
	"github.com/sirupsen/logrus"
)

func runCompare(ctx context.Context, config *models.Config, opts compare.Options, codec utils.Codec) error {
	r := &runner.Runner{}

	// Load the key before any download so a bad key fails early
	if config.GPGKeyPath != "" {
		logrus.Debugf("Loading GPG key: %s", config.GPGKeyPath)
		s, err := signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return models.NewError(models.ErrSigning, config.GPGKeyPath, err)
		}
		logrus.Infof("Reports will be signed with key %s", s.KeyID())
		r.Signer = s
	}

	if err := utils.EnsureDir(config.CacheDir); err != nil {
		return models.NewError(models.ErrFileOp, config.CacheDir, err)
	}

	f := fetcher.NewHTTPFetcher(config.APIURL, config.Timeout, config.Retries)
	r.Store = cache.NewDiskStore(f, cache.Options{
		Dir:           config.CacheDir,
		TTL:           config.TTL,
		Codec:         codec,
		StaleFallback: config.StaleFallback,
	})

	logrus.Infof("Comparing branches %s and %s", config.FirstBranch, config.SecondBranch)
	if config.Force {
		logrus.Info("Forcing refresh of cached branch data")
	}

	_, err := r.Run(ctx, config, opts)
	return err
}
