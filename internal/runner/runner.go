// Package runner wires the cache, the comparison engine and the report
// into one comparison run.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ralt/branchdiff/internal/cache"
	"github.com/ralt/branchdiff/internal/compare"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/ralt/branchdiff/internal/report"
	"github.com/ralt/branchdiff/internal/signer"
	"github.com/ralt/branchdiff/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner compares two branches and writes the report
type Runner struct {
	Store cache.Store
	// Signer signs the written report, nil for unsigned output
	Signer signer.Signer
}

// Run loads both branches, diffs them and writes the report to
// cfg.OutputPath. Skipped package pairs are logged and do not fail the run.
func (r *Runner) Run(ctx context.Context, cfg *models.Config, opts compare.Options) (report.Report, error) {
	var first, second *models.Snapshot

	// The two branches live under distinct cache keys
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		first, err = r.Store.Get(gctx, cfg.FirstBranch, cfg.Arch, cfg.Force)
		return err
	})
	g.Go(func() error {
		var err error
		second, err = r.Store.Get(gctx, cfg.SecondBranch, cfg.Arch, cfg.Force)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cfg.Arch != "" {
		first = first.Filter(cfg.Arch)
		second = second.Filter(cfg.Arch)
	}

	logrus.Infof("Comparing %s (%d packages) with %s (%d packages)",
		cfg.FirstBranch, first.Count(), cfg.SecondBranch, second.Count())
	logrus.Debugf("Comparison key %s, relation %s", opts.Mode, opts.Relation)

	start := time.Now()
	diffs := compare.Diff(first, second, opts)

	var skipped *multierror.Error
	for _, arch := range sortedArches(diffs) {
		skipped = multierror.Append(skipped, diffs[arch].Skipped...)
	}
	if err := skipped.ErrorOrNil(); err != nil {
		logrus.Warnf("Skipped %d package pairs with malformed versions", len(skipped.Errors))
		logrus.Debug(err)
	}

	rep := report.Build(diffs)
	for _, line := range rep.Summary() {
		logrus.Info(line)
	}

	data, err := report.Write(cfg.OutputPath, rep)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Result written to %s, took %s", cfg.OutputPath, time.Since(start).Round(time.Millisecond))

	if r.Signer != nil {
		if err := r.sign(cfg.OutputPath, data); err != nil {
			return nil, err
		}
	}

	return rep, nil
}

func (r *Runner) sign(path string, data []byte) error {
	sig, err := r.Signer.SignReport(filepath.Base(path), data)
	if err != nil {
		return models.NewError(models.ErrSigning, path, err)
	}
	sigPath := path + ".asc"
	if err := utils.WriteFile(sigPath, sig, 0644); err != nil {
		return models.NewError(models.ErrFileOp, sigPath, fmt.Errorf("failed to write signature: %w", err))
	}
	logrus.Infof("Signature by key %s written to %s", r.Signer.KeyID(), sigPath)

	// Public key for verifying the signature
	pub, err := r.Signer.PublicKey()
	if err != nil {
		return models.NewError(models.ErrSigning, path, err)
	}
	keyPath := path + ".pub"
	if err := utils.WriteFile(keyPath, pub, 0644); err != nil {
		return models.NewError(models.ErrFileOp, keyPath, fmt.Errorf("failed to write public key: %w", err))
	}
	return nil
}

func sortedArches(diffs map[string]*compare.Result) []string {
	arches := make([]string, 0, len(diffs))
	for arch := range diffs {
		arches = append(arches, arch)
	}
	sort.Strings(arches)
	return arches
}
