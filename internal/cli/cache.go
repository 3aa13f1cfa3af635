package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ralt/branchdiff/internal/cache"
	"github.com/ralt/branchdiff/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command and its subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clean the package list cache",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCachePurgeCmd())

	return cmd
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached branch package lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, ttl, err := cacheSettings(cmd)
			if err != nil {
				return err
			}

			infos, err := cache.List(cmd.Context(), dir)
			if err != nil {
				return models.NewError(models.ErrFileOp, dir, err)
			}

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintf(out, "No cache entries in %s\n", dir)
				return nil
			}

			now := time.Now()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BRANCH\tARCH\tFETCHED\tSIZE\tSTATE\tFILE")
			for _, info := range infos {
				file := filepath.Base(info.Path)
				if info.Err != nil {
					fmt.Fprintf(w, "-\t-\t-\t%s\tcorrupt\t%s\n", humanize.Bytes(uint64(info.Size)), file)
					logrus.Debugf("%s: %v", info.Path, info.Err)
					continue
				}
				arch := info.Arch
				if arch == "" {
					arch = "all"
				}
				state := "fresh"
				if info.Stale(now, ttl) {
					state = "stale"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					info.Branch, arch, humanize.Time(info.FetchedAt),
					humanize.Bytes(uint64(info.Size)), state, file)
			}
			return w.Flush()
		},
	}
}

func newCachePurgeCmd() *cobra.Command {
	var olderThan time.Duration
	var all bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove expired and corrupt cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, ttl, err := cacheSettings(cmd)
			if err != nil {
				return err
			}

			maxAge := ttl
			if cmd.Flags().Changed("older-than") {
				maxAge = olderThan
			}
			if all {
				maxAge = 0
			}

			removed, err := cache.Purge(cmd.Context(), dir, maxAge, time.Now())
			for _, path := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
			}
			if err != nil {
				return models.NewError(models.ErrFileOp, dir, err)
			}
			logrus.Infof("Removed %d cache files from %s", len(removed), dir)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", cache.DefaultTTL, "Remove entries fetched longer ago than this (default: --ttl)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every entry")

	return cmd
}

// cacheSettings resolves the cache directory and TTL shared with the compare
// command
func cacheSettings(cmd *cobra.Command) (string, time.Duration, error) {
	v, err := newViper(cmd.Flags(), cmd.InheritedFlags())
	if err != nil {
		return "", 0, models.NewError(models.ErrInvalidConfig, "flags", err)
	}

	ttl := v.GetDuration("ttl")
	if ttl <= 0 {
		return "", 0, invalid("ttl", "ttl must be positive, got %s", ttl)
	}

	dir := v.GetString("cache-dir")
	if dir == "" {
		dir, err = cache.DefaultDir()
		if err != nil {
			return "", 0, models.NewError(models.ErrInvalidConfig, "cache-dir", err)
		}
	}
	return dir, ttl, nil
}
