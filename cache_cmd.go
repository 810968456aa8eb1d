package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/txtparrot/parrot/internal/cache"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the audio cache",
		Args:  cobra.NoArgs,
		RunE:  cacheStats,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show audio cache usage",
		Args:  cobra.NoArgs,
		RunE:  cacheStats,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := cache.NewManager(settings.CacheConfig())
			if err != nil {
				return err
			}
			defer m.Close() //nolint:errcheck

			before := m.Stats().Disk
			if err := m.Clear(); err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d entries (%s) from %s\n",
				keyword("✓"), before.Items, humanize.IBytes(uint64(max(before.Size, 0))), m.Dir())
			return nil
		},
	}
)

func cacheStats(cmd *cobra.Command, _ []string) error {
	cfg := settings.CacheConfig()
	cfg.CleanupInterval = 0
	m, err := cache.NewManager(cfg)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck

	s := m.Stats()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", keyword("directory"), m.Dir())
	fmt.Fprintf(w, "%s %s\n", keyword("disk     "), s.Disk)
	if cfg.TTL > 0 {
		fmt.Fprintf(w, "%s entries expire after %d days\n", keyword("ttl      "), int(cfg.TTL.Hours()/24))
	}
	if !settings.Cache.Enabled {
		fmt.Fprintln(w, subtle("caching is disabled"))
	}
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
