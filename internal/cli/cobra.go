package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmistrz/ipu6-camera-hal/internal/config"
	"github.com/marmistrz/ipu6-camera-hal/internal/storage"
)

// Version is stamped at build time.
var Version = "0.1.0-dev"

// NewRootCmd creates the root Cobra command
func NewRootCmd(cfg *config.Config, log *slog.Logger, store *storage.Store) *cobra.Command {
	root := NewRoot(cfg, log, store)

	rootCmd := &cobra.Command{
		Use:   "hal3a",
		Short: "hal3a translates camera capture requests into 3A engine parameters",
		Long: `hal3a turns per-frame capture-control requests into the AE, AF and AWB
parameter blocks of the 3A engine, and rewrites engine results when manual
white-balance or color overrides are active.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newReplayCmd(root))
	rootCmd.AddCommand(newServeCmd(root))
	rootCmd.AddCommand(newSessionsCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newSessionsCmd(root *Root) *cobra.Command {
	var (
		limit  int
		frames string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded translation sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if frames != "" {
				recs, err := root.store.SessionFrames(frames)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				for _, rec := range recs {
					if err := enc.Encode(rec); err != nil {
						return err
					}
				}
				return nil
			}

			recs, err := root.store.RecentSessions(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSOURCE\tSTARTED\tFRAMES")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", rec.ID, rec.Source, rec.StartedAt.Format(time.RFC3339), rec.FrameCount)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to list")
	cmd.Flags().StringVar(&frames, "frames", "", "print the frames of this session as JSON lines")
	return cmd
}

func newConfigCmd(root *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		// Overrides the root hook so a broken config can still be shown
		// and validated.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfgPath := os.Getenv("HAL3A_CONFIG")
			if cfgPath == "" {
				cfgPath = "(default) ~/.config/hal3a/config.json"
			}
			fmt.Fprintf(out, "# config file: %s\n", cfgPath)
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(root.cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hal3a %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with Go %s\n", runtime.Version())
		},
	}
}
