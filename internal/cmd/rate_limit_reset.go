package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/core/store"
	"github.com/stacman/stacman/internal/output"
)

var (
	rateLimitResetAll    bool
	rateLimitResetKey    string
	rateLimitResetPrefix string
	rateLimitResetWindow bool
	rateLimitResetYes    bool
	rateLimitResetDryRun bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored backoffs and the request window",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := targetFor(cmd, "rate-limit.reset")
		if err != nil {
			return err
		}
		if target.format != output.FormatJSON && target.format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", target.format)
		}

		query := store.BackoffQuery{
			All:    rateLimitResetAll,
			Key:    strings.TrimSpace(rateLimitResetKey),
			Prefix: strings.TrimSpace(rateLimitResetPrefix),
		}
		resetWindow := rateLimitResetWindow || query.All
		if !resetWindow {
			if err := query.Validate(); err != nil {
				return err
			}
		}

		if query.All && !rateLimitResetYes && !rateLimitResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		return withStore(cmd, func(_ *config.Config, db *store.Store) error {
			result := resetResult{Window: resetWindow, DryRun: rateLimitResetDryRun}
			if query.Validate() == nil {
				if result.Matched, err = db.CountBackoffs(cmd.Context(), query); err != nil {
					return err
				}
			}
			report := func(w io.Writer) error { return writeRateLimitResetResult(target.format, w, result) }
			if result.DryRun {
				return target.write(report)
			}

			if result.Matched > 0 {
				if result.Deleted, err = db.ResetBackoffs(cmd.Context(), query); err != nil {
					return err
				}
			}
			if resetWindow {
				if err := db.ResetWindow(cmd.Context()); err != nil {
					return err
				}
			}
			return target.write(report)
		})
	},
}

type resetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	Window  bool  `json:"window_reset"`
	DryRun  bool  `json:"dry_run"`
}

func writeRateLimitResetResult(format output.Format, w io.Writer, result resetResult) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	window := ""
	if result.Window {
		window = " and the request window"
	}
	if result.DryRun {
		_, err := fmt.Fprintf(w, "Would delete %d backoff entr(ies)%s\n", result.Matched, window)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d/%d backoff entr(ies)%s\n", result.Deleted, result.Matched, window)
	return err
}

func init() {
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset every backoff and the request window")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetKey, "backoff-key", "", "Reset a single backoff key (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset backoff keys with matching prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetWindow, "window", false, "Reset the persisted request window")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be deleted")
	addOutputFlagsWithFormats(rateLimitResetCmd, "table|json")
}
