package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/store"
	"github.com/stacman/stacman/internal/output"
)

var rateLimitListPrefix string

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backoffs",
	Long:  "List stored backoffs, all of them unless --prefix narrows the keys.",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := store.BackoffQuery{Prefix: strings.TrimSpace(rateLimitListPrefix)}
		query.All = query.Prefix == ""

		return withStore(cmd, func(_ *config.Config, db *store.Store) error {
			records, err := db.ListBackoffs(cmd.Context(), query)
			if err != nil {
				return err
			}
			return writeListing(cmd, "rate-limit.list", output.BackoffsListing(records, time.Now().UTC()))
		})
	},
}

// windowSummary is the boxed text printed by rate-limit status. A window
// older than the configured length counts as unused.
func windowSummary(cfg config.ThrottleConfig, state *core.ThrottleState, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Throttle Window\n\nlimit:   %d per %s\n", cfg.Limit, cfg.Window)
	if state == nil || state.WindowStart.IsZero() {
		b.WriteString("window:  (nothing persisted)")
		return b.String()
	}
	used := state.RequestCount
	if now.Sub(state.WindowStart) > cfg.Window {
		used = 0
	}
	fmt.Fprintf(&b, "started: %s\nused:    %d\nbackoff: %d key(s)",
		state.WindowStart.UTC().Format(time.RFC3339), used, len(state.Backoffs))
	return b.String()
}

var rateLimitStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted request window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(cfg *config.Config, db *store.Store) error {
			state, err := db.LoadThrottleState(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(windowSummary(cfg.Throttle, state, time.Now()), 0))
			return err
		})
	},
}

func init() {
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List backoff keys with matching prefix")
	addOutputFlags(rateLimitListCmd)
}
