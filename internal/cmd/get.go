package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/api"
	"github.com/stacman/stacman/internal/output"
)

var (
	getParams     []string
	getBackoffKey string
)

var getCmd = &cobra.Command{
	Use:   "get <method>",
	Short: "Call any API method and print the raw items",
	Long: `Call an arbitrary API method, e.g. "tags/go/info" or "posts/1;2/comments".

The site parameter is added for site scoped methods unless --param site=...
is given. Requests are throttled under a backoff key derived from the method
path with id lists replaced by {ids}; use --backoff-key to choose another.`,
	Example: `  stacman get tags/go/synonyms --param pagesize=5
  stacman get posts/1;2/comments --param sort=votes --output-format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(getParams)
		if err != nil {
			return err
		}
		method := strings.Trim(args[0], "/")
		if err := api.ValidateString(method, "method"); err != nil {
			return err
		}

		backoffKey := strings.TrimSpace(getBackoffKey)
		if backoffKey == "" {
			backoffKey = api.BackoffKeyFor(method)
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort flush

		target := api.Raw(s.client, method, params).String()
		envelope, err := stacman.Fetch[json.RawMessage](cmd.Context(), s.client, target, backoffKey)
		if err != nil {
			return err
		}
		return writeListing(cmd, method, output.RawListing(method, envelope))
	},
}

// parseParams turns repeated name=value flags into query values. Repeating a
// name appends, and the builder later joins the values with ";".
func parseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: expected name=value", pair)
		}
		params.Add(name, strings.TrimSpace(value))
	}
	return params, nil
}

func init() {
	getCmd.Flags().StringArrayVar(&getParams, "param", nil, "query parameter as name=value (repeatable)")
	getCmd.Flags().StringVar(&getBackoffKey, "backoff-key", "", "backoff key to throttle under")
	addOutputFlags(getCmd)
	rootCmd.AddCommand(getCmd)
}
