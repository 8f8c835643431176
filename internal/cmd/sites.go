package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacman/stacman/api"
	"github.com/stacman/stacman/internal/output"
)

var (
	sitesPage     int
	sitesPageSize int
	sitesFilter   string
	infoFilter    string
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the sites of the network",
	RunE: func(cmd *cobra.Command, args []string) error {
		var page, pageSize *int
		if cmd.Flags().Changed("page") {
			page = api.Int(sitesPage)
		}
		if cmd.Flags().Changed("pagesize") {
			pageSize = api.Int(sitesPageSize)
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort flush

		future, err := api.NewSites(s.client).GetAll(page, pageSize, strings.TrimSpace(sitesFilter))
		if err != nil {
			return err
		}
		envelope, err := await(cmd.Context(), future)
		if err != nil {
			return err
		}
		return writeListing(cmd, "sites", output.SitesListing(envelope))
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show totals and rates for a site",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort flush

		future, err := api.NewInfo(s.client).Get("", strings.TrimSpace(infoFilter))
		if err != nil {
			return err
		}
		envelope, err := await(cmd.Context(), future)
		if err != nil {
			return err
		}
		return writeListing(cmd, "info-"+s.client.Site(), output.InfoListing(envelope))
	},
}

func init() {
	sitesCmd.Flags().IntVar(&sitesPage, "page", 1, "page number (1-based)")
	sitesCmd.Flags().IntVar(&sitesPageSize, "pagesize", 100, "items per page")
	sitesCmd.Flags().StringVar(&sitesFilter, "filter", "", "named response filter")
	addOutputFlags(sitesCmd)
	rootCmd.AddCommand(sitesCmd)

	infoCmd.Flags().StringVar(&infoFilter, "filter", "", "named response filter")
	addOutputFlags(infoCmd)
	rootCmd.AddCommand(infoCmd)
}
