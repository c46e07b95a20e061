package cmd

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auction-crawler",
		Short: "Real-estate auction search for Central Sul Leilões",
		Long: `auction-crawler searches centralsuldeleiloes.com.br for property auctions,
filters them against the query location and returns a deduplicated JSON list.

It can also ask an LLM to generate listings instead of scraping, and serve
both modes over HTTP.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
