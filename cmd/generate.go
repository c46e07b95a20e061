package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"auction-crawler/handler"
)

func newGenerateCmd() *cobra.Command {
	var query, location string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Ask the LLM for auction listings instead of scraping",
		Long: `Generates realistic auction listings for a location with the configured
LLM. Nothing is fetched from the auction site. Requires DEEPSEEK_API_KEY.`,
		Example: `  auction-crawler generate --query "balneario camboriu"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			var req handler.Request
			if cmd.Flags().Changed("query") {
				req.Query = stringFlag(query)
			}
			if cmd.Flags().Changed("location") {
				req.Location = stringFlag(location)
			}

			resp := a.handler.HandleGenerate(cmd.Context(), req)
			fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("generate failed with status %d", resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query (default from DEFAULT_QUERY)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Location context (default from DEFAULT_LOCATION)")

	return cmd
}
