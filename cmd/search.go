package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"auction-crawler/handler"
	"auction-crawler/services"
	"auction-crawler/storage"
)

func newSearchCmd() *cobra.Command {
	var (
		query             string
		location          string
		useLLM            bool
		fetchDescriptions bool
		llmFilter         bool
		csvPath           string
		summary           bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the auction site and print the matching auctions as JSON",
		Example: `  # Search with the configured defaults
  auction-crawler search

  # Search a known location, skipping detail pages
  auction-crawler search --query floripa --fetch-descriptions=false

  # Narrow results with the LLM and export them
  auction-crawler search --query itapiruba --llm-filter --csv out/itapiruba.csv --summary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			var req handler.Request
			flags := cmd.Flags()
			if flags.Changed("query") {
				req.Query = stringFlag(query)
			}
			if flags.Changed("location") {
				req.Location = stringFlag(location)
			}
			if flags.Changed("use-llm") {
				req.UseLLM = boolFlag(useLLM)
			}
			if flags.Changed("fetch-descriptions") {
				req.FetchDescriptions = boolFlag(fetchDescriptions)
			}
			if flags.Changed("llm-filter") {
				req.LLMFilter = boolFlag(llmFilter)
			}

			resp := a.handler.Handle(cmd.Context(), req)
			fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("search failed with status %d", resp.StatusCode)
			}

			if csvPath == "" && !summary {
				return nil
			}
			auctions, err := decodeAuctions(resp)
			if err != nil {
				return err
			}

			if csvPath != "" {
				var w storage.AuctionWriter
				w, err = storage.NewCSVWriter(csvPath)
				if err != nil {
					return err
				}
				if err := w.Write(auctions); err != nil {
					_ = w.Close()
					return fmt.Errorf("csv write failed: %w", err)
				}
				if err := w.Close(); err != nil {
					return err
				}
				a.logger.Info("[search] Auctions saved to %s", csvPath)
			}

			if summary {
				svc := services.NewSummaryService(a.logger)
				svc.Print(os.Stderr, svc.Generate(auctions))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query (default from DEFAULT_QUERY)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Location context (default from DEFAULT_LOCATION)")
	cmd.Flags().BoolVar(&useLLM, "use-llm", false, "Merge LLM-extracted fields into detail pages")
	cmd.Flags().BoolVar(&fetchDescriptions, "fetch-descriptions", true, "Fetch detail pages for missing descriptions")
	cmd.Flags().BoolVar(&llmFilter, "llm-filter", false, "Narrow keyword matches by LLM relevance")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also export the auctions to this CSV file")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a result summary to stderr")

	return cmd
}
