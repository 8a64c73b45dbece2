// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/claim-engine/internal/resolve"
	"github.com/pdiddy/claim-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search bibliographic sources for candidate papers",
	Long: `Search runs a query against the federated bibliographic sources
(Crossref, PubMed, Semantic Scholar, and others) and prints the combined,
deduplicated candidates. Provider failures are reported as warnings and do
not fail the search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}
	if srcs, _ := cmd.Flags().GetStringSlice("sources"); len(srcs) > 0 {
		cfg.Sources.Enabled = srcs
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	federated := newFederated(cfg, log)
	candidates, err := federated.SearchAll(context.Background(), query, limit)
	if err != nil {
		return err
	}
	deduped := resolve.Dedupe(candidates)

	for _, w := range federated.Warnings() {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(deduped)
	}
	printCandidates(deduped)
	return nil
}

func printCandidates(candidates []types.PaperCandidate) {
	if len(candidates) == 0 {
		fmt.Println("No results found.")
		return
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-60s  %-6s  %-16s  %s\n",
		"Rank", "Title", "Year", "Source", "DOI")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, c := range candidates {
		title := c.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		year := ""
		if c.Year > 0 {
			year = fmt.Sprintf("%d", c.Year)
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-60s  %-6s  %-16s  %s\n",
			i+1, title, year, c.Source, c.DOI)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(candidates))
}

func init() {
	searchCmd.Flags().StringSlice("sources", nil, "providers to query (default: all with satisfied credentials)")
	searchCmd.Flags().Int("limit", 20, "maximum results requested per provider")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
