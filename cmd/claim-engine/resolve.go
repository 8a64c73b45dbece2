// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/claim-engine/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <title>",
	Short: "Resolve a paper reference by title",
	Long: `Resolve searches the federated sources for a title, scores every
candidate against it (title overlap, year proximity, metadata completeness,
source trust), and prints the best match. Exits with an error when no
candidate reaches the acceptance floor.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")
	year, _ := cmd.Flags().GetInt("year")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	federated := newFederated(cfg, log)
	candidates, err := federated.SearchAll(context.Background(), title, limit)
	if err != nil {
		return err
	}
	deduped := resolve.Dedupe(candidates)

	for _, w := range federated.Warnings() {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	best, score, err := resolve.PickBest(deduped, title, year)
	if err != nil {
		if errors.Is(err, resolve.ErrNoMatch) {
			return fmt.Errorf("no match for %q (best score %.1f, %d candidates)", title, score, len(deduped))
		}
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(best)
	}
	fmt.Printf("Title:   %s\n", best.Title)
	if len(best.Authors) > 0 {
		fmt.Printf("Authors: %s\n", strings.Join(best.Authors, "; "))
	}
	if best.Year > 0 {
		fmt.Printf("Year:    %d\n", best.Year)
	}
	if best.DOI != "" {
		fmt.Printf("DOI:     %s\n", best.DOI)
	}
	if best.URL != "" {
		fmt.Printf("URL:     %s\n", best.URL)
	}
	fmt.Printf("Source:  %s\nScore:   %.1f\n", best.Source, score)
	return nil
}

func init() {
	resolveCmd.Flags().Int("year", 0, "expected publication year (improves scoring)")
	resolveCmd.Flags().Int("limit", 10, "maximum results requested per provider")
	resolveCmd.Flags().Bool("json", false, "output the match as JSON")

	rootCmd.AddCommand(resolveCmd)
}
