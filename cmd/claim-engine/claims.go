// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/claim-engine/pkg/types"
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Build, inspect, and manage claim cards",
	Long: `Claims turns factual statements into claim cards: each claim is searched
across bibliographic sources, the best candidates are enriched and judged,
and the evidence is aggregated into a verdict with a confidence score.
Cards are stored in the local SQLite database under a stable ID, so
rebuilding a claim replaces its card instead of multiplying rows.`,
}

// --- build subcommand ---

var claimsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build claim cards from claims or free text",
	Long: `Build accepts explicit claims (--claim, repeatable) or free text (--text)
to extract claims from. Each claim yields one card, saved to the database.
Use --note to link the cards to a note.`,
	RunE: runClaimsBuild,
}

func runClaimsBuild(cmd *cobra.Command, args []string) error {
	claimTexts, _ := cmd.Flags().GetStringArray("claim")
	text, _ := cmd.Flags().GetString("text")
	noteID, _ := cmd.Flags().GetString("note")
	if len(claimTexts) == 0 && text == "" {
		return fmt.Errorf("nothing to build: provide --claim or --text")
	}

	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}
	applyClaimsFlags(cmd, &cfg)

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	builder := newClaimsBuilder(cfg, log)
	ctx := context.Background()

	var cards []types.ClaimCard
	if len(claimTexts) > 0 {
		cards, err = builder.BuildFromClaims(ctx, claimTexts)
	} else {
		cards, err = builder.BuildFromText(ctx, text)
	}
	if err != nil {
		return err
	}

	for _, card := range cards {
		if err := st.SaveCard(ctx, card, noteID); err != nil {
			return fmt.Errorf("saving card %s: %w", card.ID, err)
		}
	}
	if warnings := builder.Federated.Warnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(cards)
	}
	for _, card := range cards {
		printCard(card)
	}
	fmt.Printf("%d card(s) saved\n", len(cards))
	return nil
}

func applyClaimsFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if srcs, _ := cmd.Flags().GetStringSlice("sources"); len(srcs) > 0 {
		cfg.Claims.Sources = srcs
	}
	if topK, _ := cmd.Flags().GetInt("top-k"); topK > 0 {
		cfg.Claims.TopK = topK
	}
	if limit, _ := cmd.Flags().GetInt("per-source-limit"); limit > 0 {
		cfg.Claims.PerSourceLimit = limit
	}
	if useLLM, _ := cmd.Flags().GetBool("llm-judge"); useLLM {
		cfg.Claims.UseLLMJudge = true
	}
}

// --- refresh subcommand ---

var claimsRefreshCmd = &cobra.Command{
	Use:   "refresh <card-id>",
	Short: "Rebuild the evidence for an existing claim card",
	Args:  cobra.ExactArgs(1),
	RunE:  runClaimsRefresh,
}

func runClaimsRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}
	applyClaimsFlags(cmd, &cfg)

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	card, err := st.Card(ctx, args[0])
	if err != nil {
		return err
	}

	refreshed, err := newClaimsBuilder(cfg, log).Refresh(ctx, card)
	if err != nil {
		return err
	}
	if err := st.SaveCard(ctx, refreshed, ""); err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(refreshed)
	}
	printCard(refreshed)
	return nil
}

// --- show / for-note / delete subcommands ---

var claimsShowCmd = &cobra.Command{
	Use:   "show <card-id>",
	Short: "Show a claim card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		card, err := st.Card(context.Background(), args[0])
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(card)
		}
		printCard(card)
		return nil
	},
}

var claimsForNoteCmd = &cobra.Command{
	Use:   "for-note <note-id>",
	Short: "List the claim cards linked to a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		cards, err := st.CardsForNote(context.Background(), args[0])
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(cards)
		}
		if len(cards) == 0 {
			fmt.Println("No cards found.")
			return nil
		}
		for _, card := range cards {
			printCard(card)
		}
		return nil
	},
}

var claimsDeleteCmd = &cobra.Command{
	Use:   "delete <card-id>",
	Short: "Delete a claim card and its note links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteCard(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

// --- output helpers ---

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCard(card types.ClaimCard) {
	fmt.Printf("%s  [%s, confidence %.2f]\n", card.ID, card.Verdict, card.Confidence)
	fmt.Printf("  %s\n", card.Claim)
	for _, ev := range card.Evidence {
		title := ev.Title
		if len(title) > 70 {
			title = title[:67] + "..."
		}
		fmt.Printf("  %-11s  %.2f  %s (%s)\n", ev.Polarity, ev.Score, title, ev.Source)
	}
	fmt.Println(strings.Repeat("-", 80))
}

func init() {
	claimsBuildCmd.Flags().StringArray("claim", nil, "claim text to verify (repeatable)")
	claimsBuildCmd.Flags().String("text", "", "free text to extract claims from")
	claimsBuildCmd.Flags().String("note", "", "note ID to link the cards to")

	for _, c := range []*cobra.Command{claimsBuildCmd, claimsRefreshCmd} {
		c.Flags().StringSlice("sources", nil, "providers to search (default: crossref, pubmed, semantic_scholar)")
		c.Flags().Int("top-k", 0, "judged evidence items kept per claim (0 = default)")
		c.Flags().Int("per-source-limit", 0, "candidate cap per provider (0 = default)")
		c.Flags().Bool("llm-judge", false, "judge evidence with the model backend instead of the overlap heuristic")
	}
	for _, c := range []*cobra.Command{claimsBuildCmd, claimsRefreshCmd, claimsShowCmd, claimsForNoteCmd} {
		c.Flags().Bool("json", false, "output cards as JSON")
	}

	claimsCmd.AddCommand(claimsBuildCmd)
	claimsCmd.AddCommand(claimsRefreshCmd)
	claimsCmd.AddCommand(claimsShowCmd)
	claimsCmd.AddCommand(claimsForNoteCmd)
	claimsCmd.AddCommand(claimsDeleteCmd)

	rootCmd.AddCommand(claimsCmd)
}
