// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/claim-engine/internal/research"
	"github.com/pdiddy/claim-engine/internal/store"
	"github.com/pdiddy/claim-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run the goal-driven research pipeline and manage its jobs",
	Long: `Research plans literature queries for a goal, searches the federated
sources, enriches and filters the candidates, extracts structured findings,
and persists the best-ranked records. Runs are tracked as jobs with
monotonic progress; a goal with a fresh running job will not start a
second pipeline.`,
}

// --- run subcommand ---

var researchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the research pipeline for a goal",
	RunE:  runResearchRun,
}

func runResearchRun(cmd *cobra.Command, args []string) error {
	goalID, _ := cmd.Flags().GetString("goal")
	if goalID == "" {
		return fmt.Errorf("--goal is required")
	}

	cfg, err := loadPipelineConfig(cmd)
	if err != nil {
		return err
	}

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

	pipeline := newPipeline(cfg, st, log)
	dispatcher := research.NewDispatcher(st, pipeline, log)

	job, err := dispatcher.Start(context.Background(), research.JobGenerateResearch, goalID)
	if errors.Is(err, store.ErrJobConflict) {
		fmt.Printf("A research job is already running for this goal: %s\n", job.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("research job %s: %w", job.ID, err)
	}
	printJob(job)
	return nil
}

// --- status subcommand ---

var researchStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a research job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.Job(context.Background(), args[0])
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(job)
		}
		printJob(job)
		return nil
	},
}

// --- records subcommand ---

var researchRecordsCmd = &cobra.Command{
	Use:   "records <goal-id>",
	Short: "List the persisted research records for a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.ResearchForGoal(context.Background(), args[0])
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return printJSON(records)
		}
		if len(records) == 0 {
			fmt.Println("No records found.")
			return nil
		}
		for i, r := range records {
			fmt.Printf("%-4d  %.2f  %s\n", i+1, r.Blended, r.Research.Title)
		}
		fmt.Printf("\n%d records\n", len(records))
		return nil
	},
}

// --- goal / note subcommands ---

var researchAddGoalCmd = &cobra.Command{
	Use:   "add-goal <title>",
	Short: "Create a research goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		description, _ := cmd.Flags().GetString("description")
		goal := types.Goal{
			ID:          uuid.NewString(),
			Title:       strings.Join(args, " "),
			Description: description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := st.SaveGoal(context.Background(), goal); err != nil {
			return err
		}
		fmt.Println(goal.ID)
		return nil
	},
}

var researchAddNoteCmd = &cobra.Command{
	Use:   "add-note <body>",
	Short: "Attach a note to a goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goalID, _ := cmd.Flags().GetString("goal")
		if goalID == "" {
			return fmt.Errorf("--goal is required")
		}

		st, err := storeFromFlags(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		note := types.Note{
			ID:        uuid.NewString(),
			GoalID:    goalID,
			Body:      strings.Join(args, " "),
			CreatedAt: time.Now().UTC(),
		}
		if err := st.SaveNote(context.Background(), note); err != nil {
			return err
		}
		fmt.Println(note.ID)
		return nil
	},
}

// --- output helpers ---

func printJob(job types.Job) {
	fmt.Printf("Job:      %s\n", job.ID)
	fmt.Printf("Type:     %s\n", job.Type)
	fmt.Printf("Target:   %s\n", job.TargetID)
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Progress: %d%%\n", job.Progress)
	if job.Result != "" {
		fmt.Printf("Result:   %s\n", job.Result)
	}
	if job.Error != "" {
		fmt.Printf("Error:    %s\n", job.Error)
	}
}

func init() {
	researchRunCmd.Flags().String("goal", "", "goal ID to research")
	researchStatusCmd.Flags().Bool("json", false, "output the job as JSON")
	researchRecordsCmd.Flags().Bool("json", false, "output records as JSON")
	researchAddGoalCmd.Flags().String("description", "", "longer goal description")
	researchAddNoteCmd.Flags().String("goal", "", "goal ID the note belongs to")

	researchCmd.AddCommand(researchRunCmd)
	researchCmd.AddCommand(researchStatusCmd)
	researchCmd.AddCommand(researchRecordsCmd)
	researchCmd.AddCommand(researchAddGoalCmd)
	researchCmd.AddCommand(researchAddNoteCmd)

	rootCmd.AddCommand(researchCmd)
}
