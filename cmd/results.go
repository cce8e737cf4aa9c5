package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trxcc/universal-offline-bbo/internal/store"
)

var resultsDataDir string

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage persisted run results",
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all persisted run results",
	RunE:  runListResults,
}

var showResultCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full report for a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowResult,
}

var deleteResultCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a persisted run",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteResult,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(showResultCmd)
	resultsCmd.AddCommand(deleteResultCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "./data", "Base directory for run persistence")
}

func runListResults(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].FinishedAt.After(infos[j].FinishedAt) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTASK\tALGO\tBEST SCORE\tSOLUTIONS\tFINISHED")
	fmt.Fprintln(w, "------\t----\t----\t----------\t---------\t--------")

	for _, info := range infos {
		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%d\t%s\n",
			displayID,
			info.TaskName,
			info.Algorithm,
			info.BestScore,
			info.Solutions,
			info.FinishedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal results: %d\n", len(infos))
	return nil
}

func runShowResult(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	result, err := resultStore.LoadResult(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Task: %s (%s, dim %d, seed %d)\n",
		result.Config.TaskName, result.Config.Algorithm, result.Config.Dim, result.Config.Seed)
	fmt.Printf("Elapsed: %s\n", result.FinishedAt.Sub(result.StartedAt))
	fmt.Printf("Best surrogate score: %.6f\n", result.BestScore)
	fmt.Printf("Solutions: %d\n", len(result.Solutions))

	keys := make([]string, 0, len(result.Report))
	for k := range result.Report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("Report:")
	for _, k := range keys {
		fmt.Printf("  %-20s %.6f\n", k, result.Report[k])
	}
	if result.Stability != nil {
		fmt.Printf("  %-20s %.6f\n", "stability", *result.Stability)
	}

	return nil
}

func runDeleteResult(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	if err := resultStore.DeleteResult(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", args[0])
	return nil
}
