package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trxcc/universal-offline-bbo/internal/engine"
	"github.com/trxcc/universal-offline-bbo/internal/store"
)

var (
	taskName     string
	taskDim      int
	algorithm    string
	datasetPath  string
	surrogateURL string
	generations  int
	popSize      int
	numSolutions int
	seed         int64
	dataDir      string
	noSave       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization",
	Long: `Runs one offline optimization: the searcher proposes designs
guided by the surrogate (or the task objective in sanity mode), the
solutions are evaluated against the true objective, and the result is
persisted under the data directory.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&taskName, "task", "", "Benchmark task family (required)")
	runCmd.Flags().IntVar(&taskDim, "dim", 10, "Task dimensionality")
	runCmd.Flags().StringVar(&algorithm, "algo", "ga", "Search algorithm: ga, pso, de, bo, mayfly")
	runCmd.Flags().StringVar(&datasetPath, "dataset", "", "Replace the task's offline dataset with this JSON file")
	runCmd.Flags().StringVar(&surrogateURL, "surrogate", "", "Surrogate scoring endpoint URL (empty = sanity mode)")
	runCmd.Flags().IntVar(&generations, "gens", 100, "Generations / iterations")
	runCmd.Flags().IntVar(&popSize, "pop", 30, "Population size")
	runCmd.Flags().IntVar(&numSolutions, "solutions", 16, "Number of solutions to propose")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run persistence")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "Skip persisting the run result")

	runCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg := store.RunConfig{
		TaskName:     taskName,
		Dim:          taskDim,
		Algorithm:    algorithm,
		DatasetPath:  datasetPath,
		Generations:  generations,
		PopSize:      popSize,
		NumSolutions: numSolutions,
		Seed:         seed,
		SurrogateURL: surrogateURL,
	}

	runID := uuid.New().String()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var trace *store.TraceWriter
	if !noSave {
		tw, err := store.NewTraceWriter(dataDir, runID)
		if err != nil {
			return fmt.Errorf("failed to create trace writer: %w", err)
		}
		trace = tw
		defer trace.Close()
	}

	progress := func(generation int, bestScore float64) {
		if trace != nil {
			trace.Write(store.TraceEntry{
				Generation: generation,
				BestScore:  bestScore,
				Timestamp:  time.Now(),
			})
		}
	}

	result, err := engine.Run(ctx, cfg, runID, progress)
	if err != nil {
		return err
	}

	if !noSave {
		resultStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create result store: %w", err)
		}
		if err := resultStore.SaveResult(runID, result); err != nil {
			return fmt.Errorf("failed to persist result: %w", err)
		}
		slog.Info("Result saved", "run_id", runID, "data_dir", dataDir)
	}

	fmt.Printf("Run %s complete (%s on %s, %d solutions)\n",
		runID, cfg.Algorithm, cfg.TaskName, len(result.Solutions))

	keys := make([]string, 0, len(result.Report))
	for k := range result.Report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %.6f\n", k, result.Report[k])
	}
	if result.Stability != nil {
		fmt.Printf("  %-20s %.6f\n", "stability", *result.Stability)
	}

	return nil
}
