package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"docsync/core/config"
	"docsync/core/database"
	"docsync/core/logger"
	"docsync/core/storage"
	syncengine "docsync/core/sync"
	"docsync/feature/docstore"
	"docsync/feature/tablesource"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncStrategy   string
	syncTable      string
	syncCollection string
	syncDryRun     bool
	syncConfirm    bool
)

// syncCmd runs one reconciliation of a source table into a collection.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync a source table into a destination collection",
	Long: `Sync fetches a source table, diffs it against the destination collection
and applies the resulting change set under the selected update strategy.

Examples:
  # Checksum-based upsert (default strategy)
  sync --table products --collection products

  # Preview the change set without writing
  sync --table products --collection products --dry-run

  # Destructive full refresh (with interactive confirmation)
  sync --table products --collection products --strategy full_refresh

  # Full refresh with auto-confirm (non-interactive)
  sync --table products --collection products --strategy full_refresh --yes`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncStrategy, "strategy", "", "Update strategy (defaults to configured strategy)")
	syncCmd.Flags().StringVar(&syncTable, "table", "", "Source table to fetch")
	syncCmd.Flags().StringVar(&syncCollection, "collection", "", "Destination collection")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Plan the change set without writing")
	syncCmd.Flags().BoolVar(&syncConfirm, "yes", false, "Auto-confirm destructive strategies (non-interactive)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	runCfg := cfg.Sync
	if syncStrategy != "" {
		runCfg.Strategy = syncStrategy
	}
	if syncTable != "" {
		runCfg.Table = syncTable
	}
	if syncCollection != "" {
		runCfg.Collection = syncCollection
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Connect to storage
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	sourceCfg := cfg.Source
	sourceCfg.PrimaryKeyField = runCfg.PrimaryKeyField
	reader := tablesource.NewReader(client, cfg.Storage.Bucket, sourceCfg, l)

	store := docstore.NewStore(db, l)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}

	engine, err := syncengine.NewEngine(reader, store, runCfg, l)
	if err != nil {
		return err
	}

	if syncDryRun {
		plan, err := engine.Plan(ctx)
		if err != nil {
			return fmt.Errorf("failed to plan sync: %w", err)
		}
		printPlan(l, plan)
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// full_refresh deletes everything not in the source; make the operator
	// say so explicitly.
	if runCfg.Strategy == string(syncengine.FullRefresh) && !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	report, err := engine.Run(ctx)
	var partial *syncengine.PartialFailureError
	if err != nil && !errors.As(err, &partial) {
		return fmt.Errorf("sync failed: %w", err)
	}

	l.Info("Sync finished",
		zap.String("run_id", report.RunID),
		zap.String("strategy", string(report.Strategy)),
		zap.Int("source_records", report.SourceCount),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("deleted", report.Deleted),
		zap.Int("warnings", len(report.Warnings)),
		zap.Duration("duration", report.Duration),
	)
	if partial != nil {
		l.Warn("Some batches failed after retries",
			zap.Int("failed_documents", partial.FailedDocs),
			zap.Int("failed_batches", partial.FailedGroups),
		)
		return partial
	}
	return nil
}

// printPlan prints a formatted change set summary using logger.
func printPlan(l *zap.Logger, plan *syncengine.Plan) {
	l.Info("Planned change set",
		zap.String("run_id", plan.RunID),
		zap.String("strategy", string(plan.Strategy)),
		zap.Int("source_records", plan.SourceCount),
		zap.Int("destination_documents", plan.DestCount),
		zap.Int("creates", len(plan.Changes.Creates)),
		zap.Int("updates", len(plan.Changes.Updates)),
		zap.Int("deletes", len(plan.Changes.Deletes)),
	)

	for _, w := range plan.Warnings {
		l.Warn("Record excluded from plan",
			zap.String("primary_key", w.PrimaryKey),
			zap.Error(w.Err),
		)
	}

	// Show sample of deletes (max 5 for logger)
	maxShow := 5
	if len(plan.Changes.Deletes) < maxShow {
		maxShow = len(plan.Changes.Deletes)
	}
	for i := 0; i < maxShow; i++ {
		l.Info("Sample delete", zap.String("doc_id", plan.Changes.Deletes[i]))
	}
	if len(plan.Changes.Deletes) > maxShow {
		l.Info("Additional deletes not shown", zap.Int("count", len(plan.Changes.Deletes)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if syncConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
