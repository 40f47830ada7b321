// Command ingest is the weekly-pulse CLI: it inspects spreadsheets and CSV
// files, imports validated rows into the metric tables and rolls completed
// imports back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/csvimport"
	"github.com/FACorreiaa/weekly-pulse/internal/domain/importer"
	"github.com/FACorreiaa/weekly-pulse/internal/domain/registry"
	"github.com/FACorreiaa/weekly-pulse/internal/domain/workbook"
	"github.com/FACorreiaa/weekly-pulse/pkg/config"
	"github.com/FACorreiaa/weekly-pulse/pkg/cron"
	"github.com/FACorreiaa/weekly-pulse/pkg/db"
	"github.com/FACorreiaa/weekly-pulse/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var runErr error
	switch os.Args[1] {
	case "migrate":
		runErr = runMigrate(cfg, os.Args[2:])
	case "workbook":
		runErr = runWorkbook(logger, os.Args[2:])
	case "preview":
		runErr = runPreview(os.Args[2:])
	case "import":
		runErr = runImport(ctx, cfg, logger, os.Args[2:])
	case "rollback":
		runErr = runRollback(ctx, cfg, logger, os.Args[2:])
	case "retention":
		runErr = runRetention(ctx, cfg, logger, os.Args[2:])
	case "types":
		runErr = printJSON(registry.All())
	default:
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		logger.Error("command failed", "command", os.Args[1], "error", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ingest <command> [flags]

commands:
  migrate    apply database migrations
  workbook   parse a weekly spreadsheet and print the extracted records
  preview    sniff a CSV file and print headers, inferred types and sample rows
  import     validate a CSV file and import it into a metric table
  rollback   undo a completed import
  retention  run the snapshot retention scheduler
  types      list importable data types`)
}

func runMigrate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := fs.String("dir", "./migrations", "migrations directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.Migrate(cfg.Database.DSN(), *dir)
}

func runWorkbook(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("workbook", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("workbook: expected one spreadsheet path")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	wb, err := workbook.Open(f)
	if err != nil {
		return err
	}
	defer wb.Close()

	return printJSON(workbook.ParseAll(wb, logger))
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("preview: expected one CSV path")
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read CSV file: %w", err)
	}

	preview, err := csvimport.BuildPreview(raw)
	if err != nil {
		return err
	}
	return printJSON(preview)
}

func runImport(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dataType := fs.String("type", "", "data type ID (see: ingest types)")
	file := fs.String("file", "", "CSV file to import")
	strategy := fs.String("strategy", "skip", "duplicate strategy: overwrite, skip or merge")
	mappingFile := fs.String("mapping", "", "JSON field mapping file (default: registry field names)")
	reportFile := fs.String("report", "", "write a CSV validation report for problem rows")
	dryRun := fs.Bool("dry-run", false, "validate only, do not write to the database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataType == "" || *file == "" {
		return fmt.Errorf("import: -type and -file are required")
	}

	def, err := registry.Lookup(*dataType)
	if err != nil {
		return err
	}

	mappings := def.DefaultMappings()
	if *mappingFile != "" {
		raw, err := os.ReadFile(*mappingFile)
		if err != nil {
			return fmt.Errorf("failed to read mapping file: %w", err)
		}
		if err := json.Unmarshal(raw, &mappings); err != nil {
			return fmt.Errorf("failed to decode mapping file: %w", err)
		}
		mappings = def.FilterMappings(mappings)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read CSV file: %w", err)
	}
	parsed, err := csvimport.Parse(raw)
	if err != nil {
		return err
	}

	validation := csvimport.ValidateRows(parsed, mappings, nil)
	logger.Info("validation finished",
		"rows", len(validation.Rows),
		"passed", validation.Passed,
		"warned", validation.Warned,
		"failed", validation.Failed,
		"blank_skipped", validation.BlankSkipped)

	if *reportFile != "" && validation.Failed+validation.Warned > 0 {
		out, err := os.Create(*reportFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer out.Close()
		if err := csvimport.WriteReport(out, validation); err != nil {
			return err
		}
	}

	if *dryRun {
		return printJSON(validation)
	}

	pool, err := db.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	opts := []importer.Option{importer.WithTimeout(cfg.Import.Timeout)}
	if cfg.Observability.MetricsEnabled {
		opts = append(opts, importer.WithMetrics(importer.NewMetrics(prometheus.DefaultRegisterer)))
	}
	engine := importer.NewEngine(
		importer.NewPostgresStore(pool),
		importer.NewPostgresUploadRepository(pool),
		logger,
		opts...,
	)

	result, err := engine.Import(ctx, *dataType, *file, validation.Rows, importer.DuplicateStrategy(*strategy))
	if err != nil {
		return err
	}

	// Keep the original bytes next to the audit record.
	archive, err := storage.NewLocalArchive(cfg.Import.ArchiveDir)
	if err != nil {
		return err
	}
	if _, err := archive.Save(ctx, result.UploadID, filepath.Base(*file), "text/csv", bytes.NewReader(raw)); err != nil {
		logger.Warn("failed to archive original file", "upload_id", result.UploadID, "error", err)
	}

	return printJSON(result)
}

func runRollback(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	uploadID := fs.String("upload", "", "upload ID to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := uuid.Parse(*uploadID)
	if err != nil {
		return fmt.Errorf("rollback: invalid upload ID %q", *uploadID)
	}

	pool, err := db.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	var opts []importer.Option
	if cfg.Observability.MetricsEnabled {
		opts = append(opts, importer.WithMetrics(importer.NewMetrics(prometheus.DefaultRegisterer)))
	}
	engine := importer.NewEngine(
		importer.NewPostgresStore(pool),
		importer.NewPostgresUploadRepository(pool),
		logger,
		opts...,
	)

	result, err := engine.Rollback(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// runRetention starts the snapshot retention scheduler and, when enabled,
// a Prometheus metrics endpoint, then blocks until interrupted.
func runRetention(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("retention", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	var metrics *importer.Metrics
	var reg *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		reg = prometheus.NewRegistry()
		metrics = importer.NewMetrics(reg)
	}

	uploads := importer.NewPostgresUploadRepository(pool)
	scheduler := cron.NewScheduler(uploads, cfg.Import.SnapshotRetentionDays, logger, metrics)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if reg != nil {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Observability.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	<-scheduler.Stop().Done()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
