// Package main is the tansaku CLI entry point.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/builder"
	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/retriever"
	"github.com/hyperjump/tansaku/internal/snapshot"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/internal/watcher"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if
// that exists it is used. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "build":
		runBuild()
	case "search":
		runSearch()
	case "validate":
		runValidate()
	case "sources":
		runSources()
	case "chunks":
		runChunks()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("tansaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`tansaku - offline semantic search over a plain-text corpus

Usage: tansaku <command> [flags]

Commands:
  build      ingest documents, fit the encoder, and write a snapshot
  search     query the snapshot (query is the remaining arguments)
  validate   run the relevance gate on a query without searching
  sources    list sources in the snapshot
  chunks     list the chunks of one source
  status     show snapshot and catalog state
  watch      rebuild the snapshot whenever documents change
  version    print the version
  help       print this help

Flags common to most commands:
  -config    config file path (default ` + defaultConfigPath + `,
             falling back to ./config.yaml when present)
  -json      machine-readable output where supported
`)
}

func newLogger(cfg *config.Config, debug bool) *zap.Logger {
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func mustLoadConfig(path string) (*config.Config, string) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved
}

func outputFormat(jsonOut bool) cli.OutputFormat {
	if jsonOut {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	docsDir := fs.String("docs", "", "documents directory (overrides config)")
	outDir := fs.String("out", "", "snapshot directory (overrides config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved := mustLoadConfig(*configPath)
	if *docsDir == "" {
		*docsDir = cfg.Storage.DocumentsDir
	}
	if *outDir == "" {
		*outDir = cfg.Storage.IndexDir
	}
	logger := newLogger(cfg, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved))

	opts := []builder.Option{builder.WithLogger(logger)}
	if cfg.Storage.CatalogPath != "" {
		catalog, err := storage.OpenCatalog(cfg.Storage.CatalogPath)
		if err != nil {
			logger.Warn("catalog unavailable", zap.Error(err))
		} else {
			defer catalog.Close()
			opts = append(opts, builder.WithCatalog(catalog))
		}
	}

	info, err := builder.New(cfg, opts...).BuildAndSave(context.Background(), *docsDir, *outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteSnapshotInfo(os.Stdout, *info, cli.OutputText)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags that appear after the query to the front so
// flag.Parse() sees them. The flag package stops at the first non-flag
// argument, so "tansaku search dehydration -k 3" would otherwise leave
// -k unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func loadRetriever(cfg *config.Config, logger *zap.Logger) *retriever.Retriever {
	r, err := snapshot.Load(cfg.Storage.IndexDir, cfg.Gate, retriever.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load snapshot from %s: %v\n", cfg.Storage.IndexDir, err)
		fmt.Fprintf(os.Stderr, "Run \"tansaku build\" first.\n")
		os.Exit(1)
	}
	return r
}

func runSearch() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	k := fs.Int("k", 0, "number of results (default from config)")
	minScore := fs.Float64("min-score", -1, "minimum similarity score (default from config)")
	skipGate := fs.Bool("no-gate", false, "search even when the gate rejects the query")
	jsonOut := fs.Bool("json", false, "JSON output")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: tansaku search [flags] <query>\n\n")
		fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	query := buildQuery(fs.Args())
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg, _ := mustLoadConfig(*configPath)
	if *k <= 0 {
		*k = cfg.Search.DefaultK
	}
	if *k > cfg.Search.MaxK {
		*k = cfg.Search.MaxK
	}
	if *minScore < 0 {
		*minScore = cfg.Search.MinScore
	}
	logger := newLogger(cfg, false)
	defer logger.Sync()

	r := loadRetriever(cfg, logger)
	validation := r.ValidateQuery(query)
	response := &cli.SearchResponse{Query: query, Validation: validation}

	if validation.IsValid || *skipGate {
		start := time.Now()
		results, err := r.Search(context.Background(), query, *k, *minScore)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response.Results = results
		response.QueryTimeMS = time.Since(start).Milliseconds()
	}
	if err := cli.WriteSearchResults(os.Stdout, response, outputFormat(*jsonOut)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runValidate() {
	args := reorderArgs(os.Args[2:])
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jsonOut := fs.Bool("json", false, "JSON output")
	_ = fs.Parse(args)

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: tansaku validate [flags] <query>")
		os.Exit(1)
	}
	cfg, _ := mustLoadConfig(*configPath)
	gate := retriever.NewGate(cfg.Gate)
	if err := cli.WriteValidation(os.Stdout, query, gate.Validate(query), outputFormat(*jsonOut)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runSources() {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jsonOut := fs.Bool("json", false, "JSON output")
	_ = fs.Parse(os.Args[2:])

	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg, false)
	defer logger.Sync()
	r := loadRetriever(cfg, logger)
	if err := cli.WriteSources(os.Stdout, r.GetAvailableSources(), outputFormat(*jsonOut)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runChunks() {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jsonOut := fs.Bool("json", false, "JSON output")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tansaku chunks [flags] <source>")
		os.Exit(1)
	}
	source := fs.Arg(0)
	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg, false)
	defer logger.Sync()
	r := loadRetriever(cfg, logger)
	chunks := r.GetChunksBySource(source)
	if len(chunks) == 0 {
		fmt.Fprintf(os.Stderr, "No chunks for source %q. Known sources: %s\n",
			source, strings.Join(r.GetAvailableSources(), ", "))
		os.Exit(1)
	}
	if err := cli.WriteChunks(os.Stdout, source, chunks, outputFormat(*jsonOut)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jsonOut := fs.Bool("json", false, "JSON output")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved := mustLoadConfig(*configPath)
	logger := newLogger(cfg, false)
	defer logger.Sync()

	r, err := snapshot.Load(cfg.Storage.IndexDir, cfg.Gate, retriever.WithLogger(logger))
	if err != nil {
		fmt.Printf("No snapshot at %s (%v)\n", cfg.Storage.IndexDir, err)
	} else {
		if err := cli.WriteSnapshotInfo(os.Stdout, r.Info(), outputFormat(*jsonOut)); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  sources:    %d\n", len(r.GetAvailableSources()))
	}
	fmt.Printf("  config:     %s\n", resolved)

	if cfg.Storage.CatalogPath == "" {
		return
	}
	catalog, err := storage.OpenCatalog(cfg.Storage.CatalogPath)
	if err != nil {
		fmt.Printf("  catalog:    unavailable (%v)\n", err)
		return
	}
	defer catalog.Close()
	ctx := context.Background()
	build, sources, err := catalog.LatestBuild(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		fmt.Printf("  catalog:    no builds recorded\n")
		return
	}
	if err != nil {
		fmt.Printf("  catalog:    unavailable (%v)\n", err)
		return
	}
	total, _ := catalog.CountBuilds(ctx)
	fmt.Printf("  catalog:    %d builds, latest %s at %s\n",
		total, build.ID, build.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	for _, s := range sources {
		if s.OK {
			fmt.Printf("    %-20s %d chunks, %d tokens\n", s.Source, s.ChunkCount, s.TokenCount)
		} else {
			fmt.Printf("    %-20s skipped: %s\n", s.Source, s.Error)
		}
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved := mustLoadConfig(*configPath)
	logger := newLogger(cfg, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved))

	opts := []builder.Option{builder.WithLogger(logger)}
	if cfg.Storage.CatalogPath != "" {
		catalog, err := storage.OpenCatalog(cfg.Storage.CatalogPath)
		if err != nil {
			logger.Warn("catalog unavailable", zap.Error(err))
		} else {
			defer catalog.Close()
			opts = append(opts, builder.WithCatalog(catalog))
		}
	}
	b := builder.New(cfg, opts...)

	holder := snapshot.NewHolder(nil)
	rebuild := func() {
		info, err := b.BuildAndSave(context.Background(), cfg.Storage.DocumentsDir, cfg.Storage.IndexDir)
		if err != nil {
			logger.Error("rebuild failed, keeping current snapshot", zap.Error(err))
			return
		}
		r, err := snapshot.Load(cfg.Storage.IndexDir, cfg.Gate, retriever.WithLogger(logger))
		if err != nil {
			logger.Error("reload failed, keeping current snapshot", zap.Error(err))
			return
		}
		holder.Swap(r)
		logger.Info("snapshot swapped",
			zap.String("build_id", info.BuildID),
			zap.Int("chunks", info.ChunkCount),
		)
	}

	// Initial build so the watcher always starts from a fresh snapshot.
	rebuild()
	if holder.Get() == nil {
		fmt.Fprintf(os.Stderr, "Initial build failed; see log output above.\n")
		os.Exit(1)
	}

	watchOpts := []watcher.Option{watcher.WithLogger(logger)}
	if cfg.Watch.DebounceMS > 0 {
		watchOpts = append(watchOpts, watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond))
	}
	w := watcher.New(cfg.Storage.DocumentsDir, rebuild, watchOpts...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	logger.Info("watching for document changes",
		zap.String("dir", cfg.Storage.DocumentsDir),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
}
