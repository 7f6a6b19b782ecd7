// Package main provides the notiontable command: export a Notion database as a table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notiontable/internal/config"
	"notiontable/internal/logger"
	"notiontable/internal/normalizer"
	"notiontable/internal/sink"
	"notiontable/internal/table"
	"notiontable/pkg/notiontable"

	"github.com/robfig/cron/v3"
)

// defaultConfigPath is loaded when -config is not given and the file exists.
const defaultConfigPath = "configs/notiontable.yaml"

// cliOptions holds the parsed command line.
type cliOptions struct {
	configPath string
	databaseID string
	format     string
	output     string
	table      string
	mode       string
	schedule   string
	input      string
	logLevel   string
	saveConfig string
	numPages   int
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	fs := flag.NewFlagSet("notiontable", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &cliOptions{}
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&opts.databaseID, "database", "", "Database id or share URL (overrides notion.database_id)")
	fs.IntVar(&opts.numPages, "pages", 0, "Number of result pages to fetch, -1 for all (overrides notion.num_pages)")
	fs.StringVar(&opts.format, "format", "", "Output format: markdown, csv, jsonl, sqlite, postgres, mysql, mongo")
	fs.StringVar(&opts.output, "output", "", "Output file path, or DSN/URI for database formats (default stdout)")
	fs.StringVar(&opts.table, "table", "", "Target SQL table or Mongo collection")
	fs.StringVar(&opts.mode, "mode", "", "Database write mode: replace or append")
	fs.StringVar(&opts.schedule, "schedule", "", "Cron expression; export repeatedly until interrupted")
	fs.StringVar(&opts.input, "input", "", "Convert saved query results from a JSON file instead of calling the API")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&opts.saveConfig, "save-config", "", "Write the effective configuration to this YAML file and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return opts, nil
}

// loadConfig reads the configuration file, applies flag overrides and validates the result.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	cfg := config.Default()

	path := opts.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if opts.databaseID != "" {
		cfg.Notion.DatabaseID = opts.databaseID
	}

	if opts.numPages != 0 {
		cfg.Notion.NumPages = opts.numPages
	}

	if opts.format != "" {
		cfg.Output.Format = opts.format
	}

	if opts.output != "" {
		cfg.Output.Path = opts.output
	}

	if opts.table != "" {
		cfg.Output.Table = opts.table
	}

	if opts.mode != "" {
		cfg.Output.Mode = opts.mode
	}

	if opts.schedule != "" {
		cfg.Schedule.Cron = opts.schedule
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// A saved configuration may be a template completed later on the command line.
	if opts.saveConfig != "" {
		return cfg, nil
	}

	if cfg.Output.IsDatabase() && cfg.Output.Path == "" {
		return nil, config.ErrMissingOutputPath
	}

	if opts.input == "" && cfg.Notion.DatabaseID == "" {
		return nil, config.ErrMissingDatabaseID
	}

	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}

		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if opts.saveConfig != "" {
		if err := cfg.SaveConfig(opts.saveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "✅ Configuration written to %s\n", opts.saveConfig)

		return
	}

	log := logger.NewLoggerWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exp := &exporter{cfg: cfg, input: opts.input, log: log, stdout: os.Stdout}

	if opts.input == "" {
		creds, credErr := config.LoadCredentials()
		if credErr != nil {
			log.Error(fmt.Sprintf("❌ %v", credErr))
			os.Exit(1)
		}

		exp.creds = creds
	}

	if cfg.Schedule.Cron == "" {
		if _, err := exp.run(ctx); err != nil {
			log.Error(fmt.Sprintf("❌ Export failed: %v", err))
			os.Exit(1)
		}

		return
	}

	if err := runScheduled(ctx, exp, cfg.Schedule.Cron, log); err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}
}

// runScheduled exports once, then again on every tick of spec until ctx is done.
func runScheduled(ctx context.Context, exp *exporter, spec string, log *logger.Logger) error {
	c := cron.New()

	job := func() {
		if _, err := exp.run(ctx); err != nil {
			log.Error(fmt.Sprintf("❌ Scheduled export failed: %v", err))
		}
	}

	if _, err := c.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	log.Info(fmt.Sprintf("⏰ Exporting on schedule %q (Ctrl+C to stop)", spec))

	job()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	log.Info("👋 Scheduler stopped")

	return nil
}

// exporter runs one read-and-write cycle.
type exporter struct {
	cfg    *config.Config
	creds  *config.Credentials
	log    *logger.Logger
	stdout io.Writer
	input  string
}

// result summarizes one export.
type result struct {
	duration    time.Duration
	rows        int
	columns     int
	written     int
	diagnostics int
}

func (e *exporter) run(ctx context.Context) (*result, error) {
	startTime := time.Now()
	collector := normalizer.NewCollector()

	libOpts := []notiontable.Option{
		notiontable.WithLogger(e.log),
		notiontable.WithDiagnostics(collector),
	}

	var (
		tbl *table.Table
		err error
	)

	if e.input != "" {
		tbl, err = e.readFile(libOpts)
	} else {
		e.log.Info(fmt.Sprintf("🚀 Reading database %s", e.cfg.Notion.DatabaseID))
		tbl, err = notiontable.ReadDatabase(ctx, e.cfg, e.creds, libOpts...)
	}

	if err != nil {
		return nil, err
	}

	e.log.Info(fmt.Sprintf("✅ Built table with %d rows and %d columns", tbl.Len(), tbl.Width()))

	databaseID := e.cfg.Notion.DatabaseID
	if normalized, idErr := config.NormalizeDatabaseID(databaseID); idErr == nil {
		databaseID = normalized
	}

	out, err := sink.New(ctx, sink.Options{
		Output:     e.cfg.Output,
		DatabaseID: databaseID,
		Stdout:     e.stdout,
		Logger:     e.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s output: %w", e.cfg.Output.Format, err)
	}

	written, err := out.Write(ctx, tbl)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close output: %w", closeErr)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to write %s output: %w", e.cfg.Output.Format, err)
	}

	res := &result{
		duration:    time.Since(startTime),
		rows:        tbl.Len(),
		columns:     tbl.Width(),
		written:     written,
		diagnostics: len(collector.Diagnostics()),
	}

	e.printSummary(res)

	return res, nil
}

func (e *exporter) readFile(opts []notiontable.Option) (*table.Table, error) {
	f, err := os.Open(e.input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	pages, err := notiontable.DecodePages(f)
	if err != nil {
		return nil, err
	}

	e.log.Info(fmt.Sprintf("📂 Loaded %d pages from %s", len(pages), e.input))

	return notiontable.ParsePages(pages, opts...), nil
}

// printSummary reports through the logger, keeping stdout free for exported data.
func (e *exporter) printSummary(res *result) {
	target := e.cfg.Output.Path
	if target == "" {
		target = "stdout"
	} else if e.cfg.Output.IsDatabase() {
		target = e.cfg.Output.Table
	}

	e.log.Info("📊 Export complete",
		"format", e.cfg.Output.Format,
		"target", target,
		"rows", res.rows,
		"columns", res.columns,
		"written", res.written,
		"diagnostics", res.diagnostics,
		"duration", res.duration,
	)

	if res.diagnostics > 0 {
		e.log.Warn(fmt.Sprintf("⚠️  %d properties could not be normalized and were left empty", res.diagnostics))
	}
}
