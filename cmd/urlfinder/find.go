package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/urlfinder/pkg/config"
	"github.com/Sriram-PR/urlfinder/pkg/finder"
	"github.com/Sriram-PR/urlfinder/pkg/log"
	"github.com/Sriram-PR/urlfinder/pkg/models"
	"github.com/Sriram-PR/urlfinder/pkg/storage"
	"github.com/Sriram-PR/urlfinder/pkg/urls"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// stdinSource names standard input in reports
const stdinSource = "-"

// runFind handles the find subcommand
func runFind(args []string) {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to YAML config file (optional)")
	baseURL := fs.String("base-url", "", "Base URL for relative links in HTML")
	strict := fs.Bool("strict", true, "Bracket tokens need both delimiters")
	domainAsURL := fs.Bool("domain-as-url", false, "Treat bare domains as URLs")
	scheme := fs.String("scheme", "", "Scheme given to bare domains (http, https, ftp)")
	exclude := fs.String("exclude", "", "Comma-separated regex patterns for URLs to drop")
	workers := fs.Int("workers", 0, "Inputs processed concurrently")
	format := fs.String("format", "", "Output format (text, yaml, json)")
	stateDir := fs.String("state-dir", "", "Directory of the report database; unchanged inputs are not rescanned")
	resetState := fs.Bool("reset-state", false, "Remove stored reports before scanning")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: urlfinder find [options] [file]...\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  urlfinder find message.eml page.html\n")
		fmt.Fprintf(os.Stderr, "  cat page.html | urlfinder find -base-url https://domain.com -format json\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := log.NewLogger(*logLevel, os.Stderr)
	entry := logrus.NewEntry(logger)
	urls.SetLogger(entry)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}

	// Flags given on the command line win over the config file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = *baseURL
		case "strict":
			cfg.Strict = strict
		case "domain-as-url":
			cfg.DomainAsURL = *domainAsURL
		case "scheme":
			cfg.DefaultScheme = *scheme
		case "exclude":
			cfg.ExcludePatterns = append(cfg.ExcludePatterns, strings.Split(*exclude, ",")...)
		case "workers":
			cfg.Workers = *workers
		case "format":
			cfg.OutputFormat = *format
		case "state-dir":
			cfg.StateDir = *stateDir
		}
	})

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Debug(w)
	}
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var store storage.ReportStore
	if cfg.StateDir != "" {
		badgerStore, err := storage.NewBadgerStore(cfg.StateDir, *resetState, entry)
		if err != nil {
			logger.Fatalf("Failed to open report database: %v", err)
		}
		go badgerStore.RunGC(ctx, 10*time.Minute)
		store = badgerStore
	}

	exitCode := doFind(ctx, cfg, fs.Args(), os.Stdin, os.Stdout, store, entry)
	stop()
	if store != nil {
		if err := store.Close(); err != nil {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// doFind scans every source and writes the reports. store may be nil. Returns exit code
// (0 = success, 1 = at least one source failed).
func doFind(ctx context.Context, cfg *config.Config, sources []string, stdin io.Reader, stdout io.Writer,
	store storage.ReportStore, entry *logrus.Entry) int {
	logger := log.Component(entry, "cli")

	opts, err := finder.OptionsFromConfig(cfg, entry)
	if err != nil {
		logger.Errorf("Configuration error: %v", err)
		return 1
	}

	if len(sources) == 0 {
		sources = []string{stdinSource}
	}

	s := &scanner{opts: opts, stdin: stdin, store: store, fingerprint: cfg.Fingerprint(), log: logger}
	reports := make([]models.Report, len(sources))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, source := range sources {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			reports[i] = s.scan(source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Scan cancelled.")
		} else {
			logger.Errorf("Scan failed: %v", err)
		}
		return 1
	}

	if err := writeReports(stdout, cfg.OutputFormat, reports); err != nil {
		logger.Errorf("Writing output: %v", err)
		return 1
	}

	for _, r := range reports {
		if r.Status == models.ReportStatusFailure {
			return 1
		}
	}
	return 0
}

type scanner struct {
	opts        finder.Options
	stdin       io.Reader
	store       storage.ReportStore
	fingerprint string
	log         *logrus.Entry
}

func (s *scanner) scan(source string) models.Report {
	logger := s.log.WithField("source", source)

	blob, err := readSource(source, s.stdin)
	if err != nil {
		logger.WithField("category", utils.CategorizeError(err)).Errorf("Skipping input: %v", err)
		return models.FailedReport(source, err)
	}

	digest := utils.CalculateSHA256(blob)
	if s.store != nil {
		stored, found, err := s.store.GetReport(s.fingerprint, digest)
		if err != nil {
			logger.WithField("category", utils.CategorizeError(err)).Warnf("Report lookup failed, scanning: %v", err)
		} else if found {
			stored.Source = source
			stored.Cached = true
			logger.WithField("urls", stored.Count).Info("Reusing stored report")
			return *stored
		}
	}

	found := finder.Find(blob, s.opts)
	report := models.NewReport(source, finder.DetectKind(blob).String(), blob, found)
	logger.WithFields(logrus.Fields{
		"kind": report.Kind,
		"urls": report.Count,
	}).Info("Scanned input")

	if s.store != nil {
		if err := s.store.PutReport(s.fingerprint, report); err != nil {
			logger.WithField("category", utils.CategorizeError(err)).Warnf("Could not store report: %v", err)
		}
	}
	return report
}

func readSource(source string, stdin io.Reader) ([]byte, error) {
	if source == stdinSource {
		blob, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: reading stdin: %w", utils.ErrFilesystem, err)
		}
		return blob, nil
	}
	blob, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", utils.ErrFilesystem, source, err)
	}
	return blob, nil
}

// writeReports prints the sorted union of every URL for the text format, and the full
// reports otherwise
func writeReports(w io.Writer, format string, reports []models.Report) error {
	if format != "" && format != "text" {
		return encode(w, format, reports)
	}

	var all []string
	for _, r := range reports {
		all = append(all, r.URLs...)
	}
	slices.Sort(all)
	for _, u := range slices.Compact(all) {
		if _, err := fmt.Fprintln(w, u); err != nil {
			return err
		}
	}
	return nil
}
