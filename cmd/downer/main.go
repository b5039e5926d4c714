package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/mmynk/downer/internal/config"
	"github.com/mmynk/downer/internal/downloader"
	downhttp "github.com/mmynk/downer/internal/http"
	"github.com/mmynk/downer/internal/progress"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitDownloadFailed   = 1
	ExitInvalidArgs      = 2
	ExitDirectoryMissing = 3
)

var errColor = color.New(color.FgRed, color.Bold)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("downer", flag.ContinueOnError)

	url := fs.String("url", "", "Source URL (required)")
	output := fs.String("output", "", "Output file path (default: basename of the URL)")
	configPath := fs.String("config", "", "Path to a YAML config file")
	rateLimit := fs.String("rate-limit", "", "Transfer rate cap, e.g. 1MB (per second)")
	timeout := fs.Duration("timeout", 0, "Whole-request timeout, 0 for none")
	quiet := fs.Bool("quiet", false, "Suppress the progress line")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: downer -url <url> [options]

Download a single file over HTTP, writing it incrementally to disk.
An interrupted transfer resumes from the partial file's length on the
next invocation; Ctrl+C stops cleanly and keeps the partial file.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		fileCfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			errColor.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	flagCfg := config.Config{
		URL:     *url,
		Output:  *output,
		Timeout: *timeout,
		Quiet:   *quiet,
		Verbose: *verbose,
	}
	if *rateLimit != "" {
		limit, err := progress.ParseBytes(*rateLimit)
		if err != nil {
			errColor.Fprintf(os.Stderr, "Error: parse -rate-limit: %v\n", err)
			return ExitInvalidArgs
		}
		flagCfg.RateLimit = limit
	}
	cfg = cfg.Merge(flagCfg)

	if err := cfg.Validate(); err != nil {
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitDownloadFailed
	}
	defer logger.Sync()

	return download(cfg, logger)
}

func download(cfg config.Config, logger *zap.Logger) int {
	cancel := downloader.NewFlag()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ndowner: interrupted, stopping after the current chunk...")
		cancel.Set()
	}()

	var reporter *progress.Reporter
	if !cfg.Quiet {
		reporter = progress.NewReporter(os.Stdout)
	}

	d := downloader.New(cfg.URL, downloader.Options{
		Output:     cfg.Output,
		Cancel:     cancel,
		Progress:   reporter,
		Logger:     logger,
		RateLimit:  cfg.RateLimit,
		BufferSize: cfg.BufferSize,
		HTTPOptions: downhttp.Options{
			Timeout: cfg.Timeout,
		},
	})

	if err := downloader.CheckOutputDir(d.Output()); err != nil {
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitDirectoryMissing
	}

	start := time.Now()
	if err := d.Download(context.Background()); err != nil {
		errColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitDownloadFailed
	}

	if cancel.IsSet() {
		fmt.Fprintf(os.Stderr, "downer: stopped, partial file kept at %s\n", d.Output())
		return ExitSuccess
	}

	fi, err := os.Stat(d.Output())
	if err == nil {
		fmt.Fprintf(os.Stderr, "downer: downloaded %s to %s in %s\n",
			progress.FormatBytes(fi.Size()), d.Output(), time.Since(start).Round(time.Millisecond))
	}
	return ExitSuccess
}

// newLogger builds the process logger: debug-level console output on
// stderr when verbose, a nop logger otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
