// Package main provides the ezerr command. It reads newline-delimited JSON
// error entries and reports each well-formed one through the configured
// log handlers and publishers.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/isseis/go-ezerr/ezerr"
	"github.com/isseis/go-ezerr/internal/bootstrap"
	"github.com/isseis/go-ezerr/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxEntrySize      = 1 << 20
)

var errStrictReported = errors.New("errors were reported in strict mode")

// entry is one input line.
type entry struct {
	Domain      string `json:"domain"`
	Code        int    `json:"code"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	File        string `json:"file"`
	Function    string `json:"function"`
	Line        int    `json:"line"`
}

type cliOptions struct {
	configPath    string
	envFile       string
	input         string
	logLevel      string
	interactive   bool
	quiet         bool
	metricsListen string
	strict        bool
}

// summary counts what happened to the input lines.
type summary struct {
	Processed int
	Reported  int
	Inert     int
	Invalid   int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, fs, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		printUsage(fs, stderr)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	rt, err := bootstrap.Setup(bootstrap.Options{
		Config:           cfg,
		Console:          stderr,
		ForceInteractive: opts.interactive,
		ForceQuiet:       opts.quiet,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: shutdown incomplete: %v\n", err)
		}
	}()
	slog.SetDefault(rt.Logger)
	ezerr.SetDefault(rt.Reporter)

	if cfg.Metrics.Listen != "" {
		stopMetrics, err := serveMetrics(rt, cfg.Metrics.Listen)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer stopMetrics()
	}

	in, closeInput, err := openInput(opts.input, stdin)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeInput()

	sum, err := processEntries(ezerr.WithMainThread(ctx), in)
	printSummary(stdout, sum)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if opts.strict && sum.Reported > 0 {
		_, _ = fmt.Fprintf(stderr, "Error: %v (%d)\n", errStrictReported, sum.Reported)
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*cliOptions, *flag.FlagSet, error) {
	opts := &cliOptions{}

	fs := flag.NewFlagSet("ezerr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	fs.StringVar(&opts.configPath, "config", "", "Path to the TOML configuration file")
	fs.StringVar(&opts.envFile, "env-file", "", "Path to a .env file (default: .env in the working directory, if present)")
	fs.StringVar(&opts.input, "input", "", "Path to the NDJSON input file (default: stdin)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Report log level: debug, info, warn, error (overrides config)")
	fs.BoolVar(&opts.interactive, "interactive", false, "Force interactive console output with colors")
	fs.BoolVar(&opts.quiet, "quiet", false, "Force plain console output")
	fs.StringVar(&opts.metricsListen, "metrics-listen", "", "Address to serve Prometheus metrics on, e.g. :9090")
	fs.BoolVar(&opts.strict, "strict", false, "Exit with status 1 if any error was reported")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if fs.NArg() > 0 {
		return nil, fs, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, fs, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	if fs == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Usage: %s [flags] < errors.ndjson\n", filepath.Base(os.Args[0]))
	fs.PrintDefaults()
}

// loadConfig applies, in increasing priority, the config file, the
// environment and the command line flags.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if opts.logLevel != "" {
		cfg.Report.Level = opts.logLevel
	}
	if opts.metricsListen != "" {
		cfg.Metrics.Listen = opts.metricsListen
		cfg.Metrics.Enabled = true
	}
	return cfg, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	// #nosec G304 - the path comes from the operator's command line
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// serveMetrics starts the /metrics endpoint and returns a function that
// shuts it down.
func serveMetrics(rt *bootstrap.Runtime, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Warn("Metrics server stopped", "error", err)
		}
	}()
	rt.Logger.Info("Serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// processEntries reports every entry read from r through the default
// reporter. Lines that are not valid JSON are logged and counted.
func processEntries(ctx context.Context, r io.Reader) (summary, error) {
	var sum summary
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntrySize)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		sum.Processed++

		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			sum.Invalid++
			slog.Warn("Skipping invalid entry", "line", lineNo, "error", err)
			continue
		}

		v := ezerr.New(e.Domain, e.Code, e.Description)
		if ezerr.CheckAndReturn(ctx, v, e.Detail, ezerr.At(e.File, e.Function, e.Line)) {
			sum.Reported++
			continue
		}
		sum.Inert++
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("failed to read input: %w", err)
	}
	return sum, nil
}

func printSummary(w io.Writer, sum summary) {
	_, _ = fmt.Fprintf(w, "Summary: processed=%d reported=%d inert=%d invalid=%d\n",
		sum.Processed, sum.Reported, sum.Inert, sum.Invalid)
}
