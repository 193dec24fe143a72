package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const usage = `usage: crsw [-config file] [-log-level level] <command> [args]

commands:
  latex [-header] <source>   print the puzzle as cwpuzzle markup
  solution <source>          print the filled grid and all answers
  scan <image>               print the questions read from a photo (needs Gemini)
  serve                      run the HTTP API

<source> is a file path, "-" for stdin, or an http(s) URL.
`

// usageError makes main exit with status 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("crsw", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "HCL config file")
	levelStr := fs.String("log-level", "info", "debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return &usageError{err.Error()}
	}

	logger := newLogger(stderr, *levelStr)
	slog.SetDefault(logger)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return &usageError{"no command given"}
	}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "latex":
		return runLatex(ctx, stdout, cfg, cmdArgs)
	case "solution":
		return runSolution(ctx, stdout, cfg, cmdArgs)
	case "scan":
		return runScan(ctx, stdout, cfg, cmdArgs)
	case "serve":
		return runServe(ctx, cfg, logger)
	default:
		return &usageError{fmt.Sprintf("unknown command %q", cmd)}
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func runLatex(ctx context.Context, stdout io.Writer, cfg Config, args []string) error {
	fs := flag.NewFlagSet("latex", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	header := fs.Bool("header", false, "prefix the page header with the puzzle number")
	if err := fs.Parse(args); err != nil {
		return &usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return &usageError{"latex: expected exactly one source"}
	}

	p, err := NewLoader(cfg.FetchTimeout).Load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if *header {
		_, err = io.WriteString(stdout, p.Latex(cfg.Labels))
	} else {
		_, err = io.WriteString(stdout, RenderLatex(p.Grid, p.Questions, cfg.Labels))
	}
	return err
}

func runSolution(ctx context.Context, stdout io.Writer, cfg Config, args []string) error {
	if len(args) != 1 {
		return &usageError{"solution: expected exactly one source"}
	}
	p, err := NewLoader(cfg.FetchTimeout).Load(ctx, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, p.Solution(cfg.Labels))
	return err
}

func runScan(ctx context.Context, stdout io.Writer, cfg Config, args []string) error {
	if len(args) != 1 {
		return &usageError{"scan: expected exactly one image"}
	}
	var mimeType string
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".png":
		mimeType = "image/png"
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	default:
		return &usageError{"scan: image must be .png, .jpg or .jpeg"}
	}
	gemini, err := NewGeminiClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	p, err := gemini.ScanImage(ctx, data, mimeType)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p.Questions)
}

func runServe(ctx context.Context, cfg Config, logger *slog.Logger) error {
	var gemini *GeminiClient
	if cfg.GCPProject != "" {
		var err error
		gemini, err = NewGeminiClient(ctx, cfg)
		if err != nil {
			return err
		}
		logger.Info("gemini client ready", "project", cfg.GCPProject, "region", cfg.GCPRegion)
	} else {
		logger.Warn("GCP_PROJECT_ID not set, image scanning disabled")
	}

	api := NewServer(NewStore(), gemini, cfg.Labels, logger)
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           requestLogger(logger, api),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// statusWriter captures HTTP status and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush keeps SSE streaming working through the logger.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestLogger logs method, path, status, bytes and duration of each request.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"dur", time.Since(start).Round(time.Millisecond),
		)
	})
}
