// CLAUDE:SUMMARY CLI entry point for hydrate: decode a page's hydration payload from a file, URL or live browser, or serve it over HTTP/MCP.
// Command hydrate extracts and decodes the hydration payload of a rendered
// page and prints the state as JSON.
//
// Usage:
//
//	hydrate -file page.html                  # decode a saved document ("-" = stdin)
//	hydrate -url http://localhost:3000/      # fetch the SSR HTML and decode it
//	hydrate -url http://localhost:3000/ -browser [-check]
//	                                         # render in Chrome, wait for hydration
//	hydrate -serve                           # HTTP API on $PORT
//	hydrate -mcp                             # MCP server on stdio
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
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hydrate"
	"github.com/hazyhaar/hydrate/internal/fetcher"
	"github.com/hazyhaar/hydrate/locate"
	"github.com/hazyhaar/hydrate/poll"
	"github.com/hazyhaar/hydrate/render"
)

type options struct {
	file     string
	url      string
	browser  bool
	check    bool
	ready    string
	mode     string
	config   string
	serve    bool
	mcp      bool
	logLevel string
}

func main() {
	var o options
	flag.StringVar(&o.file, "file", "", "decode an HTML document from a file (- for stdin)")
	flag.StringVar(&o.url, "url", "", "fetch and decode a page")
	flag.BoolVar(&o.browser, "browser", false, "render -url in headless Chrome instead of fetching it")
	flag.BoolVar(&o.check, "check", false, "with -browser: fail on client page errors or console errors/warnings")
	flag.StringVar(&o.ready, "ready", "", "with -browser: JS readiness predicate (receives the path)")
	flag.StringVar(&o.mode, "mode", "", "payload mode: js or json (default: $"+hydrate.EnvPayloadMode+" or json)")
	flag.StringVar(&o.config, "config", "", "path to hydrate.yaml config file")
	flag.BoolVar(&o.serve, "serve", false, "serve the HTTP API on $PORT")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools on stdio")
	flag.StringVar(&o.logLevel, "log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch o.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("hydrate: fatal", "error", err, "kind", hydrate.ErrorKind(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	cfg.Logger = logger

	dec, err := hydrate.New(*cfg, nil)
	if err != nil {
		return err
	}

	switch {
	case o.serve:
		return runServe(ctx, logger, dec)
	case o.mcp:
		return runMCP(ctx, dec)
	case o.url != "" && o.browser:
		return runBrowser(ctx, logger, dec, o)
	case o.url != "":
		return runFetch(ctx, logger, dec, cfg, o.url)
	case o.file != "":
		return runFile(ctx, dec, o.file)
	}

	fmt.Fprintln(os.Stderr, "usage: hydrate -file <path> | -url <url> [-browser] | -serve | -mcp")
	os.Exit(2)
	return nil
}

func loadConfig(o options) (*hydrate.Config, error) {
	cfg := &hydrate.Config{Mode: hydrate.ModeFromEnv(os.Getenv)}
	if o.config != "" {
		var err error
		if cfg, err = hydrate.LoadConfigFile(o.config); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if o.mode != "" {
		m, err := locate.ParseMode(o.mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = m
	}
	return cfg, nil
}

func runFile(ctx context.Context, dec *hydrate.Decoder, path string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return decodeAndPrint(ctx, dec, string(data))
}

func runFetch(ctx context.Context, logger *slog.Logger, dec *hydrate.Decoder, cfg *hydrate.Config, pageURL string) error {
	opts := []fetcher.Option{
		fetcher.WithLogger(logger),
		fetcher.WithAllowPrivate(cfg.Fetch.AllowPrivate),
		fetcher.WithMaxBytes(cfg.Fetch.MaxBytes),
	}
	if cfg.Fetch.UserAgent != "" {
		opts = append(opts, fetcher.WithUserAgent(cfg.Fetch.UserAgent))
	}
	res, err := fetcher.New(opts...).Fetch(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if res.StatusCode >= 400 {
		logger.Warn("hydrate: page returned an error status", "url", pageURL, "status", res.StatusCode)
	}
	return decodeAndPrint(ctx, dec, res.HTML)
}

func runBrowser(ctx context.Context, logger *slog.Logger, dec *hydrate.Decoder, o options) error {
	u, err := url.Parse(o.url)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	base := (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()

	r, err := render.New(ctx, render.Config{BaseURL: base, Ready: o.ready, Logger: logger})
	if err != nil {
		return err
	}
	defer r.Close()

	page, err := r.Render(ctx, u.RequestURI())
	if err != nil {
		return err
	}
	defer page.Close()

	// Client navigation may swap the document after the first paint.
	var doc string
	err = poll.Equal(ctx, func(ctx context.Context) (bool, error) {
		html, err := page.HTML(ctx)
		if err != nil {
			return false, err
		}
		doc = html
		_, err = locate.Locate(html, dec.Mode())
		return err == nil, nil
	}, true, poll.DefaultOptions())
	if err != nil {
		return fmt.Errorf("payload never appeared: %w", err)
	}

	if o.check {
		if err := render.CheckClientErrors(u.RequestURI(), page.PageErrors(), page.ConsoleLogs()); err != nil {
			return err
		}
	}
	return decodeAndPrint(ctx, dec, doc)
}

func runServe(ctx context.Context, logger *slog.Logger, dec *hydrate.Decoder) error {
	port := env("PORT", "8086")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           dec.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", port, "mode", dec.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(ctx context.Context, dec *hydrate.Decoder) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "hydrate", Version: "1.0.0"}, nil)
	dec.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func decodeAndPrint(ctx context.Context, dec *hydrate.Decoder, doc string) error {
	res, err := dec.Decode(ctx, doc)
	if err != nil {
		return err
	}
	v, err := res.Plain()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"mode":  res.Mode,
		"attrs": res.Attrs,
		"value": v,
	})
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
