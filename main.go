// mediacache fetches, decodes and caches images and animated GIFs on disk
// and shows them in the terminal.
//
// Usage:
//
//	mediacache [flags] URL...
//
// Flags:
//
//	-config string  Path to configuration file (default: ~/.config/mediacache/config.toml)
//	-dir string     Cache directory override
//	-migrate        Migrate legacy cache entries before loading
//	-view           Show the URLs in an interactive viewer
//	-verbose        Enable verbose logging
//	-version        Print version and exit
//
// Without -view every URL is loaded into the cache and a summary is
// printed.
package main

import (
	"context"
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
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/natefinch/lumberjack.v2"

	"gitlab.com/tinyland/lab/mediacache/pkg/config"
	"gitlab.com/tinyland/lab/mediacache/pkg/fetch"
	mcimage "gitlab.com/tinyland/lab/mediacache/pkg/image"
	"gitlab.com/tinyland/lab/mediacache/pkg/mediacache"
	"gitlab.com/tinyland/lab/mediacache/pkg/terminal"
	"gitlab.com/tinyland/lab/mediacache/pkg/viewer"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		cacheDir    = flag.String("dir", "", "Cache directory (overrides config)")
		runMigrate  = flag.Bool("migrate", false, "Migrate legacy cache entries before loading")
		runView     = flag.Bool("view", false, "Show the URLs in an interactive viewer")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mediacache %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *cacheDir != "" {
		cfg.General.CacheDir = *cacheDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	logFile := &lumberjack.Logger{
		Filename:   cfg.General.LogFile,
		MaxSize:    cfg.General.LogMaxSizeMB,
		MaxBackups: cfg.General.LogMaxBackups,
	}
	defer logFile.Close()

	// The viewer owns the terminal, so it logs to the file only.
	var logOut io.Writer = io.MultiWriter(os.Stderr, logFile)
	if *runView {
		logOut = logFile
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel, *verbose),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	caps := terminal.DetectCapabilities(os.Stdout)
	renderer := mcimage.NewRenderer(caps, cfg.Display)
	client := fetch.New(&http.Client{}, cfg.Cache.MaxFetchBytes, logger.With("component", "fetch"))
	loader := mediacache.NewLoader(client, renderer, mediacache.LoaderConfig{
		Workers:      cfg.Cache.Workers,
		MaxDimension: cfg.Cache.MaxDimension,
		FetchTimeout: cfg.Cache.FetchTimeout.Duration,
	}, logger)

	images := mediacache.NewImages(cfg.General.CacheDir, loader, logger)
	images.MinFrameDelay = cfg.Cache.MinFrameDelay.Duration
	defer images.Close()

	logger.Debug("starting mediacache",
		"session", images.SessionID(),
		"dir", cfg.General.CacheDir,
		"terminal", caps.Term,
		"protocol", renderer.Protocol(),
	)

	if *runMigrate || cfg.General.MigrateOnStartup {
		if err := images.MigrateV0(); err != nil {
			logger.Error("cache migration failed", "error", err)
			os.Exit(1)
		}
	}

	urls := flag.Args()
	if len(urls) == 0 {
		if !*runMigrate {
			fmt.Fprintln(os.Stderr, "usage: mediacache [flags] URL...")
			os.Exit(2)
		}
		return
	}

	if *runView {
		entries := make([]viewer.Entry, 0, len(urls))
		for _, u := range urls {
			entries = append(entries, viewer.Entry{URL: u, Type: mediacache.CacheTypeFor(u, "")})
		}
		model := viewer.New(images, renderer, entries, viewer.Options{
			TickInterval: cfg.Display.TickInterval.Duration,
			MaxCols:      cfg.Display.Width,
			MaxRows:      cfg.Display.Height,
			Status:       fmt.Sprintf("%s/%s", caps.Term, renderer.Protocol()),
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Error("viewer error", "error", err)
			os.Exit(1)
		}
		return
	}

	failed := prefetch(ctx, images, client.Mimes(), urls, os.Stdout)
	if failed > 0 {
		os.Exit(1)
	}
}

// loadConfig reads path, or searches the default locations when path is
// empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

func logLevel(name string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// prefetchResult is one line of the prefetch summary.
type prefetchResult struct {
	url    string
	typ    mediacache.CacheType
	value  mediacache.TexturedImage
	err    error
	cached bool
}

// prefetch loads every URL, waits for all pipelines to finish writing and
// prints a summary to w. It returns the number of failed URLs.
func prefetch(ctx context.Context, images *mediacache.Images, mimes *fetch.Mimes, urls []string, w io.Writer) int {
	results := make([]prefetchResult, 0, len(urls))
	for _, u := range urls {
		typ := mediacache.CacheTypeFor(u, "")
		results = append(results, prefetchResult{
			url:    u,
			typ:    typ,
			cached: fileExists(images.Cache(typ).Path(u)),
		})
	}

	promises := make([]*mediacache.Promise[mediacache.TexturedImage], len(results))
	for i, r := range results {
		promises[i] = images.Request(r.url, r.typ)
	}
	for i, p := range promises {
		results[i].value, results[i].err = p.Wait(ctx)
	}

	// A URL without a .gif extension may still serve a GIF; load it again
	// as an animation once the fetched MIME type says so.
	for i, r := range results {
		if r.err != nil || r.typ == mediacache.CacheGif {
			continue
		}
		if mt, ok := mimes.Get(r.url); ok && mediacache.CacheTypeFor(r.url, mt) == mediacache.CacheGif {
			results[i].typ = mediacache.CacheGif
			results[i].cached = fileExists(images.Gifs.Path(r.url))
			results[i].value, results[i].err = images.Request(r.url, mediacache.CacheGif).Wait(ctx)
		}
	}

	// Close waits for streamed frames to be written to disk.
	images.Close()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tTYPE\tFRAMES\tSOURCE\tURL")
	var failed int
	for _, r := range results {
		status, frames, source := "ok", "-", "fetched"
		if r.cached {
			source = "disk"
		}
		switch v := r.value.(type) {
		case mediacache.StaticImage:
			frames = "1"
		case *mediacache.Animation:
			v.Drain()
			frames = fmt.Sprint(v.NumFrames())
		}
		if r.err != nil {
			status, source = "error", r.err.Error()
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", status, r.typ, frames, source, r.url)
	}
	tw.Flush()
	return failed
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
