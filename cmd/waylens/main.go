package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	waylens "github.com/waylens/waylens"
	"github.com/waylens/waylens/backend/software"
	"github.com/waylens/waylens/internal/logging"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to TOML configuration file")
		displayName = flag.String("display", "", "Wayland display socket name (overrides $WAYLAND_DISPLAY)")
		verbose     = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	cfg := waylens.DefaultConfig()
	cfg.Logger = logger
	cfg.RenderBackend = software.New()
	if *displayName != "" {
		cfg.DisplayName = *displayName
	} else if env := os.Getenv("WAYLAND_DISPLAY"); env != "" {
		cfg.DisplayName = env
	}

	c, err := waylens.New(cfg)
	if err != nil {
		logger.Error("failed to create compositor", "error", err)
		os.Exit(1)
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Error("failed to read config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
		file, err := waylens.ParseConfigFile(data)
		if err != nil {
			logger.Error("failed to parse config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
		if err := c.LoadInto(file, nil, nil); err != nil {
			logger.Error("failed to apply config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("starting compositor",
		"runtime_dir", cfg.RuntimeDir,
		"display", cfg.DisplayName,
		"jay_no_realtime", os.Getenv("JAY_NO_REALTIME") != "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
			buf := make([]byte, 1024*1024)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n%s\n=== END STACK DUMP ===\n\n", buf[:n])

			filename := fmt.Sprintf("waylens-stacks-%d.txt", time.Now().Unix())
			if f, err := os.Create(filename); err == nil {
				fmt.Fprintf(f, "Goroutine stack dump at %s\nProcess ID: %d\n\n", time.Now().Format(time.RFC3339), os.Getpid())
				f.Write(buf[:n])
				fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
				pprof.Lookup("goroutine").WriteTo(f, 2)
				f.Close()
				logger.Info("stack trace written to file", "file", filename)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-runErr:
		if err != nil {
			logger.Error("compositor exited", "error", err)
			_ = c.Shutdown()
			os.Exit(1)
		}
	}

	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		logger.Info("shutdown timeout, forcing exit")
	}

	if err := c.Shutdown(); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	_ = logger.Sync()
}
