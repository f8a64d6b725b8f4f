package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plagiaguard/plagctl/internal/cache"
	"github.com/plagiaguard/plagctl/internal/config"
	"github.com/plagiaguard/plagctl/internal/dash"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local report cache over HTTP",
	Long: `Serve a small read-only HTTP API over the local report cache, for
dashboards and scripts that want cached results without backend access.

Requires a bearer token via PLAGCTL_SERVE_TOKEN.`,
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cache server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running cache server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServe()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showServeStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "plagctl.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if cfg.Serve.Token == "" {
		return fmt.Errorf("serve requires a bearer token: set PLAGCTL_SERVE_TOKEN")
	}

	// Refuse to double-start. Health probe first, then PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Serve.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Serve.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cache.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening report cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing report cache", "error", err)
		}
	}()

	handler := dash.NewHandler(dash.Deps{Cache: store, Token: cfg.Serve.Token})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Serve.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("cache server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("cache server is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop server (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to cache server (PID %d)", pid)
	return nil
}

func showServeStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 2 * time.Second}
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Serve.Port)
	resp, err := client.Get(healthURL)
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Serve.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Cache summary works with or without the server.
	store, err := cache.Open(cfg.Storage.DataDir)
	if err == nil {
		defer store.Close()
		if meta, err := store.Meta(); err == nil {
			printStatus("Cached listing", "page %d of %d (%d reports total), fetched %s",
				meta.Page, meta.Pages, meta.Total, meta.FetchedAt.Local().Format("2006-01-02 15:04"))
		} else {
			printStatus("Cached listing", "empty")
		}
	}

	printStatus("Backend", "%s", cfg.API.BaseURL)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func init() {
	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
}
