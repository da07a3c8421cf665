package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/killallgit/sttclient/api"
	"github.com/killallgit/sttclient/internal/core"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the client core and the local control API",
	Long: `Run the client core and expose it over the local control API.

The UI layer drives files, tasks and models through the API and polls
/api/v1/events for pushed backend events.

Example:
  sttclient serve
  sttclient serve --port 9090
  sttclient serve --host 0.0.0.0 --port 8765`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Use config values if flags not provided
	if serverHost == "" {
		serverHost = appConfig.Server.Host
	}
	if serverPort == 0 {
		serverPort = appConfig.Server.Port
	}
	if serverPort < 0 || serverPort > 65535 {
		return fmt.Errorf("invalid port %d", serverPort)
	}

	unlock, err := acquireLock(appConfig.Server.LockFile)
	if err != nil {
		return err
	}
	defer unlock()

	app, err := core.New(appConfig)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	app.Start(ctx)

	srv := api.NewServer(api.ServerConfig{
		Address:        fmt.Sprintf("%s:%d", serverHost, serverPort),
		ReadTimeout:    appConfig.Server.ReadTimeout,
		WriteTimeout:   appConfig.Server.WriteTimeout,
		MaxHeaderBytes: appConfig.Server.MaxHeaderBytes,
	}, api.DependenciesFor(app, buildInfo()))
	if err := srv.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting sttclient control API on %s:%d\n", serverHost, serverPort)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down server...")
	case runErr = <-serverErr:
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%v\n", runErr)
		fmt.Fprintln(out, "Shutting down server...")
	}

	// Create a context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Server forced to shutdown: %v\n", err)
		return err
	}

	fmt.Fprintln(out, "Server gracefully stopped")
	return runErr
}

// acquireLock keeps a second server from sharing the history database and models directory
func acquireLock(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another sttclient server is running (lock %s)", path)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("[WARN] Failed to release lock %s: %v", path, err)
		}
	}, nil
}
