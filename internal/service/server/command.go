package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/silentcmz/careate-hot-code-push/internal/logger"
)

const (
	// DefaultServerAddress is the listen address used when none is provided.
	DefaultServerAddress = ":8090"

	// readHeaderTimeout bounds slow clients before the handler runs.
	readHeaderTimeout = 10 * time.Second

	// shutdownTimeout bounds the graceful drain on exit.
	shutdownTimeout = 5 * time.Second
)

var errNotADirectory = errors.New("content path is not a directory")

// Options controls the content server process.
type Options struct {
	// ListenAddress is the host:port to serve on.
	ListenAddress string
	// ContentDir is the packaged content directory to serve.
	ContentDir string
}

// Run starts the HTTP content server and blocks until the context is
// canceled or the server stops.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "chcp-server")

	info, err := os.Stat(opts.ContentDir)
	if err != nil {
		return fmt.Errorf("stat content directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", errNotADirectory, opts.ContentDir)
	}

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = DefaultServerAddress
	}

	// Setup TCP listener for the HTTP server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	server := &http.Server{
		Handler:           newHandler(ctx, opts.ContentDir),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Content server listening",
		"listen_address", lis.Addr().String(), "content_dir", opts.ContentDir)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down content server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.WarnKV(ctx, "Content server shutdown failed", "error", shutdownErr)
		}

		close(done)
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve content: %w", err)
	}

	<-done
	logger.Info(ctx, "Content server stopped")

	return nil
}
