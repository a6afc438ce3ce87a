package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// HTTPTransportConfig contains configuration parameters for HTTP servers.
type HTTPTransportConfig struct {
	// ServerAddr is the network address to listen on
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	// Timeouts in seconds
	ReadHeaderTimeout int64 `env:"READ_HEADER_TIMEOUT" envDefault:"5"`
	ReadTimeout       int64 `env:"READ_TIMEOUT"        envDefault:"10"`
	WriteTimeout      int64 `env:"WRITE_TIMEOUT"       envDefault:"10"`
	ShutdownTimeout   int64 `env:"SHUTDOWN_TIMEOUT"    envDefault:"10"`
}

func seconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

// Wrap applies the standard middleware stack: tracing, logging and panic recovery.
func Wrap(handler http.Handler, log logging.Logger) http.Handler {
	handler = RescueingMiddleware(handler, log)
	handler = LoggingMiddleware(handler, log)
	handler = TracingMiddleware(handler)

	return handler
}

// ListenAndServe serves handler wrapped in the standard middleware stack until ctx is
// cancelled, then shuts the server down gracefully.
func ListenAndServe(ctx context.Context, handler http.Handler, cfg HTTPTransportConfig) error {
	log := logging.GetLogger("infra.transport.http")

	//nolint:exhaustruct
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           Wrap(handler, log),
		ErrorLog:          logging.GetLogLogger(log, logging.LevelError),
		ReadHeaderTimeout: seconds(cfg.ReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.ReadTimeout),
		WriteTimeout:      seconds(cfg.WriteTimeout),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.InfoContext(ctx, "listening", "addr", sock.Addr().String())

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Serve(sock)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seconds(cfg.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
