package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/config"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/metrics"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/transport/http"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/gateway"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/session"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/webapp"
)

const (
	appName = "whiskey"
	svcName = "web"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig      `envPrefix:"LOG_"`
	HTTP    http.HTTPTransportConfig  `envPrefix:"HTTP_"`
	Storage storage.Config            `envPrefix:"STORAGE_"`
	Gateway gateway.HTTPGatewayConfig `envPrefix:"GATEWAY_"`
	Web     webapp.Config             `envPrefix:"WEB_"`

	// RemoteRestore resolves the principal from the gateway when only the token is stored
	RemoteRestore bool `env:"SESSION_REMOTE_RESTORE" envDefault:"false"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.LoadDotenv(); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.whiskeyweb")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	st, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("new storage: %w", err)
	}

	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.WarnContext(ctx, "close storage", "err", cerr)
		}
	}()

	app := newApp(ctx, cfg, st)

	if err := http.ListenAndServe(ctx, app.Router(), cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// newApp wires the session store to the route surface. The stored session is
// restored before it returns, so no request ever sees it loading.
func newApp(ctx context.Context, cfg Config, st storage.Storage) *webapp.App {
	m := metrics.New()

	store := session.NewStore(
		gateway.NewHTTPGateway(cfg.Gateway, nil),
		st,
		session.WithMetrics(m),
		session.WithRemoteRestore(cfg.RemoteRestore),
	)

	store.Restore(ctx)

	return webapp.New(cfg.Web, store, m)
}
