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
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/transport/http"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/user"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/devgateway"
)

const (
	appName = "whiskey"
	svcName = "devgateway"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig            `envPrefix:"LOG_"`
	Gateway devgateway.Config               `envPrefix:"GATEWAY_"`
	HTTP    devgateway.HTTPTransportConfig  `envPrefix:"HTTP_"`
	User    user.SQLiteUserRepositoryConfig `envPrefix:"USER_"`
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
	log := logging.GetLogger("cmd.devgateway")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	svc, err := devgateway.NewService(user.SQLiteUserRepositoryFactory(cfg.User), cfg.Gateway)
	if err != nil {
		return fmt.Errorf("new service: %w", err)
	}

	defer func() {
		if cerr := svc.Close(); cerr != nil {
			log.WarnContext(ctx, "close service", "err", cerr)
		}
	}()

	if err := http.ListenAndServe(ctx, devgateway.NewHTTPTransport(svc), cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
