package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/app"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/logging"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	errRun := run(ctx, os.Args[1:])
	stop()
	if errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses the subcommand and flags, loads config, and dispatches.
func run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	envFile := fs.String("env-file", ".env", "optional dotenv file loaded before config")
	email := fs.String("email", "", "account email (promote-admin, demote-admin)")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errEnv := godotenv.Load(*envFile); errEnv != nil && !os.IsNotExist(errEnv) {
		return fmt.Errorf("load %s: %w", *envFile, errEnv)
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		return err
	}
	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	switch command {
	case "serve":
		log.Infof("starting with config=%s", appCfg.ConfigPath)
		return app.RunServer(ctx, cfg)
	case "migrate":
		return app.Migrate(ctx, cfg)
	case "promote-admin":
		return app.PromoteAdmin(ctx, cfg, *email, true)
	case "demote-admin":
		return app.PromoteAdmin(ctx, cfg, *email, false)
	default:
		return fmt.Errorf("unknown command %q (want serve, migrate, promote-admin or demote-admin)", command)
	}
}
