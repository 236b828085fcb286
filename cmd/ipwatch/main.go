package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ipwatch/internal/cache"
	"ipwatch/internal/checker"
	"ipwatch/internal/config"
	"ipwatch/internal/logger"
	"ipwatch/internal/lookup"
	"ipwatch/internal/notify"
	"ipwatch/internal/types"
	"ipwatch/internal/version"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK     = 0
	exitConfig = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one check and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// Values already in the environment win over .env files
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	fs := pflag.NewFlagSet(config.AppName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	if showVersion, _ := fs.GetBool("version"); showVersion {
		_, _ = fmt.Fprintln(stdout, version.GetInfo().String())
		return exitOK
	}

	cfg, err := config.Load(fs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return exitConfig
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, types.ErrMissingCredentials) {
			_, _ = fmt.Fprintln(stderr, "Set --token and --chat (or TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID) please.")
			fs.PrintDefaults()
		} else {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
		}
		return exitConfig
	}

	log, err := logger.New(&cfg.Log,
		zap.String("name", cfg.Name),
		zap.String("version", version.Version))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		return exitConfig
	}
	defer func(l *zap.Logger) {
		_ = l.Sync()
	}(log)

	if err := check(ctx, cfg, log); err != nil {
		log.Error("Invalid setup", zap.Error(err))
		return exitConfig
	}
	return exitOK
}

// check wires the components and runs a single check. Only setup errors are
// returned; everything that happens during the check is logged.
func check(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := cache.NewStore(&cfg.Cache, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Debug("Failed to close cache store", zap.Error(err))
		}
	}()

	resolver, err := lookup.NewResolver(&cfg.Lookup, log)
	if err != nil {
		return err
	}
	defer resolver.Close()

	notifier, err := notify.NewTelegramNotifier(&cfg.Telegram, nil, log)
	if err != nil {
		return err
	}
	defer notifier.Close()

	c := checker.New(checker.Options{
		Name:                    cfg.Name,
		SkipSaveOnNotifyFailure: cfg.Cache.SkipSaveOnNotifyFailure,
	}, store, resolver, notifier, log)

	res := c.Check(ctx)
	log.Debug("Check finished", zap.String("outcome", string(res.Outcome)))
	return nil
}
