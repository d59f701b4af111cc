package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/scamguard/internal/bot"
	"github.com/iamwavecut/scamguard/internal/config"
	"github.com/iamwavecut/scamguard/internal/db"
	"github.com/iamwavecut/scamguard/internal/db/sqlstore"
	handlers "github.com/iamwavecut/scamguard/internal/handlers/commands"
	"github.com/iamwavecut/scamguard/internal/i18n"
	"github.com/iamwavecut/scamguard/internal/infra"
	"github.com/iamwavecut/scamguard/internal/jobs/gauges"
	"github.com/iamwavecut/scamguard/internal/lifecycle"
	"github.com/iamwavecut/scamguard/internal/moderation"
	"github.com/iamwavecut/scamguard/internal/observability"
	"github.com/iamwavecut/scamguard/internal/policy/permissions"
	"github.com/iamwavecut/scamguard/internal/registry"
)

const shutdownTimeout = 15 * time.Second

var errExecutableModified = errors.New("executable file was modified")

func main() {
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, errExecutableModified) {
			log.Warnln(err)
			os.Exit(0)
		}
		log.WithError(err).Fatalln("scamguard stopped")
	}
	log.Infoln("bye")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTelemetry, err := observability.Init(ctx)
	if err != nil {
		return errors.Wrap(err, "init observability")
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.WithError(err).Warn("cant flush telemetry")
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return errors.Wrap(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	log.WithFields(log.Fields{
		"bot":      bot.GetUN(&botAPI.Self),
		"language": i18n.GetLanguageName(cfg.DefaultLanguage),
	}).Infoln("authorized")

	gate := permissions.NewGate(store)
	commands := handlers.NewCommands(
		botAPI,
		moderation.NewService(store, gate, cfg.Moderation.BanlistLimit),
		registry.NewService(store, gate),
		botAPI.Self.UserName,
		cfg.DefaultLanguage,
	)
	owner := db.RoleRecord{UserID: cfg.Owner.ID, Username: cfg.Owner.Username}
	service := bot.NewService(botAPI, store, owner, bot.NewUpdateProcessor(commands), log.WithField("app", "scamguard"))

	runtime := lifecycle.NewRuntime().
		Register("metrics", observability.NewServer(cfg.Observability.MetricsAddr, store)).
		Register("gauges", gauges.New(store, cfg.Observability.GaugesSchedule)).
		Register("bot", service)
	if err := runtime.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case _, ok := <-infra.MonitorExecutable(gctx):
			if ok {
				return errExecutableModified
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	waitErr := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := runtime.Stop(stopCtx); err != nil {
		log.WithError(err).Warn("unclean shutdown")
	}
	return waitErr
}

func openStore(ctx context.Context, cfg config.Config) (db.Client, error) {
	policy := sqlstore.RetryPolicy{
		MaxRetries: cfg.Storage.MaxRetries,
		Min:        cfg.Storage.RetryMin,
		Max:        cfg.Storage.RetryMax,
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		client, err := sqlstore.NewPostgresClient(ctx, cfg.Storage.URL)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres storage")
		}
		client.SetRetryPolicy(policy)
		return client, nil
	default:
		dir, err := infra.GetWorkDir(cfg.DotPath)
		if err != nil {
			return nil, errors.Wrap(err, "resolve storage dir")
		}
		client, err := sqlstore.NewSQLiteClient(ctx, dir, cfg.Storage.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite storage")
		}
		client.SetRetryPolicy(policy)
		return client, nil
	}
}
