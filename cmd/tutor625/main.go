package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/api"
	"github.com/smith3v/tutor625/pkg/bot/handlers"
	"github.com/smith3v/tutor625/pkg/bot/pending"
	"github.com/smith3v/tutor625/pkg/bot/reminders"
	"github.com/smith3v/tutor625/pkg/config"
	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "tutor625",
		Short:         "Study planner bot with guided sessions and spaced repetition",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfigWithFlags(configFile, cmd.Flags()); err != nil {
				return err
			}
			if err := logger.Configure(logger.Options{
				Level:  config.AppConfig.Logging.Level,
				File:   config.AppConfig.Logging.File,
				Format: config.AppConfig.Logging.Format,
			}); err != nil {
				logger.Error("failed to configure logger", "error", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "path to the yaml config file")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(*cobra.Command, []string) error {
			if err := db.InitDB(config.AppConfig.Database); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			logger.Info("database schema is up to date")
			return nil
		},
	})
	return root
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.AppConfig

	if err := db.InitDB(cfg.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		return err
	}

	asker, err := ai.New(cfg.AI)
	if err != nil {
		logger.Error("failed to configure ai assistant", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := session.NewManager(nil, progress.NewStore(nil), cfg.Session.InactivityTimeout, true)
	defer manager.CloseAll()
	handlers.Setup(manager, asker)

	b, err := bot.New(cfg.Telegram.Token, bot.WithDefaultHandler(handlers.DefaultHandler))
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		return err
	}
	handlers.Register(b)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bot...")
		b.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return api.New(cfg.HTTP, asker, cfg.Session.ReviewBatchSize).Run(ctx, cfg.HTTP.Addr)
	})
	g.Go(func() error {
		reminders.StartPeriodicMessages(ctx, b)
		return nil
	})
	g.Go(func() error {
		manager.StartSweeper(ctx)
		return nil
	})
	g.Go(func() error {
		pending.DefaultManager.StartSweeper(ctx)
		return nil
	})
	g.Go(func() error {
		db.StartSessionCleanup(ctx, 0)
		return nil
	})

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
