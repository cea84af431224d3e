package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KAMASDM/augustina/internal/calculator"
	"github.com/KAMASDM/augustina/internal/config"
	"github.com/KAMASDM/augustina/internal/content"
	"github.com/KAMASDM/augustina/internal/db"
	"github.com/KAMASDM/augustina/internal/enquiry"
	"github.com/KAMASDM/augustina/internal/logging"
	"github.com/KAMASDM/augustina/internal/metrics"
	"github.com/KAMASDM/augustina/internal/migrations"
	"github.com/KAMASDM/augustina/internal/seed"
	"github.com/KAMASDM/augustina/internal/seo"
)

var configPath string

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCommand()

	root := &cobra.Command{
		Use:   "augustina",
		Short: "Asia Biomass site and process resource calculator",
		Long: `augustina serves the Asia Biomass site, including the industrial process
resource calculator, and offers the calculator headless from the command line.

Running without a subcommand starts the site.

Examples:
  augustina serve --config ./config.yaml
  augustina calc --preset briquette --units 1=4,5=2
  augustina sitemap > sitemap.xml
  augustina migrate`,
		SilenceUsage: true,
		RunE:         serve.RunE,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default ./config.yaml when present)")

	root.AddCommand(serve)
	root.AddCommand(newCalcCommand())
	root.AddCommand(newSitemapCommand())
	root.AddCommand(newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the site",
		Long: `Run the site until interrupted.

The enquiry outbox is migrated and the notification routes are seeded before the
listener starts. SIGINT or SIGTERM drains in-flight requests and stops the
enquiry dispatcher.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

// bootstrap loads configuration and builds the logger every command shares.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}
	return cfg, logger, nil
}

// openOutbox opens the enquiry database, applies migrations and seeds the
// notification routes.
func openOutbox(ctx context.Context, cfg *config.Config) (*sql.DB, seed.Stats, error) {
	database, err := db.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, seed.Stats{}, fmt.Errorf("open database: %w", err)
	}
	if err := migrations.Up(ctx, database); err != nil {
		_ = database.Close()
		return nil, seed.Stats{}, fmt.Errorf("run migrations: %w", err)
	}
	stats, err := seed.Run(ctx, database, seed.Config{Routes: notificationRoutes(cfg.Mail)})
	if err != nil {
		_ = database.Close()
		return nil, seed.Stats{}, fmt.Errorf("seed notification routes: %w", err)
	}
	return database, stats, nil
}

func notificationRoutes(mail config.MailConfig) []seed.Route {
	return []seed.Route{
		{Name: enquiry.RouteCompany, TemplateID: mail.CompanyTemplateID},
		{Name: enquiry.RouteAcknowledgement, TemplateID: mail.AcknowledgementTemplateID},
	}
}

func newMailer(cfg config.MailConfig, timeout time.Duration, logger *zap.Logger) enquiry.Mailer {
	if cfg.Provider == config.MailProviderEmailJS {
		return enquiry.NewEmailJSMailer(cfg.Endpoint, cfg.ServiceID, cfg.UserID, timeout)
	}
	return enquiry.NewLogMailer(logger)
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	database, stats, err := openOutbox(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("notification routes seeded", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	presets := calculator.DefaultPresets()
	widgets, err := newWidgetStore(cfg.Widget.SessionSecret, cfg.Widget.IdleTimeout, cfg.Widget.MaxSessions, presets, logger.Named("widgets"), collector)
	if err != nil {
		return err
	}

	store := enquiry.NewStore(database)
	dispatcher := enquiry.NewDispatcher(store, newMailer(cfg.Mail, cfg.Content.Timeout, logger), cfg.Mail.PollInterval, logger, collector)

	templates, err := parseTemplates()
	if err != nil {
		return err
	}

	srv := &server{
		site:       seo.Site{Name: cfg.Site.Name, BaseURL: cfg.Site.BaseURL},
		logger:     logger,
		metrics:    collector,
		content:    content.NewClient(cfg.Content.BaseURL, cfg.Content.Timeout, logger.Named("content"), collector),
		presets:    presets,
		widgets:    widgets,
		enquiries:  store,
		dispatcher: dispatcher,
		limiter:    enquiry.NewClientLimiter(cfg.Contact.RatePerMinute, cfg.Contact.Burst),
		templates:  templates,
		metricsOn:  cfg.Metrics.Enabled,
		now:        time.Now,
		shuffle:    true,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		widgets.runPruner(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}
