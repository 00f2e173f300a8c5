// Package cmd defines the CLI commands for the cfb-rookie-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/app"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/config"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/logging"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/pipeline"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/progress"
	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

type appKeyType string

const appKey appKeyType = "app"

// App is the set of services commands use. Tests inject a fake.
type App interface {
	Close()
	Logger() *zap.Logger
	Resolver() pipeline.Resolver
	Run(ctx context.Context, queries []scraper.Query) (progress.Summary, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

type rootOptions struct {
	cfgFile string
	envFile string
	cfg     config.Config
	app     App
}

// closeApp releases application services once, whether or not the command
// succeeded.
func (o *rootOptions) closeApp() {
	if o.app != nil {
		o.app.Close()
		o.app = nil
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfb-rookie-crawler",
		Short: "Collects college season stats for NFL draft classes.",
		Long: `cfb-rookie-crawler reads draft-class CSV files, finds each player's
college profile page, and appends their passing and rushing/receiving seasons
to one CSV file per season.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(opts.envFile); err != nil {
				return err
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return err
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("initialize application services: %w", err)
			}
			opts.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			opts.closeApp()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration when present")

	cmd.AddCommand(newScrapeCmd(opts))
	cmd.AddCommand(newResolveCmd())
	return cmd
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{}
	err := newRootCmd(opts).ExecuteContext(ctx)
	opts.closeApp()
	if err != nil {
		stop()
		os.Exit(1)
	}
}
