package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/adapters/seed"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/pkg/logger"
)

type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:               "podium",
		Short:             "Competitive leaderboard with weekly settlement",
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		RunE:              c.serve,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file (overrides PODIUM_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, the score workers and the settlement scheduler",
			Args:  cobra.NoArgs,
			RunE:  c.serve,
		},
		&cobra.Command{
			Use:   "settle",
			Short: "Run one settlement now and print its report",
			Args:  cobra.NoArgs,
			RunE:  c.settle,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the bootstrap dataset into the store and the index",
			Args:  cobra.NoArgs,
			RunE:  c.seed,
		},
		c.newLoadgenCmd(),
	)
	return root
}

// setup loads configuration and initializes logging on stderr so command
// output on stdout stays machine readable.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.configPath != "" {
		if err := os.Setenv("PODIUM_CONFIG", c.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg
	return nil
}

func (c *cli) s3Options() seed.S3Options {
	return seed.S3Options{
		Region:          c.cfg.S3Region,
		Endpoint:        c.cfg.S3Endpoint,
		AccessKeyID:     c.cfg.S3AccessKeyID,
		SecretAccessKey: c.cfg.S3SecretAccessKey,
	}
}

func (c *cli) newService(cmd *cobra.Command) (*service.Service, error) {
	return service.New(cmd.Context(), c.cfg, service.WithLogger(logger.Get()))
}
