package main

import (
	"fmt"
	"os"

	"github.com/kojileo/datebank/pkg/config"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "datebank"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Shared date-spot lists for couples and groups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

// bootstrap loads configuration and initializes the global logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		Service:     serviceName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)
	return cfg, log, nil
}
