package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staffdesk/internal/app/server"
	"staffdesk/internal/platform/config"
	"staffdesk/internal/platform/logging"
)

// env is filled in by the root command before any subcommand runs.
type env struct {
	cfg config.Config
	log *zap.Logger
}

// open builds the application services for a subcommand. The caller closes
// the returned app.
func (e *env) open(ctx context.Context) (*server.App, error) {
	return server.New(ctx, e.cfg, e.log)
}

func New() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:           "staffdesk",
		Short:         "Employee management console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.cfg = config.Load()
			log, err := logging.New(logging.Config{
				Environment: e.cfg.Environment,
				Level:       e.cfg.LogLevel,
				Service:     "staffdesk",
			})
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			zap.ReplaceGlobals(log)
			e.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	rootCmd.AddCommand(newServeCmd(e))
	rootCmd.AddCommand(newMigrateCmd(e))
	rootCmd.AddCommand(newSeedCmd(e))
	rootCmd.AddCommand(newImportCmd(e))
	rootCmd.AddCommand(newSweepOrphansCmd(e))
	return rootCmd
}
