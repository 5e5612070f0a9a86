package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Migrate(cmd.Context())
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap admin account from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Seed(cmd.Context())
		},
	}
}

func newImportCmd(e *env) *cobra.Command {
	var (
		csvFilePath    string
		csvErrFilePath string
		adminEmail     string
		numOfWorkers   int
	)
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Create employees from a CSV whose header names wizard fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminEmail == "" {
				return fmt.Errorf("--admin is required")
			}
			in, err := os.Open(csvFilePath)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer in.Close()

			errOut, err := os.Create(csvErrFilePath)
			if err != nil {
				return fmt.Errorf("create error csv: %w", err)
			}
			defer errOut.Close()

			app, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Import(cmd.Context(), adminEmail, numOfWorkers, in, errOut)
			if err != nil {
				return err
			}
			e.log.Info("import finished",
				zap.Int("created", report.Created),
				zap.Int("failed", report.Failed),
				zap.String("errors", csvErrFilePath),
			)
			if report.Failed > 0 {
				return fmt.Errorf("%d rows were not imported; see %s", report.Failed, csvErrFilePath)
			}
			return nil
		},
	}

	importCmd.Flags().StringVar(&csvFilePath, "csv", "csv/employees.csv", "csv file path")
	importCmd.Flags().StringVar(&csvErrFilePath, "errors", "csv/errors.csv", "csv file receiving rejected rows")
	importCmd.Flags().StringVar(&adminEmail, "admin", "", "email of the admin account that will own the records")
	importCmd.Flags().IntVar(&numOfWorkers, "workers", 2, "number of workers")
	return importCmd
}

func newSweepOrphansCmd(e *env) *cobra.Command {
	var remove bool
	sweepCmd := &cobra.Command{
		Use:   "sweep-orphans",
		Short: "List employee accounts that never received a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.SweepOrphans(cmd.Context(), remove)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	sweepCmd.Flags().BoolVar(&remove, "delete", false, "delete the accounts instead of only reporting them")
	return sweepCmd
}
