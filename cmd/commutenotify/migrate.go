package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/store/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the profiles table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return &exitError{code: exitInvalidConfig, err: fmt.Errorf("migrate requires DATABASE_URL")}
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return &exitError{code: exitRuntimeError, err: err}
			}
			defer db.Close()

			if err := postgres.New(db, cfg.DBOpTimeout).EnsureSchema(cmd.Context()); err != nil {
				return &exitError{code: exitRuntimeError, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "profiles table ready")
			return nil
		},
	}
}
