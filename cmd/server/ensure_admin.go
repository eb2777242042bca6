package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cityfix/internal/db"
	"cityfix/internal/service"
)

var ensureAdminCmd = &cobra.Command{
	Use:   "ensure-admin",
	Short: "Create the bootstrap admin or reset its password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer d.Close()

		a, err := newApp(cfg, d, logger)
		if err != nil {
			return err
		}
		u, err := a.users.EnsureBootstrapAdmin(cmd.Context(), service.BootstrapAdmin(cfg.Admin))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s has id %d\n", u.Email, u.ID)
		return nil
	},
}
