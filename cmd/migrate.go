package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/humandex/internal/catalog"
	"github.com/lehigh-university-libraries/humandex/internal/legacy"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Copy the legacy flat catalog into the database",
		Long: `Reads the legacy key-value catalog and upserts its entries into the
SQLite catalog. The server does this on every start and only logs
failures; this command reports them.`,
		Example: `  humandex migrate
  humandex migrate --config humandex.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.mustConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := catalog.Open(ctx, cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			store := catalog.NewStore(db)
			defer store.Close()

			n, err := store.MigrateLegacy(ctx, legacy.NewFlatStore(cfg.Storage.LegacyDir))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d legacy entries from %s\n", n, cfg.Storage.LegacyDir)
			return nil
		},
	}
}
