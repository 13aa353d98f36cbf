package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simaogato/timedeposit-backend/internal/app"
	"github.com/simaogato/timedeposit-backend/internal/usecase/seeder"
)

var importCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Import accounts and their history from a YAML file",
	Long: `Import accounts and their history from a YAML file.

Accounts already in the store are kept and only receive history records they do not hold yet,
so importing the same file twice changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := seeder.LoadSeedFile(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		repo, closer, err := app.OpenRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		result, err := seeder.NewAccountSeeder(repo).Seed(ctx, file)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "imported: %d created, %d existing, %d history records submitted\n",
			result.Created, result.Existing, result.Records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
