package cmd

import (
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/rabbitops/fedmig/internal/config"
	"github.com/rabbitops/fedmig/internal/services"
)

var dryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate federation configuration from the source broker to the target broker",
	Long: `Reads federation upstreams and policies from the source broker
(OLD_RABBITMQ_*), backs up both sides, creates equivalent resources on the
target broker (NEW_RABBITMQ_*) with optional name prefixing and host
rewriting, and verifies the result.

Set DRY_RUN=true or --dry-run to report intended actions without writing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.ModeMigrate)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		if dryRun {
			cfg.DryRun = true
		}

		migrator := services.NewMigrator(cfg, services.WithMigratorConfirm(promptConfirm))
		return migrator.Run(cmd.Context())
	},
}

// promptConfirm asks the operator a yes/no question on the terminal.
func promptConfirm(question string) bool {
	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}
	// promptui returns an error when the answer is anything but y/Y.
	_, err := prompt.Run()
	return err == nil
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"report intended actions without issuing any write")
	rootCmd.AddCommand(migrateCmd)
}
