package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rabbitops/fedmig/internal/config"
	"github.com/rabbitops/fedmig/internal/services"
)

var probeUpstreams bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Report the federation configuration of the source broker",
	Long: `Connects to the source broker (OLD_RABBITMQ_* environment), prints a
human-readable report of federation upstreams, policies and link status, and
exports a snapshot to federation_config.yaml with passwords masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.ModeInspect)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		if probeUpstreams {
			cfg.ProbeUpstreams = true
		}

		return services.NewInspector(cfg).Run(cmd.Context())
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&probeUpstreams, "probe", false,
		"dial each upstream AMQP URI and report reachability")
	rootCmd.AddCommand(inspectCmd)
}
