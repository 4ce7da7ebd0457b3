package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spacemeshos/localnet/config"
	"github.com/spacemeshos/localnet/log"
	"github.com/spacemeshos/localnet/nodeconfig"
)

// New returns the localnet command.
func New() *cobra.Command {
	vip := viper.New()
	c := &cobra.Command{
		Use:   "localnet",
		Short: "Start a local network of nodes and print their output",
		Long: `Start a local network of nodes and print their output.

Every line a node writes to stdout is printed as "<index> : <line>".
Nodes are read in turn, one line each, so a silent node holds back the others.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(c *cobra.Command, _ []string) error {
			return bindFlags(vip, c.Flags())
		},
		RunE: func(c *cobra.Command, _ []string) error {
			conf, err := parseConfig(vip)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, conf, c.OutOrStdout(), c.ErrOrStderr())
		},
	}
	AddCommands(c)
	return c
}

// AddCommands adds the harness flags to cmd.
func AddCommands(cmd *cobra.Command) {
	def := config.DefaultConfig()

	/** ======================== BaseConfig Flags ========================== **/
	cmd.PersistentFlags().StringP("config", "c", def.ConfigFile,
		"load configuration from file (yaml, toml or json)")
	cmd.PersistentFlags().StringP("data-root", "d", def.DataRoot,
		"directory holding the data directories of all nodes")
	cmd.PersistentFlags().IntP("nodes", "n", def.Nodes,
		"number of nodes to start")
	cmd.PersistentFlags().StringP("profile", "p", def.Profile,
		fmt.Sprintf("how nodes are configured. options %+s", nodeconfig.Options()))
	cmd.PersistentFlags().Bool("color", def.Color,
		"color the node index of every printed line")

	/** ======================== Launch Flags ========================== **/
	cmd.PersistentFlags().String("binary", def.Launch.Binary,
		"path of the node binary")
	cmd.PersistentFlags().String("host", def.Launch.Host,
		"host nodes listen on")
	cmd.PersistentFlags().Int("base-port", def.Launch.BasePort,
		"port of the first node, node i uses base-port + i")
	cmd.PersistentFlags().StringArray("node-arg", def.Launch.NodeArgs,
		"argument appended to the command line of every node. Can be passed multiple times")

	/** ======================== Metrics Flags ========================== **/
	cmd.PersistentFlags().Bool("metrics", def.Metrics.Enabled,
		"serve harness metrics")
	cmd.PersistentFlags().Int("metrics-port", def.Metrics.Port,
		"metric server port")

	/** ======================== Logging Flags ========================== **/
	cmd.PersistentFlags().String("log-encoder", def.LOGGING.Encoder,
		fmt.Sprintf("log encoder, %s or %s", log.ConsoleEncoder, log.JSONEncoder))
	cmd.PersistentFlags().String("log-level", def.LOGGING.Level,
		"minimum level of harness logs")
}

// Execute runs the localnet command with the process arguments.
func Execute() error {
	return New().Execute()
}
