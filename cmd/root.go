package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/rconn/cmd/gen"
	"github.com/luma/rconn/internal/env"
	"github.com/luma/rconn/internal/meta"
)

var (
	host     string
	port     int
	logLevel string

	log *zap.Logger
)

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&host, "host", "a", "127.0.0.1", "R server host")
	flags.IntVarP(&port, "port", "p", 6311, "R server port")
	flags.StringVar(&logLevel, "log-level", "info", "zap log level (debug, info, warn, error)")

	RootCmd.AddCommand(gen.RootCmd)
}

var RootCmd = &cobra.Command{
	Use:     "rconn",
	Short:   "Talk QAP1 to an Rserve-compatible R compute server",
	Version: meta.Version,
	Long: `rconn is a command-line client for the QAP1 binary protocol
spoken by Rserve-compatible R compute servers.

Usage
	rconn eval <expr>
	rconn set <name> <value> --type=int|double|str|bool
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		conf, err := env.LoadConfig(context.Background())
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("host") {
			host = conf.Host
		}
		if !cmd.Flags().Changed("port") {
			port = conf.Port
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = conf.LogLevel
		}

		l, err := env.MakeLogger(logLevel)
		if err != nil {
			return err
		}
		log = l

		info := meta.GetInfo()
		log.Debug("starting rconn",
			zap.String("version", info.Version),
			zap.String("build", info.Build),
			zap.String("platform", info.Platform),
			zap.String("go_version", info.GoVersion),
		)
		return nil
	},
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
