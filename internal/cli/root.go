package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/config"
	"github.com/SmitUplenchwar2687/vmcloop/internal/logging"
)

// rootOptions is shared by every sub-command. It is filled in by the root
// command's PersistentPreRunE.
type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string

	cfg config.Config
	log *zap.Logger
}

// NewRootCmd creates the root vmcloop command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "vmcloop",
		Short: "Record and loop VMC motion capture streams",
		Long: `vmcloop captures Virtual Motion Capture (OSC over UDP) traffic from a
performer application and plays it back in an endless loop with the
original timing, so a marionette application can be driven without a
live performer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", logging.LevelInfo, "log level (debug, info, warn, error, none)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file, rotated")

	root.AddCommand(
		newRecordCmd(opts),
		newPlayCmd(opts),
		newLoopCmd(opts),
		newInspectCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newImportPcapCmd(opts),
		newGenerateCmd(opts),
		newSimulateCmd(opts),
		newConfigCmd(opts),
	)

	return root
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.log = log
	return nil
}
