package cli

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/vmcloop/internal/config"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vmcloop configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(root))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		Example: `  vmcloop config init
  vmcloop config init --output /etc/vmcloop.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return errors.Wrapf(errdefs.ErrInvalidArgument, "%s already exists, use --force to overwrite", output)
			}
			if err := config.WriteExample(output); err != nil {
				return errors.Wrapf(err, "writing %s", output)
			}
			success.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "vmcloop.yaml", "where to write the example config")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Long: `Prints the configuration after defaults, the --config file and VMCLOOP_*
environment variables have been merged. Durations are in nanoseconds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cfg.Storage.Redis.Password != "" {
				cfg.Storage.Redis.Password = "redacted"
			}
			return writeJSON(cmd.OutOrStdout(), cfg)
		},
	}
}
