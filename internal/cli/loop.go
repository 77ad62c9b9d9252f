package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
)

func newLoopCmd(root *rootOptions) *cobra.Command {
	var (
		co     captureOptions
		po     playOptions
		sink   recordingSink
		status statusOptions
	)

	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Record a performance, then loop it immediately",
		Long: `Captures like "record" and then plays what was captured like "play".
The loop length defaults to the capture duration, so a pause at the end of
the take is kept. Saving the take with --name or --out is optional.`,
		Example: `  vmcloop loop --duration 10s
  vmcloop loop --duration 10s --target 192.168.1.20:39539 --name take1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			co.applyConfigIfUnset(cmd, &root.cfg.Capture)
			po.applyConfigIfUnset(cmd, &root.cfg.Playback)
			status.applyConfigIfUnset(cmd, &root.cfg.Status)
			if err := status.validate(); err != nil {
				return err
			}
			if err := co.validate(); err != nil {
				return err
			}
			if err := po.validate(); err != nil {
				return err
			}
			if err := sink.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			enter := watchEnter(cmd.InOrStdin())
			return status.run(ctx, root.log, func(ctx context.Context, ss statusSink, m *metrics.Metrics) error {
				ln, err := co.bind(ctx, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				rec, sum, err := capture(ctx, cmd, root.log, ln, co, enter, ss, m)
				if err != nil {
					return err
				}
				printCaptureSummary(cmd.OutOrStdout(), rec, sum)
				if !sink.empty() {
					if err := sink.save(context.WithoutCancel(ctx), cmd, &root.cfg.Storage, rec); err != nil {
						return err
					}
				}
				if ctx.Err() != nil {
					return nil
				}

				pl := po
				pl.allOSC, pl.gazeOnly = co.allOSC, co.gazeOnly
				if pl.period == 0 && pl.filter.From == 0 && pl.filter.To == 0 {
					pl.period = rec.Duration
				}
				return playTo(ctx, cmd, root.log, rec, pl, enter, ss, m)
			})
		},
	}

	co.addFlags(cmd)
	po.addFlags(cmd)
	sink.addFlags(cmd)
	status.addFlags(cmd)

	return cmd
}
