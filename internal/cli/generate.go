package cli

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/pkg/generate"
)

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		fps       int
		duration  time.Duration
		pattern   string
		bones     []string
		seed      int64
		unbundled bool
		sink      recordingSink
	)

	defaults := generate.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize a VMC performer recording",
		Long: `Creates a recording of a synthetic performer idling in front of the
camera: a swaying root, a nodding head, darting eyes and a periodic blink,
with a /VMC/Ext/T timing message in every frame. Useful for trying out
playback without a performer application.`,
		Example: `  vmcloop generate --name demo
  vmcloop generate --fps 30 --duration 10s --pattern jitter --out demo.vmcrec
  vmcloop generate --pattern burst --bones Hips,Head --seed 7 --name bursty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sink.empty() {
				return errors.Wrap(errdefs.ErrInvalidArgument, "generate needs --name or --out")
			}
			if err := sink.validate(); err != nil {
				return err
			}

			rec, err := generate.Performer(generate.Options{
				FPS:      fps,
				Duration: duration,
				Pattern:  pattern,
				Bones:    bones,
				Seed:     seed,
				Bundled:  !unbundled,
			})
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "generated %d packets (%d messages) over %s\n",
				rec.PacketCount(), rec.MessageCount(), rec.Duration)

			return sink.save(cmd.Context(), cmd, &root.cfg.Storage, rec)
		},
	}

	cmd.Flags().IntVar(&fps, "fps", defaults.FPS, "frames per second")
	cmd.Flags().DurationVar(&duration, "duration", defaults.Duration, "length of the recording")
	cmd.Flags().StringVar(&pattern, "pattern", defaults.Pattern, "delivery pattern (steady, jitter, burst)")
	cmd.Flags().StringSliceVar(&bones, "bones", nil, "body bones to animate (default: a small upper body set)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&unbundled, "unbundled", !defaults.Bundled, "send every message as its own packet")
	sink.addFlags(cmd)

	return cmd
}
