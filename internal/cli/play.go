package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/config"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/replay"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

type playOptions struct {
	target        string
	period        time.Duration
	replaceTiming bool
	allOSC        bool
	gazeOnly      bool
	filter        replay.Filter
	limit         time.Duration
}

func (o *playOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.target, "target", "t", config.Default().Playback.Target, "host:port of the marionette application")
	cmd.Flags().DurationVar(&o.limit, "for", 0, "stop playback after this long (0 loops until Enter or Ctrl-C)")
	o.addShapeFlags(cmd)
}

// addShapeFlags adds the switches that decide what is played and how
// often, without a destination.
func (o *playOptions) addShapeFlags(cmd *cobra.Command) {
	d := config.Default().Playback
	cmd.Flags().DurationVarP(&o.period, "period", "p", d.Period, "loop length (0 uses the last packet offset)")
	cmd.Flags().BoolVar(&o.replaceTiming, "replace-timing", d.ReplaceTiming, "send live elapsed time in /VMC/Ext/T instead of the recorded value")
	cmd.Flags().StringSliceVar(&o.filter.Addresses, "address", nil, "only play these addresses or address prefixes")
	cmd.Flags().StringSliceVar(&o.filter.Exclude, "exclude", nil, "skip these addresses or address prefixes")
	cmd.Flags().DurationVar(&o.filter.From, "from", 0, "start of the window to play, as an offset into the recording")
	cmd.Flags().DurationVar(&o.filter.To, "to", 0, "end of the window to play (0 plays to the end)")
}

// addProtocolFlags adds the message selection switches. loop shares the
// capture ones instead.
func (o *playOptions) addProtocolFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.allOSC, "all-osc", false, "play every OSC message, not only /VMC ones")
	cmd.Flags().BoolVar(&o.gazeOnly, "gaze-only", config.Default().Playback.GazeOnly, "drop root and body bones, keep the eyes")
}

func (o *playOptions) applyConfigIfUnset(cmd *cobra.Command, cfg *config.PlaybackConfig) {
	if !cmd.Flags().Changed("target") {
		o.target = cfg.Target
	}
	if !cmd.Flags().Changed("period") {
		o.period = cfg.Period
	}
	if !cmd.Flags().Changed("replace-timing") {
		o.replaceTiming = cfg.ReplaceTiming
	}
	if !cmd.Flags().Changed("gaze-only") {
		o.gazeOnly = cfg.GazeOnly
	}
}

func (o *playOptions) validate() error {
	if o.period < 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "--period must not be negative, got %s", o.period)
	}
	if o.limit < 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "--for must not be negative, got %s", o.limit)
	}
	return o.filter.Validate()
}

// prepare applies the protocol selector and the window and address
// filters, then swaps in the live timing message when asked to. tc is nil
// unless timing is replaced.
func (o *playOptions) prepare(rec *recording.Recording, tc *vmc.TimingClock) (*recording.Recording, error) {
	if sel := vmc.Selector(o.allOSC, o.gazeOnly); sel != nil {
		rec = rec.Filter(sel)
	}
	rec, err := o.filter.Apply(rec)
	if err != nil {
		return nil, err
	}
	if tc != nil {
		rec = vmc.ReplaceTiming(rec, tc)
	}
	return rec, nil
}

// play loops rec to dst until a stop condition and returns the final
// player counters.
func play(ctx context.Context, cmd *cobra.Command, log *zap.Logger, dst io.Writer, rec *recording.Recording, o playOptions, enter <-chan struct{}, sink statusSink, m *metrics.Metrics) (replay.Stats, error) {
	var tc *vmc.TimingClock
	if o.replaceTiming {
		tc = vmc.NewTimingClock(nil)
	}
	prepared, err := o.prepare(rec, tc)
	if err != nil {
		return replay.Stats{}, err
	}

	popts := replay.Options{
		Period:   o.period,
		Logger:   log,
		Metrics:  m,
		Observer: func(ev replay.Event) { sink.broadcast("playback", ev) },
	}
	if tc != nil {
		popts.OnStart = tc.Begin
	}
	p, err := replay.New(prepared, dst, popts)
	if err != nil {
		return replay.Stats{}, err
	}
	sink.register("player", func() interface{} { return p.Stats() })

	if err := p.Start(); err != nil {
		return replay.Stats{}, err
	}
	w := cmd.OutOrStdout()
	accent.Fprintf(w, "looping %d packets every %s to %s, press Enter to stop\n",
		prepared.PacketCount(), p.Period(), o.target)

	reason := waitForStop(ctx, enter, o.limit, p.Done())
	err = p.Stop()
	log.Info("playback ended", zap.String("reason", reason))
	return p.Stats(), err
}

func printPlaybackSummary(w io.Writer, st replay.Stats) {
	success.Fprintf(w, "sent %d packets over %d loops\n", st.Sent, st.Loops)
	if st.SendErrors > 0 {
		warning.Fprintf(w, "  %d sends failed\n", st.SendErrors)
	}
}

// playTo dials the target and plays rec until stopped.
func playTo(ctx context.Context, cmd *cobra.Command, log *zap.Logger, rec *recording.Recording, o playOptions, enter <-chan struct{}, sink statusSink, m *metrics.Metrics) (err error) {
	if o.target == "" {
		return errors.Wrap(errdefs.ErrInvalidArgument, "--target is required")
	}
	client, err := osc.Dial(o.target)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	st, err := play(ctx, cmd, log, client, rec, o, enter, sink, m)
	if err != nil {
		return err
	}
	printPlaybackSummary(cmd.OutOrStdout(), st)
	return nil
}

func newPlayCmd(root *rootOptions) *cobra.Command {
	var (
		po     playOptions
		src    recordingSource
		status statusOptions
	)

	cmd := &cobra.Command{
		Use:   "play [name]",
		Short: "Loop a recording to a marionette application",
		Long: `Sends a stored recording to --target over and over, keeping the
captured spacing between packets. The loop length defaults to the offset of
the last packet and can be stretched with --period. Only /VMC messages are
played unless --all-osc is given.`,
		Example: `  vmcloop play idle
  vmcloop play --file idle.vmcrec --target 192.168.1.20:39539 --replace-timing
  vmcloop play idle --gaze-only --period 10s --for 1m
  vmcloop play idle --from 2s --to 8s --exclude /VMC/Ext/Blend`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			po.applyConfigIfUnset(cmd, &root.cfg.Playback)
			status.applyConfigIfUnset(cmd, &root.cfg.Status)
			if err := status.validate(); err != nil {
				return err
			}
			if err := po.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			rec, from, err := src.load(ctx, cmd, &root.cfg.Storage, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s: %d packets, %d messages\n", from, rec.PacketCount(), rec.MessageCount())

			enter := watchEnter(cmd.InOrStdin())
			return status.run(ctx, root.log, func(ctx context.Context, ss statusSink, m *metrics.Metrics) error {
				return playTo(ctx, cmd, root.log, rec, po, enter, ss, m)
			})
		},
	}

	po.addFlags(cmd)
	po.addProtocolFlags(cmd)
	src.addFlags(cmd)
	status.addFlags(cmd)

	return cmd
}
