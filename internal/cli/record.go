package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/config"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recorder"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/storage"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

const countdownSeconds = 3

type captureOptions struct {
	listen    string
	duration  time.Duration
	countdown bool
	allOSC    bool
	gazeOnly  bool
}

func (o *captureOptions) addFlags(cmd *cobra.Command) {
	d := config.Default().Capture
	cmd.Flags().StringVarP(&o.listen, "listen", "l", d.ListenAddr, "UDP address to capture on")
	cmd.Flags().DurationVarP(&o.duration, "duration", "d", d.Duration, "stop capturing after this long (0 waits for Enter or Ctrl-C)")
	cmd.Flags().BoolVar(&o.countdown, "countdown", d.Countdown, "count down from 3 before capturing")
	cmd.Flags().BoolVar(&o.allOSC, "all-osc", d.AllOSC, "keep every OSC message, not only /VMC ones")
	cmd.Flags().BoolVar(&o.gazeOnly, "gaze-only", d.GazeOnly, "drop root and body bones, keep the eyes")
}

func (o *captureOptions) applyConfigIfUnset(cmd *cobra.Command, cfg *config.CaptureConfig) {
	if !cmd.Flags().Changed("listen") {
		o.listen = cfg.ListenAddr
	}
	if !cmd.Flags().Changed("duration") {
		o.duration = cfg.Duration
	}
	if !cmd.Flags().Changed("countdown") {
		o.countdown = cfg.Countdown
	}
	if !cmd.Flags().Changed("all-osc") {
		o.allOSC = cfg.AllOSC
	}
	if !cmd.Flags().Changed("gaze-only") {
		o.gazeOnly = cfg.GazeOnly
	}
}

func (o *captureOptions) validate() error {
	if o.listen == "" {
		return errors.Wrap(errdefs.ErrInvalidArgument, "--listen is required")
	}
	if o.duration < 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "--duration must not be negative, got %s", o.duration)
	}
	return nil
}

// bind runs the countdown and binds the capture socket.
func (o *captureOptions) bind(ctx context.Context, w io.Writer) (*osc.Listener, error) {
	if o.countdown {
		if err := countdown(ctx, w, countdownSeconds); err != nil {
			return nil, err
		}
	}
	return osc.Listen(o.listen)
}

// capture records from ln until a stop condition and returns the frozen
// recording with the recorder counters.
func capture(ctx context.Context, cmd *cobra.Command, log *zap.Logger, ln *osc.Listener, o captureOptions, enter <-chan struct{}, sink statusSink, m *metrics.Metrics) (*recording.Recording, recorder.Summary, error) {
	rec := recorder.New(recorder.Options{
		Selector: vmc.Selector(o.allOSC, o.gazeOnly),
		Logger:   log,
		Metrics:  m,
		Observer: func(ev recorder.Event) { sink.broadcast("capture", ev) },
	})
	sink.register("recorder", func() interface{} { return rec.Summary() })

	sess, err := recorder.NewSession(ctx, ln, rec)
	if err != nil {
		return nil, recorder.Summary{}, err
	}

	w := cmd.OutOrStdout()
	if o.duration > 0 {
		accent.Fprintf(w, "recording on %s for %s, press Enter to stop early\n", sess.Addr(), o.duration)
	} else {
		accent.Fprintf(w, "recording on %s, press Enter to stop\n", sess.Addr())
	}

	reason := waitForStop(ctx, enter, o.duration, sess.Done())
	out, err := sess.Stop()
	log.Info("capture ended", zap.String("reason", reason))
	return out, rec.Summary(), err
}

func printCaptureSummary(w io.Writer, rec *recording.Recording, sum recorder.Summary) {
	size := "?"
	if b, err := storage.Encode(rec); err == nil {
		size = units.HumanSize(float64(len(b)))
	}
	success.Fprintf(w, "captured %d packets (%d messages) in %s\n",
		rec.PacketCount(), rec.MessageCount(), rec.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  received %d, filtered out %d, undecodable %d, stored size %s\n",
		sum.PacketsReceived, sum.PacketsDropped, sum.BadDatagrams, size)
	if rec.PacketCount() == 0 {
		warning.Fprintln(w, "  nothing was captured; is the performer sending to this port?")
	}
}

func newRecordCmd(root *rootOptions) *cobra.Command {
	var (
		co     captureOptions
		sink   recordingSink
		status statusOptions
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture a VMC performer stream",
		Long: `Listens for OSC datagrams from a performer application and records them
with their arrival offsets. Capture stops after --duration, on Enter, or on
Ctrl-C, and the recording is saved under --name and/or written to --out.`,
		Example: `  vmcloop record --name idle --duration 30s
  vmcloop record --listen :39540 --out idle.vmcrec --gaze-only
  vmcloop record --name idle --storage redis --redis-host localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			co.applyConfigIfUnset(cmd, &root.cfg.Capture)
			status.applyConfigIfUnset(cmd, &root.cfg.Status)
			if err := status.validate(); err != nil {
				return err
			}
			if err := co.validate(); err != nil {
				return err
			}
			if sink.empty() {
				return errors.Wrap(errdefs.ErrInvalidArgument, "record needs --name or --out")
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
				return sink.save(context.WithoutCancel(ctx), cmd, &root.cfg.Storage, rec)
			})
		},
	}

	co.addFlags(cmd)
	sink.addFlags(cmd)
	status.addFlags(cmd)

	return cmd
}
