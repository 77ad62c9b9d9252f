package cli

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/replay"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
	"github.com/SmitUplenchwar2687/vmcloop/pkg/generate"
)

var simulationEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// parkTimeout bounds how long the simulation waits, in real time, for the
// scheduler to block on the virtual clock.
const parkTimeout = 5 * time.Second

// SimulationResult is the outcome of a playback run on a virtual clock.
type SimulationResult struct {
	Source    string        `json:"source"`
	Packets   int           `json:"packets"`
	Period    time.Duration `json:"period"`
	Loops     int           `json:"loops"`
	Simulated time.Duration `json:"simulated"`
	Rounds    []RoundResult `json:"rounds"`
	Stats     replay.Stats  `json:"stats"`
}

// RoundResult aggregates the firings of one pass over the recording.
// First and Last are measured from the start of playback.
type RoundResult struct {
	Round  int           `json:"round"`
	Sent   int           `json:"sent"`
	Errors int           `json:"errors"`
	Bytes  int           `json:"bytes"`
	First  time.Duration `json:"first"`
	Last   time.Duration `json:"last"`
}

// simulate plays rec for the given number of loops against a virtual clock,
// jumping straight to each scheduled firing instead of waiting for it.
func simulate(source string, rec *recording.Recording, o playOptions, loops int, log *zap.Logger) (SimulationResult, error) {
	if loops <= 0 {
		return SimulationResult{}, errors.Wrapf(errdefs.ErrInvalidArgument, "--loops must be positive, got %d", loops)
	}

	vc := clock.NewVirtualClock(simulationEpoch)
	var tc *vmc.TimingClock
	if o.replaceTiming {
		tc = vmc.NewTimingClock(vc)
	}
	prepared, err := o.prepare(rec, tc)
	if err != nil {
		return SimulationResult{}, err
	}
	if prepared.PacketCount() == 0 {
		return SimulationResult{}, errors.Wrap(errdefs.ErrInvalidArgument, "nothing left to play after filtering")
	}

	var (
		mu     sync.Mutex
		events []replay.Event
	)
	popts := replay.Options{
		Period: o.period,
		Clock:  vc,
		Logger: log,
		Observer: func(ev replay.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	}
	if tc != nil {
		popts.OnStart = tc.Begin
	}
	p, err := replay.New(prepared, io.Discard, popts)
	if err != nil {
		return SimulationResult{}, err
	}
	if err := p.Start(); err != nil {
		return SimulationResult{}, err
	}

	for {
		if err := waitParked(vc, p.Done()); err != nil {
			_ = p.Stop()
			return SimulationResult{}, err
		}
		if p.Stats().Loops >= uint64(loops) {
			break
		}
		vc.Step()
	}
	if err := p.Stop(); err != nil {
		return SimulationResult{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	return SimulationResult{
		Source:    source,
		Packets:   prepared.PacketCount(),
		Period:    p.Period(),
		Loops:     loops,
		Simulated: vc.Since(simulationEpoch),
		Rounds:    summarizeRounds(events, loops),
		Stats:     p.Stats(),
	}, nil
}

// waitParked returns once the scheduler is blocked on vc.
func waitParked(vc *clock.VirtualClock, done <-chan struct{}) error {
	deadline := time.Now().Add(parkTimeout)
	for vc.Waiters() == 0 {
		select {
		case <-done:
			return errors.Wrap(errdefs.ErrInvalidState, "scheduler exited")
		default:
		}
		if time.Now().After(deadline) {
			return errors.Wrap(errdefs.ErrInvalidState, "scheduler did not wait on the clock")
		}
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}

// summarizeRounds folds events into one row per completed round. Firings
// of the next round that share the final instant are left out.
func summarizeRounds(events []replay.Event, loops int) []RoundResult {
	byRound := make(map[int]*RoundResult)
	for _, ev := range events {
		if ev.Round >= loops {
			continue
		}
		r, ok := byRound[ev.Round]
		at := ev.Time.Sub(simulationEpoch)
		if !ok {
			r = &RoundResult{Round: ev.Round, First: at}
			byRound[ev.Round] = r
		}
		if ev.Error != "" {
			r.Errors++
		} else {
			r.Sent++
			r.Bytes += ev.Bytes
		}
		if at < r.First {
			r.First = at
		}
		if at > r.Last {
			r.Last = at
		}
	}

	out := make([]RoundResult, 0, len(byRound))
	for _, r := range byRound {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out
}

func printSimulation(w io.Writer, r *SimulationResult) {
	accent.Fprintf(w, "=== vmcloop playback simulation: %s ===\n", r.Source)
	fmt.Fprintf(w, "%d packets, period %s, %d loops in %s of virtual time\n\n",
		r.Packets, r.Period, r.Loops, r.Simulated)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Round", "Sent", "Errors", "Bytes", "First", "Last"})
	for _, rr := range r.Rounds {
		t.AppendRow(table.Row{rr.Round, rr.Sent, rr.Errors, rr.Bytes, rr.First, rr.Last})
	}
	t.Render()

	if len(r.Rounds) > 1 {
		drift := r.Rounds[len(r.Rounds)-1].First - r.Rounds[0].First - time.Duration(len(r.Rounds)-1)*r.Period
		if drift == 0 {
			success.Fprintln(w, "rounds start exactly one period apart")
		} else {
			warning.Fprintf(w, "round starts drifted by %s\n", drift)
		}
	}
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	var (
		po         playOptions
		src        recordingSource
		loops      int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "simulate [name]",
		Short: "Run playback against a virtual clock",
		Long: `Runs the playback scheduler on a virtual clock that jumps straight to
each scheduled send, so many loops of a long recording finish in an instant.
Nothing is sent on the network. Without a name or --file a synthetic
performer recording is used.`,
		Example: `  vmcloop simulate idle --loops 10
  vmcloop simulate --file idle.vmcrec --period 12s --json
  vmcloop simulate --loops 3 --replace-timing`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			po.applyConfigIfUnset(cmd, &root.cfg.Playback)
			if err := po.validate(); err != nil {
				return err
			}

			var (
				rec  *recording.Recording
				from string
				err  error
			)
			if src.file == "" && len(args) == 0 {
				opts := generate.DefaultOptions()
				opts.Seed = 1
				opts.Start = simulationEpoch
				rec, err = generate.Performer(opts)
				from = "synthetic performer"
			} else {
				rec, from, err = src.load(cmd.Context(), cmd, &root.cfg.Storage, args)
			}
			if err != nil {
				return err
			}

			result, err := simulate(from, rec, po, loops, root.log)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printSimulation(cmd.OutOrStdout(), &result)
			return nil
		},
	}

	po.addShapeFlags(cmd)
	po.addProtocolFlags(cmd)
	src.addFlags(cmd)
	cmd.Flags().IntVar(&loops, "loops", 3, "number of loops to simulate")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	return cmd
}
