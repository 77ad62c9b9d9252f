package cli

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SmitUplenchwar2687/vmcloop/internal/config"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/server"
	"github.com/SmitUplenchwar2687/vmcloop/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
)

// countdown prints n, n-1 ... 1 one second apart. It returns early with the
// context error when ctx is cancelled.
func countdown(ctx context.Context, w io.Writer, n int) error {
	for i := n; i > 0; i-- {
		accent.Fprintf(w, "%d...\n", i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

// watchEnter delivers one value per line read from in. It stops at end of
// input, so a closed stdin never requests a stop.
func watchEnter(in io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	if in == nil {
		return ch
	}
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			ch <- struct{}{}
		}
	}()
	return ch
}

// waitForStop blocks until Enter is pressed, ctx is cancelled, limit
// elapses (when positive) or done is closed, and says which happened.
func waitForStop(ctx context.Context, enter <-chan struct{}, limit time.Duration, done <-chan struct{}) string {
	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return "interrupted"
	case <-enter:
		return "enter"
	case <-timeout:
		return "duration elapsed"
	case <-done:
		return "finished"
	}
}

// statusSink publishes component state to an optional status server. The
// zero value discards everything.
type statusSink struct {
	srv *server.Server
}

func (s statusSink) register(name string, fn server.StatusFunc) {
	if s.srv != nil {
		s.srv.Register(name, fn)
	}
}

func (s statusSink) broadcast(typ string, v interface{}) {
	if s.srv != nil {
		s.srv.Publish(typ, v)
	}
}

// statusOptions configures the optional status server of record, play and
// loop.
type statusOptions struct {
	addr     string
	feedRate int
}

func (o *statusOptions) addFlags(cmd *cobra.Command) {
	d := config.Default().Status
	cmd.Flags().StringVar(&o.addr, "status-addr", d.Addr, "serve status, metrics and the dashboard on this address")
	cmd.Flags().IntVar(&o.feedRate, "feed-rate", d.FeedRate, "dashboard events per second per event type (0 for no limit)")
}

func (o *statusOptions) applyConfigIfUnset(cmd *cobra.Command, cfg *config.StatusConfig) {
	if !cmd.Flags().Changed("status-addr") {
		o.addr = cfg.Addr
	}
	if !cmd.Flags().Changed("feed-rate") {
		o.feedRate = cfg.FeedRate
	}
}

func (o *statusOptions) validate() error {
	if o.feedRate < 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "--feed-rate must not be negative, got %d", o.feedRate)
	}
	return nil
}

// run runs body alongside a status server. An empty addr runs body alone
// with a discarding sink and no metrics.
func (o *statusOptions) run(ctx context.Context, log *zap.Logger, body func(ctx context.Context, sink statusSink, m *metrics.Metrics) error) error {
	if o.addr == "" {
		return body(ctx, statusSink{}, nil)
	}

	ln, err := net.Listen("tcp", o.addr)
	if err != nil {
		return errors.Wrapf(errdefs.ErrTransport, "status server on %s: %v", o.addr, err)
	}
	m := metrics.New()
	srv := server.New(o.addr, server.Options{Logger: log, Metrics: m, FeedRate: o.feedRate})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.StartOnListener(ln)
	})
	g.Go(func() error {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("status server shutdown", zap.Error(err))
			}
		}()
		return body(gctx, statusSink{srv: srv}, m)
	})
	return g.Wait()
}

// recordingSource is where play and inspect read a recording from: a stored
// name or a container file.
type recordingSource struct {
	file  string
	store storageOptions
}

func (s *recordingSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "read the recording from this file instead of storage")
	s.store.addFlags(cmd)
}

func (s *recordingSource) load(ctx context.Context, cmd *cobra.Command, cfg *config.StorageConfig, args []string) (*recording.Recording, string, error) {
	switch {
	case s.file != "" && len(args) > 0:
		return nil, "", errors.Wrap(errdefs.ErrInvalidArgument, "give either a recording name or --file, not both")
	case s.file != "":
		rec, err := storage.ReadFile(s.file)
		return rec, s.file, err
	case len(args) == 1:
		st, err := s.store.open(ctx, cmd, cfg)
		if err != nil {
			return nil, "", err
		}
		rec, err := st.Load(ctx, args[0])
		return rec, args[0], multierr.Append(err, st.Close())
	default:
		return nil, "", errors.Wrap(errdefs.ErrInvalidArgument, "a recording name or --file is required")
	}
}

// recordingSink is where record, import-pcap and generate write a
// recording: a stored name, a container file or both.
type recordingSink struct {
	name  string
	out   string
	store storageOptions
}

func (s *recordingSink) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.name, "name", "n", "", "save the recording in storage under this name")
	cmd.Flags().StringVarP(&s.out, "out", "o", "", "write the recording to this file")
	s.store.addFlags(cmd)
}

func (s *recordingSink) empty() bool {
	return s.name == "" && s.out == ""
}

func (s *recordingSink) validate() error {
	if s.name != "" {
		return storage.ValidateName(s.name)
	}
	return nil
}

func (s *recordingSink) save(ctx context.Context, cmd *cobra.Command, cfg *config.StorageConfig, rec *recording.Recording) error {
	w := cmd.OutOrStdout()
	if s.out != "" {
		if err := storage.WriteFile(s.out, rec); err != nil {
			return err
		}
		success.Fprintf(w, "wrote %s\n", s.out)
	}
	if s.name == "" {
		return nil
	}

	st, err := s.store.open(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	err = st.Save(ctx, s.name, rec)
	if err == nil {
		success.Fprintf(w, "saved %q (%s storage)\n", s.name, s.store.backend)
	}
	return multierr.Append(err, st.Close())
}
