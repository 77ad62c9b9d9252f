package recorder

import (
	"context"
	"net"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// Session ties a Recorder to a UDP listener.
type Session struct {
	rec *Recorder
	ln  *osc.Listener

	done     chan struct{}
	serveErr error

	stopOnce sync.Once
	result   *recording.Recording
	stopErr  error
}

// StartSession binds addr, starts rec and serves packets into it until Stop
// is called or ctx is cancelled.
func StartSession(ctx context.Context, addr string, rec *Recorder) (*Session, error) {
	ln, err := osc.Listen(addr)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, ln, rec)
}

// NewSession is StartSession on an existing listener. The session owns ln.
func NewSession(ctx context.Context, ln *osc.Listener, rec *Recorder) (*Session, error) {
	if err := rec.Start(); err != nil {
		_ = ln.Close()
		return nil, err
	}
	s := &Session{
		rec:  rec,
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.serveErr = ln.Serve(ctx, rec)
		if s.serveErr != nil {
			rec.log.Error("listener failed", zap.Error(s.serveErr))
		}
	}()
	rec.log.Info("listening", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Session) Addr() net.Addr {
	return s.ln.Addr()
}

// Done is closed once the listener stops delivering packets.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop detaches the listener, waits for in-flight delivery to finish and
// only then stops the recorder. Repeated calls return the same result.
func (s *Session) Stop() (*recording.Recording, error) {
	s.stopOnce.Do(func() {
		closeErr := s.ln.Close()
		<-s.done

		rec, err := s.rec.Stop()
		s.result = rec
		s.stopErr = multierr.Combine(err, s.serveErr, closeErr)
	})
	return s.result, s.stopErr
}
