package replay

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// Filter narrows a recording before playback.
type Filter struct {
	Addresses []string      // Only include messages under these address prefixes (empty = all)
	Exclude   []string      // Drop messages under these address prefixes
	From      time.Duration // Skip packets before this offset (zero = from the start)
	To        time.Duration // Skip packets at or after this offset (zero = to the end)
}

// IsZero reports whether the filter keeps everything.
func (f *Filter) IsZero() bool {
	return len(f.Addresses) == 0 && len(f.Exclude) == 0 && f.From == 0 && f.To == 0
}

// Validate checks the time window.
func (f *Filter) Validate() error {
	if f.From < 0 || f.To < 0 {
		return errors.Wrap(errdefs.ErrInvalidArgument, "filter window must not be negative")
	}
	if f.To > 0 && f.To <= f.From {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "filter window is empty: from %s to %s", f.From, f.To)
	}
	return nil
}

// Predicate returns the message selector for the address rules, or nil
// when there are none.
func (f *Filter) Predicate() recording.Predicate {
	var ps []recording.Predicate
	if len(f.Addresses) > 0 {
		ps = append(ps, matchAddress(f.Addresses))
	}
	if len(f.Exclude) > 0 {
		ps = append(ps, recording.Not(matchAddress(f.Exclude)))
	}
	if len(ps) == 0 {
		return nil
	}
	return recording.All(ps...)
}

// Apply cuts rec to the window, shifting offsets so the window starts at
// zero, and then applies the address rules.
func (f *Filter) Apply(rec *recording.Recording) (*recording.Recording, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := rec
	if f.From > 0 || f.To > 0 {
		out = out.Window(f.From, f.To)
	}
	if p := f.Predicate(); p != nil {
		out = out.Filter(p)
	}
	return out, nil
}

func matchAddress(prefixes []string) recording.Predicate {
	return func(m *recording.Message) bool {
		for _, p := range prefixes {
			if m.Address == p || strings.HasPrefix(m.Address, strings.TrimSuffix(p, "/")+"/") {
				return true
			}
		}
		return false
	}
}
