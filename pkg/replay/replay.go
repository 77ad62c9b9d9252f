package replay

import (
	"io"

	internalreplay "github.com/SmitUplenchwar2687/vmcloop/internal/replay"
	"github.com/SmitUplenchwar2687/vmcloop/pkg/recording"
)

// Player loops a recording to a destination with its original spacing.
type Player = internalreplay.Player

// Options configures a Player.
type Options = internalreplay.Options

// Stats aggregates playback counters.
type Stats = internalreplay.Stats

// Event reports one transmission attempt.
type Event = internalreplay.Event

// Filter selects the part of a recording to play.
type Filter = internalreplay.Filter

// New prepares rec for playback to w.
func New(rec *recording.Recording, w io.Writer, opts Options) (*Player, error) {
	return internalreplay.New(rec, w, opts)
}
