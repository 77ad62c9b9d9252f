// Package vmc knows the Virtual Motion Capture conventions layered on OSC:
// which addresses belong to the protocol, which bone channels carry gaze,
// and how the periodic timing message is regenerated during playback.
package vmc

import (
	"strings"

	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

const (
	Prefix = "/VMC"

	AddressAvailable = "/VMC/Ext/OK"
	AddressTime      = "/VMC/Ext/T"
	AddressRootPos   = "/VMC/Ext/Root/Pos"
	AddressBonePos   = "/VMC/Ext/Bone/Pos"
	AddressBlendVal  = "/VMC/Ext/Blend/Val"
	AddressBlendAply = "/VMC/Ext/Blend/Apply"

	BoneLeftEye  = "LeftEye"
	BoneRightEye = "RightEye"
)

// DefaultPerformerPort is where marionette applications listen by default.
const DefaultPerformerPort = 39539

// IsVMC accepts messages in the VMC address namespace.
func IsVMC(m *recording.Message) bool {
	return strings.HasPrefix(m.Address, Prefix)
}

// IsEyeBone reports whether m is a bone message for one of the eyes.
func IsEyeBone(m *recording.Message) bool {
	if m.Address != AddressBonePos || len(m.Arguments) == 0 {
		return false
	}
	name, ok := m.Arguments[0].(string)
	return ok && (name == BoneLeftEye || name == BoneRightEye)
}

// GazeOnly drops body motion: root transforms and every bone except the
// eyes. Messages on other addresses pass.
func GazeOnly(m *recording.Message) bool {
	switch m.Address {
	case AddressRootPos:
		return false
	case AddressBonePos:
		return IsEyeBone(m)
	default:
		return true
	}
}

// Selector builds the capture and playback predicate from the command line
// switches. It returns nil when every message is accepted.
func Selector(allOSC, gazeOnly bool) recording.Predicate {
	var ps []recording.Predicate
	if !allOSC {
		ps = append(ps, IsVMC)
	}
	if gazeOnly {
		ps = append(ps, GazeOnly)
	}
	if len(ps) == 0 {
		return nil
	}
	return recording.All(ps...)
}
