package recording

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
)

var cmpData = cmp.Options{cmpopts.IgnoreUnexported(Message{}), cmpopts.EquateEmpty()}

func bone(name string) *Message {
	return NewMessage("/VMC/Ext/Bone/Pos", name,
		float32(0), float32(1), float32(0),
		float32(0), float32(0), float32(0), float32(1))
}

func sampleTree() *Bundle {
	return NewBundle(osc.Timetag(77),
		NewMessage("/VMC/Ext/OK", int32(1)),
		bone("Hips"),
		NewBundle(osc.Immediately,
			bone("LeftEye"),
			NewMessage("/other", "x"),
		),
		NewBundle(osc.Immediately),
	)
}

func isVMC(m *Message) bool { return AddressPrefix("/VMC")(m) }

func TestMessage_FilterReturnsSelfOrNil(t *testing.T) {
	m := NewMessage("/VMC/Ext/T", float32(3))
	assert.Same(t, m, m.Filter(isVMC))
	assert.Nil(t, NewMessage("/x").Filter(isVMC))
}

func TestBundle_MessageCountIsRecursiveSum(t *testing.T) {
	b := sampleTree()
	assert.Equal(t, 4, b.MessageCount())

	sum := 0
	for _, el := range b.Elements {
		sum += el.MessageCount()
	}
	assert.Equal(t, sum, b.MessageCount())

	filtered := b.Filter(isVMC)
	require.NotNil(t, filtered)
	assert.Equal(t, 3, filtered.MessageCount())

	mapped := b.MapMessages(func(m *Message) *Message { return m })
	assert.Equal(t, b.MessageCount(), mapped.MessageCount())
}

func TestBundle_FilterIsRecursiveAndCollapses(t *testing.T) {
	got := sampleTree().Filter(isVMC)

	want := NewBundle(osc.Timetag(77),
		NewMessage("/VMC/Ext/OK", int32(1)),
		bone("Hips"),
		NewBundle(osc.Immediately, bone("LeftEye")),
	)
	if diff := cmp.Diff(Data(want), got, cmpData); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}

	none := sampleTree().Filter(func(*Message) bool { return false })
	assert.Nil(t, none, "a bundle with no surviving messages is absent")
}

func TestFilter_Idempotent(t *testing.T) {
	preds := map[string]Predicate{
		"vmc":  isVMC,
		"bone": AddressPrefix("/VMC/Ext/Bone"),
		"none": func(*Message) bool { return false },
	}
	inputs := []Data{sampleTree(), bone("Hips"), NewMessage("/z")}

	for name, p := range preds {
		for _, in := range inputs {
			once := in.Filter(p)
			if once == nil {
				continue
			}
			twice := once.Filter(p)
			if diff := cmp.Diff(once, twice, cmpData); diff != "" {
				t.Errorf("%s: second Filter changed result (-once +twice):\n%s", name, diff)
			}
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	in := sampleTree()
	before := sampleTree()
	_ = in.Filter(isVMC)
	_ = in.MapMessages(func(m *Message) *Message { return NewMessage("/replaced") })

	if diff := cmp.Diff(before, in, cmpData); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestMapMessages_PreservesStructure(t *testing.T) {
	in := sampleTree()
	got := in.MapMessages(func(m *Message) *Message {
		return NewMessage(m.Address + "/x")
	})
	b, ok := got.(*Bundle)
	require.True(t, ok)
	assert.Equal(t, osc.Timetag(77), b.Timetag)
	require.Len(t, b.Elements, 3, "empty nested bundle collapses")
	assert.Equal(t, "/VMC/Ext/OK/x", b.Elements[0].(*Message).Address)
	inner := b.Elements[2].(*Bundle)
	assert.Equal(t, osc.Immediately, inner.Timetag)
	assert.Equal(t, "/other/x", inner.Elements[1].(*Message).Address)
}

func TestLiveMessage(t *testing.T) {
	var v float32
	m := NewLiveMessage("/VMC/Ext/T", func() interface{} {
		v += 0.5
		return v
	})
	assert.True(t, m.IsLive())
	assert.True(t, NewBundle(osc.Immediately, m).IsLive())
	assert.False(t, sampleTree().IsLive())

	first := m.Packet().(*osc.Message)
	second := m.Packet().(*osc.Message)
	assert.Equal(t, []interface{}{float32(0.5)}, first.Arguments)
	assert.Equal(t, []interface{}{float32(1)}, second.Arguments)
	assert.Equal(t, "f", m.TypeTags())
}

func TestFromPacket_RoundTripsThroughWire(t *testing.T) {
	in := sampleTree().Filter(isVMC)
	raw, err := WireBytes(in)
	require.NoError(t, err)

	p, err := osc.ParsePacket(raw)
	require.NoError(t, err)
	got, err := FromPacket(p)
	require.NoError(t, err)

	if diff := cmp.Diff(in, got, cmpData); diff != "" {
		t.Errorf("FromPacket() mismatch (-want +got):\n%s", diff)
	}
}

func TestPredicates(t *testing.T) {
	eye := bone("LeftEye")
	other := NewMessage("/other")

	assert.True(t, All()(other))
	assert.True(t, All(isVMC, nil)(eye))
	assert.False(t, All(isVMC, AddressPrefix("/VMC/Ext/T"))(eye))
	assert.True(t, Any(AddressPrefix("/other"), isVMC)(other))
	assert.False(t, Any()(other))
	assert.True(t, Not(isVMC)(other))
}
