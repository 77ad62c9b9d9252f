package osc

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testCase struct {
	name    string
	raw     []byte
	obj     Packet
	wantErr bool
}

var messageTestCases = []testCase{
	{
		name: "int32",
		raw: []byte{
			'/', 'a', 0, 0,
			',', 'i', 0, 0,
			0, 0, 0, 1,
		},
		obj: NewMessage("/a", int32(1)),
	},
	{
		name: "string is padded to four bytes",
		raw: []byte{
			'/', 'V', 'M', 'C', 0, 0, 0, 0,
			',', 's', 0, 0,
			'H', 'i', 'p', 's', 0, 0, 0, 0,
		},
		obj: NewMessage("/VMC", "Hips"),
	},
	{
		name: "float32 and blob",
		raw: []byte{
			'/', 'x', 0, 0,
			',', 'f', 'b', 0,
			0x3f, 0x80, 0, 0,
			0, 0, 0, 3, 1, 2, 3, 0,
		},
		obj: NewMessage("/x", float32(1), []byte{1, 2, 3}),
	},
	{
		name: "no arguments",
		raw:  []byte{'/', 'a', 0, 0, ',', 0, 0, 0},
		obj:  NewMessage("/a"),
	},
	{
		name:    "missing argument bytes",
		raw:     []byte{'/', 'a', 0, 0, ',', 'i', 0, 0, 0, 0},
		wantErr: true,
	},
	{
		name:    "unterminated address",
		raw:     []byte{'/', 'a', 'b', 'c'},
		wantErr: true,
	},
	{
		name:    "tags without comma",
		raw:     []byte{'/', 'a', 0, 0, 'i', 0, 0, 0, 0, 0, 0, 1},
		wantErr: true,
	},
	{
		name:    "unknown tag",
		raw:     []byte{'/', 'a', 0, 0, ',', 'z', 0, 0},
		wantErr: true,
	},
}

var bundleTestCases = []testCase{
	{
		name: "bundle with one message",
		raw: []byte{
			'#', 'b', 'u', 'n', 'd', 'l', 'e', 0,
			0, 0, 0, 0, 0, 0, 0, 1,
			0, 0, 0, 12,
			'/', 'a', 0, 0,
			',', 'i', 0, 0,
			0, 0, 0, 1,
		},
		obj: &Bundle{Timetag: Immediately, Elements: []Packet{NewMessage("/a", int32(1))}},
	},
	{
		name: "element size past end",
		raw: []byte{
			'#', 'b', 'u', 'n', 'd', 'l', 'e', 0,
			0, 0, 0, 0, 0, 0, 0, 1,
			0, 0, 0, 40,
			'/', 'a', 0, 0,
		},
		wantErr: true,
	},
	{
		name:    "bad header",
		raw:     []byte{'#', 'b', 'u', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		wantErr: true,
	},
}

func TestParsePacket(t *testing.T) {
	tests := []testCase{}
	tests = append(tests, messageTestCases...)
	tests = append(tests, bundleTestCases...)
	tests = append(tests,
		testCase{name: "empty", raw: nil, wantErr: true},
		testCase{name: "not osc", raw: []byte("GET / HTTP/1.1"), wantErr: true},
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePacket(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errdefs.IsDecode(err), "want decode error, got %v", err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.obj, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ParsePacket() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshalBinary(t *testing.T) {
	tests := []testCase{}
	tests = append(tests, messageTestCases...)
	tests = append(tests, bundleTestCases...)

	for _, tt := range tests {
		if tt.wantErr {
			continue
		}
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tt.raw, got)
		})
	}
}

func TestRoundTrip_AllTypes(t *testing.T) {
	in := &Bundle{
		Timetag: NewTimetag(epoch),
		Elements: []Packet{
			NewMessage("/VMC/Ext/Bone/Pos", "LeftEye",
				float32(0.1), float32(-0.2), float32(0.3),
				float32(0), float32(0), float32(0), float32(1)),
			&Bundle{
				Timetag: Immediately,
				Elements: []Packet{
					NewMessage("/all", int32(-7), int64(1<<40), float64(2.5),
						[]byte{9}, Timetag(42), nil, true, false, ""),
				},
			},
		},
	}

	data, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Zero(t, len(data)%4, "packets are 4 byte aligned")

	out, err := ParsePacket(data)
	require.NoError(t, err)
	if diff := cmp.Diff(Packet(in), out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalBinary_Rejects(t *testing.T) {
	_, err := NewMessage("no-slash").MarshalBinary()
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = NewMessage("/a", 3).MarshalBinary()
	assert.True(t, errdefs.IsInvalidArgument(err), "plain int has no OSC type")
}

func TestMessage_Append(t *testing.T) {
	m := NewMessage("/a")
	require.NoError(t, m.Append(int32(1), "x"))
	assert.Error(t, m.Append(struct{}{}))
	assert.Len(t, m.Arguments, 2)

	tags, err := m.TypeTags()
	require.NoError(t, err)
	assert.Equal(t, "is", tags)
}

func TestMessage_String(t *testing.T) {
	m := NewMessage("/VMC/Ext/T", float32(1.5))
	assert.Equal(t, "/VMC/Ext/T ,f 1.5", m.String())
	assert.Equal(t, "/a", NewMessage("/a").String())
}

func FuzzParsePacket(f *testing.F) {
	for _, tc := range bundleTestCases {
		f.Add(tc.raw)
	}
	for _, tc := range messageTestCases {
		f.Add(tc.raw)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		packet, err := ParsePacket(data)
		if err != nil {
			return
		}
		first, err := packet.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary() on parsed packet %#v: %v", packet, err)
		}
		packet, err = ParsePacket(first)
		if err != nil {
			t.Fatalf("ParsePacket() on marshaled packet: %v", err)
		}
		second, err := packet.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary() on double-parsed packet: %v", err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("encoding not stable (-first +second):\n%s", diff)
		}
	})
}
