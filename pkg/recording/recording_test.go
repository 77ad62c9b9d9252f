package recording

import (
	"testing"
	"time"
)

func TestMarshalRoundtrip(t *testing.T) {
	rec := New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.Append(0, NewMessage("/VMC/Ext/OK", int32(1)))
	rec.Append(16*time.Millisecond, NewMessage("/VMC/Ext/T", float32(0.016)))

	b, err := Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if got.PacketCount() != 2 || got.MessageCount() != 2 {
		t.Fatalf("got %d packets / %d messages, want 2/2", got.PacketCount(), got.MessageCount())
	}
	if got.ID != rec.ID {
		t.Fatalf("ID = %s, want %s", got.ID, rec.ID)
	}
}
