package telemetry

import (
	"context"
	"testing"
)

type fakeBroadcaster struct {
	sent []interface{}
}

func (f *fakeBroadcaster) BroadcastJSON(v interface{}) error {
	f.sent = append(f.sent, v)
	return nil
}

func TestHub_Throttle(t *testing.T) {
	tests := []struct {
		name         string
		maxPerSecond float64
		puts         int
		want         int
	}{
		{name: "unlimited", maxPerSecond: 0, puts: 5, want: 5},
		{name: "burst of one", maxPerSecond: 0.001, puts: 5, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBroadcaster{}
			h := NewHub(b, tc.maxPerSecond)
			for i := 0; i < tc.puts; i++ {
				if err := h.PutData(context.Background(), Report{Frame: uint64(i)}); err != nil {
					t.Fatalf("PutData: %v", err)
				}
			}
			if len(b.sent) != tc.want {
				t.Errorf("sent %d, want %d", len(b.sent), tc.want)
			}
		})
	}
}

func TestHub_SendsSnapshot(t *testing.T) {
	b := &fakeBroadcaster{}
	NewHub(b, 0).PutData(context.Background(), sampleReport())

	snap, ok := b.sent[0].(Snapshot)
	if !ok {
		t.Fatalf("sent %T, want Snapshot", b.sent[0])
	}
	if snap.NumObjects != 2 {
		t.Errorf("num_objects: got %d", snap.NumObjects)
	}
}
