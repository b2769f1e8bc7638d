package core

import "testing"

func TestSnapshotLastProcessed(t *testing.T) {
	snap := &Snapshot{
		ProcessedInputs: map[string][]uint64{
			"a": {4, 9, 7},
			"b": {},
		},
	}

	if seq, ok := snap.LastProcessed("a"); !ok || seq != 9 {
		t.Fatalf("LastProcessed(a) = %d, %v; want 9, true", seq, ok)
	}
	if _, ok := snap.LastProcessed("b"); ok {
		t.Fatalf("empty list should report no ack")
	}
	if _, ok := snap.LastProcessed("missing"); ok {
		t.Fatalf("missing client should report no ack")
	}

	var nilSnap *Snapshot
	if _, ok := nilSnap.LastProcessed("a"); ok {
		t.Fatalf("nil snapshot should report no ack")
	}
}
