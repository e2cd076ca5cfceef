package runtime

import "testing"

func TestLedgerTracksAndReleases(t *testing.T) {
	l := NewLedger()
	for i := 0; i < Capacity; i++ {
		if err := l.Track(); err != nil {
			t.Fatalf("unexpected overflow at slot %d: %v", i, err)
		}
	}
	if l.Count() != Capacity {
		t.Fatalf("got count %d, want %d", l.Count(), Capacity)
	}
	if err := l.Track(); err == nil {
		t.Fatal("expected overflow error on the 101st allocation")
	}
	l.Release()
	if l.Count() != 0 {
		t.Fatalf("got count %d after release, want 0", l.Count())
	}
	if err := l.Track(); err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}
}

func TestValueAsStringFormats(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", NewInt(42), "42"},
		{"bool true", NewBool(true), "true"},
		{"bool false", NewBool(false), "false"},
		{"string", NewString("hi"), "hi"},
		{"null", NewNull(), "null"},
		{"array", NewArray([]Value{NewInt(0), NewInt(42), NewInt(0)}), "[0, 42, 0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.AsString(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueReferenceNullness(t *testing.T) {
	nullRef := NewReference(nil)
	if !nullRef.IsNull() {
		t.Fatal("reference with nil target should be null")
	}
	target := NewInt(1)
	ref := NewReference(&target)
	if ref.IsNull() {
		t.Fatal("reference with a target should not be null")
	}
}
