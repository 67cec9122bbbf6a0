package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndUnique(t *testing.T) {
	a := New()
	b := New()
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if b < a {
		t.Fatalf("expected monotonic ordering, got %q before %q", b, a)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := New()
	ts := Timestamp(id)
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Fatalf("embedded timestamp %v out of range", ts)
	}
	if !Timestamp("not-a-ulid").IsZero() {
		t.Fatal("expected zero time for malformed id")
	}
}
