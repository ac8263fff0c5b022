package transcript

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestBuffer_DropsConsecutiveDuplicate(t *testing.T) {
	b := NewBuffer()

	b.AddChunk("R1", 1, "u1", "Alice", "Hello", t0)
	if _, stored := b.AddChunk("R1", 1, "u1", "Alice", "Hello", t0.Add(time.Second)); stored {
		t.Fatalf("consecutive duplicate must be dropped")
	}
	b.AddChunk("R1", 1, "u1", "Alice", "We need a fix", t0.Add(2*time.Second))

	snap := b.Snapshot("R1")
	if len(snap.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(snap.Chunks))
	}
}

func TestBuffer_NonConsecutiveRepeatIsKept(t *testing.T) {
	b := NewBuffer()

	b.AddChunk("R1", 1, "u1", "Alice", "ok", t0)
	b.AddChunk("R1", 1, "u2", "Bob", "ok", t0.Add(time.Second))
	b.AddChunk("R1", 1, "u1", "Alice", "ok", t0.Add(2*time.Second))

	if n := b.Len("R1"); n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}
}

func TestBuffer_SnapshotSortsByClientTimestamp(t *testing.T) {
	b := NewBuffer()

	b.AddChunk("R1", 1, "u1", "Alice", "third", t0.Add(3*time.Second))
	b.AddChunk("R1", 1, "u2", "Bob", "first", t0.Add(1*time.Second))
	b.AddChunk("R1", 1, "u1", "Alice", "second", t0.Add(2*time.Second))

	snap := b.Snapshot("R1")
	want := []string{"first", "second", "third"}
	for i, c := range snap.Chunks {
		if c.Text != want[i] {
			t.Fatalf("position %d: want %q got %q", i, want[i], c.Text)
		}
	}
	if snap.UpTo != 3 {
		t.Fatalf("expected upTo 3, got %d", snap.UpTo)
	}
}

func TestBuffer_RoomsAreIsolated(t *testing.T) {
	b := NewBuffer()

	b.AddChunk("R1", 1, "u1", "Alice", "Hello", t0)
	b.AddChunk("R2", 1, "u1", "Alice", "Hello", t0)

	if b.Len("R1") != 1 || b.Len("R2") != 1 {
		t.Fatalf("dedupe must not cross rooms")
	}
}

func TestBuffer_DiscardKeepsLaterChunks(t *testing.T) {
	b := NewBuffer()

	b.AddChunk("R1", 1, "u1", "Alice", "one", t0)
	b.AddChunk("R1", 1, "u1", "Alice", "two", t0.Add(time.Second))
	snap := b.Snapshot("R1")

	b.AddChunk("R1", 1, "u2", "Bob", "late", t0.Add(2*time.Second))

	if removed := b.Discard("R1", snap); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	left := b.Snapshot("R1")
	if len(left.Chunks) != 1 || left.Chunks[0].Text != "late" {
		t.Fatalf("chunk received after the snapshot must survive, got %v", left.Chunks)
	}
}

func TestBuffer_IgnoresBlankText(t *testing.T) {
	b := NewBuffer()
	if _, stored := b.AddChunk("R1", 1, "u1", "Alice", "   ", t0); stored {
		t.Fatalf("blank text must not be stored")
	}
}

func TestBuffer_DedupeIsByteExact(t *testing.T) {
	b := NewBuffer()
	b.AddChunk("R1", 1, "u1", "Alice", "Hello", t0)
	if _, stored := b.AddChunk("R1", 1, "u1", "Alice", "Hello ", t0.Add(time.Second)); !stored {
		t.Fatalf("text differing by a trailing space is not a duplicate")
	}
	snap := b.Snapshot("R1")
	if len(snap.Chunks) != 2 || snap.Chunks[1].Text != "Hello " {
		t.Fatalf("text must be stored as received, got %+v", snap.Chunks)
	}
}

func TestBuffer_RecentWindow(t *testing.T) {
	b := NewBuffer()
	for i, text := range []string{"a", "b", "c", "d"} {
		b.AddChunk("R1", 1, "u1", "Alice", text, t0.Add(time.Duration(i)*time.Second))
	}

	recent := b.Recent("R1", 2)
	if len(recent) != 2 || recent[0].Text != "c" || recent[1].Text != "d" {
		t.Fatalf("unexpected window %v", recent)
	}
}

func TestBuffer_SnapshotThroughExcludesLaterEpoch(t *testing.T) {
	b := NewBuffer()

	b.AddChunk("R1", 1, "u1", "Alice", "old session", t0)
	b.AddChunk("R1", 2, "u1", "Alice", "new session", t0.Add(time.Second))

	snap := b.SnapshotThrough("R1", 1)
	if len(snap.Chunks) != 1 || snap.Chunks[0].Text != "old session" {
		t.Fatalf("later epoch leaked into snapshot: %v", snap.Chunks)
	}

	b.Discard("R1", snap)
	left := b.Snapshot("R1")
	if len(left.Chunks) != 1 || left.Chunks[0].Epoch != 2 {
		t.Fatalf("new epoch chunk must survive the old flush, got %v", left.Chunks)
	}
}
