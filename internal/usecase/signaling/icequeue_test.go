package signaling

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type recorder struct {
	mu      sync.Mutex
	applied map[string][]string
	failOn  string
}

func newRecorder() *recorder {
	return &recorder{applied: make(map[string][]string)}
}

func (r *recorder) apply(peerID, c string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c == r.failOn {
		return errors.New("bad candidate")
	}
	r.applied[peerID] = append(r.applied[peerID], c)
	return nil
}

func TestIceQueue_BuffersUntilRemoteDescription(t *testing.T) {
	rec := newRecorder()
	q := NewIceQueue[string](rec.apply)

	for _, c := range []string{"c1", "c2", "c3"} {
		applied, err := q.Add("peer-a", c)
		if err != nil || applied {
			t.Fatalf("expected %s to be buffered, applied=%v err=%v", c, applied, err)
		}
	}
	if q.Pending("peer-a") != 3 {
		t.Fatalf("expected 3 pending, got %d", q.Pending("peer-a"))
	}
	if len(rec.applied["peer-a"]) != 0 {
		t.Fatalf("nothing should be applied before remote description")
	}

	n, err := q.MarkRemoteDescriptionSet("peer-a")
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 drained, got %d", n)
	}
	if !reflect.DeepEqual(rec.applied["peer-a"], []string{"c1", "c2", "c3"}) {
		t.Fatalf("candidates not applied in FIFO order: %v", rec.applied["peer-a"])
	}
	if q.Pending("peer-a") != 0 {
		t.Fatalf("queue should be discarded after drain")
	}
}

func TestIceQueue_AppliesDirectlyAfterRemoteDescription(t *testing.T) {
	rec := newRecorder()
	q := NewIceQueue[string](rec.apply)

	if _, err := q.MarkRemoteDescriptionSet("peer-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	applied, err := q.Add("peer-a", "late")
	if err != nil || !applied {
		t.Fatalf("expected direct apply, applied=%v err=%v", applied, err)
	}
	if !reflect.DeepEqual(rec.applied["peer-a"], []string{"late"}) {
		t.Fatalf("unexpected applied %v", rec.applied["peer-a"])
	}
}

func TestIceQueue_PeersAreIndependent(t *testing.T) {
	rec := newRecorder()
	q := NewIceQueue[string](rec.apply)

	q.Add("peer-a", "a1")
	q.Add("peer-b", "b1")

	if _, err := q.MarkRemoteDescriptionSet("peer-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Pending("peer-b") != 1 {
		t.Fatalf("peer-b queue must be untouched")
	}
	if len(rec.applied["peer-b"]) != 0 {
		t.Fatalf("peer-b candidates must not be applied")
	}
}

func TestIceQueue_FailedApplyKeepsRemaining(t *testing.T) {
	rec := newRecorder()
	rec.failOn = "c2"
	q := NewIceQueue[string](rec.apply)

	q.Add("peer-a", "c1")
	q.Add("peer-a", "c2")
	q.Add("peer-a", "c3")

	n, err := q.MarkRemoteDescriptionSet("peer-a")
	if err == nil {
		t.Fatalf("expected apply error")
	}
	if n != 1 {
		t.Fatalf("expected 1 applied before failure, got %d", n)
	}
	if q.Pending("peer-a") != 2 {
		t.Fatalf("failed and later candidates must stay queued, got %d", q.Pending("peer-a"))
	}
	if q.RemoteDescriptionSet("peer-a") {
		t.Fatalf("remote description must not be marked set after a failed drain")
	}

	rec.failOn = ""
	if _, err := q.MarkRemoteDescriptionSet("peer-a"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !reflect.DeepEqual(rec.applied["peer-a"], []string{"c1", "c2", "c3"}) {
		t.Fatalf("unexpected applied %v", rec.applied["peer-a"])
	}
}

func TestIceQueue_Reset(t *testing.T) {
	rec := newRecorder()
	q := NewIceQueue[string](rec.apply)

	q.MarkRemoteDescriptionSet("peer-a")
	q.Reset("peer-a")

	applied, _ := q.Add("peer-a", "c1")
	if applied {
		t.Fatalf("after reset candidates must be buffered again")
	}
}
