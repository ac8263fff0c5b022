package rtc

import (
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap/zaptest"
)

func hostCandidate(port string) webrtc.ICECandidateInit {
	mid := "0"
	idx := uint16(0)
	return webrtc.ICECandidateInit{
		Candidate:     "candidate:1 1 udp 2130706431 127.0.0.1 " + port + " typ host",
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	}
}

func TestMesh_CandidatesWaitForRemoteDescription(t *testing.T) {
	logger := zaptest.NewLogger(t)
	alice := NewMesh(webrtc.Configuration{}, nil, logger)
	bob := NewMesh(webrtc.Configuration{}, nil, logger)
	t.Cleanup(alice.CloseAll)
	t.Cleanup(bob.CloseAll)

	offer, err := alice.CreateOffer("bob")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}

	for _, port := range []string{"50000", "50001"} {
		applied, err := bob.AddCandidate("alice", hostCandidate(port))
		if err != nil {
			t.Fatalf("add candidate: %v", err)
		}
		if applied {
			t.Fatalf("candidate applied before the remote description")
		}
	}
	if got := bob.Pending("alice"); got != 2 {
		t.Fatalf("expected 2 queued candidates, got %d", got)
	}

	answer, err := bob.HandleOffer("alice", offer)
	if err != nil {
		t.Fatalf("handle offer: %v", err)
	}
	if !strings.Contains(answer, "v=0") {
		t.Fatalf("answer is not an SDP: %q", answer)
	}
	if got := bob.Pending("alice"); got != 0 {
		t.Fatalf("queue should be drained, %d left", got)
	}

	applied, err := bob.AddCandidate("alice", hostCandidate("50002"))
	if err != nil || !applied {
		t.Fatalf("candidate after remote description should apply directly, applied=%v err=%v", applied, err)
	}

	if err := alice.HandleAnswer("bob", answer); err != nil {
		t.Fatalf("handle answer: %v", err)
	}
}

func TestMesh_AnswerWithoutOffer(t *testing.T) {
	m := NewMesh(webrtc.Configuration{}, nil, nil)
	if err := m.HandleAnswer("ghost", "v=0"); err == nil {
		t.Fatalf("expected an error for an unsolicited answer")
	}
}

func TestMesh_CloseForgetsQueue(t *testing.T) {
	m := NewMesh(webrtc.Configuration{}, nil, nil)
	m.AddCandidate("peer", hostCandidate("50000"))
	m.Close("peer")

	if m.Pending("peer") != 0 {
		t.Fatalf("closing a link must drop its queued candidates")
	}
}

func TestMesh_RejectedQueuedCandidateFailsNegotiation(t *testing.T) {
	alice := NewMesh(webrtc.Configuration{}, nil, nil)
	bob := NewMesh(webrtc.Configuration{}, nil, nil)
	t.Cleanup(alice.CloseAll)
	t.Cleanup(bob.CloseAll)

	offer, err := alice.CreateOffer("bob")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := bob.AddCandidate("alice", webrtc.ICECandidateInit{Candidate: "not a candidate"}); err != nil {
		t.Fatalf("queueing must not fail: %v", err)
	}

	if _, err := bob.HandleOffer("alice", offer); err == nil {
		t.Fatalf("a queued candidate that cannot be applied must fail the offer")
	}
	if bob.Pending("alice") != 1 {
		t.Fatalf("the rejected candidate should stay queued")
	}

	bob.Close("alice")
	if bob.Pending("alice") != 0 {
		t.Fatalf("closing the link should reset its queue")
	}
	if _, err := bob.HandleOffer("alice", offer); err != nil {
		t.Fatalf("renegotiating after a reset should succeed: %v", err)
	}
}
