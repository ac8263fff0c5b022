package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meetcore/internal/usecase/errors"
)

type delivered struct {
	to    string
	event string
	data  map[string]any
}

type fakeSender struct {
	mu   sync.Mutex
	out  []delivered
	fail map[string]bool
}

func (f *fakeSender) Send(connectionID, event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[connectionID] {
		return errors.New("send buffer full")
	}
	f.out = append(f.out, delivered{to: connectionID, event: event, data: data.(map[string]any)})
	return nil
}

type fakeRooms map[string]string

func (f fakeRooms) RoomOf(connectionID string) (string, bool) {
	code, ok := f[connectionID]
	return code, ok
}

func newTestRelay(rooms fakeRooms) (*Relay, *fakeSender, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	sender := &fakeSender{fail: map[string]bool{}}
	return NewRelay(rooms, sender, zap.New(core)), sender, logs
}

func TestRelay_DeliversOnlyToTarget(t *testing.T) {
	rooms := fakeRooms{"c1": "ABC123", "c2": "ABC123", "c3": "ABC123"}
	relay, sender, _ := newTestRelay(rooms)

	err := relay.Relay(context.Background(), entities.SignalingMessage{
		Kind:     entities.SignalOffer,
		SenderID: "c1",
		TargetID: "c2",
		Payload:  json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	if len(sender.out) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(sender.out))
	}
	got := sender.out[0]
	if got.to != "c2" || got.event != "offer" {
		t.Fatalf("unexpected delivery %+v", got)
	}
	if got.data["senderId"] != "c1" {
		t.Fatalf("delivery must be annotated with senderId, got %v", got.data)
	}
	if _, ok := got.data["sdp"]; !ok {
		t.Fatalf("offer payload must be carried as sdp")
	}
}

func TestRelay_IceCandidateUsesCandidateField(t *testing.T) {
	rooms := fakeRooms{"c1": "ABC123", "c2": "ABC123"}
	relay, sender, _ := newTestRelay(rooms)

	err := relay.Relay(context.Background(), entities.SignalingMessage{
		Kind:     entities.SignalIceCandidate,
		SenderID: "c2",
		TargetID: "c1",
		Payload:  json.RawMessage(`{"candidate":"candidate:1 1 udp 1 127.0.0.1 5000 typ host"}`),
	})
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if _, ok := sender.out[0].data["candidate"]; !ok {
		t.Fatalf("candidate payload missing: %v", sender.out[0].data)
	}
}

func TestRelay_DropsWhenTargetUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		rooms  fakeRooms
		target string
	}{
		{"target disconnected", fakeRooms{"c1": "ABC123"}, "c9"},
		{"target in other room", fakeRooms{"c1": "ABC123", "c2": "OTHER"}, "c2"},
		{"missing target", fakeRooms{"c1": "ABC123", "c2": "ABC123"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			relay, sender, logs := newTestRelay(tc.rooms)

			err := relay.Relay(context.Background(), entities.SignalingMessage{
				Kind:     entities.SignalIceCandidate,
				SenderID: "c1",
				TargetID: tc.target,
				Payload:  json.RawMessage(`{}`),
			})
			if !errors.Is(err, ucerrors.ErrRelayTargetUnavailable) {
				t.Fatalf("expected ErrRelayTargetUnavailable, got %v", err)
			}
			if len(sender.out) != 0 {
				t.Fatalf("dropped message must never be delivered or broadcast, got %v", sender.out)
			}
			if logs.FilterMessageSnippet("Signal dropped").Len() != 1 {
				t.Fatalf("drop must be logged")
			}
		})
	}
}

func TestRelay_DeliveryFailureIsNotRetried(t *testing.T) {
	rooms := fakeRooms{"c1": "ABC123", "c2": "ABC123", "c3": "ABC123"}
	relay, sender, _ := newTestRelay(rooms)
	sender.fail["c2"] = true

	err := relay.Relay(context.Background(), entities.SignalingMessage{
		Kind: entities.SignalAnswer, SenderID: "c1", TargetID: "c2", Payload: json.RawMessage(`{}`),
	})
	if !errors.Is(err, ucerrors.ErrRelayTargetUnavailable) {
		t.Fatalf("expected ErrRelayTargetUnavailable, got %v", err)
	}
	if len(sender.out) != 0 {
		t.Fatalf("no fallback delivery expected, got %v", sender.out)
	}
}

func TestRelay_PreservesPerPairOrder(t *testing.T) {
	rooms := fakeRooms{"c1": "ABC123", "c2": "ABC123"}
	relay, sender, _ := newTestRelay(rooms)

	for i := 0; i < 20; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
		if err := relay.Relay(context.Background(), entities.SignalingMessage{
			Kind: entities.SignalIceCandidate, SenderID: "c1", TargetID: "c2", Payload: payload,
		}); err != nil {
			t.Fatalf("relay %d failed: %v", i, err)
		}
	}

	for i, d := range sender.out {
		want := fmt.Sprintf(`{"n":%d}`, i)
		if string(d.data["candidate"].(json.RawMessage)) != want {
			t.Fatalf("message %d out of order: %s", i, d.data["candidate"])
		}
	}
}

func TestRelay_RejectsUnknownKind(t *testing.T) {
	relay, sender, _ := newTestRelay(fakeRooms{"c1": "R", "c2": "R"})

	err := relay.Relay(context.Background(), entities.SignalingMessage{Kind: "renegotiate", SenderID: "c1", TargetID: "c2"})
	if !errors.Is(err, ucerrors.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if len(sender.out) != 0 {
		t.Fatalf("unexpected delivery")
	}
}
