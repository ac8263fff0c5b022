// Command probe is a headless meeting participant. It joins a room over the
// websocket, negotiates a data-only peer link with every other participant and
// speaks a few transcript lines, which makes it handy for smoke-testing a
// deployment without a browser.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/adapter/dto/event"
	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/infrastructure/rtc"
)

// Config is read from PROBE_* environment variables
type Config struct {
	URL      string        `default:"ws://localhost:8080/v1/ws"`
	Room     string        `default:"PROBE1"`
	UserID   string        `split_words:"true" default:"probe"`
	UserName string        `split_words:"true" default:"Probe"`
	Token    string
	Lines    []string      `default:"Hello from the probe,Let's schedule a follow-up for Monday"`
	Interval time.Duration `default:"3s"`
	STUN     string        `default:"stun:stun.l.google.com:19302"`
}

type sessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type probe struct {
	cfg    Config
	conn   *websocket.Conn
	mesh   *rtc.Mesh
	logger *zap.Logger

	writeMu sync.Mutex
}

func main() {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PROBE", &cfg); err != nil {
		log.Fatalf("Failed to process environment: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	target, err := url.Parse(cfg.URL)
	if err != nil {
		logger.Fatal("Invalid PROBE_URL", zap.Error(err))
	}
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(target.String(), header)
	if err != nil {
		logger.Fatal("Failed to connect", zap.String("url", cfg.URL), zap.Error(err))
	}
	defer conn.Close()

	p := &probe{cfg: cfg, conn: conn, logger: logger}
	p.mesh = rtc.NewMesh(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{cfg.STUN}}},
	}, p.sendCandidate, logger)
	defer p.mesh.CloseAll()

	if err := p.emit(entities.EventJoinRoom, event.JoinRoomRequest{RoomCode: cfg.Room, UserID: cfg.UserID}); err != nil {
		logger.Fatal("Failed to join", zap.Error(err))
	}
	logger.Info("🎙️ Probe joined", zap.String("room", cfg.Room), zap.String("user_id", cfg.UserID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.readLoop()
	}()
	go p.speak(done)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		_ = p.emit(entities.EventLeaveRoom, event.LeaveRoomRequest{RoomCode: cfg.Room})
		p.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		p.writeMu.Unlock()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
	logger.Info("👋 Probe stopped")
}

func (p *probe) emit(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(event.Envelope{Event: name, Data: payload})
}

func (p *probe) sendCandidate(peerID string, candidate webrtc.ICECandidateInit) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return
	}
	if err := p.emit(entities.EventIceCandidate, event.IceCandidateRequest{Candidate: raw, TargetID: peerID}); err != nil {
		p.logger.Warn("Failed to send candidate", zap.String("peer_id", peerID), zap.Error(err))
	}
}

func (p *probe) speak(done <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for _, line := range p.cfg.Lines {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		chunk := map[string]any{
			"text":      line,
			"userId":    p.cfg.UserID,
			"userName":  p.cfg.UserName,
			"timestamp": time.Now().UnixMilli(),
		}
		if err := p.emit(entities.EventTranscriptChunk, chunk); err != nil {
			p.logger.Warn("Failed to send transcript chunk", zap.Error(err))
			return
		}
	}
}

func (p *probe) readLoop() {
	for {
		var env event.Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				p.logger.Warn("Connection closed", zap.Error(err))
			}
			return
		}
		if err := p.handle(env); err != nil {
			p.logger.Warn("Event not handled", zap.String("event", env.Event), zap.Error(err))
		}
	}
}

func (p *probe) handle(env event.Envelope) error {
	switch env.Event {
	case entities.EventExistingUsers:
		var peers []entities.Participant
		if err := json.Unmarshal(env.Data, &peers); err != nil {
			return err
		}
		// the newcomer offers to everyone already present
		for _, peer := range peers {
			sdp, err := p.mesh.CreateOffer(peer.ConnectionID)
			if err != nil {
				return err
			}
			desc, _ := json.Marshal(sessionDescription{Type: "offer", SDP: sdp})
			if err := p.emit(entities.EventOffer, event.SessionDescriptionRequest{SDP: desc, TargetID: peer.ConnectionID}); err != nil {
				return err
			}
		}

	case entities.EventOffer:
		var msg struct {
			SDP      sessionDescription `json:"sdp"`
			SenderID string             `json:"senderId"`
		}
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		answer, err := p.mesh.HandleOffer(msg.SenderID, msg.SDP.SDP)
		if err != nil {
			p.mesh.Close(msg.SenderID)
			return err
		}
		desc, _ := json.Marshal(sessionDescription{Type: "answer", SDP: answer})
		return p.emit(entities.EventAnswer, event.SessionDescriptionRequest{SDP: desc, TargetID: msg.SenderID})

	case entities.EventAnswer:
		var msg struct {
			SDP      sessionDescription `json:"sdp"`
			SenderID string             `json:"senderId"`
		}
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		if err := p.mesh.HandleAnswer(msg.SenderID, msg.SDP.SDP); err != nil {
			// drop the broken link, the peer's next offer starts a fresh one
			p.mesh.Close(msg.SenderID)
			return err
		}

	case entities.EventIceCandidate:
		var msg struct {
			Candidate webrtc.ICECandidateInit `json:"candidate"`
			SenderID  string                  `json:"senderId"`
		}
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		_, err := p.mesh.AddCandidate(msg.SenderID, msg.Candidate)
		return err

	case entities.EventUserLeft:
		var msg struct {
			ConnectionID string `json:"connectionId"`
		}
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return err
		}
		p.mesh.Close(msg.ConnectionID)

	case entities.EventRoomFull:
		p.logger.Warn("Room is full", zap.String("room", p.cfg.Room))
		return p.conn.Close()

	case entities.EventTranscriptSaved, entities.EventAnalysisComplete, entities.EventLiveInsights, entities.EventError:
		p.logger.Info("📨 "+env.Event, zap.ByteString("data", env.Data))
	}
	return nil
}
