package presenter

import (
	"encoding/json"

	"github.com/johnquangdev/meetcore/internal/adapter/dto/room"
	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

// ToRoomResponse converts a room snapshot to RoomResponse DTO
func ToRoomResponse(s *entities.RoomSnapshot) *room.RoomResponse {
	if s == nil {
		return nil
	}

	participants := make([]room.ParticipantResponse, 0, len(s.Participants))
	for _, p := range s.Participants {
		participants = append(participants, ToParticipantResponse(p))
	}

	return &room.RoomResponse{
		Code:         s.Code,
		State:        string(s.State),
		Epoch:        s.Epoch,
		Capacity:     s.Capacity,
		Active:       len(s.Participants),
		CreatedAt:    s.CreatedAt,
		Participants: participants,
	}
}

// ToParticipantResponse converts a Participant entity to ParticipantResponse DTO
func ToParticipantResponse(p entities.Participant) room.ParticipantResponse {
	return room.ParticipantResponse{
		ConnectionID: p.ConnectionID,
		UserID:       p.UserID,
		Name:         p.Profile.Name,
		Role:         p.Profile.Role,
		Activity:     p.Profile.Activity,
		AvatarURL:    p.Profile.AvatarURL,
		JoinedAt:     p.JoinedAt,
	}
}

// ToReportResponse converts a MeetingReport entity to ReportResponse DTO
func ToReportResponse(r *entities.MeetingReport) *room.ReportResponse {
	if r == nil {
		return nil
	}
	return &room.ReportResponse{
		ID:        r.ID.String(),
		RoomCode:  r.RoomCode,
		FlushID:   r.FlushID.String(),
		Epoch:     r.Epoch,
		Summary:   r.Summary,
		Sentiment: string(r.Sentiment),
		Degraded:  r.Degraded,
		ReportKey: r.ReportKey,
		Result:    json.RawMessage(r.Result),
		Manifest:  json.RawMessage(r.Manifest),
		CreatedAt: r.CreatedAt,
	}
}
