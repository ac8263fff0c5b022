package repositories

import (
	"context"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

// ReportRepository defines the interface for meeting report persistence
type ReportRepository interface {
	// SaveReport stores a report row
	SaveReport(ctx context.Context, report *entities.MeetingReport) error

	// FindLatestByRoomCode returns the most recent report for a room, or nil if none exists
	FindLatestByRoomCode(ctx context.Context, code string) (*entities.MeetingReport, error)
}
