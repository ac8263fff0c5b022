package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
)

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository backed by GORM
func NewReportRepository(db *gorm.DB) repositories.ReportRepository {
	return &reportRepository{db: db}
}

// SaveReport stores a report row, replacing any earlier row for the same flush
func (r *reportRepository) SaveReport(ctx context.Context, report *entities.MeetingReport) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "flush_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "sentiment", "result", "manifest", "report_key", "degraded"}),
		}).
		Create(report).Error
}

// FindLatestByRoomCode returns the most recent report for a room, or nil if none exists
func (r *reportRepository) FindLatestByRoomCode(ctx context.Context, code string) (*entities.MeetingReport, error) {
	var report entities.MeetingReport
	err := r.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("created_at DESC").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}
