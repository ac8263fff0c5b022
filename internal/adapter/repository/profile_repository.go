package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository backed by GORM
func NewProfileRepository(db *gorm.DB) repositories.ProfileRepository {
	return &profileRepository{db: db}
}

// FindProfile returns the stored profile for a user, or nil if none exists
func (r *profileRepository) FindProfile(ctx context.Context, userID string) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the profile keyed by its user id
func (r *profileRepository) UpsertProfile(ctx context.Context, profile *entities.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "role", "activity", "avatar_url", "updated_at"}),
		}).
		Create(profile).Error
}
