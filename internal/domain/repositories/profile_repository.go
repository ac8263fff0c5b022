package repositories

import (
	"context"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
)

// ProfileRepository defines the interface for profile lookups
type ProfileRepository interface {
	// FindProfile returns the stored profile for a user, or nil if none exists
	FindProfile(ctx context.Context, userID string) (*entities.UserProfile, error)

	// UpsertProfile creates or replaces the profile keyed by its user id
	UpsertProfile(ctx context.Context, profile *entities.UserProfile) error
}
