package session

import (
	"context"
	"hash/fnv"
	"net/url"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/domain/repositories"
)

// ProfileEnricher resolves display metadata for a joining user. Enrich never
// fails: missing or unreachable profile data degrades to placeholders.
type ProfileEnricher interface {
	Enrich(ctx context.Context, userID string) entities.Profile
}

// ProfileCache is a read-through cache in front of the profile store
type ProfileCache interface {
	Get(ctx context.Context, userID string) (entities.Profile, bool)
	Set(ctx context.Context, userID string, profile entities.Profile)
}

var (
	placeholderRoles      = []string{"Participant", "Engineer", "Designer", "Product Manager", "Analyst", "Researcher"}
	placeholderActivities = []string{"Listening", "Taking notes", "Presenting", "Reviewing", "Brainstorming"}
)

// DefaultAvatarBaseURL is used when no avatar base is configured
const DefaultAvatarBaseURL = "https://api.dicebear.com/7.x/identicon/svg?seed="

// PlaceholderEnricher derives stable role, activity and avatar values from the
// user id, so the same user always gets the same placeholder
type PlaceholderEnricher struct {
	AvatarBaseURL string
}

// Enrich implements ProfileEnricher
func (p PlaceholderEnricher) Enrich(_ context.Context, userID string) entities.Profile {
	return p.Fill(userID, entities.Profile{})
}

// Fill sets any empty field of profile to its placeholder value
func (p PlaceholderEnricher) Fill(userID string, profile entities.Profile) entities.Profile {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	sum := h.Sum32()

	if profile.Name == "" {
		profile.Name = userID
	}
	if profile.Role == "" {
		profile.Role = placeholderRoles[sum%uint32(len(placeholderRoles))]
	}
	if profile.Activity == "" {
		profile.Activity = placeholderActivities[(sum/7)%uint32(len(placeholderActivities))]
	}
	if profile.AvatarURL == "" {
		base := p.AvatarBaseURL
		if base == "" {
			base = DefaultAvatarBaseURL
		}
		profile.AvatarURL = base + url.QueryEscape(userID)
	}
	return profile
}

// StoreEnricher looks profiles up in the repository, fronted by an optional cache
type StoreEnricher struct {
	repo        repositories.ProfileRepository
	cache       ProfileCache
	placeholder PlaceholderEnricher
	logger      *zap.Logger
}

// NewStoreEnricher creates a new StoreEnricher. cache may be nil.
func NewStoreEnricher(repo repositories.ProfileRepository, cache ProfileCache, avatarBaseURL string, logger *zap.Logger) *StoreEnricher {
	return &StoreEnricher{
		repo:        repo,
		cache:       cache,
		placeholder: PlaceholderEnricher{AvatarBaseURL: avatarBaseURL},
		logger:      logger,
	}
}

// Enrich implements ProfileEnricher
func (e *StoreEnricher) Enrich(ctx context.Context, userID string) entities.Profile {
	if e.cache != nil {
		if profile, ok := e.cache.Get(ctx, userID); ok {
			return profile
		}
	}

	var profile entities.Profile
	if e.repo != nil {
		row, err := e.repo.FindProfile(ctx, userID)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("Profile lookup failed, using placeholder",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
			// Do not cache a placeholder produced by an outage
			return e.placeholder.Fill(userID, profile)
		}
		if row != nil {
			profile = row.ToProfile()
		}
	}

	profile = e.placeholder.Fill(userID, profile)
	if e.cache != nil {
		e.cache.Set(ctx, userID, profile)
	}
	return profile
}
