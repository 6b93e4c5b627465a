package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/connectthrive/community-engine/internal/models"
)

// ProfileRepository handles profile-related database operations.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create creates a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", translateError(err))
	}
	return nil
}

// GetByID retrieves a profile by its identity key.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, translateError(err))
	}
	return &profile, nil
}

// GetByEmail retrieves a profile by email.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to get profile by email %s: %w", email, translateError(err))
	}
	return &profile, nil
}

// Update updates a profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("failed to update profile: %w", translateError(err))
	}
	return nil
}

// List retrieves all profiles ordered by account creation time.
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", translateError(err))
	}
	return profiles, nil
}

// Count returns the number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", translateError(err))
	}
	return count, nil
}

// CreateOrUpdate mirrors an identity supplied by the auth provider. The
// profile row is created on first sight and refreshed afterwards.
func (r *ProfileRepository) CreateOrUpdate(ctx context.Context, profile *models.Profile) error {
	var existing models.Profile
	err := r.db.WithContext(ctx).First(&existing, "id = ?", profile.ID).Error
	if err != nil {
		if errors.Is(translateError(err), models.ErrNotFound) {
			return r.Create(ctx, profile)
		}
		return fmt.Errorf("failed to look up profile: %w", translateError(err))
	}

	// Only the identity-supplied fields refresh. Location and the
	// verification flag are managed separately and survive the upsert.
	existing.Email = profile.Email
	existing.FullName = profile.FullName
	existing.AvatarURL = profile.AvatarURL
	existing.Bio = profile.Bio
	existing.UpdatedAt = time.Now()
	if err := r.Update(ctx, &existing); err != nil {
		return err
	}
	*profile = existing
	return nil
}
