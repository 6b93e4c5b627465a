// Package models defines domain models for the community engagement engine.
package models

import (
	"time"
)

// Profile represents a community member. The ID is the opaque identity key
// issued by the external auth provider; the engine never creates identities
// itself, it only mirrors them.
type Profile struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Email      string    `gorm:"size:255" json:"email"`
	FullName   string    `gorm:"size:255" json:"full_name"`
	AvatarURL  string    `gorm:"size:512" json:"avatar_url"`
	Bio        string    `gorm:"type:text" json:"bio"`
	Location   string    `gorm:"size:255" json:"location"`
	IsVerified bool      `gorm:"default:false" json:"is_verified"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// ProfileStats aggregates a member's activity for the profile page.
type ProfileStats struct {
	UserID        string  `json:"user_id"`
	FullName      string  `json:"full_name"`
	TotalPoints   int64   `json:"total_points"`
	PostsCount    int64   `json:"posts_count"`
	CommentsCount int64   `json:"comments_count"`
	LikesReceived int64   `json:"likes_received"`
	GlobalRank    int     `json:"global_rank"`
	Badges        []Badge `json:"badges"`
}
