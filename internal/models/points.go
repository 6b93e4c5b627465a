package models

import (
	"time"
)

// Point event reasons.
const (
	ReasonPostCreated      = "post_created"
	ReasonPostLikedByOther = "post_liked_by_other"
	ReasonCommentCreated   = "comment_created"
	ReasonBadgeBonus       = "badge_bonus"
	ReasonManualAdjustment = "manual_adjustment"
)

// PointsEvent is an immutable entry in the points ledger. Events are only
// ever appended; corrections happen through compensating events of opposite
// sign. A user's authoritative total is the sum of their event amounts, not
// any separately stored counter.
type PointsEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:50;not null" json:"reason"`
	Note      string    `gorm:"size:255" json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for PointsEvent model.
func (PointsEvent) TableName() string {
	return "points_events"
}

// ValidReason reports whether reason is one of the known ledger reasons.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonPostCreated, ReasonPostLikedByOther, ReasonCommentCreated,
		ReasonBadgeBonus, ReasonManualAdjustment:
		return true
	}
	return false
}
