package models

import (
	"time"
)

// Badge rarities.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

// Badge is a static catalog entry describing an achievement unlocked once a
// member's point total crosses PointsRequired. The catalog is reference data
// loaded at process start; the engine never mutates it at runtime.
type Badge struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Name           string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Icon           string    `gorm:"size:50" json:"icon"`
	Category       string    `gorm:"size:100" json:"category"`
	Rarity         string    `gorm:"size:50" json:"rarity"`
	PointsRequired int       `gorm:"not null" json:"points_required"`
	BonusPoints    int       `gorm:"default:0" json:"bonus_points"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// UserBadge tracks a member's progress toward one badge. Rows are created
// lazily on first progress update. EarnedAt is set exactly once, the first
// time progress reaches the badge threshold, and is never cleared afterward
// even if the point total later drops.
type UserBadge struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:64;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   string     `gorm:"size:64;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge     Badge      `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	Progress  int        `gorm:"default:0" json:"progress"`
	EarnedAt  *time.Time `json:"earned_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// Earned reports whether the badge has been awarded.
func (ub *UserBadge) Earned() bool {
	return ub.EarnedAt != nil
}
