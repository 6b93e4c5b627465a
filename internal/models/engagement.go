package models

import (
	"time"
)

// TargetKind identifies what an engagement action points at.
const (
	TargetKindPost    = "post"
	TargetKindComment = "comment"
)

// Post statuses.
const (
	PostStatusActive   = "active"
	PostStatusArchived = "archived"
	PostStatusRemoved  = "removed"
)

// Post represents a community feed post. The likes/comments/views counters
// are denormalized for feed reads; the engagement rows remain the source of
// truth and the counters are maintained in the same transaction as the row
// mutation.
type Post struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	AuthorID      string    `gorm:"size:64;not null;index" json:"author_id"`
	Author        *Profile  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Category      string    `gorm:"size:100;index" json:"category"`
	Tags          []string  `gorm:"serializer:json" json:"tags"`
	ImageURL      string    `gorm:"size:512" json:"image_url"`
	Location      string    `gorm:"size:255" json:"location"`
	IsUrgent      bool      `gorm:"default:false" json:"is_urgent"`
	IsFeatured    bool      `gorm:"default:false" json:"is_featured"`
	Status        string    `gorm:"size:50;default:active;index" json:"status"`
	LikesCount    int       `gorm:"default:0" json:"likes_count"`
	CommentsCount int       `gorm:"default:0" json:"comments_count"`
	ViewsCount    int       `gorm:"default:0" json:"views_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Post model.
func (Post) TableName() string {
	return "posts"
}

// Comment represents a comment on a post. Replies reference their parent
// comment through ParentID.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	PostID     string    `gorm:"size:64;not null;index" json:"post_id"`
	AuthorID   string    `gorm:"size:64;not null;index" json:"author_id"`
	Author     *Profile  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ParentID   *string   `gorm:"size:64;index" json:"parent_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	LikesCount int       `gorm:"default:0" json:"likes_count"`
	IsFlagged  bool      `gorm:"default:false" json:"is_flagged"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Comment model.
func (Comment) TableName() string {
	return "comments"
}

// Like records one user liking one target. Likes are a set, not a multiset:
// the unique index on (user_id, target_id) is the sole concurrency-control
// primitive for the toggle operation, enforced by storage rather than by
// application-level checks.
type Like struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_like_user_target" json:"user_id"`
	TargetID   string    `gorm:"size:64;not null;uniqueIndex:idx_like_user_target" json:"target_id"`
	TargetKind string    `gorm:"size:20;not null" json:"target_kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Like model.
func (Like) TableName() string {
	return "likes"
}

// Report statuses.
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusDismissed = "dismissed"
)

// Report represents a user flagging a post or comment for moderation.
// Reports never affect points.
type Report struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	ReporterID string    `gorm:"size:64;not null;index" json:"reporter_id"`
	TargetID   string    `gorm:"size:64;not null;index" json:"target_id"`
	TargetKind string    `gorm:"size:20;not null" json:"target_kind"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	Status     string    `gorm:"size:50;default:pending;index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Report model.
func (Report) TableName() string {
	return "reports"
}
