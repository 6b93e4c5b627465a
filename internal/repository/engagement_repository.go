package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/connectthrive/community-engine/internal/models"
)

// EngagementRepository records and de-duplicates engagement actions (posts,
// comments, likes, reports) and keeps the denormalized per-target counters
// consistent with the rows. Every mutating method runs its row mutation and
// the matching ledger append inside one transaction: both happen, or neither.
type EngagementRepository struct {
	db *DB
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(db *DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// ToggleResult describes the outcome of a like toggle.
type ToggleResult struct {
	Liked    bool
	NewCount int
	AuthorID string
}

// ToggleLike flips the like state for (actorID, targetID). Creating the like
// credits the target's author with likePoints; removing it appends the
// compensating negative event. The unique index on (user_id, target_id)
// resolves racing toggles: a duplicate insert surfaces as ErrConflict and the
// caller retries the read-then-toggle sequence.
func (r *EngagementRepository) ToggleLike(ctx context.Context, actorID, targetID, targetKind string, likePoints int) (*ToggleResult, error) {
	var result ToggleResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authorID, curCount, err := targetAuthor(tx, targetID, targetKind)
		if err != nil {
			return err
		}
		result.AuthorID = authorID

		var existing models.Like
		err = tx.Where("user_id = ? AND target_id = ?", actorID, targetID).First(&existing).Error

		switch {
		case err == nil:
			// Unlike: delete the row, settle the counter, compensate the ledger.
			res := tx.Delete(&models.Like{}, existing.ID)
			if res.Error != nil {
				return fmt.Errorf("failed to delete like: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				// A concurrent toggle removed the row between our read and the
				// delete. Surface the race as a conflict so the caller retries
				// instead of double-compensating the counter and the ledger.
				return models.ErrConflict
			}
			if err := adjustLikeCount(tx, targetID, targetKind, -1); err != nil {
				return err
			}
			event := &models.PointsEvent{
				UserID: authorID,
				Amount: -likePoints,
				Reason: models.ReasonPostLikedByOther,
				Note:   "unliked by " + actorID,
			}
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("failed to append compensating event: %w", err)
			}
			result.Liked = false
			result.NewCount = curCount - 1
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			like := &models.Like{
				UserID:     actorID,
				TargetID:   targetID,
				TargetKind: targetKind,
			}
			if err := tx.Create(like).Error; err != nil {
				return fmt.Errorf("failed to create like: %w", err)
			}
			if err := adjustLikeCount(tx, targetID, targetKind, +1); err != nil {
				return err
			}
			event := &models.PointsEvent{
				UserID: authorID,
				Amount: likePoints,
				Reason: models.ReasonPostLikedByOther,
				Note:   "liked by " + actorID,
			}
			if err := tx.Create(event).Error; err != nil {
				return fmt.Errorf("failed to append points event: %w", err)
			}
			result.Liked = true
			result.NewCount = curCount + 1
			return nil

		default:
			return fmt.Errorf("failed to look up like: %w", err)
		}
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &result, nil
}

// IsLiked reports whether actorID currently likes targetID.
func (r *EngagementRepository) IsLiked(ctx context.Context, actorID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_id = ?", actorID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check like state: %w", translateError(err))
	}
	return count > 0, nil
}

// LikeCount returns the number of like rows for a target. Used to reconcile
// the denormalized counters against the source of truth.
func (r *EngagementRepository) LikeCount(ctx context.Context, targetID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("target_id = ?", targetID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", translateError(err))
	}
	return count, nil
}

// LikedSet returns which of targetIDs the viewer currently likes.
func (r *EngagementRepository) LikedSet(ctx context.Context, viewerID string, targetIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(targetIDs))
	if viewerID == "" || len(targetIDs) == 0 {
		return liked, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_id IN ?", viewerID, targetIDs).
		Pluck("target_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load liked set: %w", translateError(err))
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// CreatePost persists a post and appends the author's post_created points
// event in one transaction.
func (r *EngagementRepository) CreatePost(ctx context.Context, post *models.Post, points int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}
		event := &models.PointsEvent{
			UserID: post.AuthorID,
			Amount: points,
			Reason: models.ReasonPostCreated,
			Note:   "post " + post.ID,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to append points event: %w", err)
		}
		return nil
	})
	return translateError(err)
}

// CreateComment persists a comment, bumps the post's comment counter, and
// appends the author's comment_created points event in one transaction.
// Replies must reference a parent comment on the same post.
func (r *EngagementRepository) CreateComment(ctx context.Context, comment *models.Comment, points int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", comment.PostID).Error; err != nil {
			return fmt.Errorf("failed to load post %s: %w", comment.PostID, err)
		}

		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, "id = ?", *comment.ParentID).Error; err != nil {
				return fmt.Errorf("failed to load parent comment: %w", err)
			}
			if parent.PostID != comment.PostID {
				return fmt.Errorf("parent comment belongs to another post: %w", models.ErrNotFound)
			}
		}

		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to bump comment counter: %w", err)
		}
		event := &models.PointsEvent{
			UserID: comment.AuthorID,
			Amount: points,
			Reason: models.ReasonCommentCreated,
			Note:   "comment " + comment.ID,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to append points event: %w", err)
		}
		return nil
	})
	return translateError(err)
}

// GetPost retrieves a post with its author preloaded.
func (r *EngagementRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("Author").First(&post, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", id, translateError(err))
	}
	return &post, nil
}

// GetComment retrieves a comment.
func (r *EngagementRepository) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comment %s: %w", id, translateError(err))
	}
	return &comment, nil
}

// ListPosts returns a feed page of active posts, newest first, with authors
// preloaded, plus the total active post count.
func (r *EngagementRepository) ListPosts(ctx context.Context, offset, limit int) ([]models.Post, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.Post{}).Where("status = ?", models.PostStatusActive)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", translateError(err))
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("status = ?", models.PostStatusActive).
		Preload("Author").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", translateError(err))
	}
	return posts, total, nil
}

// ListComments returns all comments for a post in creation order, replies
// included (flat, threaded via parent_id).
func (r *EngagementRepository) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Preload("Author").
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", translateError(err))
	}
	return comments, nil
}

// IncrementViews bumps a post's view counter. Views earn no points.
func (r *EngagementRepository) IncrementViews(ctx context.Context, postID string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment views: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateReport files a report against a post or comment.
func (r *EngagementRepository) CreateReport(ctx context.Context, report *models.Report) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := targetAuthor(tx, report.TargetID, report.TargetKind); err != nil {
			return err
		}
		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		return nil
	})
	return translateError(err)
}

// CountPostsByAuthor returns how many posts a member has authored.
func (r *EngagementRepository) CountPostsByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("author_id = ?", authorID).
		Count(&count).Error
	return count, translateError(err)
}

// CountCommentsByAuthor returns how many comments a member has authored.
func (r *EngagementRepository) CountCommentsByAuthor(ctx context.Context, authorID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("author_id = ?", authorID).
		Count(&count).Error
	return count, translateError(err)
}

// LikesReceived returns the number of active likes across everything the
// member has authored.
func (r *EngagementRepository) LikesReceived(ctx context.Context, authorID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM likes l
		WHERE l.target_id IN (SELECT id FROM posts WHERE author_id = ?)
		   OR l.target_id IN (SELECT id FROM comments WHERE author_id = ?)`,
		authorID, authorID).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count likes received: %w", translateError(err))
	}
	return count, nil
}

// ReconcileCounters recomputes the denormalized like and comment counters
// from the engagement rows.
func (r *EngagementRepository) ReconcileCounters(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			UPDATE posts SET likes_count =
				(SELECT COUNT(*) FROM likes WHERE likes.target_id = posts.id)`).Error; err != nil {
			return fmt.Errorf("failed to reconcile post like counters: %w", err)
		}
		if err := tx.Exec(`
			UPDATE posts SET comments_count =
				(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)`).Error; err != nil {
			return fmt.Errorf("failed to reconcile post comment counters: %w", err)
		}
		if err := tx.Exec(`
			UPDATE comments SET likes_count =
				(SELECT COUNT(*) FROM likes WHERE likes.target_id = comments.id)`).Error; err != nil {
			return fmt.Errorf("failed to reconcile comment like counters: %w", err)
		}
		return nil
	})
	return translateError(err)
}

// targetAuthor resolves a like/report target to its author and current like
// count.
func targetAuthor(tx *gorm.DB, targetID, targetKind string) (string, int, error) {
	switch targetKind {
	case models.TargetKindPost:
		var post models.Post
		if err := tx.First(&post, "id = ?", targetID).Error; err != nil {
			return "", 0, fmt.Errorf("failed to load post %s: %w", targetID, err)
		}
		return post.AuthorID, post.LikesCount, nil
	case models.TargetKindComment:
		var comment models.Comment
		if err := tx.First(&comment, "id = ?", targetID).Error; err != nil {
			return "", 0, fmt.Errorf("failed to load comment %s: %w", targetID, err)
		}
		return comment.AuthorID, comment.LikesCount, nil
	default:
		return "", 0, fmt.Errorf("unknown target kind %q: %w", targetKind, models.ErrNotFound)
	}
}

// adjustLikeCount moves the denormalized like counter on the target.
func adjustLikeCount(tx *gorm.DB, targetID, targetKind string, delta int) error {
	var table string
	switch targetKind {
	case models.TargetKindPost:
		table = "posts"
	case models.TargetKindComment:
		table = "comments"
	default:
		return fmt.Errorf("unknown target kind %q: %w", targetKind, models.ErrNotFound)
	}
	err := tx.Table(table).Where("id = ?", targetID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("failed to adjust like counter: %w", err)
	}
	return nil
}
