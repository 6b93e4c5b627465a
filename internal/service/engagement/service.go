// Package engagement coordinates the engagement store: posts, comments,
// likes, views, and reports, together with their ledger side effects.
package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	prommetrics "github.com/connectthrive/community-engine/internal/metrics"
	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// Repository interface for engagement storage operations.
type Repository interface {
	ToggleLike(ctx context.Context, actorID, targetID, targetKind string, likePoints int) (*repository.ToggleResult, error)
	IsLiked(ctx context.Context, actorID, targetID string) (bool, error)
	LikedSet(ctx context.Context, viewerID string, targetIDs []string) (map[string]bool, error)
	CreatePost(ctx context.Context, post *models.Post, points int) error
	CreateComment(ctx context.Context, comment *models.Comment, points int) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListPosts(ctx context.Context, offset, limit int) ([]models.Post, int64, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	IncrementViews(ctx context.Context, postID string) error
	CreateReport(ctx context.Context, report *models.Report) error
}

// ProfileRepository interface for actor lookups.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// LedgerService interface for cache invalidation after writes. The ledger
// rows themselves are appended inside the repository transaction.
type LedgerService interface {
	InvalidateTotal(ctx context.Context, userID string)
}

// BadgeService interface for post-write threshold checks.
type BadgeService interface {
	Evaluate(ctx context.Context, userID string) ([]models.UserBadge, error)
}

// Points fixes the ledger amount for each earning action.
type Points struct {
	PostCreated      int
	CommentCreated   int
	PostLikedByOther int
}

// Service is the write path for all engagement actions.
type Service struct {
	repo        Repository
	profileRepo ProfileRepository
	ledger      LedgerService
	badges      BadgeService
	points      Points
	log         *logger.Logger
}

// NewService creates a new engagement service.
func NewService(
	repo Repository,
	profileRepo ProfileRepository,
	ledgerSvc LedgerService,
	badgeSvc BadgeService,
	points Points,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		profileRepo: profileRepo,
		ledger:      ledgerSvc,
		badges:      badgeSvc,
		points:      points,
		log:         log,
	}
}

// PostInput carries the caller-supplied fields of a new post.
type PostInput struct {
	Title      string
	Content    string
	Category   string
	Tags       []string
	ImageURL   string
	Location   string
	IsUrgent   bool
	IsFeatured bool
}

// CreatePost stores a post and credits the author.
func (s *Service) CreatePost(ctx context.Context, authorID string, in PostInput) (*models.Post, error) {
	if in.Title == "" || in.Content == "" {
		return nil, fmt.Errorf("post requires a title and content")
	}
	if _, err := s.profileRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:         uuid.NewString(),
		AuthorID:   authorID,
		Title:      in.Title,
		Content:    in.Content,
		Category:   in.Category,
		Tags:       in.Tags,
		ImageURL:   in.ImageURL,
		Location:   in.Location,
		IsUrgent:   in.IsUrgent,
		IsFeatured: in.IsFeatured,
		Status:     models.PostStatusActive,
	}
	if err := s.repo.CreatePost(ctx, post, s.points.PostCreated); err != nil {
		return nil, err
	}

	prommetrics.PostsCreatedTotal.Inc()
	prommetrics.RecordPointsEvent(models.ReasonPostCreated)
	s.afterPointsChange(ctx, authorID)

	s.log.Info().
		Str("post_id", post.ID).
		Str("author_id", authorID).
		Msg("Post created")

	return post, nil
}

// CreateComment stores a comment (optionally a reply) and credits the
// author.
func (s *Service) CreateComment(ctx context.Context, authorID, postID string, parentID *string, content string) (*models.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("comment requires content")
	}
	if _, err := s.profileRepo.GetByID(ctx, authorID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:       uuid.NewString(),
		PostID:   postID,
		AuthorID: authorID,
		ParentID: parentID,
		Content:  content,
	}
	if err := s.repo.CreateComment(ctx, comment, s.points.CommentCreated); err != nil {
		return nil, err
	}

	prommetrics.CommentsCreatedTotal.Inc()
	prommetrics.RecordPointsEvent(models.ReasonCommentCreated)
	s.afterPointsChange(ctx, authorID)

	return comment, nil
}

// ToggleLike flips the actor's like state on a target. Each call toggles:
// callers that need "set liked" semantics use Like/Unlike, which read the
// current state first.
func (s *Service) ToggleLike(ctx context.Context, actorID, targetID, targetKind string) (bool, int, error) {
	if _, err := s.profileRepo.GetByID(ctx, actorID); err != nil {
		return false, 0, err
	}

	result, err := s.repo.ToggleLike(ctx, actorID, targetID, targetKind, s.points.PostLikedByOther)
	if err != nil {
		return false, 0, err
	}

	prommetrics.RecordLikeToggle(targetKind, result.Liked)
	prommetrics.RecordPointsEvent(models.ReasonPostLikedByOther)
	s.afterPointsChange(ctx, result.AuthorID)

	return result.Liked, result.NewCount, nil
}

// Like ensures the actor likes the target, toggling only when the current
// state needs to change. Already-liked is a no-op, not an error.
func (s *Service) Like(ctx context.Context, actorID, targetID, targetKind string) (bool, int, error) {
	return s.setLiked(ctx, actorID, targetID, targetKind, true)
}

// Unlike ensures the actor does not like the target.
func (s *Service) Unlike(ctx context.Context, actorID, targetID, targetKind string) (bool, int, error) {
	return s.setLiked(ctx, actorID, targetID, targetKind, false)
}

func (s *Service) setLiked(ctx context.Context, actorID, targetID, targetKind string, want bool) (bool, int, error) {
	liked, err := s.repo.IsLiked(ctx, actorID, targetID)
	if err != nil {
		return false, 0, err
	}
	if liked == want {
		count, err := s.likeCount(ctx, targetID, targetKind)
		if err != nil {
			return false, 0, err
		}
		return liked, count, nil
	}

	newLiked, newCount, err := s.ToggleLike(ctx, actorID, targetID, targetKind)
	if err != nil {
		// A race between the read and the toggle surfaces as a conflict;
		// one retry of the read-then-toggle sequence resolves it.
		if errors.Is(err, models.ErrConflict) {
			return s.setLikedOnce(ctx, actorID, targetID, targetKind, want)
		}
		return false, 0, err
	}
	return newLiked, newCount, nil
}

func (s *Service) setLikedOnce(ctx context.Context, actorID, targetID, targetKind string, want bool) (bool, int, error) {
	liked, err := s.repo.IsLiked(ctx, actorID, targetID)
	if err != nil {
		return false, 0, err
	}
	if liked == want {
		count, err := s.likeCount(ctx, targetID, targetKind)
		if err != nil {
			return false, 0, err
		}
		return liked, count, nil
	}
	return s.ToggleLike(ctx, actorID, targetID, targetKind)
}

func (s *Service) likeCount(ctx context.Context, targetID, targetKind string) (int, error) {
	switch targetKind {
	case models.TargetKindPost:
		post, err := s.repo.GetPost(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return post.LikesCount, nil
	case models.TargetKindComment:
		comment, err := s.repo.GetComment(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return comment.LikesCount, nil
	default:
		return 0, fmt.Errorf("unknown target kind %q: %w", targetKind, models.ErrNotFound)
	}
}

// FeedItem is a post decorated with the viewer's like state.
type FeedItem struct {
	models.Post
	Liked bool `json:"liked"`
}

// Feed returns a page of active posts, newest first, with the viewer's like
// flags resolved.
func (s *Service) Feed(ctx context.Context, viewerID string, offset, limit int) ([]FeedItem, int64, bool, error) {
	posts, total, err := s.repo.ListPosts(ctx, offset, limit)
	if err != nil {
		return nil, 0, false, err
	}

	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := s.repo.LikedSet(ctx, viewerID, ids)
	if err != nil {
		return nil, 0, false, err
	}

	items := make([]FeedItem, len(posts))
	for i := range posts {
		items[i] = FeedItem{Post: posts[i], Liked: liked[posts[i].ID]}
	}
	return items, total, int64(offset+len(items)) < total, nil
}

// Comments returns a post's comments in creation order.
func (s *Service) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, postID)
}

// ViewPost bumps a post's view counter. Views earn no points.
func (s *Service) ViewPost(ctx context.Context, postID string) error {
	return s.repo.IncrementViews(ctx, postID)
}

// Report files a report against a post or comment.
func (s *Service) Report(ctx context.Context, reporterID, targetID, targetKind, reason string) (*models.Report, error) {
	if reason == "" {
		return nil, fmt.Errorf("report requires a reason")
	}
	if _, err := s.profileRepo.GetByID(ctx, reporterID); err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:         uuid.NewString(),
		ReporterID: reporterID,
		TargetID:   targetID,
		TargetKind: targetKind,
		Reason:     reason,
		Status:     models.ReportStatusPending,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// afterPointsChange refreshes derived state once a ledger append has
// committed: the cached total is dropped and the member's badge thresholds
// are re-checked.
func (s *Service) afterPointsChange(ctx context.Context, userID string) {
	if s.ledger != nil {
		s.ledger.InvalidateTotal(ctx, userID)
	}
	if s.badges != nil {
		if _, err := s.badges.Evaluate(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Badge evaluation after write failed")
		}
	}
}
