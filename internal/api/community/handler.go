// Package community provides the REST API handlers for the engagement
// engine: posts, comments, likes, reports, points, badges, and the
// leaderboard.
package community

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/service/badges"
	"github.com/connectthrive/community-engine/internal/service/engagement"
	"github.com/connectthrive/community-engine/internal/service/leaderboard"
	"github.com/connectthrive/community-engine/pkg/logger"
)

// maxPageLimit caps the page size for all list endpoints.
const maxPageLimit = 100

// EngagementService interface for engagement write and feed operations.
type EngagementService interface {
	CreatePost(ctx context.Context, authorID string, in engagement.PostInput) (*models.Post, error)
	CreateComment(ctx context.Context, authorID, postID string, parentID *string, content string) (*models.Comment, error)
	Like(ctx context.Context, actorID, targetID, targetKind string) (bool, int, error)
	Unlike(ctx context.Context, actorID, targetID, targetKind string) (bool, int, error)
	ViewPost(ctx context.Context, postID string) error
	Report(ctx context.Context, reporterID, targetID, targetKind, reason string) (*models.Report, error)
	Feed(ctx context.Context, viewerID string, offset, limit int) ([]engagement.FeedItem, int64, bool, error)
	Comments(ctx context.Context, postID string) ([]models.Comment, error)
}

// LedgerService interface for points queries and adjustments.
type LedgerService interface {
	Total(ctx context.Context, userID string) (int64, error)
	Events(ctx context.Context, userID string, limit int) ([]models.PointsEvent, error)
	ManualAdjust(ctx context.Context, userID string, amount int, note string) (*models.PointsEvent, error)
}

// BadgeService interface for badge queries.
type BadgeService interface {
	UserBadges(ctx context.Context, userID string) ([]models.UserBadge, error)
	Catalog(ctx context.Context) ([]models.Badge, error)
	BadgeByID(ctx context.Context, badgeID string) (*models.Badge, error)
	HoldersCount(ctx context.Context, badgeID string) (int64, error)
	Evaluate(ctx context.Context, userID string) ([]models.UserBadge, error)
}

// LeaderboardService interface for ranking queries.
type LeaderboardService interface {
	GetPage(ctx context.Context, offset, limit int) (*leaderboard.Page, error)
}

// StatsService interface for profile-page aggregation.
type StatsService interface {
	UserStats(ctx context.Context, userID string) (*models.ProfileStats, error)
}

// ProfileService interface for member profile access.
type ProfileService interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	CreateOrUpdate(ctx context.Context, profile *models.Profile) error
}

// Handler handles community API requests.
type Handler struct {
	engagementService  EngagementService
	ledgerService      LedgerService
	badgeService       BadgeService
	leaderboardService LeaderboardService
	statsService       StatsService
	profileService     ProfileService
	log                *logger.Logger
}

// NewHandler creates a new community handler.
func NewHandler(
	engagementService *engagement.Service,
	ledgerService LedgerService,
	badgeService *badges.Service,
	leaderboardService *leaderboard.Service,
	statsService *leaderboard.StatsService,
	profileService ProfileService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		engagementService:  engagementService,
		ledgerService:      ledgerService,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		statsService:       statsService,
		profileService:     profileService,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new community handler with interface
// dependencies (useful for testing).
func NewHandlerWithInterfaces(
	engagementService EngagementService,
	ledgerService LedgerService,
	badgeService BadgeService,
	leaderboardService LeaderboardService,
	statsService StatsService,
	profileService ProfileService,
	log *logger.Logger,
) *Handler {
	return &Handler{
		engagementService:  engagementService,
		ledgerService:      ledgerService,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		statsService:       statsService,
		profileService:     profileService,
		log:                log,
	}
}

// createPostRequest is the body of POST /api/v1/posts.
type createPostRequest struct {
	Title    string   `json:"title" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	ImageURL string   `json:"image_url"`
	Location string   `json:"location"`
	IsUrgent bool     `json:"is_urgent"`
}

// CreatePost creates a post for the authenticated member.
// POST /api/v1/posts.
func (h *Handler) CreatePost(c *gin.Context) {
	userID := CurrentUserID(c)

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.engagementService.CreatePost(c.Request.Context(), userID, engagement.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
		ImageURL: req.ImageURL,
		Location: req.Location,
		IsUrgent: req.IsUrgent,
	})
	if err != nil {
		h.serviceError(c, err, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// GetFeed returns a page of posts with the viewer's like flags.
// GET /api/v1/posts?offset=0&limit=20.
func (h *Handler) GetFeed(c *gin.Context) {
	userID := CurrentUserID(c)

	offset, limit, err := h.parsePage(c, 20)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	items, total, hasMore, err := h.engagementService.Feed(c.Request.Context(), userID, offset, limit)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    items,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
		"has_more": hasMore,
	})
}

// ViewPost increments a post's view counter. Views earn no points.
// POST /api/v1/posts/:id/view.
func (h *Handler) ViewPost(c *gin.Context) {
	postID := c.Param("id")
	if postID == "" {
		h.errorResponse(c, http.StatusBadRequest, "post id is required")
		return
	}

	if err := h.engagementService.ViewPost(c.Request.Context(), postID); err != nil {
		h.serviceError(c, err, "Failed to record view")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// likeRequest is the optional body of the like endpoints.
type likeRequest struct {
	// Liked defaults to true; sending {"liked": false} removes the like.
	Liked *bool `json:"liked"`
}

// LikePost sets or removes the caller's like on a post.
// POST /api/v1/posts/:id/like.
func (h *Handler) LikePost(c *gin.Context) {
	h.handleLike(c, models.TargetKindPost)
}

// LikeComment sets or removes the caller's like on a comment.
// POST /api/v1/comments/:id/like.
func (h *Handler) LikeComment(c *gin.Context) {
	h.handleLike(c, models.TargetKindComment)
}

func (h *Handler) handleLike(c *gin.Context, targetKind string) {
	userID := CurrentUserID(c)

	targetID := c.Param("id")
	if targetID == "" {
		h.errorResponse(c, http.StatusBadRequest, "target id is required")
		return
	}

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	want := true
	if req.Liked != nil {
		want = *req.Liked
	}

	var (
		liked bool
		count int
		err   error
	)
	if want {
		liked, count, err = h.engagementService.Like(c.Request.Context(), userID, targetID, targetKind)
	} else {
		liked, count, err = h.engagementService.Unlike(c.Request.Context(), userID, targetID, targetKind)
	}
	if err != nil {
		h.serviceError(c, err, "Failed to update like")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"liked":      liked,
		"like_count": count,
	})
}

// createCommentRequest is the body of POST /api/v1/posts/:id/comments.
type createCommentRequest struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parent_id"`
}

// CreateComment adds a comment (optionally a reply) to a post.
// POST /api/v1/posts/:id/comments.
func (h *Handler) CreateComment(c *gin.Context) {
	userID := CurrentUserID(c)

	postID := c.Param("id")
	if postID == "" {
		h.errorResponse(c, http.StatusBadRequest, "post id is required")
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.engagementService.CreateComment(c.Request.Context(), userID, postID, req.ParentID, req.Content)
	if err != nil {
		h.serviceError(c, err, "Failed to create comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// GetComments returns a post's comments in creation order.
// GET /api/v1/posts/:id/comments.
func (h *Handler) GetComments(c *gin.Context) {
	postID := c.Param("id")
	if postID == "" {
		h.errorResponse(c, http.StatusBadRequest, "post id is required")
		return
	}

	comments, err := h.engagementService.Comments(c.Request.Context(), postID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve comments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"total":    len(comments),
	})
}

// createReportRequest is the body of POST /api/v1/reports.
type createReportRequest struct {
	TargetID   string `json:"target_id" binding:"required"`
	TargetKind string `json:"target_kind" binding:"required,oneof=post comment"`
	Reason     string `json:"reason" binding:"required"`
}

// CreateReport files a report against a post or comment.
// POST /api/v1/reports.
func (h *Handler) CreateReport(c *gin.Context) {
	userID := CurrentUserID(c)

	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.engagementService.Report(c.Request.Context(), userID, req.TargetID, req.TargetKind, req.Reason)
	if err != nil {
		h.serviceError(c, err, "Failed to file report")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// GetLeaderboard returns a ranked page of members.
// GET /api/v1/leaderboard?offset=0&limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	offset, limit, err := h.parsePage(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.leaderboardService.GetPage(c.Request.Context(), offset, limit)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":  page.Entries,
		"total":        page.Total,
		"offset":       offset,
		"limit":        limit,
		"has_more":     page.HasMore,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserStats returns the profile-page aggregation for a member.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}

	stats, err := h.statsService.UserStats(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve user stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetUserBadges returns a member's badge progress and awards.
// GET /api/v1/users/:id/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}

	userBadges, err := h.badgeService.UserBadges(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve user badges")
		return
	}

	earned := 0
	for i := range userBadges {
		if userBadges[i].Earned() {
			earned++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"badges":  userBadges,
		"earned":  earned,
	})
}

// GetUserPoints returns a member's point total and recent ledger entries.
// GET /api/v1/users/:id/points?limit=20.
func (h *Handler) GetUserPoints(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}

	limit, err := h.parseLimit(c, 20)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	total, err := h.ledgerService.Total(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve point total")
		return
	}

	events, err := h.ledgerService.Events(c.Request.Context(), userID, limit)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve ledger events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"total_points": total,
		"events":       events,
	})
}

// adjustPointsRequest is the body of POST /api/v1/users/:id/points/adjust.
type adjustPointsRequest struct {
	Amount int    `json:"amount" binding:"required"`
	Note   string `json:"note" binding:"required"`
}

// AdjustUserPoints appends a manual correction to a member's ledger. The
// adjustment is a new event; past events are never rewritten.
// POST /api/v1/users/:id/points/adjust.
func (h *Handler) AdjustUserPoints(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}

	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.ledgerService.ManualAdjust(c.Request.Context(), userID, req.Amount, req.Note)
	if err != nil {
		h.serviceError(c, err, "Failed to adjust points")
		return
	}

	// Adjustments can cross badge thresholds, so re-check immediately
	// rather than waiting for the sweep.
	if _, err := h.badgeService.Evaluate(c.Request.Context(), userID); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("Badge evaluation after adjustment failed")
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// GetBadgeCatalog returns the full badge catalog.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.badgeService.Catalog(c.Request.Context())
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges": catalog,
		"total":  len(catalog),
	})
}

// GetBadge returns one badge with its holder count.
// GET /api/v1/badges/:id.
func (h *Handler) GetBadge(c *gin.Context) {
	badgeID := c.Param("id")
	if badgeID == "" {
		h.errorResponse(c, http.StatusBadRequest, "badge id is required")
		return
	}

	badge, err := h.badgeService.BadgeByID(c.Request.Context(), badgeID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve badge")
		return
	}

	holders, err := h.badgeService.HoldersCount(c.Request.Context(), badgeID)
	if err != nil {
		h.serviceError(c, err, "Failed to count badge holders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badge":   badge,
		"holders": holders,
	})
}

// GetProfile returns a member profile.
// GET /api/v1/users/:id.
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}

	profile, err := h.profileService.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// upsertProfileRequest is the body of PUT /api/v1/users/me.
type upsertProfileRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FullName  string `json:"full_name" binding:"required"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

// UpsertProfile creates or refreshes the caller's profile from the identity
// the auth collaborator supplied.
// PUT /api/v1/users/me.
func (h *Handler) UpsertProfile(c *gin.Context) {
	userID := CurrentUserID(c)

	var req upsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	profile := &models.Profile{
		ID:        userID,
		Email:     req.Email,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	}
	if err := h.profileService.CreateOrUpdate(c.Request.Context(), profile); err != nil {
		h.serviceError(c, err, "Failed to save profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Helper functions

// parsePage extracts and validates offset/limit query parameters.
func (h *Handler) parsePage(c *gin.Context, defaultLimit int) (int, int, error) {
	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter: %s", offsetStr)
		}
		offset = parsed
	}

	limit, err := h.parseLimit(c, defaultLimit)
	if err != nil {
		return 0, 0, err
	}

	return offset, limit, nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	if limit > maxPageLimit {
		return 0, fmt.Errorf("limit cannot exceed %d", maxPageLimit)
	}

	return limit, nil
}

// serviceError maps sentinel errors onto HTTP statuses.
func (h *Handler) serviceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		h.errorResponse(c, http.StatusConflict, "Conflicting concurrent update, please retry")
	case errors.Is(err, models.ErrStorageUnavailable):
		h.errorResponse(c, http.StatusServiceUnavailable, "Storage temporarily unavailable")
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		h.errorResponse(c, http.StatusInternalServerError, message)
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
