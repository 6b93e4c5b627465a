package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/connectthrive/community-engine/internal/models"
)

// LedgerRepository handles the append-only points ledger. There is
// deliberately no update or delete method: corrections are compensating
// appends, preserving full auditability.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append inserts a points event. Amounts may be negative; the resulting
// total going negative is never a reason to reject.
func (r *LedgerRepository) Append(ctx context.Context, event *models.PointsEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("points event requires a user id: %w", models.ErrNotFound)
	}
	if !models.ValidReason(event.Reason) {
		return fmt.Errorf("unknown points reason %q", event.Reason)
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append points event: %w", translateError(err))
	}
	return nil
}

// SumByUser computes the authoritative point total: the sum of every event
// amount for the user.
func (r *LedgerRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.PointsEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum points events: %w", translateError(err))
	}
	return total, nil
}

// EventsByUser returns the user's events, newest first. limit <= 0 returns
// everything.
func (r *LedgerRepository) EventsByUser(ctx context.Context, userID string, limit int) ([]models.PointsEvent, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []models.PointsEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list points events: %w", translateError(err))
	}
	return events, nil
}

// CountByUser returns the number of ledger entries for a user.
func (r *LedgerRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PointsEvent{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, translateError(err)
}

// RankedTotal is one row of the ranked aggregation underlying the
// leaderboard.
type RankedTotal struct {
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	AvatarURL   string    `json:"avatar_url"`
	TotalPoints int64     `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

// RankedTotals aggregates every member's point total ordered by
// (total DESC, account creation ASC, id ASC). The trailing keys exist purely
// to make the ordering deterministic when totals tie. limit <= 0 returns the
// full ranking.
func (r *LedgerRepository) RankedTotals(ctx context.Context, offset, limit int) ([]RankedTotal, error) {
	query := `
		SELECT p.id AS user_id,
		       p.full_name AS full_name,
		       p.avatar_url AS avatar_url,
		       p.created_at AS created_at,
		       COALESCE(SUM(e.amount), 0) AS total_points
		FROM profiles p
		LEFT JOIN points_events e ON e.user_id = p.id
		GROUP BY p.id, p.full_name, p.avatar_url, p.created_at
		ORDER BY total_points DESC, p.created_at ASC, p.id ASC`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	var rows []RankedTotal
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to rank point totals: %w", translateError(err))
	}
	return rows, nil
}
