package repository

import (
	"context"
	"testing"
	"time"

	"github.com/connectthrive/community-engine/internal/models"
)

func appendEvent(t *testing.T, repo *LedgerRepository, userID string, amount int, reason string) {
	t.Helper()

	err := repo.Append(context.Background(), &models.PointsEvent{
		UserID: userID,
		Amount: amount,
		Reason: reason,
	})
	if err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
}

func TestLedgerRepository_Append(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	createTestProfile(t, db, "alice")

	appendEvent(t, repo, "alice", 10, models.ReasonPostCreated)
	appendEvent(t, repo, "alice", -5, models.ReasonManualAdjustment)

	count, err := repo.CountByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events, got %d", count)
	}

	// Validation failures.
	if err := repo.Append(ctx, &models.PointsEvent{UserID: "", Amount: 1, Reason: models.ReasonPostCreated}); err == nil {
		t.Error("Expected error for empty user id")
	}
	if err := repo.Append(ctx, &models.PointsEvent{UserID: "alice", Amount: 1, Reason: "won_lottery"}); err == nil {
		t.Error("Expected error for unknown reason")
	}
}

func TestLedgerRepository_SumByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	createTestProfile(t, db, "alice")

	// No events yet: the sum is zero, not an error.
	total, err := repo.SumByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("SumByUser failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected 0 for empty ledger, got %d", total)
	}

	appendEvent(t, repo, "alice", 10, models.ReasonPostCreated)
	appendEvent(t, repo, "alice", 5, models.ReasonPostLikedByOther)
	appendEvent(t, repo, "alice", -20, models.ReasonManualAdjustment)

	// Negative totals are allowed; the ledger never rejects an append for
	// the balance it produces.
	total, err = repo.SumByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("SumByUser failed: %v", err)
	}
	if total != -5 {
		t.Errorf("Expected total -5, got %d", total)
	}
}

func TestLedgerRepository_EventsByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	createTestProfile(t, db, "alice")
	for i := 0; i < 5; i++ {
		appendEvent(t, repo, "alice", 10, models.ReasonPostCreated)
	}

	events, err := repo.EventsByUser(ctx, "alice", 3)
	if err != nil {
		t.Fatalf("EventsByUser failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Expected 3 events with limit, got %d", len(events))
	}

	all, err := repo.EventsByUser(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("EventsByUser (no limit) failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Expected 5 events without limit, got %d", len(all))
	}
	// Newest first.
	if all[0].ID < all[4].ID {
		t.Error("Expected newest event first")
	}
}

func TestLedgerRepository_RankedTotals(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	// Five members with totals [50, 50, 30, 30, 10]. The two ties are
	// broken by account creation time, then id.
	base := time.Now().Add(-24 * time.Hour)
	members := []struct {
		id      string
		created time.Time
		total   int
	}{
		{"eve", base.Add(4 * time.Hour), 10},
		{"carol", base.Add(2 * time.Hour), 50}, // older account, wins the 50 tie
		{"dave", base.Add(3 * time.Hour), 30},
		{"alice", base.Add(1 * time.Hour), 30}, // older account, wins the 30 tie
		{"bob", base.Add(5 * time.Hour), 50},
	}
	for _, m := range members {
		profile := &models.Profile{ID: m.id, FullName: m.id, CreatedAt: m.created}
		if err := db.Create(profile).Error; err != nil {
			t.Fatalf("Failed to create profile: %v", err)
		}
		if m.total > 0 {
			appendEvent(t, repo, m.id, m.total, models.ReasonManualAdjustment)
		}
	}
	// A member with no events ranks last with total 0.
	if err := db.Create(&models.Profile{ID: "zed", FullName: "zed", CreatedAt: base.Add(6 * time.Hour)}).Error; err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}

	rows, err := repo.RankedTotals(ctx, 0, 0)
	if err != nil {
		t.Fatalf("RankedTotals failed: %v", err)
	}

	wantOrder := []string{"carol", "bob", "alice", "dave", "eve", "zed"}
	if len(rows) != len(wantOrder) {
		t.Fatalf("Expected %d rows, got %d", len(wantOrder), len(rows))
	}
	for i, want := range wantOrder {
		if rows[i].UserID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, rows[i].UserID)
		}
	}
	if rows[0].TotalPoints != 50 || rows[5].TotalPoints != 0 {
		t.Errorf("Unexpected totals: first %d, last %d", rows[0].TotalPoints, rows[5].TotalPoints)
	}

	// Identical consecutive reads with no writes in between.
	again, err := repo.RankedTotals(ctx, 0, 0)
	if err != nil {
		t.Fatalf("RankedTotals (repeat) failed: %v", err)
	}
	for i := range rows {
		if again[i].UserID != rows[i].UserID {
			t.Errorf("Ranking not deterministic at position %d", i)
		}
	}

	// Pagination slices the same ordering.
	page, err := repo.RankedTotals(ctx, 2, 2)
	if err != nil {
		t.Fatalf("RankedTotals (page) failed: %v", err)
	}
	if len(page) != 2 || page[0].UserID != "alice" || page[1].UserID != "dave" {
		t.Errorf("Expected page [alice dave], got %v", page)
	}
}
