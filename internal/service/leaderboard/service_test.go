package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/internal/repository"
	"github.com/connectthrive/community-engine/pkg/logger"
	"github.com/connectthrive/community-engine/test/mocks"
)

type mockLedgerRepository struct {
	rows     []repository.RankedTotal
	failNext bool
}

func (m *mockLedgerRepository) RankedTotals(_ context.Context, offset, limit int) ([]repository.RankedTotal, error) {
	if m.failNext {
		return nil, models.ErrStorageUnavailable
	}
	rows := m.rows
	if limit > 0 {
		if offset >= len(rows) {
			return nil, nil
		}
		end := offset + limit
		if end > len(rows) {
			end = len(rows)
		}
		rows = rows[offset:end]
	}
	return rows, nil
}

type mockProfileRepository struct {
	profiles map[string]*models.Profile
}

func (m *mockProfileRepository) Count(_ context.Context) (int64, error) {
	return int64(len(m.profiles)), nil
}

func (m *mockProfileRepository) GetByID(_ context.Context, id string) (*models.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func rankedFixture() ([]repository.RankedTotal, *mockProfileRepository) {
	base := time.Now().Add(-time.Hour)
	rows := []repository.RankedTotal{
		{UserID: "carol", FullName: "Carol", TotalPoints: 50, CreatedAt: base},
		{UserID: "bob", FullName: "Bob", TotalPoints: 50, CreatedAt: base.Add(time.Minute)},
		{UserID: "alice", FullName: "Alice", TotalPoints: 30, CreatedAt: base},
		{UserID: "dave", FullName: "Dave", TotalPoints: 30, CreatedAt: base.Add(time.Minute)},
		{UserID: "eve", FullName: "Eve", TotalPoints: 10, CreatedAt: base},
	}
	profiles := &mockProfileRepository{profiles: map[string]*models.Profile{}}
	for _, r := range rows {
		profiles.profiles[r.UserID] = &models.Profile{ID: r.UserID, FullName: r.FullName}
	}
	return rows, profiles
}

func testBoard(ledgerRepo LedgerRepository, profileRepo ProfileRepository, c *mocks.MockCache) *Service {
	log := logger.New("error", "json", "stdout")
	return NewServiceWithInterfaces(ledgerRepo, profileRepo, c, time.Minute, log)
}

func TestService_GetPage(t *testing.T) {
	rows, profiles := rankedFixture()
	svc := testBoard(&mockLedgerRepository{rows: rows}, profiles, mocks.NewMockCache())
	ctx := context.Background()

	page, err := svc.GetPage(ctx, 0, 3)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(page.Entries))
	}
	if page.Total != 5 {
		t.Errorf("Expected total 5, got %d", page.Total)
	}
	if !page.HasMore {
		t.Error("Expected has_more on first page")
	}

	// Ranks are 1-based and contiguous, even across equal totals.
	for i, entry := range page.Entries {
		if entry.Rank != i+1 {
			t.Errorf("Entry %d: expected rank %d, got %d", i, i+1, entry.Rank)
		}
	}
	if page.Entries[0].UserID != "carol" || page.Entries[1].UserID != "bob" {
		t.Errorf("Unexpected top entries: %s, %s", page.Entries[0].UserID, page.Entries[1].UserID)
	}
}

func TestService_GetPage_OffsetRanks(t *testing.T) {
	rows, profiles := rankedFixture()
	svc := testBoard(&mockLedgerRepository{rows: rows}, profiles, mocks.NewMockCache())

	page, err := svc.GetPage(context.Background(), 3, 3)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("Expected 2 entries on last page, got %d", len(page.Entries))
	}
	// Rank continues from the offset, not from 1.
	if page.Entries[0].Rank != 4 || page.Entries[1].Rank != 5 {
		t.Errorf("Expected ranks 4 and 5, got %d and %d", page.Entries[0].Rank, page.Entries[1].Rank)
	}
	if page.HasMore {
		t.Error("Expected has_more false on last page")
	}
}

func TestService_GetPage_Validation(t *testing.T) {
	rows, profiles := rankedFixture()
	svc := testBoard(&mockLedgerRepository{rows: rows}, profiles, mocks.NewMockCache())
	ctx := context.Background()

	if _, err := svc.GetPage(ctx, -1, 10); err == nil {
		t.Error("Expected error for negative offset")
	}
	if _, err := svc.GetPage(ctx, 0, 0); err == nil {
		t.Error("Expected error for zero limit")
	}
}

func TestService_GetPage_EmptyBeyondEnd(t *testing.T) {
	rows, profiles := rankedFixture()
	svc := testBoard(&mockLedgerRepository{rows: rows}, profiles, mocks.NewMockCache())

	page, err := svc.GetPage(context.Background(), 100, 10)
	if err != nil {
		t.Fatalf("GetPage beyond end failed: %v", err)
	}
	if len(page.Entries) != 0 {
		t.Errorf("Expected empty page beyond end, got %d entries", len(page.Entries))
	}
	if page.HasMore {
		t.Error("Expected has_more false beyond end")
	}
}

func TestService_GetPage_DegradesToCache(t *testing.T) {
	rows, profiles := rankedFixture()
	ledgerRepo := &mockLedgerRepository{rows: rows}
	c := mocks.NewMockCache()
	svc := testBoard(ledgerRepo, profiles, c)
	ctx := context.Background()

	// Prime the cache with a healthy read.
	fresh, err := svc.GetPage(ctx, 0, 3)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	// Store failure degrades to the last-known ranking.
	ledgerRepo.failNext = true
	stale, err := svc.GetPage(ctx, 0, 3)
	if err != nil {
		t.Fatalf("Expected degraded read to succeed, got %v", err)
	}
	if len(stale.Entries) != len(fresh.Entries) {
		t.Fatalf("Expected cached page, got %d entries", len(stale.Entries))
	}
	for i := range fresh.Entries {
		if stale.Entries[i].UserID != fresh.Entries[i].UserID {
			t.Errorf("Cached entry %d mismatch: %s vs %s", i, stale.Entries[i].UserID, fresh.Entries[i].UserID)
		}
	}

	// With a cold cache the failure surfaces.
	c.Clear()
	if _, err := svc.GetPage(ctx, 0, 3); err == nil {
		t.Error("Expected error when store and cache are both unavailable")
	}
}

func TestService_GetUserRank(t *testing.T) {
	rows, profiles := rankedFixture()
	svc := testBoard(&mockLedgerRepository{rows: rows}, profiles, mocks.NewMockCache())
	ctx := context.Background()

	rank, err := svc.GetUserRank(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserRank failed: %v", err)
	}
	if rank != 3 {
		t.Errorf("Expected rank 3, got %d", rank)
	}

	if _, err := svc.GetUserRank(ctx, "nobody"); err == nil {
		t.Error("Expected error for unknown member")
	}
}
