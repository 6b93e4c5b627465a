package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/connectthrive/community-engine/internal/models"
)

func TestProfileRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	profile := &models.Profile{
		ID:       "auth0|alice",
		Email:    "alice@example.com",
		FullName: "Alice",
	}
	if err := repo.Create(ctx, profile); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "auth0|alice")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Expected email alice@example.com, got %s", got.Email)
	}

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if byEmail.ID != "auth0|alice" {
		t.Errorf("Expected id auth0|alice, got %s", byEmail.ID)
	}

	_, err = repo.GetByID(ctx, "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestProfileRepository_CreateOrUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	// First sight creates the row.
	if err := repo.CreateOrUpdate(ctx, &models.Profile{ID: "bob", Email: "bob@example.com", FullName: "Bob"}); err != nil {
		t.Fatalf("CreateOrUpdate (create) failed: %v", err)
	}

	// Second sight refreshes the mutable fields in place.
	if err := repo.CreateOrUpdate(ctx, &models.Profile{ID: "bob", Email: "bob@new.example.com", FullName: "Robert"}); err != nil {
		t.Fatalf("CreateOrUpdate (update) failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "bob")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FullName != "Robert" || got.Email != "bob@new.example.com" {
		t.Errorf("Expected refreshed profile, got %+v", got)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 profile, got %d", count)
	}
}

// Verification and location are granted outside the identity refresh; a
// routine upsert must not clear them.
func TestProfileRepository_CreateOrUpdate_PreservesModerationFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Profile{
		ID:         "carol",
		Email:      "carol@example.com",
		FullName:   "Carol",
		Location:   "Maple Street",
		IsVerified: true,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	refreshed := &models.Profile{ID: "carol", Email: "carol@new.example.com", FullName: "Carol K"}
	if err := repo.CreateOrUpdate(ctx, refreshed); err != nil {
		t.Fatalf("CreateOrUpdate failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "carol")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsVerified {
		t.Error("Expected verification flag to survive the upsert")
	}
	if got.Location != "Maple Street" {
		t.Errorf("Expected location preserved, got %q", got.Location)
	}
	if got.Email != "carol@new.example.com" || got.FullName != "Carol K" {
		t.Errorf("Expected identity fields refreshed, got %+v", got)
	}

	// The caller's struct reflects the merged row.
	if !refreshed.IsVerified || refreshed.Location != "Maple Street" {
		t.Errorf("Expected merged profile returned to caller, got %+v", refreshed)
	}
}

func TestProfileRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	createTestProfile(t, db, "a")
	createTestProfile(t, db, "b")

	profiles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Errorf("Expected 2 profiles, got %d", len(profiles))
	}
}
