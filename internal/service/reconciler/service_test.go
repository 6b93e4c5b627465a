package reconciler

import (
	"context"
	"fmt"
	"testing"

	"github.com/connectthrive/community-engine/internal/models"
	"github.com/connectthrive/community-engine/pkg/logger"
)

type mockEngagementRepository struct {
	counterRuns int
	failCounter bool
}

func (m *mockEngagementRepository) ReconcileCounters(_ context.Context) error {
	if m.failCounter {
		return fmt.Errorf("counters unavailable")
	}
	m.counterRuns++
	return nil
}

type mockProfileRepository struct {
	profiles []models.Profile
}

func (m *mockProfileRepository) List(_ context.Context) ([]models.Profile, error) {
	return m.profiles, nil
}

type mockLedgerService struct {
	drifted map[string]bool
	failFor map[string]bool
	checked []string
}

func (m *mockLedgerService) Reconcile(_ context.Context, userID string) (int64, bool, error) {
	if m.failFor[userID] {
		return 0, false, fmt.Errorf("cache write failed")
	}
	m.checked = append(m.checked, userID)
	return 0, m.drifted[userID], nil
}

func testReconciler(engagementRepo *mockEngagementRepository, profileRepo *mockProfileRepository, ledgerSvc *mockLedgerService) *Service {
	log := logger.New("error", "json", "stdout")
	return NewServiceWithInterfaces(engagementRepo, profileRepo, ledgerSvc, log)
}

func TestRun_SweepsAllMembers(t *testing.T) {
	engagementRepo := &mockEngagementRepository{}
	profileRepo := &mockProfileRepository{profiles: []models.Profile{
		{ID: "alice"}, {ID: "bob"}, {ID: "carol"},
	}}
	ledgerSvc := &mockLedgerService{
		drifted: map[string]bool{"bob": true},
		failFor: map[string]bool{},
	}
	svc := testReconciler(engagementRepo, profileRepo, ledgerSvc)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if engagementRepo.counterRuns != 1 {
		t.Errorf("Expected 1 counter repair, got %d", engagementRepo.counterRuns)
	}
	if result.MembersChecked != 3 {
		t.Errorf("Expected 3 members checked, got %d", result.MembersChecked)
	}
	if result.TotalsDrifted != 1 {
		t.Errorf("Expected 1 drifted total, got %d", result.TotalsDrifted)
	}
}

func TestRun_SkipsFailingMember(t *testing.T) {
	engagementRepo := &mockEngagementRepository{}
	profileRepo := &mockProfileRepository{profiles: []models.Profile{
		{ID: "alice"}, {ID: "broken"}, {ID: "carol"},
	}}
	ledgerSvc := &mockLedgerService{
		drifted: map[string]bool{},
		failFor: map[string]bool{"broken": true},
	}
	svc := testReconciler(engagementRepo, profileRepo, ledgerSvc)

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// One bad member never stalls the rest of the sweep.
	if result.MembersChecked != 2 {
		t.Errorf("Expected 2 members checked, got %d", result.MembersChecked)
	}
	if len(ledgerSvc.checked) != 2 {
		t.Errorf("Expected alice and carol checked, got %v", ledgerSvc.checked)
	}
}

func TestRun_CounterFailureAborts(t *testing.T) {
	engagementRepo := &mockEngagementRepository{failCounter: true}
	profileRepo := &mockProfileRepository{profiles: []models.Profile{{ID: "alice"}}}
	ledgerSvc := &mockLedgerService{drifted: map[string]bool{}, failFor: map[string]bool{}}
	svc := testReconciler(engagementRepo, profileRepo, ledgerSvc)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("Expected error when counter repair fails")
	}
	if len(ledgerSvc.checked) != 0 {
		t.Errorf("Expected no member sweep after counter failure, got %v", ledgerSvc.checked)
	}
}
