package ledger

import (
	"testing"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
	"github.com/finova-network/reward-engine/internal/infra/scheduler"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

func newTestService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(dir)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db, scheduler.DefaultRetryConfig(), domain.DefaultDailyCaps), db
}

func TestService_AccrueAndPersist(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	if err := db.UpsertUser(domain.User{ID: "u1", Status: domain.UserActive, LastAccrualTS: now, LastDailyResetTS: now, CreatedAt: now}); err != nil {
		t.Fatalf("UpsertUser() error: %v", err)
	}

	rate := fixedpoint.FromFloat(0.01)
	gain, err := svc.AccrueAndPersist("u1", rate, now.Add(time.Hour), domain.Phase1)
	if err != nil {
		t.Fatalf("AccrueAndPersist() error: %v", err)
	}
	if gain != rate {
		t.Errorf("AccrueAndPersist() gain = %v, want %v", gain, rate)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	if got.PendingBalance != rate {
		t.Errorf("persisted PendingBalance = %v, want %v", got.PendingBalance, rate)
	}
}

func TestService_Claim_SettlesAndPersists(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	if err := db.UpsertUser(domain.User{
		ID: "u1", Status: domain.UserActive, PendingBalance: fixedpoint.FromFloat(3),
		CumulativeEarned: fixedpoint.FromFloat(7), CreatedAt: now,
	}); err != nil {
		t.Fatalf("UpsertUser() error: %v", err)
	}

	claim, err := svc.Claim("u1", "nonce-1", now)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if claim.Amount != fixedpoint.FromFloat(3) {
		t.Errorf("Claim() amount = %v, want 3", claim.Amount)
	}
	if claim.Status != domain.ClaimSettled {
		t.Errorf("Claim() status = %v, want settled", claim.Status)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	if got.PendingBalance != fixedpoint.Zero {
		t.Errorf("persisted PendingBalance = %v, want 0", got.PendingBalance)
	}
	if got.CumulativeEarned != fixedpoint.FromFloat(10) {
		t.Errorf("persisted CumulativeEarned = %v, want 10", got.CumulativeEarned)
	}
}

func TestService_Claim_ReplayIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()

	if err := db.UpsertUser(domain.User{ID: "u1", Status: domain.UserActive, PendingBalance: fixedpoint.FromFloat(3), CreatedAt: now}); err != nil {
		t.Fatalf("UpsertUser() error: %v", err)
	}

	first, err := svc.Claim("u1", "nonce-1", now)
	if err != nil {
		t.Fatalf("first Claim() error: %v", err)
	}

	replay, err := svc.Claim("u1", "nonce-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("replay Claim() error: %v", err)
	}
	if replay.Amount != first.Amount {
		t.Errorf("replay amount = %v, want original %v", replay.Amount, first.Amount)
	}
	if replay.Status != domain.ClaimAlreadySettled {
		t.Errorf("replay status = %v, want already_settled", replay.Status)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	if got.PendingBalance != fixedpoint.Zero {
		t.Errorf("PendingBalance after replay = %v, want 0 (not double-credited)", got.PendingBalance)
	}
}

func TestService_Claim_NoPendingBalanceLeavesStateUntouched(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now().UTC()
	if err := db.UpsertUser(domain.User{ID: "u1", Status: domain.UserActive, CreatedAt: now}); err != nil {
		t.Fatalf("UpsertUser() error: %v", err)
	}

	_, err := svc.Claim("u1", "nonce-1", now)
	if err != domain.ErrNoPendingBalance {
		t.Fatalf("Claim() error = %v, want ErrNoPendingBalance", err)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("GetUser() error: %v", err)
	}
	if got.PendingBalance != fixedpoint.Zero {
		t.Errorf("PendingBalance = %v, want unchanged 0", got.PendingBalance)
	}
}
