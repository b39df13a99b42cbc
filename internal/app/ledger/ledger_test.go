package ledger

import (
	"testing"
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

func TestAccrue_FirstCallSeedsAccrualTimeNoGain(t *testing.T) {
	u := &domain.User{ID: "u1"}
	now := time.Now()

	gain := Accrue(u, fixedpoint.FromFloat(1.0), now, domain.Phase1, domain.DefaultDailyCaps)
	if gain != fixedpoint.Zero {
		t.Errorf("first Accrue() gain = %v, want 0", gain)
	}
	if !u.LastAccrualTS.Equal(now) {
		t.Errorf("LastAccrualTS = %v, want %v", u.LastAccrualTS, now)
	}
}

func TestAccrue_IntegratesOverElapsedHour(t *testing.T) {
	start := time.Now()
	u := &domain.User{ID: "u1", LastAccrualTS: start, LastDailyResetTS: start}

	rate := fixedpoint.FromFloat(0.01) // well under the phase-1 daily cap of 4.8
	gain := Accrue(u, rate, start.Add(time.Hour), domain.Phase1, domain.DefaultDailyCaps)

	if gain != rate {
		t.Errorf("Accrue() over 1h = %v, want exactly rate %v", gain, rate)
	}
	if u.PendingBalance != rate {
		t.Errorf("PendingBalance = %v, want %v", u.PendingBalance, rate)
	}
}

func TestAccrue_HalfHourIsHalfRate(t *testing.T) {
	start := time.Now()
	u := &domain.User{ID: "u1", LastAccrualTS: start, LastDailyResetTS: start}

	rate := fixedpoint.FromFloat(0.02)
	gain := Accrue(u, rate, start.Add(30*time.Minute), domain.Phase1, domain.DefaultDailyCaps)

	want := fixedpoint.FromFloat(0.01)
	if gain != want {
		t.Errorf("Accrue() over 30m = %v, want %v", gain, want)
	}
}

func TestAccrue_ClampsToDailyCap(t *testing.T) {
	start := time.Now()
	u := &domain.User{ID: "u1", LastAccrualTS: start, LastDailyResetTS: start}

	// Phase1 daily cap is 4.8 $FIN; a rate of 10/hr over 1h would produce 10.
	rate := fixedpoint.FromFloat(10.0)
	gain := Accrue(u, rate, start.Add(time.Hour), domain.Phase1, domain.DefaultDailyCaps)

	want := fixedpoint.FromFloat(4.8)
	if gain != want {
		t.Errorf("Accrue() clamped gain = %v, want daily cap %v", gain, want)
	}
	if u.DailyAccruedAmount != want {
		t.Errorf("DailyAccruedAmount = %v, want %v", u.DailyAccruedAmount, want)
	}

	// A second accrual within the same window should gain nothing further.
	gain2 := Accrue(u, rate, start.Add(2*time.Hour), domain.Phase1, domain.DefaultDailyCaps)
	if gain2 != fixedpoint.Zero {
		t.Errorf("second Accrue() within window = %v, want 0 (cap already hit)", gain2)
	}
}

func TestAccrue_DailyWindowResetsAfter24Hours(t *testing.T) {
	start := time.Now()
	u := &domain.User{ID: "u1", LastAccrualTS: start, LastDailyResetTS: start}

	rate := fixedpoint.FromFloat(10.0)
	_ = Accrue(u, rate, start.Add(time.Hour), domain.Phase1, domain.DefaultDailyCaps)

	gain := Accrue(u, rate, start.Add(25*time.Hour), domain.Phase1, domain.DefaultDailyCaps)
	if gain != fixedpoint.FromFloat(4.8) {
		t.Errorf("post-reset Accrue() gain = %v, want fresh daily cap %v", gain, fixedpoint.FromFloat(4.8))
	}
}

func TestAccrue_ZeroOrNegativeElapsedIsNoOp(t *testing.T) {
	start := time.Now()
	u := &domain.User{ID: "u1", LastAccrualTS: start, LastDailyResetTS: start}

	gain := Accrue(u, fixedpoint.FromFloat(1.0), start, domain.Phase1, domain.DefaultDailyCaps)
	if gain != fixedpoint.Zero {
		t.Errorf("Accrue() with zero elapsed = %v, want 0", gain)
	}
}

func TestClaim_MovesEntirePendingBalance(t *testing.T) {
	u := &domain.User{ID: "u1", PendingBalance: fixedpoint.FromFloat(5), CumulativeEarned: fixedpoint.FromFloat(20)}

	amount, err := Claim(u)
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if amount != fixedpoint.FromFloat(5) {
		t.Errorf("Claim() amount = %v, want 5", amount)
	}
	if u.PendingBalance != fixedpoint.Zero {
		t.Errorf("PendingBalance after claim = %v, want 0", u.PendingBalance)
	}
	if u.CumulativeEarned != fixedpoint.FromFloat(25) {
		t.Errorf("CumulativeEarned after claim = %v, want 25", u.CumulativeEarned)
	}
}

func TestClaim_NoPendingBalanceErrors(t *testing.T) {
	u := &domain.User{ID: "u1"}
	_, err := Claim(u)
	if err != domain.ErrNoPendingBalance {
		t.Fatalf("Claim() error = %v, want ErrNoPendingBalance", err)
	}
}
