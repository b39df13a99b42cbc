// Package ledger implements the Accrual & Claim Ledger: it
// turns the Mining Rate Calculator's instantaneous rate into a concrete
// $FIN balance by integrating over elapsed time, enforces the rolling
// daily cap, and settles claims. Grounded on app/credit/credit.go's
// double-entry DEBIT/CREDIT pattern, generalized from a fixed
// per-transaction amount to piecewise-constant rate integration.
package ledger

import (
	"time"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// hourMillis is the number of milliseconds in an hour, used to express
// elapsed wall-clock time as a ratio against an hourly rate.
const hourMillis = int64(time.Hour / time.Millisecond)

// dailyWindow is the rolling window the daily cap resets on (:
// "pending_balance gains in any rolling 24-hour window").
const dailyWindow = 24 * time.Hour

// Accrue integrates rate (an instantaneous $FIN/hour value from
// mining.Rate) over the elapsed interval since u.LastAccrualTS, adds the
// result to u.PendingBalance subject to the phase's rolling daily cap,
// and advances u.LastAccrualTS to now. Returns the amount actually
// credited (which may be less than the raw integration if the daily cap
// was hit — the excess is forfeited, not deferred, per ).
//
// Callers must invoke this before every state change that can affect
// rate: a new event, an effect added or expired, a stake change, a
// level-up, or a daily-cap reset — never compute a gain against a rate
// that changed mid-interval.
func Accrue(u *domain.User, rate fixedpoint.Amount, now time.Time, phase domain.NetworkPhase, dailyCaps [4]float64) fixedpoint.Amount {
	resetDailyWindowIfElapsed(u, now)

	if u.LastAccrualTS.IsZero() {
		u.LastAccrualTS = now
		return fixedpoint.Zero
	}

	elapsed := now.Sub(u.LastAccrualTS)
	u.LastAccrualTS = now
	if elapsed <= 0 {
		return fixedpoint.Zero
	}

	gain := rate.MulRatio(elapsed.Milliseconds(), hourMillis)
	gain = clampToDailyCap(u, gain, phase, dailyCaps)

	u.DailyAccruedAmount = u.DailyAccruedAmount.Add(gain)
	u.PendingBalance = u.PendingBalance.Add(gain)
	return gain
}

func resetDailyWindowIfElapsed(u *domain.User, now time.Time) {
	if u.LastDailyResetTS.IsZero() {
		u.LastDailyResetTS = now
		return
	}
	if now.Sub(u.LastDailyResetTS) >= dailyWindow {
		u.DailyAccruedAmount = fixedpoint.Zero
		u.LastDailyResetTS = now
	}
}

// clampToDailyCap reduces gain so that u.DailyAccruedAmount never exceeds
// the phase's daily cap; the forfeited remainder is not carried forward.
func clampToDailyCap(u *domain.User, gain fixedpoint.Amount, phase domain.NetworkPhase, dailyCaps [4]float64) fixedpoint.Amount {
	if gain <= 0 {
		return gain
	}
	capAmount := fixedpoint.FromFloat(domain.DailyCap(phase, dailyCaps))
	room := capAmount.Sub(u.DailyAccruedAmount)
	if room <= 0 {
		return fixedpoint.Zero
	}
	if gain > room {
		return room
	}
	return gain
}

// Claim atomically moves the entire pending balance into cumulative
// earned and zeroes pending_balance. Returns
// domain.ErrNoPendingBalance if there is nothing to claim; callers must
// not mutate state when that error is returned.
func Claim(u *domain.User) (fixedpoint.Amount, error) {
	if u.PendingBalance <= 0 {
		return fixedpoint.Zero, domain.ErrNoPendingBalance
	}
	amount := u.PendingBalance
	u.CumulativeEarned = u.CumulativeEarned.Add(amount)
	u.PendingBalance = fixedpoint.Zero
	return amount, nil
}
