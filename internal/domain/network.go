package domain

import "time"

// NetworkPhase is the global mining phase, 1..4, thresholded
// by total registered users. Transitions are monotone and non-reversing.
type NetworkPhase int

const (
	Phase1 NetworkPhase = 1
	Phase2 NetworkPhase = 2
	Phase3 NetworkPhase = 3
	Phase4 NetworkPhase = 4
)

// PhaseThresholds is `phase_thresholds = {100_000, 1_000_000,
// 10_000_000}`, exposed as configuration. Grounded on the
// domain/region.go threshold/lookup-table style.
type PhaseThresholds struct {
	Phase2At uint64
	Phase3At uint64
	Phase4At uint64
}

// DefaultPhaseThresholds is default set.
var DefaultPhaseThresholds = PhaseThresholds{
	Phase2At: 100_000,
	Phase3At: 1_000_000,
	Phase4At: 10_000_000,
}

// PhaseForUserCount resolves the current phase from total users. Monotone
// and non-reversing is enforced by the caller (Network Phase Oracle) never
// writing a phase lower than the current one.
func PhaseForUserCount(totalUsers uint64, t PhaseThresholds) NetworkPhase {
	switch {
	case totalUsers >= t.Phase4At:
		return Phase4
	case totalUsers >= t.Phase3At:
		return Phase3
	case totalUsers >= t.Phase2At:
		return Phase2
	default:
		return Phase1
	}
}

// NetworkState holds the global user count, current phase, and
// phase-entry timestamps.
type NetworkState struct {
	TotalUsers       uint64
	Phase            NetworkPhase
	PhaseEnteredAt   map[NetworkPhase]time.Time
}

// BaseRate implements `base_rate ∈ {0.1, 0.05, 0.025, 0.01}`
// table by phase.
func BaseRate(phase NetworkPhase, rates [4]float64) float64 {
	idx := int(phase) - 1
	if idx < 0 || idx >= len(rates) {
		idx = 0
	}
	return rates[idx]
}

// DefaultBaseRates is `base_rates = {0.1, 0.05, 0.025, 0.01}`.
var DefaultBaseRates = [4]float64{0.1, 0.05, 0.025, 0.01}

// DefaultDailyCaps is `daily_caps = {4.8, 1.8, 0.72, 0.24}` $FIN.
var DefaultDailyCaps = [4]float64{4.8, 1.8, 0.72, 0.24}

// DailyCap returns the per-phase daily cap.
func DailyCap(phase NetworkPhase, caps [4]float64) float64 {
	idx := int(phase) - 1
	if idx < 0 || idx >= len(caps) {
		idx = 0
	}
	return caps[idx]
}
