package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/fixedpoint"
)

// eventEnvelope is the wire format for POST /v1/events: a type-discriminated
// union over every domain.EventSink event, flattened into one JSON object
// since events of every kind share a single ingress route.
type eventEnvelope struct {
	Type string `json:"type"`

	UserID     string    `json:"user_id"`
	ReferrerID string    `json:"referrer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`

	Verified bool `json:"verified,omitempty"`

	ExternalID         string                    `json:"external_id,omitempty"`
	Platform           string                    `json:"platform,omitempty"`
	ActivityType       string                    `json:"activity_type,omitempty"`
	Timestamp          time.Time                 `json:"timestamp,omitempty"`
	ContentFingerprint string                    `json:"content_fingerprint,omitempty"`
	Engagement         domain.EngagementCounters `json:"engagement,omitempty"`
	DeviceInfo         string                    `json:"device_info,omitempty"`

	Delta float64 `json:"delta,omitempty"`
	Kind  string  `json:"kind,omitempty"`

	Source    string  `json:"source,omitempty"`
	Class     string  `json:"class,omitempty"`
	MiningMul float64 `json:"mining_multiplier,omitempty"`
	XPMul     float64 `json:"xp_multiplier,omitempty"`
	RPMul     float64 `json:"rp_multiplier,omitempty"`
	Expiry    time.Time `json:"expiry,omitempty"`
}

// handleEvents dispatches a single event envelope to the boundary method
// its type names. SocialActivity events go through Intake for dedup and
// per-user sequencing; every other event type has no replay
// window and is handed straight to the EventSink.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var env eventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	switch env.Type {
	case "user_created":
		err := s.events.IngestUserCreated(ctx, domain.UserCreated{
			UserID:     env.UserID,
			ReferrerID: env.ReferrerID,
			CreatedAt:  env.CreatedAt,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	case "kyc_status_changed":
		err := s.events.IngestKYCStatusChanged(ctx, domain.KYCStatusChanged{
			UserID:   env.UserID,
			Verified: env.Verified,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	case "social_activity":
		if s.intake == nil {
			writeError(w, http.StatusServiceUnavailable, "intake not configured")
			return
		}
		res, err := s.intake.Ingest(ctx, domain.EventRecord{
			UserID:             env.UserID,
			ExternalID:         env.ExternalID,
			Platform:           domain.Platform(env.Platform),
			ActivityType:       domain.ActivityType(env.ActivityType),
			Timestamp:          env.Timestamp,
			ContentFingerprint: env.ContentFingerprint,
			Engagement:         env.Engagement,
			DeviceInfo:         env.DeviceInfo,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ingestResultDTO(res))

	case "stake_operation":
		err := s.events.IngestStakeOperation(ctx, domain.StakeOperation{
			UserID:    env.UserID,
			Delta:     fixedpoint.FromFloat(env.Delta),
			Kind:      domain.StakeOperationKind(env.Kind),
			Timestamp: env.Timestamp,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	case "effect_granted":
		err := s.events.IngestEffectGranted(ctx, domain.EffectGranted{
			UserID:    env.UserID,
			Source:    env.Source,
			Class:     domain.EffectClass(env.Class),
			MiningMul: fixedpoint.FromFloatRatio(env.MiningMul),
			XPMul:     fixedpoint.FromFloatRatio(env.XPMul),
			RPMul:     fixedpoint.FromFloatRatio(env.RPMul),
			Expiry:    env.Expiry,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	default:
		writeError(w, http.StatusBadRequest, "unknown event type: "+env.Type)
	}
}

type ingestResultResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

func ingestResultDTO(res domain.IngestResult) ingestResultResponse {
	return ingestResultResponse{Outcome: string(res.Outcome), Reason: res.Reason}
}

type claimRequest struct {
	UserID     string `json:"user_id"`
	ClaimNonce string `json:"claim_nonce"`
}

type claimResponse struct {
	UserID           string `json:"user_id"`
	Amount           string `json:"amount"`
	CumulativeEarned string `json:"cumulative_earned"`
	ClaimNonce       string `json:"claim_nonce"`
	Status           string `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
}

// handleClaims implements POST /v1/claims.
func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	claimed, err := s.claims.Claim(ctx, domain.ClaimRequested{UserID: req.UserID, ClaimNonce: req.ClaimNonce})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		UserID:           claimed.UserID,
		Amount:           claimed.Amount.String(),
		CumulativeEarned: claimed.CumulativeEarned.String(),
		ClaimNonce:       claimed.ClaimNonce,
		Status:           string(claimed.Status),
		Timestamp:        claimed.Timestamp,
	})
}

type effectEntryResponse struct {
	Source  string    `json:"source"`
	Class   string    `json:"class"`
	Mining  float64   `json:"mining_multiplier"`
	XP      float64   `json:"xp_multiplier"`
	RP      float64   `json:"rp_multiplier"`
	StartAt time.Time `json:"start_at"`
	Expiry  time.Time `json:"expiry"`
}

type userSnapshotResponse struct {
	UserID         string                `json:"user_id"`
	XP             domain.XPState        `json:"xp"`
	RP             domain.RPState        `json:"rp"`
	Staking        domain.StakingState   `json:"staking"`
	PendingBalance string                `json:"pending_balance"`
	CurrentRate    float64               `json:"current_rate_fin_per_hour"`
	ActiveEffects  []effectEntryResponse `json:"active_effects"`
}

// handleUserSnapshot implements GET /v1/users/{id} (domain.SnapshotReader).
func (s *Server) handleUserSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	snap, err := s.snapshots.UserSnapshot(ctx, userID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	effectsDTO := make([]effectEntryResponse, 0, len(snap.ActiveEffects))
	for _, e := range snap.ActiveEffects {
		effectsDTO = append(effectsDTO, effectEntryResponse{
			Source:  e.Source,
			Class:   string(e.Class),
			Mining:  e.Multiplier.Mining.Float(),
			XP:      e.Multiplier.XP.Float(),
			RP:      e.Multiplier.RP.Float(),
			StartAt: e.StartAt,
			Expiry:  e.Expiry,
		})
	}

	writeJSON(w, http.StatusOK, userSnapshotResponse{
		UserID:         snap.UserID,
		XP:             snap.XP,
		RP:             snap.RP,
		Staking:        snap.Staking,
		PendingBalance: snap.PendingBalance.String(),
		CurrentRate:    snap.CurrentRate.Float(),
		ActiveEffects:  effectsDTO,
	})
}

type networkStateResponse struct {
	TotalUsers uint64  `json:"total_users"`
	Phase      int     `json:"phase"`
	BaseRate   float64 `json:"base_rate_fin_per_hour"`
}

// handleNetworkState implements GET /v1/network (domain.SnapshotReader).
func (s *Server) handleNetworkState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	snap, err := s.snapshots.NetworkState(ctx)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, networkStateResponse{
		TotalUsers: snap.TotalUsers,
		Phase:      int(snap.Phase),
		BaseRate:   snap.BaseRate,
	})
}

type deadLetterResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserID    string    `json:"user_id"`
	Payload   string    `json:"payload"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}

// handleDeadLetters implements GET /v1/dead-letters?kind=&limit= for
// operator inspection of parked work items (domain.SnapshotReader).
func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()

	kind := domain.DeadLetterKind(r.URL.Query().Get("kind"))
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.snapshots.DeadLetters(ctx, kind, limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := make([]deadLetterResponse, 0, len(items))
	for _, dl := range items {
		out = append(out, deadLetterResponse{
			ID:        dl.ID,
			Kind:      string(dl.Kind),
			UserID:    dl.UserID,
			Payload:   dl.Payload,
			Attempts:  dl.Attempts,
			LastError: dl.LastError,
			FailedAt:  dl.FailedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
