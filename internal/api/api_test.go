package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finova-network/reward-engine/internal/app/abuse"
	"github.com/finova-network/reward-engine/internal/app/engine"
	"github.com/finova-network/reward-engine/internal/app/intake"
	"github.com/finova-network/reward-engine/internal/app/ledger"
	"github.com/finova-network/reward-engine/internal/app/network"
	"github.com/finova-network/reward-engine/internal/app/propagator"
	"github.com/finova-network/reward-engine/internal/app/worker"
	"github.com/finova-network/reward-engine/internal/config"
	"github.com/finova-network/reward-engine/internal/domain"
	"github.com/finova-network/reward-engine/internal/infra/scheduler"
	"github.com/finova-network/reward-engine/internal/infra/store"
)

// newTestServer wires a Core and Intake service over a temp store (temp dir
// plus in-process collaborators, no network access).
func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}

	econ := config.DefaultConfig().Economics
	oracle := network.NewOracle(econ.PhaseThresholds)
	prop := propagator.NewService(db, econ.ReferralSplit)
	ledgerSvc := ledger.NewService(db, scheduler.DefaultRetryConfig(), econ.DailyCaps)
	workers := worker.NewPool()
	scorer := abuse.New(abuse.DefaultConfig())

	core := engine.New(db, scorer, oracle, prop, ledgerSvc, workers, econ)
	intakeSvc := intake.NewService(db, func(ev domain.EventRecord) error {
		_, err := core.IngestSocialActivity(context.Background(), ev)
		return err
	})

	srv := NewServer(core, core, core, intakeSvc)
	cleanup := func() { _ = db.Close() }
	return srv, cleanup
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Health(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAPI_EventsUserCreated(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	rec := postJSON(t, h, "/v1/events", map[string]any{
		"type":    "user_created",
		"user_id": "u1",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1", nil)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/users/u1 status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var snap userSnapshotResponse
	decodeJSON(t, rec, &snap)
	if snap.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", snap.UserID, "u1")
	}
}

func TestAPI_EventsUnknownType(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	rec := postJSON(t, srv.Handler(), "/v1/events", map[string]any{"type": "not_a_real_type"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAPI_EventsSocialActivity(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	postJSON(t, h, "/v1/events", map[string]any{"type": "user_created", "user_id": "u1"})
	postJSON(t, h, "/v1/events", map[string]any{"type": "kyc_status_changed", "user_id": "u1", "verified": true})

	rec := postJSON(t, h, "/v1/events", map[string]any{
		"type":          "social_activity",
		"user_id":       "u1",
		"external_id":   "ext-1",
		"platform":      "TIKTOK",
		"activity_type": "SOCIAL_POST",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var res ingestResultResponse
	decodeJSON(t, rec, &res)
	if res.Outcome != string(domain.OutcomeAccepted) {
		t.Errorf("Outcome = %q, want %q", res.Outcome, domain.OutcomeAccepted)
	}
}

func TestAPI_Claim(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	postJSON(t, h, "/v1/events", map[string]any{
		"type":       "user_created",
		"user_id":    "u1",
		"created_at": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	})
	postJSON(t, h, "/v1/events", map[string]any{"type": "kyc_status_changed", "user_id": "u1", "verified": true})
	postJSON(t, h, "/v1/events", map[string]any{
		"type":          "social_activity",
		"user_id":       "u1",
		"external_id":   "ext-1",
		"platform":      "TIKTOK",
		"activity_type": "SOCIAL_POST",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})

	rec := postJSON(t, h, "/v1/claims", claimRequest{UserID: "u1", ClaimNonce: fmt.Sprintf("nonce-%d", 1)})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var claimed claimResponse
	decodeJSON(t, rec, &claimed)
	if claimed.Status != string(domain.ClaimSettled) {
		t.Errorf("Status = %q, want %q", claimed.Status, domain.ClaimSettled)
	}
}

func TestAPI_NetworkState(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	h := srv.Handler()

	postJSON(t, h, "/v1/events", map[string]any{"type": "user_created", "user_id": "u1"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/network", nil)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var snap networkStateResponse
	decodeJSON(t, rec, &snap)
	if snap.TotalUsers != 1 {
		t.Errorf("TotalUsers = %d, want 1", snap.TotalUsers)
	}
}

func TestAPI_UserSnapshotNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/does-not-exist", nil)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
