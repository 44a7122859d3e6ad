// README: Tests for order handler authorization and error mapping.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/handlers"
	httpmiddleware "github.com/heinNell/MobileOrderTracker-sub002/internal/http/middleware"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/infra"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

const knownOrder = "9b2f8d4e-1c3a-4e5b-8f6d-7a0b1c2d3e4f"

// stubTokenVerifier is a test double for infra.TokenVerifier.
type stubTokenVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func makeVerifier(uid, role, tenant string) *stubTokenVerifier {
	claims := map[string]interface{}{}
	if role != "" {
		claims["role"] = role
	}
	if tenant != "" {
		claims["tenant_id"] = tenant
	}
	return &stubTokenVerifier{token: &infra.FirebaseToken{UID: uid, Claims: claims}}
}

// stubRepo serves a single order and can be made to fail every call.
type stubRepo struct {
	o   order.Order
	err error
}

func (r *stubRepo) GetForTenant(_ context.Context, id, tenantID types.ID) (*order.Order, error) {
	if r.err != nil {
		return nil, r.err
	}
	if id != r.o.ID || tenantID != r.o.TenantID {
		return nil, order.ErrNotFound
	}
	cp := r.o
	return &cp, nil
}

func (r *stubRepo) GetByNumber(context.Context, string, types.ID) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (r *stubRepo) UpdateStatus(_ context.Context, _, _ types.ID, from, to order.Status, version int, _ *types.ID) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if from != r.o.Status || version != r.o.StatusVersion {
		return false, nil
	}
	r.o.Status = to
	r.o.StatusVersion++
	return true, nil
}

func (r *stubRepo) AppendEvent(context.Context, *order.Event) error { return nil }

type recordingEnder struct {
	ended []types.ID
}

func (e *recordingEnder) End(_ context.Context, _, tripID types.ID) error {
	e.ended = append(e.ended, tripID)
	return nil
}

// buildTestRouter wires a minimal Gin engine with the auth middleware and the order handler.
func buildTestRouter(verifier infra.TokenVerifier, repo order.Repository, trips handlers.TripEnder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(httpmiddleware.Auth(verifier), httpmiddleware.RequireTenant())
	h := handlers.NewOrderHandler(order.NewService(repo), trips)
	r.GET("/api/orders/:id", h.Get)
	r.POST("/api/orders/:id/status", h.Advance)
	return r
}

func newRepo(status order.Status) *stubRepo {
	return &stubRepo{o: order.Order{ID: knownOrder, TenantID: "t1", OrderNumber: "ORD-7", Status: status}}
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrderGet_Unauthenticated(t *testing.T) {
	r := buildTestRouter(&stubTokenVerifier{err: errors.New("invalid token")}, newRepo(order.StatusAssigned), nil)
	w := doRequest(r, http.MethodGet, "/api/orders/"+knownOrder, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestOrderGet_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		tenant string
		repo   *stubRepo
		want   int
	}{
		{"found", knownOrder, "t1", newRepo(order.StatusAssigned), http.StatusOK},
		{"other tenant", knownOrder, "t2", newRepo(order.StatusAssigned), http.StatusNotFound},
		{"not a uuid", "ORD-7", "t1", newRepo(order.StatusAssigned), http.StatusNotFound},
		{"store failure", knownOrder, "t1", &stubRepo{err: errors.New("connection reset")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildTestRouter(makeVerifier("u1", "dispatcher", tt.tenant), tt.repo, nil)
			w := doRequest(r, http.MethodGet, "/api/orders/"+tt.id, nil)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestOrderGet_HidesInternalErrors(t *testing.T) {
	r := buildTestRouter(makeVerifier("u1", "dispatcher", "t1"), &stubRepo{err: errors.New("pq: password authentication failed")}, nil)
	w := doRequest(r, http.MethodGet, "/api/orders/"+knownOrder, nil)
	if !bytes.Contains(w.Body.Bytes(), []byte("internal error")) || bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestOrderAdvance(t *testing.T) {
	tests := []struct {
		name      string
		from      order.Status
		to        string
		want      int
		wantEnded bool
	}{
		{"in transit keeps trip", order.StatusActivated, "in_transit", http.StatusOK, false},
		{"delivered ends trip", order.StatusArrived, "delivered", http.StatusOK, true},
		{"cancel ends trip", order.StatusActivated, "cancelled", http.StatusOK, true},
		{"skipping a step", order.StatusActivated, "delivered", http.StatusConflict, false},
		{"activation is scan only", order.StatusAssigned, "activated", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trips := &recordingEnder{}
			r := buildTestRouter(makeVerifier("u1", "dispatcher", "t1"), newRepo(tt.from), trips)
			w := doRequest(r, http.MethodPost, "/api/orders/"+knownOrder+"/status", map[string]string{"to": tt.to})
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if ended := len(trips.ended) == 1; ended != tt.wantEnded {
				t.Errorf("trip ended = %v, want %v", ended, tt.wantEnded)
			}
		})
	}
}

func TestOrderAdvance_MissingTarget(t *testing.T) {
	r := buildTestRouter(makeVerifier("u1", "dispatcher", "t1"), newRepo(order.StatusActivated), nil)
	w := doRequest(r, http.MethodPost, "/api/orders/"+knownOrder+"/status", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
