package professionals

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

func seedRepo() *InMemoryRepository {
	repo := NewInMemoryRepository()
	repo.Seed(&Professional{
		ID:             "pro-1",
		Name:           "Maria Santos",
		Email:          "maria@example.com",
		WhatsAppNumber: "+5511999990000",
	})
	return repo
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(tenancy.WithProfessionalID(req.Context(), "pro-1"))
}

func TestGetProfile_Success(t *testing.T) {
	handler := NewHandler(seedRepo(), logging.Default())

	w := httptest.NewRecorder()
	handler.GetProfile(w, authedRequest(http.MethodGet, "/profile", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var pro Professional
	if err := json.NewDecoder(w.Body).Decode(&pro); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if pro.Name != "Maria Santos" {
		t.Errorf("expected Maria Santos, got %s", pro.Name)
	}
}

func TestGetProfile_MissingIdentity(t *testing.T) {
	handler := NewHandler(seedRepo(), logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	w := httptest.NewRecorder()
	handler.GetProfile(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	repo := seedRepo()
	handler := NewHandler(repo, logging.Default())

	body, _ := json.Marshal(map[string]string{"name": "Maria S. Santos"})
	w := httptest.NewRecorder()
	handler.UpdateProfile(w, authedRequest(http.MethodPatch, "/profile", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	pro, _ := repo.GetByID(context.Background(), "pro-1")
	if pro.Name != "Maria S. Santos" {
		t.Errorf("expected updated name, got %s", pro.Name)
	}
	if pro.Email != "maria@example.com" {
		t.Errorf("untouched field changed: %s", pro.Email)
	}
}

func TestUpdateProfile_BlankName(t *testing.T) {
	handler := NewHandler(seedRepo(), logging.Default())

	body, _ := json.Marshal(map[string]string{"name": "  "})
	w := httptest.NewRecorder()
	handler.UpdateProfile(w, authedRequest(http.MethodPatch, "/profile", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateProfile_InvalidJSON(t *testing.T) {
	handler := NewHandler(seedRepo(), logging.Default())

	w := httptest.NewRecorder()
	handler.UpdateProfile(w, authedRequest(http.MethodPatch, "/profile", []byte("{")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := seedRepo()
	handler := NewHandler(repo, logging.Default())

	settings := Settings{
		BusinessName:      "Studio Maria",
		AssistantName:     "Clara",
		Timezone:          "America/Sao_Paulo",
		ReminderLeadHours: 24,
		WorkdayStart:      "09:00",
		WorkdayEnd:        "18:00",
	}
	body, _ := json.Marshal(settings)
	w := httptest.NewRecorder()
	handler.PutSettings(w, authedRequest(http.MethodPut, "/settings", body))
	if w.Code != http.StatusOK {
		t.Fatalf("put settings: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.GetSettings(w, authedRequest(http.MethodGet, "/settings", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get settings: expected 200, got %d", w.Code)
	}
	var got Settings
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ProfessionalID != "pro-1" {
		t.Errorf("expected settings scoped to pro-1, got %s", got.ProfessionalID)
	}
	if got.AssistantName != "Clara" {
		t.Errorf("expected Clara, got %s", got.AssistantName)
	}
}

func TestPutSettings_InvalidLeadHours(t *testing.T) {
	handler := NewHandler(seedRepo(), logging.Default())

	body, _ := json.Marshal(Settings{ReminderLeadHours: 0})
	w := httptest.NewRecorder()
	handler.PutSettings(w, authedRequest(http.MethodPut, "/settings", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "reminder lead hours") {
		t.Errorf("unexpected error body: %s", w.Body.String())
	}
}

func TestGetSettings_NotFound(t *testing.T) {
	handler := NewHandler(seedRepo(), logging.Default())

	w := httptest.NewRecorder()
	handler.GetSettings(w, authedRequest(http.MethodGet, "/settings", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
