package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

func moduleRequest(method, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/servers/srv-1/modules", strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, "/servers/srv-1/modules", nil)
	}
	req.Header.Set("Authorization", "Bearer ingest-secret")
	return req
}

func TestUpsertModule(t *testing.T) {
	moduleID := uuid.New()
	cfg := newTestConfig()
	cfg.Modules = &MockModuleService{
		UpsertFunc: func(ctx context.Context, serverID string, req *models.UpsertModuleRequest) (*models.ServerModule, error) {
			return &models.ServerModule{
				ID:        moduleID,
				ServerID:  serverID,
				Name:      req.Name,
				BaseURL:   req.BaseURL,
				Enabled:   true,
				Transform: "raw_ndjson_gz",
			}, nil
		},
	}
	h := New(cfg)

	router := h.Routes()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, moduleRequest("POST", `{"name":"Combat Core","base_url":"http://127.0.0.1:4032"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.ServerModule
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != moduleID || resp.ServerID != "srv-1" || resp.Name != "Combat Core" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUpsertModuleValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"Missing Name", `{"base_url":"http://127.0.0.1:4032"}`, "name is required"},
		{"Missing Base URL", `{"name":"Combat Core"}`, "base_url is required"},
	}

	h := New(newTestConfig())
	router := h.Routes()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, moduleRequest("POST", tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestModulesAuth(t *testing.T) {
	h := New(newTestConfig())
	router := h.Routes()

	// Near misses sharing a prefix with the real token must fail like any
	// other wrong token.
	for _, token := range []string{"Bearer wrong", "Bearer ingest-secre", "Bearer ingest-secrets"} {
		req := httptest.NewRequest("GET", "/servers/srv-1/modules", nil)
		req.Header.Set("Authorization", token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, w.Code)
		}
	}
}

func TestListModules(t *testing.T) {
	cfg := newTestConfig()
	cfg.Modules = &MockModuleService{
		ListFunc: func(ctx context.Context, serverID string) ([]models.ServerModule, error) {
			return []models.ServerModule{
				{ID: uuid.New(), ServerID: serverID, Name: "Combat Core"},
				{ID: uuid.New(), ServerID: serverID, Name: "Movement Core"},
			}, nil
		},
	}
	h := New(cfg)

	router := h.Routes()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, moduleRequest("GET", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp []models.ServerModule
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("modules = %d, want 2", len(resp))
	}
}
